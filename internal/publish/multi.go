package publish

import "errors"

// Multi fans every call out to all publishers. One failing publisher does
// not stop delivery to the rest; the errors are joined.
type Multi []Publisher

// Publish sends e to every publisher.
func (m Multi) Publish(e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Status sends v to every publisher.
func (m Multi) Status(v any) error {
	var errs []error
	for _, p := range m {
		if err := p.Status(v); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
