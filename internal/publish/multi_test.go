package publish

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failing struct{ err error }

func (f failing) Publish(Event) error { return f.err }
func (f failing) Status(any) error    { return f.err }
func (f failing) Close() error        { return f.err }

func TestMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, b}

	require.NoError(t, m.Publish(Event{Kind: KindReset}))
	require.NoError(t, m.Status("ok"))
	require.NoError(t, m.Close())

	assert.Equal(t, []string{KindReset}, a.Kinds())
	assert.Equal(t, []string{KindReset}, b.Kinds())
	assert.Equal(t, "ok", b.LastStatus())
}

func TestMulti_ErrorDoesNotStopDelivery(t *testing.T) {
	boom := errors.New("boom")
	r := &Recorder{}
	m := Multi{failing{boom}, r}

	err := m.Publish(Event{Kind: KindPlace})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{KindPlace}, r.Kinds())
	assert.ErrorIs(t, m.Close(), boom)
}
