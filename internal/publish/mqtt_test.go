package publish

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type sent struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	sent         []sent
	disconnected bool
	err          error
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{topic, retained, payload.([]byte)})
	return &doneToken{err: f.err}
}

func (f *fakeClient) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func TestMQTT_Publish(t *testing.T) {
	fc := &fakeClient{}
	logger, _ := test.NewNullLogger()
	m := newMQTT(fc, "abhinaya/", logger)

	at := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	if err := m.Publish(Event{Kind: KindPlace, At: at, Data: map[string]int{"row": 1}}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := m.Status(map[string]string{"status": "ok"}); err != nil {
		t.Fatalf("Status: %v", err)
	}

	if len(fc.sent) != 2 {
		t.Fatalf("sent %d messages, want 2", len(fc.sent))
	}
	if fc.sent[0].topic != "abhinaya/events/place" || fc.sent[0].retained {
		t.Errorf("event message = %+v", fc.sent[0])
	}
	if fc.sent[1].topic != "abhinaya/status" || !fc.sent[1].retained {
		t.Errorf("status message = %+v", fc.sent[1])
	}

	var e Event
	if err := json.Unmarshal(fc.sent[0].payload, &e); err != nil {
		t.Fatalf("payload is not JSON: %v", err)
	}
	if e.Kind != KindPlace || !e.At.Equal(at) {
		t.Errorf("decoded event = %+v", e)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !fc.disconnected {
		t.Error("Close should disconnect the client")
	}
}

func TestMQTT_DeliveryFailureIsLogged(t *testing.T) {
	fc := &fakeClient{err: mqtt.ErrNotConnected}
	logger, hook := test.NewNullLogger()
	m := newMQTT(fc, "abhinaya", logger)

	if err := m.Publish(Event{Kind: KindReset}); err != nil {
		t.Fatalf("Publish should not surface delivery errors: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if e := hook.LastEntry(); e != nil {
			if e.Level != logrus.WarnLevel {
				t.Errorf("level = %v, want warn", e.Level)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("expected a warning for the failed delivery")
}

func TestMQTT_UnencodableStatus(t *testing.T) {
	logger, _ := test.NewNullLogger()
	m := newMQTT(&fakeClient{}, "abhinaya", logger)
	if err := m.Status(make(chan int)); err == nil {
		t.Error("expected an encoding error")
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var p Publisher = &r
	p.Publish(Event{Kind: KindCalibrated})
	p.Publish(Event{Kind: KindPlace})
	p.Status("ready")

	kinds := r.Kinds()
	if len(kinds) != 2 || kinds[0] != KindCalibrated || kinds[1] != KindPlace {
		t.Errorf("Kinds = %v", kinds)
	}
	if r.LastStatus() != "ready" {
		t.Errorf("LastStatus = %v", r.LastStatus())
	}

	var n Publisher = Nop{}
	if err := n.Publish(Event{}); err != nil {
		t.Error(err)
	}
}
