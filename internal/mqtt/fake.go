package mqtt

import (
	"github.com/thatsimonsguy/fireplace-controller/internal/schedule"
	"github.com/thatsimonsguy/fireplace-controller/internal/thermostat"
)

// FakePublisher records published payloads for test assertions.
type FakePublisher struct {
	// States contains every controller state that was published.
	States []thermostat.StatePayload

	// Schedules contains every schedule that was published.
	Schedules []schedule.Schedule

	// Payloads maps topic to the raw JSON bodies published there, in order.
	Payloads map[string][][]byte

	// PublishError, if set, will be returned by every publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Payloads: map[string][][]byte{}}
}

func (f *FakePublisher) PublishState(payload thermostat.StatePayload) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	body, err := FormatStatePayload(payload)
	if err != nil {
		return err
	}
	f.States = append(f.States, payload)
	f.Payloads[TopicControllerState] = append(f.Payloads[TopicControllerState], body)
	return nil
}

func (f *FakePublisher) PublishSchedule(sched schedule.Schedule) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	body, err := FormatSchedulePayload(sched)
	if err != nil {
		return err
	}
	f.Schedules = append(f.Schedules, sched)
	f.Payloads[TopicControllerSchedule] = append(f.Payloads[TopicControllerSchedule], body)
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}

// Reset clears recorded payloads.
func (f *FakePublisher) Reset() {
	f.States = nil
	f.Schedules = nil
	f.Payloads = map[string][][]byte{}
	f.PublishError = nil
	f.Closed = false
	f.Connected = false
}
