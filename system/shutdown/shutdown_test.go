package shutdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
	"github.com/thatsimonsguy/fireplace-controller/internal/persist"
	"github.com/thatsimonsguy/fireplace-controller/internal/schedule"
	"github.com/thatsimonsguy/fireplace-controller/internal/state"
	"github.com/thatsimonsguy/fireplace-controller/internal/thermostat"
)

type recordingRunner struct {
	batches [][]model.Action
}

func (r *recordingRunner) Run(actions []model.Action) int {
	r.batches = append(r.batches, actions)
	return 0
}

func newState() *state.Controller {
	engine := thermostat.NewEngine(thermostat.DefaultConfig(), model.DefaultSettings())
	return state.New(engine, schedule.Schedule{}, "UTC", nil)
}

func TestShutdownPowersOffAndFlushes(t *testing.T) {
	st := newState()
	_, err := st.Manual(state.CmdPowerOn, time.Now())
	assert.NoError(t, err)

	saves := 0
	saver := persist.NewSaver(time.Minute, func() error { saves++; return nil })
	saver.Queue()

	runner := &recordingRunner{}
	Shutdown(st, runner, saver, false)

	assert.Equal(t, [][]model.Action{{model.PowerOff}}, runner.batches)
	assert.False(t, st.FireplaceOn())
	assert.Equal(t, 1, saves)
	assert.False(t, saver.Pending())
}

func TestShutdownLeavesFireplaceAloneWhenOff(t *testing.T) {
	runner := &recordingRunner{}
	Shutdown(newState(), runner, nil, false)
	assert.Empty(t, runner.batches)
}

func TestShutdownSafeModeSkipsIR(t *testing.T) {
	st := newState()
	_, _ = st.Manual(state.CmdPowerOn, time.Now())

	runner := &recordingRunner{}
	Shutdown(st, runner, nil, true)
	assert.Empty(t, runner.batches)
	assert.True(t, st.FireplaceOn())
}
