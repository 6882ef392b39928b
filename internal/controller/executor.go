package controller

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/fireplace-controller/internal/ir"
	"github.com/thatsimonsguy/fireplace-controller/internal/model"
)

// Executor plays action batches through the IR encoder one batch at a time.
// Readers get the device mirror and diagnostics from a snapshot taken after
// each batch, so they never wait on a batch that is sleeping.
type Executor struct {
	runMu   sync.Mutex
	encoder *ir.Encoder
	sleep   func(time.Duration)

	snapMu sync.RWMutex
	device model.DeviceState
	diag   ir.Diagnostics
}

func NewExecutor(encoder *ir.Encoder) *Executor {
	x := &Executor{encoder: encoder, sleep: time.Sleep}
	x.device = encoder.Device()
	x.diag = encoder.Diagnostics()
	return x
}

// Run executes actions in order and returns how many failed. A failed action
// does not stop the rest of the batch.
func (x *Executor) Run(actions []model.Action) int {
	if len(actions) == 0 {
		return 0
	}

	x.runMu.Lock()
	defer x.runMu.Unlock()

	failed := 0
	for _, a := range actions {
		if a.Kind == model.ActionDelay {
			x.sleep(time.Duration(a.Value) * time.Millisecond)
			continue
		}
		log.Debug().Str("action", a.String()).Msg("Executing action")
		if err := x.encoder.Execute(a); err != nil {
			failed++
		}
	}

	x.snapMu.Lock()
	x.device = x.encoder.Device()
	x.diag = x.encoder.Diagnostics()
	x.snapMu.Unlock()

	if failed > 0 {
		log.Warn().Int("failed", failed).Int("actions", len(actions)).Msg("Action batch finished with failures")
	}
	return failed
}

func (x *Executor) Device() model.DeviceState {
	x.snapMu.RLock()
	defer x.snapMu.RUnlock()
	return x.device
}

func (x *Executor) Diagnostics() ir.Diagnostics {
	x.snapMu.RLock()
	defer x.snapMu.RUnlock()
	return x.diag
}
