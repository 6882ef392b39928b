package shutdown

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
	"github.com/thatsimonsguy/fireplace-controller/internal/persist"
	"github.com/thatsimonsguy/fireplace-controller/internal/state"
)

// Runner executes the final power-off batch.
type Runner interface {
	Run(actions []model.Action) int
}

// Shutdown leaves the fireplace off and writes any pending settings. In safe
// mode the IR side is left alone.
func Shutdown(st *state.Controller, runner Runner, saver *persist.Saver, safeMode bool) {
	if !safeMode && st.FireplaceOn() {
		actions, err := st.Manual(state.CmdPowerOff, time.Now())
		if err == nil {
			if failed := runner.Run(actions); failed > 0 {
				log.Error().Int("failed", failed).Msg("Fireplace power-off did not complete")
			} else {
				log.Info().Msg("Fireplace powered off")
			}
		}
	}

	if saver != nil {
		if err := saver.Flush(); err != nil {
			log.Error().Err(err).Msg("Failed to save settings on shutdown")
		}
	}
}

func ShutdownWithError(err error, msg string, st *state.Controller, runner Runner, saver *persist.Saver, safeMode bool) {
	log.Error().Err(err).Msg(msg)
	Shutdown(st, runner, saver, safeMode)
	os.Exit(1)
}
