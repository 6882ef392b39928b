package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/fireplace-controller/internal/model"
	"github.com/thatsimonsguy/fireplace-controller/internal/schedule"
	"github.com/thatsimonsguy/fireplace-controller/internal/state"
	"github.com/thatsimonsguy/fireplace-controller/internal/temperature"
)

var (
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrNotUTF8         = errors.New("payload is not valid UTF-8")
	ErrBadCommand      = errors.New("unrecognized command")
)

// Runner executes the action batch a command produced.
type Runner interface {
	Run(actions []model.Action) int
}

type Handler struct {
	state          *state.Controller
	runner         Runner
	filter         *temperature.Filter
	maxHoldMinutes int
	now            func() time.Time
}

func NewHandler(st *state.Controller, runner Runner, filter *temperature.Filter, maxHoldMinutes int) *Handler {
	return &Handler{
		state:          st,
		runner:         runner,
		filter:         filter,
		maxHoldMinutes: maxHoldMinutes,
		now:            time.Now,
	}
}

// Handle dispatches one inbound message. Messages on unknown topics are
// ignored. Rejected payloads return an error and change nothing.
func (h *Handler) Handle(topic string, payload []byte) error {
	if len(payload) > MaxPayloadBytes {
		return fmt.Errorf("%w: %d bytes on %s", ErrPayloadTooLarge, len(payload), topic)
	}
	if !utf8.Valid(payload) {
		return fmt.Errorf("%w on %s", ErrNotUTF8, topic)
	}

	message := strings.TrimSpace(string(payload))
	now := h.now()

	switch topic {
	case TopicSensorTemperature:
		temp, err := temperature.ParseValue(message)
		if err != nil {
			return err
		}
		if err := h.filter.Accept(temp, now); err != nil {
			return err
		}
		h.state.UpdateTemperature(temp, now)

	case TopicSensorHumidity:
		humidity, err := temperature.ParseValue(message)
		if err != nil {
			return err
		}
		if err := temperature.ValidateHumidity(humidity); err != nil {
			return err
		}
		h.state.UpdateHumidity(humidity, now)

	case TopicSensorStatus:
		log.Info().Str("status", message).Msg("Sensor node status")

	case TopicCmdPower:
		var cmd state.Command
		switch strings.ToLower(message) {
		case "on":
			cmd = state.CmdPowerOn
		case "off":
			cmd = state.CmdPowerOff
		default:
			return fmt.Errorf("%w: power %q", ErrBadCommand, message)
		}
		actions, err := h.state.Manual(cmd, now)
		if err != nil {
			return err
		}
		h.runner.Run(actions)

	case TopicCmdTarget:
		target, err := temperature.ParseValue(message)
		if err != nil {
			return err
		}
		h.state.SetTarget(target)

	case TopicCmdMode:
		mode, ok := model.ParseMode(message)
		if !ok {
			return fmt.Errorf("%w: mode %q", ErrBadCommand, message)
		}
		_, actions := h.state.SetMode(mode, now)
		h.runner.Run(actions)

	case TopicCmdHold:
		return h.handleHold(strings.ToLower(message), now)

	case TopicCmdSchedule:
		var sched schedule.Schedule
		if err := json.Unmarshal(payload, &sched); err != nil {
			return fmt.Errorf("decode schedule: %w", err)
		}
		kept := h.state.SetSchedule(sched)
		log.Info().Bool("enabled", kept.Enabled).Int("entries", len(kept.Entries)).Msg("Schedule replaced over MQTT")

	default:
		log.Debug().Str("topic", topic).Msg("Ignoring message on unknown topic")
	}
	return nil
}

func (h *Handler) handleHold(message string, now time.Time) error {
	switch message {
	case "on", "enter":
		h.state.EnterHold(0, now)
		return nil
	case "off", "exit":
		h.state.ExitHold()
		return nil
	}

	minutes, err := strconv.Atoi(message)
	if err != nil || minutes <= 0 || minutes > h.maxHoldMinutes {
		return fmt.Errorf("%w: hold %q", ErrBadCommand, message)
	}
	h.state.EnterHold(time.Duration(minutes)*time.Minute, now)
	return nil
}
