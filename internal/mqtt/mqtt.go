// Package mqtt connects the thermostat to the home broker: sensor readings
// and commands come in, controller and schedule state go out.
package mqtt

import (
	"encoding/json"

	"github.com/thatsimonsguy/fireplace-controller/internal/schedule"
	"github.com/thatsimonsguy/fireplace-controller/internal/thermostat"
)

const (
	TopicSensorTemperature = "thermostat/sensor/temperature"
	TopicSensorHumidity    = "thermostat/sensor/humidity"
	TopicSensorStatus      = "thermostat/sensor/status"

	TopicControllerState    = "thermostat/controller/state"
	TopicControllerSchedule = "thermostat/controller/schedule/state"

	TopicCmdPower    = "thermostat/cmnd/fireplace/power"
	TopicCmdTarget   = "thermostat/cmnd/thermostat/target"
	TopicCmdMode     = "thermostat/cmnd/thermostat/mode"
	TopicCmdHold     = "thermostat/cmnd/thermostat/hold"
	TopicCmdSchedule = "thermostat/cmnd/thermostat/schedule"
)

// MaxPayloadBytes caps inbound messages; larger ones are dropped unread.
const MaxPayloadBytes = 512

// SubscribeTopics lists every topic the controller listens on.
var SubscribeTopics = []string{
	TopicSensorTemperature,
	TopicSensorHumidity,
	TopicSensorStatus,
	TopicCmdPower,
	TopicCmdTarget,
	TopicCmdMode,
	TopicCmdHold,
	TopicCmdSchedule,
}

// Publisher publishes controller state to MQTT.
type Publisher interface {
	// PublishState sends the compact controller state, retained.
	PublishState(payload thermostat.StatePayload) error

	// PublishSchedule sends the active schedule, retained.
	PublishSchedule(sched schedule.Schedule) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

func FormatStatePayload(payload thermostat.StatePayload) ([]byte, error) {
	return json.Marshal(payload)
}

func FormatSchedulePayload(sched schedule.Schedule) ([]byte, error) {
	if sched.Entries == nil {
		sched.Entries = []schedule.Entry{}
	}
	return json.Marshal(sched)
}
