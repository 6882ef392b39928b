package mqtt

import (
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/fireplace-controller/internal/config"
	"github.com/thatsimonsguy/fireplace-controller/internal/schedule"
	"github.com/thatsimonsguy/fireplace-controller/internal/thermostat"
)

// Client is the broker connection used in production.
type Client struct {
	client paho.Client
}

// ClientID appends a short random suffix so two controllers on one broker
// never kick each other off.
func ClientID(base string) string {
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
}

// clientOptions builds the paho options. Messages are delivered one at a
// time in arrival order so command batches reach the executor in sequence.
func clientOptions(cfg config.MQTT, handler *Handler) *paho.ClientOptions {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker()).
		SetClientID(ClientID(cfg.ClientID)).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(true)

	if cfg.User != "" {
		opts.SetUsername(cfg.User)
		opts.SetPassword(cfg.Pass)
	}

	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost")
	})
	opts.SetOnConnectHandler(func(c paho.Client) {
		log.Info().Str("broker", cfg.Broker()).Msg("MQTT connected")
		filters := make(map[string]byte, len(SubscribeTopics))
		for _, topic := range SubscribeTopics {
			filters[topic] = 0
		}
		token := c.SubscribeMultiple(filters, func(_ paho.Client, msg paho.Message) {
			if err := handler.Handle(msg.Topic(), msg.Payload()); err != nil {
				log.Warn().Err(err).Str("topic", msg.Topic()).Msg("MQTT message rejected")
			}
		})
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			log.Error().Err(token.Error()).Msg("MQTT subscribe failed")
		}
	})
	return opts
}

// NewClient connects to the broker and subscribes handler to every command
// and sensor topic. Subscriptions are renewed on each reconnect.
func NewClient(cfg config.MQTT, handler *Handler) (*Client, error) {
	client := paho.NewClient(clientOptions(cfg, handler))
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// ConnectRetry keeps dialing in the background; OnConnect subscribes.
		log.Warn().Str("broker", cfg.Broker()).Msg("MQTT broker not reachable yet, retrying in background")
		return &Client{client: client}, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &Client{client: client}, nil
}

func (c *Client) publish(topic string, payload []byte) error {
	if !c.client.IsConnected() {
		return fmt.Errorf("publish %s: not connected", topic)
	}
	// QoS 1, retained: late subscribers get the latest state at once
	token := c.client.Publish(topic, 1, true, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (c *Client) PublishState(payload thermostat.StatePayload) error {
	body, err := FormatStatePayload(payload)
	if err != nil {
		return fmt.Errorf("format state payload: %w", err)
	}
	return c.publish(TopicControllerState, body)
}

func (c *Client) PublishSchedule(sched schedule.Schedule) error {
	body, err := FormatSchedulePayload(sched)
	if err != nil {
		return fmt.Errorf("format schedule payload: %w", err)
	}
	return c.publish(TopicControllerSchedule, body)
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker.
func (c *Client) Close() error {
	c.client.Disconnect(1000)
	return nil
}
