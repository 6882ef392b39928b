package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

var client *http.Client
var topic string
var initialized bool

var baseURL = "https://ntfy.sh"

// ntfy priority 4 ("high") makes phones buzz through quiet hours.
const alertPriority = 4

var alertTags = []string{"fire"}

type message struct {
	Topic    string   `json:"topic"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
}

// Init enables fireplace alerts on ntfyTopic. An empty topic leaves them off.
func Init(ntfyTopic string) {
	if ntfyTopic == "" {
		log.Warn().Msg("Ntfy topic not configured, fireplace alerts disabled")
		return
	}

	client = &http.Client{Timeout: 10 * time.Second}
	topic = ntfyTopic
	initialized = true

	log.Info().Str("topic", topic).Msg("Fireplace alerts go to ntfy")
}

func Enabled() bool { return initialized }

// Send pushes one fireplace alert.
func Send(title, body string) error {
	if !initialized {
		return fmt.Errorf("notifications not initialized")
	}

	jsonData, err := json.Marshal(message{
		Topic:    topic,
		Title:    title,
		Message:  body,
		Priority: alertPriority,
		Tags:     alertTags,
	})
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	// JSON publishes go to the root URL with the topic in the body
	req, err := http.NewRequest("POST", baseURL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("build alert request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send alert %q: %w", title, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned status %d for %q", resp.StatusCode, title)
	}

	log.Debug().Str("title", title).Int("status", resp.StatusCode).Msg("Fireplace alert sent")
	return nil
}

// Ntfy satisfies the Notifier interfaces of the control loop and the sensor
// filter. It does nothing when alerts are disabled.
type Ntfy struct{}

func (Ntfy) Send(title, body string) error {
	if !initialized {
		return nil
	}
	return Send(title, body)
}
