package irctl

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var durationRegex = regexp.MustCompile(`^([+-])(\d+)$`)

// Transmitter sends raw frames through the kernel LIRC device using ir-ctl.
type Transmitter struct {
	device    string
	carrierHz int
	run       func(name string, args ...string) ([]byte, error)
}

func New(device string, carrierKHz int) *Transmitter {
	return &Transmitter{
		device:    device,
		carrierHz: carrierKHz * 1000,
		run:       runCombined,
	}
}

func runCombined(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

// Available reports whether the LIRC device node exists.
func Available(device string) bool {
	_, err := os.Stat(device)
	return err == nil
}

func (t *Transmitter) Enabled() bool { return true }

func (t *Transmitter) Transmit(signal string, pulses []int) error {
	body, err := FormatPulses(pulses)
	if err != nil {
		return fmt.Errorf("format %s: %w", signal, err)
	}

	file, err := os.CreateTemp("", "fireplace-ir-*.txt")
	if err != nil {
		return fmt.Errorf("create pulse file: %w", err)
	}
	defer os.Remove(file.Name())

	if _, err := file.WriteString(body); err != nil {
		file.Close()
		return fmt.Errorf("write pulse file: %w", err)
	}
	file.Close()

	args := []string{"-d", t.device, "--carrier", strconv.Itoa(t.carrierHz), "--send", file.Name()}
	out, err := t.run("ir-ctl", args...)
	if err != nil {
		return fmt.Errorf("ir-ctl send failed: %s (output: %s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Receive waits for one frame from the remote and returns its durations.
func (t *Transmitter) Receive() ([]int, error) {
	out, err := t.run("ir-ctl", "-d", t.device, "--receive", "--one-shot")
	if err != nil {
		return nil, fmt.Errorf("ir-ctl receive failed: %s (output: %s)", err, strings.TrimSpace(string(out)))
	}
	pulses, err := ParseReceived(string(out))
	if err != nil {
		return nil, err
	}
	log.Debug().Int("durations", len(pulses)).Msg("Received IR frame")
	return pulses, nil
}

// FormatPulses renders alternating pulse and space durations in the text
// format ir-ctl --send reads. A trailing space is dropped since a frame
// must end on a pulse.
func FormatPulses(pulses []int) (string, error) {
	if len(pulses)%2 == 0 && len(pulses) > 0 {
		pulses = pulses[:len(pulses)-1]
	}
	if len(pulses) == 0 {
		return "", fmt.Errorf("empty frame")
	}

	var b strings.Builder
	for i, d := range pulses {
		if d <= 0 {
			return "", fmt.Errorf("duration %d at index %d is not positive", d, i)
		}
		kind := "pulse"
		if i%2 == 1 {
			kind = "space"
		}
		fmt.Fprintf(&b, "%s %d\n", kind, d)
	}
	return b.String(), nil
}

// ParseReceived reads the +pulse -space output of ir-ctl --receive.
func ParseReceived(output string) ([]int, error) {
	var pulses []int
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, field := range strings.Fields(line) {
			m := durationRegex.FindStringSubmatch(field)
			if m == nil {
				return nil, fmt.Errorf("unexpected token %q in ir-ctl output", field)
			}
			wantPulse := len(pulses)%2 == 0
			if (m[1] == "+") != wantPulse {
				return nil, fmt.Errorf("token %q out of pulse/space order", field)
			}
			d, _ := strconv.Atoi(m[2])
			pulses = append(pulses, d)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning ir-ctl output: %w", err)
	}
	if len(pulses) == 0 {
		return nil, fmt.Errorf("no frame in ir-ctl output")
	}
	return pulses, nil
}
