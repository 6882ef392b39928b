package temperature

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock notification sender
type MockNotifier struct {
	calls []string
}

func (m *MockNotifier) Send(title, message string) error {
	m.calls = append(m.calls, title+": "+message)
	return nil
}

type TestScenario struct {
	name                 string
	readingSequence      []float64
	expectedAccepted     []bool
	expectedLastGood     float64
	expectedAnomalyCount int
	expectedNotification string
}

func testConfig() Config {
	return Config{MinValidF: -40, MaxValidF: 150, MaxDeltaF: 10, MaxAnomalies: 3}
}

func runScenario(t *testing.T, scenario TestScenario) {
	t.Helper()
	notifier := &MockNotifier{}
	filter := NewFilter(testConfig(), notifier)
	start := time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

	for i, temp := range scenario.readingSequence {
		err := filter.Accept(temp, start.Add(time.Duration(i*30)*time.Second))
		assert.Equal(t, scenario.expectedAccepted[i], err == nil,
			"Reading %d (%.1f°F) acceptance mismatch: %v", i, temp, err)
	}

	assert.InDelta(t, scenario.expectedLastGood, filter.LastGood().Temperature, 0.01)
	assert.Equal(t, scenario.expectedAnomalyCount, filter.AnomalyCount())

	if scenario.expectedNotification == "" {
		assert.Empty(t, notifier.calls)
	} else {
		assert.Equal(t, []string{scenario.expectedNotification}, notifier.calls)
	}
}

func TestFilterScenarios(t *testing.T) {
	scenarios := []TestScenario{
		{
			name:             "gradual changes pass through",
			readingSequence:  []float64{70.0, 71.0, 72.0, 71.5, 72.0, 71.0, 72.5},
			expectedAccepted: []bool{true, true, true, true, true, true, true},
			expectedLastGood: 72.5,
		},
		{
			name:                 "single spike rejected",
			readingSequence:      []float64{70.0, 71.0, 98.0, 71.5},
			expectedAccepted:     []bool{true, true, false, true},
			expectedLastGood:     71.5,
			expectedAnomalyCount: 0,
		},
		{
			name:                 "two spikes leave count pending",
			readingSequence:      []float64{70.0, 40.0, 41.0},
			expectedAccepted:     []bool{true, false, false},
			expectedLastGood:     70.0,
			expectedAnomalyCount: 2,
		},
		{
			name:                 "sustained new level accepted on third reading",
			readingSequence:      []float64{70.0, 45.0, 45.5, 46.0, 46.5},
			expectedAccepted:     []bool{true, false, false, true, true},
			expectedLastGood:     46.5,
			expectedNotification: "Fireplace Sensor Baseline Reset: Room sensor settled at 46.0°F (last good: 70.0°F)",
		},
		{
			name:             "first reading is the baseline",
			readingSequence:  []float64{120.0, 121.0},
			expectedAccepted: []bool{true, true},
			expectedLastGood: 121.0,
		},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			runScenario(t, scenario)
		})
	}
}

func TestFilterRejectsInvalidWithoutCountingAnomaly(t *testing.T) {
	filter := NewFilter(testConfig(), nil)
	now := time.Now()

	require.NoError(t, filter.Accept(70, now))
	assert.ErrorIs(t, filter.Accept(math.NaN(), now), ErrNotFinite)
	assert.ErrorIs(t, filter.Accept(math.Inf(1), now), ErrNotFinite)
	assert.ErrorIs(t, filter.Accept(200, now), ErrOutOfRange)
	assert.ErrorIs(t, filter.Accept(-50, now), ErrOutOfRange)
	assert.Equal(t, 0, filter.AnomalyCount())
	assert.Equal(t, 70.0, filter.LastGood().Temperature)
}

func TestFilterDisabledDelta(t *testing.T) {
	cfg := testConfig()
	cfg.MaxDeltaF = 0
	filter := NewFilter(cfg, nil)

	require.NoError(t, filter.Accept(70, time.Now()))
	require.NoError(t, filter.Accept(110, time.Now()))
}

func TestValidateHumidity(t *testing.T) {
	assert.NoError(t, ValidateHumidity(0))
	assert.NoError(t, ValidateHumidity(45.5))
	assert.NoError(t, ValidateHumidity(100))
	assert.ErrorIs(t, ValidateHumidity(-1), ErrOutOfRange)
	assert.ErrorIs(t, ValidateHumidity(101), ErrOutOfRange)
	assert.ErrorIs(t, ValidateHumidity(math.NaN()), ErrNotFinite)
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(" 71.25\n")
	require.NoError(t, err)
	assert.Equal(t, 71.25, v)

	_, err = ParseValue("warm")
	assert.ErrorIs(t, err, ErrNotNumber)

	v, err = ParseValue("NaN")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))
}
