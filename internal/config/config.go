package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/thatsimonsguy/fireplace-controller/internal/ir"
	"github.com/thatsimonsguy/fireplace-controller/internal/logging"
	"github.com/thatsimonsguy/fireplace-controller/internal/thermostat"
)

// EnvPrefix namespaces environment overrides, e.g. FIREPLACE_MQTT_HOST.
const EnvPrefix = "FIREPLACE"

type Thermostat struct {
	MinCycleMs             int64   `mapstructure:"min_cycle_ms"`
	SensorStaleTimeoutMs   int64   `mapstructure:"sensor_stale_timeout_ms"`
	StatePublishIntervalMs int64   `mapstructure:"state_publish_interval_ms"`
	TrendSampleIntervalMs  int64   `mapstructure:"trend_sample_interval_ms"`
	TrendRisingThresholdF  float64 `mapstructure:"trend_rising_threshold_f"`
	TrendFallingThresholdF float64 `mapstructure:"trend_falling_threshold_f"`
	TrendSamplesRequired   int     `mapstructure:"trend_samples_required"`
	MaxRuntimeMs           int64   `mapstructure:"max_runtime_ms"`
	CooldownDurationMs     int64   `mapstructure:"cooldown_duration_ms"`
	HoldDurationMs         int64   `mapstructure:"hold_duration_ms"`
	SettingsSaveDebounceMs int64   `mapstructure:"settings_save_debounce_ms"`
	MinValidTempF          float64 `mapstructure:"min_valid_temp_f"`
	MaxValidTempF          float64 `mapstructure:"max_valid_temp_f"`
	MaxHoldMinutes         int     `mapstructure:"max_hold_minutes"`
	AbsoluteMaxTempF       float64 `mapstructure:"absolute_max_temp_f"`
	TickIntervalMs         int64   `mapstructure:"tick_interval_ms"`
}

type MQTT struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Pass     string `mapstructure:"pass"`
	ClientID string `mapstructure:"client_id"`
}

type IR struct {
	Device            string `mapstructure:"device"`
	CarrierKHz        int    `mapstructure:"carrier_khz"`
	CodebookFile      string `mapstructure:"codebook_file"`
	RepeatCount       int    `mapstructure:"repeat_count"`
	RepeatGapMs       int64  `mapstructure:"repeat_gap_ms"`
	MinSendIntervalMs int64  `mapstructure:"min_send_interval_ms"`
}

type Datadog struct {
	Enabled   bool     `mapstructure:"enabled"`
	AgentAddr string   `mapstructure:"agent_addr"`
	Namespace string   `mapstructure:"namespace"`
	Tags      []string `mapstructure:"tags"`
}

type SensorAnomaly struct {
	MaxDeltaF    float64 `mapstructure:"max_delta_f"`
	MaxAnomalies int     `mapstructure:"max_anomalies"`
}

type Config struct {
	ConfigFile string        `mapstructure:"-"`
	DBPath     string        `mapstructure:"-"`
	LogFile    string        `mapstructure:"-"`
	LogLevel   zerolog.Level `mapstructure:"-"`

	Timezone    string `mapstructure:"timezone"`
	HTTPPort    int    `mapstructure:"http_port"`
	SafeMode    bool   `mapstructure:"safe_mode"`
	NtfyTopic   string `mapstructure:"ntfy_topic"`
	ServicePath string `mapstructure:"service_path"`

	Thermostat    Thermostat    `mapstructure:"thermostat"`
	MQTT          MQTT          `mapstructure:"mqtt"`
	IR            IR            `mapstructure:"ir"`
	Datadog       Datadog       `mapstructure:"datadog"`
	SensorAnomaly SensorAnomaly `mapstructure:"sensor_anomaly"`
}

func Load() Config {
	var configFile, dbPath, logLevel, logFile string

	flag.StringVar(&configFile, "config-file", "config.json", "Path to controller config file")
	flag.StringVar(&dbPath, "db-path", "data/fireplace.db", "Path to the SQLite database file")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.StringVar(&logFile, "log-file", "/var/log/fireplace-controller.log", "Log file path, empty for stderr")
	flag.Parse()

	cfg, err := Read(configFile)
	if err != nil {
		panic("Failed to load config file: " + err.Error())
	}
	cfg.DBPath = dbPath
	cfg.LogFile = logFile
	cfg.LogLevel = logging.ParseLevel(logLevel)

	cfg.validate()
	return cfg
}

// Read loads path on top of the defaults and applies FIREPLACE_* overrides.
func Read(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.ConfigFile = path
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("timezone", "America/Los_Angeles")
	v.SetDefault("http_port", 8080)
	v.SetDefault("safe_mode", false)
	v.SetDefault("ntfy_topic", "")
	v.SetDefault("service_path", "/etc/systemd/system/fireplace-controller.service")

	v.SetDefault("thermostat.min_cycle_ms", 300_000)
	v.SetDefault("thermostat.sensor_stale_timeout_ms", 300_000)
	v.SetDefault("thermostat.state_publish_interval_ms", 10_000)
	v.SetDefault("thermostat.trend_sample_interval_ms", 30_000)
	v.SetDefault("thermostat.trend_rising_threshold_f", 0.3)
	v.SetDefault("thermostat.trend_falling_threshold_f", -0.2)
	v.SetDefault("thermostat.trend_samples_required", 3)
	v.SetDefault("thermostat.max_runtime_ms", 14_400_000)
	v.SetDefault("thermostat.cooldown_duration_ms", 1_800_000)
	v.SetDefault("thermostat.hold_duration_ms", 1_800_000)
	v.SetDefault("thermostat.settings_save_debounce_ms", 5_000)
	v.SetDefault("thermostat.min_valid_temp_f", -40.0)
	v.SetDefault("thermostat.max_valid_temp_f", 150.0)
	v.SetDefault("thermostat.max_hold_minutes", 1440)
	v.SetDefault("thermostat.absolute_max_temp_f", 95.0)
	v.SetDefault("thermostat.tick_interval_ms", 1_000)

	v.SetDefault("mqtt.host", "localhost")
	v.SetDefault("mqtt.port", 1883)
	v.SetDefault("mqtt.user", "")
	v.SetDefault("mqtt.pass", "")
	v.SetDefault("mqtt.client_id", "fireplace-controller")

	v.SetDefault("ir.device", "/dev/lirc0")
	v.SetDefault("ir.carrier_khz", 36)
	v.SetDefault("ir.codebook_file", "data/ir_codes.json")
	v.SetDefault("ir.repeat_count", 3)
	v.SetDefault("ir.repeat_gap_ms", 50)
	v.SetDefault("ir.min_send_interval_ms", 300)

	v.SetDefault("datadog.enabled", false)
	v.SetDefault("datadog.agent_addr", "127.0.0.1:8125")
	v.SetDefault("datadog.namespace", "fireplace.")
	v.SetDefault("datadog.tags", []string{})

	v.SetDefault("sensor_anomaly.max_delta_f", 10.0)
	v.SetDefault("sensor_anomaly.max_anomalies", 3)
}

func (cfg *Config) validate() {
	var problems []string

	t := cfg.Thermostat
	if t.TickIntervalMs <= 0 {
		problems = append(problems, "thermostat.tick_interval_ms must be positive")
	}
	if t.TrendRisingThresholdF <= 0 {
		problems = append(problems, "thermostat.trend_rising_threshold_f must be positive")
	}
	if t.TrendFallingThresholdF >= 0 {
		problems = append(problems, "thermostat.trend_falling_threshold_f must be negative")
	}
	if t.TrendSamplesRequired < 1 {
		problems = append(problems, "thermostat.trend_samples_required must be at least 1")
	}
	if t.MinValidTempF >= t.MaxValidTempF {
		problems = append(problems, "thermostat.min_valid_temp_f must be below max_valid_temp_f")
	}
	if t.MaxHoldMinutes < 1 {
		problems = append(problems, "thermostat.max_hold_minutes must be at least 1")
	}
	if cfg.IR.CarrierKHz < 10 || cfg.IR.CarrierKHz > 100 {
		problems = append(problems, fmt.Sprintf("ir.carrier_khz %d outside 10..100", cfg.IR.CarrierKHz))
	}
	if cfg.IR.RepeatCount < 1 {
		problems = append(problems, "ir.repeat_count must be at least 1")
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		problems = append(problems, fmt.Sprintf("http_port %d is not a valid port", cfg.HTTPPort))
	}

	if len(problems) > 0 {
		panic("Invalid config: " + strings.Join(problems, "; "))
	}
}

func ms(v int64) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func (t Thermostat) Engine() thermostat.Config {
	return thermostat.Config{
		MinCycle:             ms(t.MinCycleMs),
		SensorStaleTimeout:   ms(t.SensorStaleTimeoutMs),
		TrendSampleInterval:  ms(t.TrendSampleIntervalMs),
		TrendRisingF:         t.TrendRisingThresholdF,
		TrendFallingF:        t.TrendFallingThresholdF,
		TrendSamplesRequired: t.TrendSamplesRequired,
		MaxRuntime:           ms(t.MaxRuntimeMs),
		CooldownDuration:     ms(t.CooldownDurationMs),
		HoldDuration:         ms(t.HoldDurationMs),
		AbsoluteMaxTempF:     t.AbsoluteMaxTempF,
	}
}

func (t Thermostat) TickInterval() time.Duration         { return ms(t.TickIntervalMs) }
func (t Thermostat) StatePublishInterval() time.Duration { return ms(t.StatePublishIntervalMs) }
func (t Thermostat) SaveDebounce() time.Duration         { return ms(t.SettingsSaveDebounceMs) }

func (c IR) Options() ir.Options {
	return ir.Options{
		CarrierKHz:      c.CarrierKHz,
		RepeatCount:     c.RepeatCount,
		RepeatGap:       ms(c.RepeatGapMs),
		MinSendInterval: ms(c.MinSendIntervalMs),
	}
}

func (m MQTT) Broker() string {
	return fmt.Sprintf("tcp://%s:%d", m.Host, m.Port)
}
