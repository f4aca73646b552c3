// Package config loads watah settings from YAML with defaults merged underneath.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultFileName is used by init-config when no output path is given.
const DefaultFileName = "watah.yaml"

// Config wraps a viper instance. Keys are dot-separated, e.g. "timing.intensity".
type Config struct {
	v    *viper.Viper
	path string
}

// DaemonSettings controls process-level behaviour.
type DaemonSettings struct {
	PIDFile       string
	LogFile       string
	LogLevel      string
	LogMaxSizeMB  int
	LogMaxBackups int
	Tick          time.Duration
	ErrorBackoff  time.Duration
}

// TimingSettings controls the interval model.
type TimingSettings struct {
	Intensity              string
	EnableCircadian        bool
	EnableEndOfDayShutdown bool
	EndOfDayHour           int
}

// BehaviorSettings controls work/break accounting.
type BehaviorSettings struct {
	WorkSessionMin   time.Duration
	WorkSessionMax   time.Duration
	BreakMin         time.Duration
	BreakMax         time.Duration
	BreakProbability float64
}

// SafetySettings controls pausing on genuine input.
type SafetySettings struct {
	PauseOnUserInput    bool
	PauseDuration       time.Duration
	ManualPauseDuration time.Duration
	SelfInputGrace      time.Duration
}

// ThrottleSettings controls the host-load monitor.
type ThrottleSettings struct {
	Enabled       bool
	CheckInterval time.Duration
	CPUThreshold  float64
	SampleWindow  time.Duration
}

// New returns a configuration holding only the defaults.
func New() *Config {
	v := viper.New()
	SetDefaults(v)
	return &Config{v: v}
}

// Load reads path and merges it over the defaults.
// A missing file is not an error; the defaults are returned.
func Load(path string) (*Config, error) {
	c := New()
	if path == "" {
		return c, nil
	}
	c.path = path

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	c.v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		c.v.SetConfigType("yaml")
	}
	if err := c.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// SetDefaults initializes default values for every known key.
func SetDefaults(v *viper.Viper) {
	// -- Daemon --
	v.SetDefault("daemon.pid_file", "watah.pid")
	v.SetDefault("daemon.log_file", "watah.log")
	v.SetDefault("daemon.log_level", "info")
	v.SetDefault("daemon.log_max_size_mb", 10)
	v.SetDefault("daemon.log_max_backups", 3)
	v.SetDefault("daemon.tick", "1s")
	v.SetDefault("daemon.error_backoff", "5s")

	// -- Timing --
	v.SetDefault("timing.intensity", "medium")
	v.SetDefault("timing.enable_circadian", true)
	v.SetDefault("timing.enable_end_of_day_shutdown", false)
	v.SetDefault("timing.end_of_day_hour", 18)

	// -- Activities --
	v.SetDefault("activities.mouse_movement.enabled", true)
	v.SetDefault("activities.mouse_movement.weight", 0.3)
	v.SetDefault("activities.mouse_scroll.enabled", true)
	v.SetDefault("activities.mouse_scroll.weight", 0.25)
	v.SetDefault("activities.keyboard_navigation.enabled", true)
	v.SetDefault("activities.keyboard_navigation.weight", 0.15)
	v.SetDefault("activities.keyboard_typing.enabled", true)
	v.SetDefault("activities.keyboard_typing.weight", 0.1)
	v.SetDefault("activities.tab_switching.enabled", true)
	v.SetDefault("activities.tab_switching.weight", 0.1)
	v.SetDefault("activities.composite_workflows.enabled", true)
	v.SetDefault("activities.composite_workflows.weight", 0.1)

	// -- Behavior --
	v.SetDefault("behavior.work_session_min", "20m")
	v.SetDefault("behavior.work_session_max", "50m")
	v.SetDefault("behavior.break_min", "5m")
	v.SetDefault("behavior.break_max", "15m")
	v.SetDefault("behavior.break_probability", 0.7)

	// -- Safety --
	v.SetDefault("safety.pause_on_user_input", true)
	v.SetDefault("safety.pause_duration", "30s")
	v.SetDefault("safety.manual_pause_duration", "5m")
	v.SetDefault("safety.self_input_grace", "250ms")

	// -- Throttle --
	v.SetDefault("throttle.enabled", true)
	v.SetDefault("throttle.check_interval", "5m")
	v.SetDefault("throttle.cpu_threshold", 85.0)
	v.SetDefault("throttle.sample_window", "1s")

	// -- Typing --
	v.SetDefault("typing.editor_markers", []string{
		"Visual Studio Code", "Notepad", "Sublime Text", "GoLand", "PyCharm",
		".py", ".go", ".tf", ".js", ".ts",
	})
}

// Path returns the file the configuration was loaded from ("" for defaults only).
func (c *Config) Path() string { return c.path }

// Get returns the value at a dotted key, or nil when absent.
// Lists decoded from YAML are normalized to []string so lookups are stable
// across a save/reload.
func (c *Config) Get(key string) any {
	val := c.v.Get(key)
	if list, ok := val.([]any); ok {
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, isString := item.(string)
			if !isString {
				return val
			}
			out = append(out, s)
		}
		return out
	}
	return val
}

// GetOr returns the value at key or def when the key is unset.
func (c *Config) GetOr(key string, def any) any {
	if !c.v.IsSet(key) {
		return def
	}
	return c.Get(key)
}

// Set overrides a single key (highest priority).
func (c *Config) Set(key string, value any) { c.v.Set(key, value) }

// Keys returns every known key, sorted.
func (c *Config) Keys() []string {
	keys := c.v.AllKeys()
	sort.Strings(keys)
	return keys
}

// Save writes the merged configuration (defaults plus overrides) as YAML.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	if filepath.Ext(path) == "" {
		c.v.SetConfigType("yaml")
	}
	if err := c.v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to save config %s: %w", path, err)
	}
	return nil
}

// Validate checks values that would otherwise surface as odd runtime behaviour.
func (c *Config) Validate() error {
	switch c.v.GetString("timing.intensity") {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("timing.intensity must be low, medium or high, got %q", c.v.GetString("timing.intensity"))
	}

	b := c.Behavior()
	if b.WorkSessionMin <= 0 || b.WorkSessionMax < b.WorkSessionMin {
		return fmt.Errorf("behavior.work_session_min/max must be positive and ordered")
	}
	if b.BreakMin <= 0 || b.BreakMax < b.BreakMin {
		return fmt.Errorf("behavior.break_min/max must be positive and ordered")
	}
	if b.BreakProbability < 0 || b.BreakProbability > 1 {
		return fmt.Errorf("behavior.break_probability must be within [0,1]")
	}

	if h := c.v.GetInt("timing.end_of_day_hour"); h < 0 || h > 23 {
		return fmt.Errorf("timing.end_of_day_hour must be within [0,23]")
	}
	if c.Daemon().Tick <= 0 {
		return fmt.Errorf("daemon.tick must be positive")
	}

	for name, w := range c.rawWeights() {
		if w < 0 {
			return fmt.Errorf("activities.%s.weight must not be negative", name)
		}
	}
	return nil
}

// Daemon returns process-level settings.
func (c *Config) Daemon() DaemonSettings {
	return DaemonSettings{
		PIDFile:       c.v.GetString("daemon.pid_file"),
		LogFile:       c.v.GetString("daemon.log_file"),
		LogLevel:      c.v.GetString("daemon.log_level"),
		LogMaxSizeMB:  c.v.GetInt("daemon.log_max_size_mb"),
		LogMaxBackups: c.v.GetInt("daemon.log_max_backups"),
		Tick:          c.v.GetDuration("daemon.tick"),
		ErrorBackoff:  c.v.GetDuration("daemon.error_backoff"),
	}
}

// Timing returns interval model settings.
func (c *Config) Timing() TimingSettings {
	return TimingSettings{
		Intensity:              c.v.GetString("timing.intensity"),
		EnableCircadian:        c.v.GetBool("timing.enable_circadian"),
		EnableEndOfDayShutdown: c.v.GetBool("timing.enable_end_of_day_shutdown"),
		EndOfDayHour:           c.v.GetInt("timing.end_of_day_hour"),
	}
}

// Behavior returns work/break settings.
func (c *Config) Behavior() BehaviorSettings {
	return BehaviorSettings{
		WorkSessionMin:   c.v.GetDuration("behavior.work_session_min"),
		WorkSessionMax:   c.v.GetDuration("behavior.work_session_max"),
		BreakMin:         c.v.GetDuration("behavior.break_min"),
		BreakMax:         c.v.GetDuration("behavior.break_max"),
		BreakProbability: c.v.GetFloat64("behavior.break_probability"),
	}
}

// Safety returns pause/resume settings.
func (c *Config) Safety() SafetySettings {
	return SafetySettings{
		PauseOnUserInput:    c.v.GetBool("safety.pause_on_user_input"),
		PauseDuration:       c.v.GetDuration("safety.pause_duration"),
		ManualPauseDuration: c.v.GetDuration("safety.manual_pause_duration"),
		SelfInputGrace:      c.v.GetDuration("safety.self_input_grace"),
	}
}

// Throttle returns host-load monitor settings.
func (c *Config) Throttle() ThrottleSettings {
	return ThrottleSettings{
		Enabled:       c.v.GetBool("throttle.enabled"),
		CheckInterval: c.v.GetDuration("throttle.check_interval"),
		CPUThreshold:  c.v.GetFloat64("throttle.cpu_threshold"),
		SampleWindow:  c.v.GetDuration("throttle.sample_window"),
	}
}

// EditorMarkers returns window-title fragments that identify editors.
func (c *Config) EditorMarkers() []string {
	return c.v.GetStringSlice("typing.editor_markers")
}

// ActivityWeights returns the raw weight of every enabled activity.
// Normalization happens in the scheduler.
func (c *Config) ActivityWeights() map[string]float64 {
	weights := make(map[string]float64)
	for name, w := range c.rawWeights() {
		enabledKey := "activities." + name + ".enabled"
		if c.v.IsSet(enabledKey) && !c.v.GetBool(enabledKey) {
			continue
		}
		weights[name] = w
	}
	return weights
}

// rawWeights collects activities.<name>.weight for every configured name.
// Names only listed with "enabled" get the 0.1 fallback weight.
func (c *Config) rawWeights() map[string]float64 {
	weights := make(map[string]float64)
	for _, key := range c.v.AllKeys() {
		if !strings.HasPrefix(key, "activities.") {
			continue
		}
		parts := strings.Split(key, ".")
		if len(parts) != 3 {
			continue
		}
		name := parts[1]
		if _, seen := weights[name]; seen {
			continue
		}
		weightKey := "activities." + name + ".weight"
		if c.v.IsSet(weightKey) {
			weights[name] = c.v.GetFloat64(weightKey)
		} else {
			weights[name] = 0.1
		}
	}
	return weights
}
