package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smazurov/indicatord/internal/buzzer"
	"github.com/smazurov/indicatord/internal/indicator"
	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/led"
	"github.com/smazurov/indicatord/internal/logging"
	"github.com/smazurov/indicatord/internal/ratelimit"
	"github.com/smazurov/indicatord/internal/render"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Address for the HTTP API" short:"p" default:":8095" toml:"server.port" env:"SERVER_PORT"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Light settings
	LEDDriver         string `help:"Light driver (auto, sysfs, gpio, modbus, terminal, noop)" default:"auto" toml:"led.driver" env:"LED_DRIVER"`
	LEDSysfs          string `help:"Sysfs LED names for red,green,blue" default:"" toml:"led.sysfs" env:"LED_SYSFS"`
	LEDGPIO           string `help:"GPIO pins for red,green,blue" default:"" toml:"led.gpio" env:"LED_GPIO"`
	LEDActiveLow      bool   `help:"GPIO pins are active low" default:"false" toml:"led.active_low" env:"LED_ACTIVE_LOW"`
	LEDModbusEndpoint string `help:"Modbus TCP endpoint of a stack light" default:"" toml:"led.modbus.endpoint" env:"LED_MODBUS_ENDPOINT"`
	LEDModbusUnit     int    `help:"Modbus unit id" default:"1" toml:"led.modbus.unit" env:"LED_MODBUS_UNIT"`
	LEDModbusCoil     int    `help:"First coil of the red,green,blue triple" default:"0" toml:"led.modbus.coil" env:"LED_MODBUS_COIL"`
	LEDModbusTimeout  string `help:"Modbus request timeout" default:"1s" toml:"led.modbus.timeout" env:"LED_MODBUS_TIMEOUT"`
	LEDMirror         bool   `help:"Also print every color to the terminal" default:"false" toml:"led.mirror" env:"LED_MIRROR"`

	// Sound settings
	BuzzerDriver     string `help:"Tone driver (none, pwm, wav, noop)" default:"none" toml:"buzzer.driver" env:"BUZZER_DRIVER"`
	BuzzerPin        string `help:"PWM pin for the buzzer" default:"GPIO18" toml:"buzzer.pin" env:"BUZZER_PIN"`
	BuzzerPath       string `help:"WAV file the wav driver records to" default:"indicatord.wav" toml:"buzzer.path" env:"BUZZER_PATH"`
	BuzzerSampleRate int    `help:"WAV sample rate" default:"22050" toml:"buzzer.sample_rate" env:"BUZZER_SAMPLE_RATE"`

	// Indicator settings
	IndicatorQueueCapacity   int    `help:"Render queue capacity per lane" default:"16" toml:"indicator.queue_capacity" env:"INDICATOR_QUEUE_CAPACITY"`
	IndicatorDropPolicy      string `help:"Full queue policy (oldest, newest)" default:"oldest" toml:"indicator.drop_policy" env:"INDICATOR_DROP_POLICY"`
	IndicatorDebounceCaps    string `help:"Caps lock debounce" default:"500ms" toml:"indicator.debounce_capslock" env:"INDICATOR_DEBOUNCE_CAPSLOCK"`
	IndicatorDebounceBattery string `help:"Battery debounce" default:"300ms" toml:"indicator.debounce_battery" env:"INDICATOR_DEBOUNCE_BATTERY"`
	IndicatorPollInterval    string `help:"Connectivity poll interval, 0 disables" default:"3s" toml:"indicator.poll_interval" env:"INDICATOR_POLL_INTERVAL"`
	IndicatorBootEffect      bool   `help:"Play the rainbow boot effect" default:"true" toml:"indicator.boot_effect" env:"INDICATOR_BOOT_EFFECT"`
	IndicatorStartupSound    bool   `help:"Play the startup melody" default:"true" toml:"indicator.startup_sound" env:"INDICATOR_STARTUP_SOUND"`
	IndicatorWaitForBoot     bool   `help:"Stay idle until a producer reports boot complete" default:"false" toml:"indicator.wait_for_boot" env:"INDICATOR_WAIT_FOR_BOOT"`

	// Arbiter thresholds
	BatteryCritical int    `help:"Critical battery percent" default:"10" toml:"battery.critical" env:"BATTERY_CRITICAL"`
	BatteryLow      int    `help:"Low battery percent" default:"50" toml:"battery.low" env:"BATTERY_LOW"`
	BatteryHigh     int    `help:"High battery percent" default:"80" toml:"battery.high" env:"BATTERY_HIGH"`
	CapsLockColor   string `help:"Caps lock color" default:"white" toml:"colors.capslock" env:"COLORS_CAPSLOCK"`
	ProfileColors   string `help:"Colors for profiles 0..n" default:"red,green,blue,yellow,magenta" toml:"colors.profiles" env:"COLORS_PROFILES"`

	// Spam guard
	GuardThreshold int    `help:"Fast events before spam mode" default:"5" toml:"guard.threshold" env:"GUARD_THRESHOLD"`
	GuardCooldown  string `help:"Quiet time that ends spam mode" default:"2s" toml:"guard.cooldown" env:"GUARD_COOLDOWN"`

	// NATS settings
	NATSEnabled bool   `help:"Run the embedded NATS server" default:"true" toml:"nats.enabled" env:"NATS_ENABLED"`
	NATSPort    int    `help:"Embedded NATS server port" default:"4222" toml:"nats.port" env:"NATS_PORT"`
	NATSURL     string `help:"External NATS server, overrides the embedded one" default:"" toml:"nats.url" env:"NATS_URL"`

	// File source settings
	SignalFile         string `help:"TOML signal file to mirror, empty disables" default:"" toml:"sources.signal_file" env:"SOURCES_SIGNAL_FILE"`
	SignalFileDebounce string `help:"Signal file reload debounce" default:"100ms" toml:"sources.debounce" env:"SOURCES_DEBOUNCE"`

	// Metrics
	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel      string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingIndicator  string `help:"Indicator logging level" default:"info" toml:"logging.indicator" env:"LOGGING_INDICATOR"`
	LoggingRender     string `help:"Render worker logging level" default:"info" toml:"logging.render" env:"LOGGING_RENDER"`
	LoggingLED        string `help:"Light driver logging level" default:"info" toml:"logging.led" env:"LOGGING_LED"`
	LoggingBuzzer     string `help:"Tone driver logging level" default:"info" toml:"logging.buzzer" env:"LOGGING_BUZZER"`
	LoggingNATS       string `help:"NATS logging level" default:"info" toml:"logging.nats" env:"LOGGING_NATS"`
	LoggingSources    string `help:"Signal source logging level" default:"info" toml:"logging.sources" env:"LOGGING_SOURCES"`
	LoggingAPI        string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingBufferSize int    `help:"Log lines kept for /api/logs" default:"500" toml:"logging.buffer_size" env:"LOGGING_BUFFER_SIZE"`
}

func loggingConfig(opts *Options) logging.Config {
	return logging.Config{
		Level:      opts.LoggingLevel,
		Format:     opts.LoggingFormat,
		BufferSize: opts.LoggingBufferSize,
		Modules: map[string]string{
			"indicator": opts.LoggingIndicator,
			"render":    opts.LoggingRender,
			"led":       opts.LoggingLED,
			"buzzer":    opts.LoggingBuzzer,
			"nats":      opts.LoggingNATS,
			"sources":   opts.LoggingSources,
			"api":       opts.LoggingAPI,
			"http":      opts.LoggingAPI,
		},
	}
}

// buildConfig translates flat options into the indicator configuration.
func buildConfig(opts *Options) (indicator.Config, error) {
	cfg := indicator.DefaultConfig()
	var errs []error

	cfg.QueueCapacity = opts.IndicatorQueueCapacity
	policy, err := render.ParseDropPolicy(opts.IndicatorDropPolicy)
	if err != nil {
		errs = append(errs, err)
	}
	cfg.DropPolicy = policy
	for _, d := range []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"indicator.debounce_capslock", opts.IndicatorDebounceCaps, &cfg.DebounceCapsLock},
		{"indicator.debounce_battery", opts.IndicatorDebounceBattery, &cfg.DebounceBattery},
		{"indicator.poll_interval", opts.IndicatorPollInterval, &cfg.PollInterval},
	} {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.name, err))
			continue
		}
		*d.dst = v
	}
	cfg.BootEffect = opts.IndicatorBootEffect
	cfg.StartupSound = opts.IndicatorStartupSound
	cfg.WaitForBoot = opts.IndicatorWaitForBoot

	cfg.Arbiter.CriticalBatteryPct = opts.BatteryCritical
	cfg.Arbiter.LowBatteryPct = opts.BatteryLow
	cfg.Arbiter.HighBatteryPct = opts.BatteryHigh
	if c, err := intent.ParseColor(opts.CapsLockColor); err != nil {
		errs = append(errs, fmt.Errorf("caps lock color: %w", err))
	} else {
		cfg.Arbiter.CapsLockColor = c
	}
	if opts.ProfileColors != "" {
		var colors []intent.Color
		for _, name := range splitList(opts.ProfileColors) {
			c, err := intent.ParseColor(name)
			if err != nil {
				errs = append(errs, fmt.Errorf("profile colors: %w", err))
				continue
			}
			colors = append(colors, c)
		}
		cfg.Arbiter.ProfileColors = colors
	}

	cooldown, err := time.ParseDuration(opts.GuardCooldown)
	if err != nil {
		errs = append(errs, fmt.Errorf("guard.cooldown: %w", err))
	}
	for _, p := range []*ratelimit.Policy{&cfg.Guard.Profile, &cfg.Guard.Link, &cfg.Guard.Generic} {
		p.Threshold = opts.GuardThreshold
		p.Cooldown = cooldown
	}

	if err := errors.Join(errs...); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func ledOptions(opts *Options) (led.Options, error) {
	driver, err := led.ParseDriver(opts.LEDDriver)
	if err != nil {
		return led.Options{}, err
	}
	timeout, err := time.ParseDuration(opts.LEDModbusTimeout)
	if err != nil {
		return led.Options{}, fmt.Errorf("led.modbus.timeout: %w", err)
	}
	lo := led.Options{
		Driver:        driver,
		GPIOActiveLow: opts.LEDActiveLow,
		Mirror:        opts.LEDMirror,
		Modbus: led.ModbusOptions{
			Endpoint:  opts.LEDModbusEndpoint,
			UnitID:    uint8(opts.LEDModbusUnit),
			CoilStart: uint16(opts.LEDModbusCoil),
			Timeout:   timeout,
		},
	}
	if lo.SysfsLEDs, err = triple(opts.LEDSysfs); err != nil {
		return lo, fmt.Errorf("led sysfs: %w", err)
	}
	if lo.GPIOPins, err = triple(opts.LEDGPIO); err != nil {
		return lo, fmt.Errorf("led gpio: %w", err)
	}
	return lo, nil
}

func buzzerOptions(opts *Options) (buzzer.Options, error) {
	driver, err := buzzer.ParseDriver(opts.BuzzerDriver)
	if err != nil {
		return buzzer.Options{}, err
	}
	return buzzer.Options{
		Driver:     driver,
		Pin:        opts.BuzzerPin,
		Path:       opts.BuzzerPath,
		SampleRate: opts.BuzzerSampleRate,
	}, nil
}

// triple parses "red,green,blue" channel names. Empty means unset.
func triple(s string) ([3]string, error) {
	var out [3]string
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	parts := splitList(s)
	if len(parts) != 3 {
		return out, fmt.Errorf("want 3 comma separated names, got %d", len(parts))
	}
	copy(out[:], parts)
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
