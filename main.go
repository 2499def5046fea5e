package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/indicatord/cmd"
	"github.com/smazurov/indicatord/internal/api"
	"github.com/smazurov/indicatord/internal/buzzer"
	"github.com/smazurov/indicatord/internal/config"
	"github.com/smazurov/indicatord/internal/events"
	"github.com/smazurov/indicatord/internal/indicator"
	"github.com/smazurov/indicatord/internal/intent"
	"github.com/smazurov/indicatord/internal/led"
	"github.com/smazurov/indicatord/internal/logging"
	"github.com/smazurov/indicatord/internal/metrics/exporters"
	"github.com/smazurov/indicatord/internal/nats"
	"github.com/smazurov/indicatord/internal/sources"
	"github.com/smazurov/indicatord/internal/systemd"
	"github.com/smazurov/indicatord/internal/version"
)

// daemon holds everything the server command starts and must stop.
type daemon struct {
	logger     *slog.Logger
	light      intent.IndicatorSink
	sound      intent.AudioSink
	manager    *indicator.Manager
	natsServer *nats.Server
	bridge     *nats.Bridge
	fileSource *sources.FileSource
	server     *api.Server
	logWatcher *config.Watcher[logging.Config]
	notifier   *systemd.Notifier
	cancel     context.CancelFunc
}

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *Options) {
		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}
		logging.Initialize(loggingConfig(opts))

		d := &daemon{logger: logging.GetLogger("main")}

		hooks.OnStart(func() {
			if err := d.start(opts); err != nil {
				d.logger.Error("Startup failed", "error", err)
				os.Exit(1)
			}
			d.logger.Info("Starting HTTP server", "port", opts.Port)
			if err := d.server.Start(opts.Port); err != nil {
				d.logger.Error("Failed to start HTTP server", "error", err)
				os.Exit(1)
			}
		})

		hooks.OnStop(d.stop)
	})

	cli.Root().Use = "indicatord"
	cli.Root().Short = "Multi-signal status indicator daemon"
	cli.Root().Version = version.String()

	cli.Root().AddCommand(
		cmd.CreateSignalCmd(),
		cmd.CreateMelodyCmd(),
		cmd.CreateSimulateCmd(),
	)

	cli.Run()
}

func (d *daemon) start(opts *Options) error {
	logger := d.logger
	logger.Info("Starting indicatord", "version", version.String())

	cfg, err := buildConfig(opts)
	if err != nil {
		return fmt.Errorf("indicator configuration: %w", err)
	}
	ledOpts, err := ledOptions(opts)
	if err != nil {
		return fmt.Errorf("light configuration: %w", err)
	}
	buzzerOpts, err := buzzerOptions(opts)
	if err != nil {
		return fmt.Errorf("buzzer configuration: %w", err)
	}

	eventBus := events.New()
	logging.SetLogCallback(func(e logging.LogEntry) {
		eventBus.Publish(events.LogEntryEvent{
			Seq:        e.Seq,
			Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
			Level:      e.Level,
			Module:     e.Module,
			Message:    e.Message,
			Attributes: e.Attributes,
		})
	})

	d.light = led.New(ledOpts, logging.GetLogger("led"))
	d.sound = buzzer.New(buzzerOpts, logging.GetLogger("buzzer"))
	soundName := "none"
	if d.sound != nil {
		soundName = d.sound.Name()
	}
	logger.Info("Output devices", "light", d.light.Name(), "sound", soundName)

	d.manager, err = indicator.NewManager(cfg, d.light, d.sound, eventBus, logging.GetLogger("indicator"))
	if err != nil {
		return err
	}

	var ctx context.Context
	ctx, d.cancel = context.WithCancel(context.Background())
	d.manager.Start(ctx)

	// NATS: an external server wins over the embedded one
	natsURL := opts.NATSURL
	if natsURL == "" && opts.NATSEnabled {
		d.natsServer = nats.NewServer(nats.ServerOptions{
			Port:   opts.NATSPort,
			Name:   "indicatord",
			Logger: logging.GetLogger("nats"),
		})
		if err := d.natsServer.Start(); err != nil {
			return fmt.Errorf("nats server: %w", err)
		}
		natsURL = d.natsServer.ClientURL()
	}
	if natsURL != "" {
		d.bridge = nats.NewBridge(natsURL, eventBus, logging.GetLogger("nats"))
		if err := d.bridge.Start(); err != nil {
			logger.Warn("NATS bridge not connected", "url", natsURL, "error", err)
		}
	}

	if opts.SignalFile != "" {
		debounce, err := time.ParseDuration(opts.SignalFileDebounce)
		if err != nil {
			logger.Warn("Invalid signal file debounce, using default", "value", opts.SignalFileDebounce)
		}
		d.fileSource = sources.NewFileSource(opts.SignalFile, debounce, eventBus, logging.GetLogger("sources"))
		if err := d.fileSource.Start(); err != nil {
			logger.Warn("Signal file source disabled", "error", err)
			d.fileSource = nil
		}
	}

	// Module log levels follow the config file at runtime
	d.logWatcher = config.NewConfigWatcher(opts.Config, func(path string) (logging.Config, error) {
		return config.LoadLoggingConfig(path), nil
	}, logger)
	d.logWatcher.OnReload(func(lc logging.Config) {
		for module, level := range lc.Modules {
			if !logging.SetModuleLevel(module, level) {
				logger.Warn("Ignoring invalid log level", "module", module, "level", level)
			}
		}
	})
	if err := d.logWatcher.Start(); err != nil {
		logger.Debug("Config file not watched", "path", opts.Config, "error", err)
	}

	apiOpts := &api.Options{
		AuthUsername: opts.AuthUsername,
		AuthPassword: opts.AuthPassword,
		Indicator:    d.manager,
		EventBus:     eventBus,
	}
	if opts.MetricsEnabled {
		apiOpts.PrometheusHandler = exporters.HTTPHandler()
	}
	d.server = api.NewServer(apiOpts)

	d.notifier = systemd.NewNotifier(logging.GetLogger("systemd"))
	go d.notifier.Watchdog(ctx)
	d.notifier.Ready()
	d.notifier.Status(fmt.Sprintf("light=%s sound=%s api=%s", d.light.Name(), soundName, opts.Port))
	return nil
}

func (d *daemon) stop() {
	logger := d.logger
	logger.Info("Shutting down")
	if d.notifier != nil {
		d.notifier.Stopping()
	}

	if d.server != nil {
		if err := d.server.Stop(); err != nil {
			logger.Error("Error stopping HTTP server", "error", err)
		}
	}
	if d.logWatcher != nil {
		if err := d.logWatcher.Stop(); err != nil {
			logger.Debug("Error stopping config watcher", "error", err)
		}
	}
	if d.fileSource != nil {
		if err := d.fileSource.Stop(); err != nil {
			logger.Warn("Error stopping signal file source", "error", err)
		}
	}
	if d.bridge != nil {
		d.bridge.Stop()
	}
	if d.natsServer != nil {
		d.natsServer.Stop()
	}

	// Producers are gone; the workers darken the devices on exit
	if d.manager != nil {
		d.manager.Stop()
	}
	if d.cancel != nil {
		d.cancel()
	}

	for _, sink := range []any{d.light, d.sound} {
		if c, ok := sink.(intent.Closer); ok {
			if err := c.Close(); err != nil {
				logger.Warn("Error closing device", "error", err)
			}
		}
	}
}
