package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/nerrad567/thermlog/internal/api"
	"github.com/nerrad567/thermlog/internal/audit"
	"github.com/nerrad567/thermlog/internal/bridges/mqttbus"
	"github.com/nerrad567/thermlog/internal/command"
	"github.com/nerrad567/thermlog/internal/directory"
	"github.com/nerrad567/thermlog/internal/eventbus"
	"github.com/nerrad567/thermlog/internal/infrastructure/config"
	"github.com/nerrad567/thermlog/internal/infrastructure/database"
	"github.com/nerrad567/thermlog/internal/infrastructure/influxdb"
	"github.com/nerrad567/thermlog/internal/infrastructure/logging"
	"github.com/nerrad567/thermlog/internal/infrastructure/mqtt"
	"github.com/nerrad567/thermlog/internal/participantlog"
	"github.com/nerrad567/thermlog/internal/primitive"
	"github.com/nerrad567/thermlog/internal/sampler"
	"github.com/nerrad567/thermlog/internal/sink"
)

// application holds the wired components of one daemon run. Optional
// components are nil when disabled.
type application struct {
	cfg *config.Config
	log *logging.Logger
	db  *database.DB

	registry *directory.Registry
	audit    *audit.SQLiteRepository
	bus      *eventbus.Bus
	out      *sink.Sink
	eventLog *sink.EventLogBackend
	engine   *participantlog.Engine
	commands *command.Processor

	mqtt    *mqtt.Client
	bridge  *mqttbus.Bridge
	influx  *influxdb.Client
	sampler *sampler.Sampler
	hub     *api.Hub
	api     *api.Server

	closers []func()
}

// build wires every component from cfg without starting any loop or
// listener. On error, whatever was already opened is released.
func build(ctx context.Context, cfg *config.Config, db *database.DB, log *logging.Logger) (app *application, err error) {
	app = &application{cfg: cfg, log: log, db: db}
	defer func() {
		if err != nil {
			app.shutdown()
			app = nil
		}
	}()

	app.registry = directory.NewRegistry(directory.NewSQLiteRepository(db.DB))
	app.registry.SetLogger(log)
	if err := app.registry.RefreshCache(ctx); err != nil {
		return nil, fmt.Errorf("loading participant directory: %w", err)
	}
	log.Info("participant directory loaded", "participants", len(app.registry.List()))

	app.audit = audit.NewSQLiteRepository(db.DB)

	app.bus = eventbus.New()
	app.bus.SetLogger(log)

	if cfg.API.Enabled {
		app.hub = api.NewHub(cfg.WebSocket, log)
	}
	if err := app.buildSink(); err != nil {
		return nil, err
	}

	if err := app.buildEngine(); err != nil {
		return nil, err
	}
	app.commands = command.New(app.engine)

	if err := app.connectInfluxDB(); err != nil {
		return nil, err
	}
	if app.influx != nil {
		app.engine.SetTickObserver(app.influx)
	}

	if cfg.Sampler.Enabled {
		sources, srcErr := sampler.NewSources(cfg.Sampler.Sources)
		if srcErr != nil {
			return nil, fmt.Errorf("configuring sampler: %w", srcErr)
		}
		app.sampler = sampler.New(cfg.Sampler.Directory, sources)
		app.sampler.SetLogger(log)
		if app.influx != nil {
			app.sampler.SetObserver(app.influx)
		}
	}

	if err := app.connectMQTT(); err != nil {
		return nil, err
	}

	if cfg.API.Enabled {
		deps := api.Deps{
			Config:        cfg.API,
			WS:            cfg.WebSocket,
			Security:      cfg.Security,
			Logger:        log,
			Engine:        app.engine,
			Commands:      app.commands,
			Participants:  app.registry,
			Bus:           app.bus,
			Hub:           app.hub,
			Audit:         app.audit,
			Version:       version,
			SamplerPeriod: cfg.SamplerPeriod(),
		}
		// A nil *sampler.Sampler in the interface would read as enabled.
		if app.sampler != nil {
			deps.Sampler = app.sampler
		}
		app.api, err = api.New(deps)
		if err != nil {
			return nil, fmt.Errorf("creating API server: %w", err)
		}
	}

	return app, nil
}

// buildSink attaches a backend to every route.
func (a *application) buildSink() error {
	a.out = sink.New()
	a.out.SetLogger(a.log)

	a.out.Attach(sink.Console, sink.NewConsole(os.Stdout))
	a.out.Attach(sink.Debugger, sink.NewDebugger(a.log))
	a.out.Attach(sink.File, sink.NewFile(a.cfg.Sinks.File.Directory))

	a.eventLog = sink.NewEventLog(a.cfg.Sinks.EventLog.Tag)
	a.out.Attach(sink.EventLog, a.eventLog)
	a.closers = append(a.closers, func() {
		if err := a.eventLog.Close(); err != nil {
			a.log.Warn("error closing event log", "error", err)
		}
	})

	if a.hub != nil {
		a.out.Attach(sink.Stream, sink.NewStream(a.hub))
	}
	return nil
}

func (a *application) buildEngine() error {
	var routes sink.RouteSet
	for _, name := range a.cfg.Engine.Routes {
		r, err := sink.ParseRoute(name)
		if err != nil {
			return fmt.Errorf("engine.routes: %w", err)
		}
		routes |= r
	}
	if routes.Has(sink.Stream) && a.hub == nil {
		return fmt.Errorf("engine.routes: stream route requires the API to be enabled")
	}

	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	e := a.cfg.Engine

	exec := primitive.NewHostExecutor(a.registry)
	a.engine = participantlog.New(a.registry, exec, a.bus, a.out, participantlog.Options{
		Interval:         ms(e.PollIntervalMs),
		MinInterval:      ms(e.MinPollIntervalMs),
		MaxInterval:      ms(e.MaxPollIntervalMs),
		MinGranularity:   ms(e.MinGranularityMs),
		ScheduleDelay:    ms(e.ScheduleDelayMs),
		MinScheduleDelay: ms(e.MinScheduleDelayMs),
		StartupDelay:     ms(e.StartupDelayMs),
		PrimitiveTimeout: ms(e.PrimitiveTimeoutMs),
		Routes:           routes,
		FileName:         a.cfg.Sinks.File.Name,
	})
	a.engine.SetLogger(a.log)
	a.engine.Init()
	a.closers = append(a.closers, func() {
		a.log.Info("stopping logging engine")
		a.engine.Shutdown()
	})

	a.log.Info("logging engine initialised",
		"interval", ms(e.PollIntervalMs),
		"routes", routes.String(),
	)
	return nil
}

func (a *application) connectInfluxDB() error {
	if !a.cfg.InfluxDB.Enabled {
		a.log.Info("InfluxDB disabled")
		return nil
	}

	client, err := influxdb.Connect(a.cfg.InfluxDB)
	if err != nil {
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		a.log.Error("InfluxDB write error", "error", err)
	})
	a.influx = client
	a.closers = append(a.closers, func() {
		a.log.Info("closing InfluxDB connection")
		if err := client.Close(); err != nil {
			a.log.Error("error closing InfluxDB", "error", err)
		}
	})

	a.log.Info("InfluxDB connected",
		"url", a.cfg.InfluxDB.URL,
		"org", a.cfg.InfluxDB.Org,
		"bucket", a.cfg.InfluxDB.Bucket,
	)
	return nil
}

func (a *application) connectMQTT() error {
	if !a.cfg.MQTT.Enabled {
		a.log.Info("MQTT disabled, participants come only from the directory")
		return nil
	}

	client, err := mqtt.Connect(a.cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(a.log)
	client.SetOnConnect(func() {
		a.log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		a.log.Warn("MQTT disconnected", "error", err)
	})
	a.mqtt = client
	a.closers = append(a.closers, func() {
		a.log.Info("disconnecting from MQTT")
		if err := client.Close(); err != nil {
			a.log.Error("error closing MQTT", "error", err)
		}
	})
	a.log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", a.cfg.MQTT.Broker.Host, a.cfg.MQTT.Broker.Port),
		"client_id", a.cfg.MQTT.Broker.ClientID,
	)

	bridge, err := mqttbus.New(mqttbus.Options{
		MQTT:      client,
		Directory: a.registry,
		Bus:       a.bus,
		Commands:  audit.NewCommandRecorder(a.commands, audit.NewRecorder(a.audit, a.log), audit.SourceMQTT),
		Status:    a.engine,
		QoS:       byte(a.cfg.MQTT.QoS), // #nosec G115 -- validated to 0..2
		Logger:    a.log,
	})
	if err != nil {
		return fmt.Errorf("creating MQTT bridge: %w", err)
	}
	a.bridge = bridge
	return nil
}

// start launches the listeners and loops, in dependency order.
func (a *application) start(ctx context.Context) error {
	if a.bridge != nil {
		if err := a.bridge.Start(); err != nil {
			return fmt.Errorf("starting MQTT bridge: %w", err)
		}
		a.closers = append(a.closers, func() {
			a.log.Info("stopping MQTT bridge")
			a.bridge.Stop()
		})
		a.log.Info("MQTT bridge started")
	}

	if a.api != nil {
		if err := a.api.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := a.api.Close(); err != nil {
				a.log.Error("error closing API server", "error", err)
			}
		})
	}

	if a.sampler != nil {
		if err := a.sampler.Start(a.cfg.Sampler.FileName, a.cfg.SamplerPeriod()); err != nil {
			return fmt.Errorf("starting sampler: %w", err)
		}
		a.closers = append(a.closers, func() {
			a.log.Info("stopping sampler")
			if err := a.sampler.Stop(); err != nil && !errors.Is(err, sampler.ErrNotRunning) {
				a.log.Error("error stopping sampler", "error", err)
			}
		})
	}

	if a.cfg.Engine.AutoStart {
		a.autoStart(ctx)
	}
	return nil
}

// autoStart enrolls the configured targets. Failure is logged, not fatal:
// participants may announce themselves later and be started by command.
func (a *application) autoStart(ctx context.Context) {
	targets, err := participantlog.ParseTargets(a.cfg.Engine.AutoStartTargets)
	if err == nil {
		err = a.engine.Start(ctx, targets, 0)
	}
	if err != nil {
		a.log.Warn("auto start failed", "targets", a.cfg.Engine.AutoStartTargets, "error", command.ErrorLine(err))
		return
	}
	a.log.Info("logging auto-started", "targets", targets.String())
}

// shutdown releases components in reverse order of acquisition.
func (a *application) shutdown() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
