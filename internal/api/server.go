package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/thermlog/internal/audit"
	"github.com/nerrad567/thermlog/internal/auth"
	"github.com/nerrad567/thermlog/internal/command"
	"github.com/nerrad567/thermlog/internal/directory"
	"github.com/nerrad567/thermlog/internal/eventbus"
	"github.com/nerrad567/thermlog/internal/infrastructure/config"
	"github.com/nerrad567/thermlog/internal/infrastructure/logging"
	"github.com/nerrad567/thermlog/internal/participantlog"
	"github.com/nerrad567/thermlog/internal/sampler"
)

// gracefulShutdownTimeout bounds how long Close waits for in-flight requests.
const gracefulShutdownTimeout = 10 * time.Second

// LoggingEngine is the engine surface the API drives.
type LoggingEngine interface {
	command.Engine
	Entries() []participantlog.EntryInfo
}

// Commander runs text commands for POST /command.
type Commander interface {
	Execute(ctx context.Context, line string) command.Result
}

// Participants is the read side of the participant directory.
type Participants interface {
	List() []directory.Participant
	ByID(id uint32) (directory.Participant, error)
}

// SamplerControl drives the host sampler.
type SamplerControl interface {
	Start(fileName string, period time.Duration) error
	Stop() error
	Status() sampler.Status
}

// Bus is used to follow session changes for the logging.status channel.
type Bus interface {
	Subscribe(t eventbus.Type, participant uint32, domain uint8, h eventbus.Handler) eventbus.SubscriptionID
	Unsubscribe(id eventbus.SubscriptionID)
}

// Deps holds the server dependencies. Sampler, Bus, Hub and Audit are
// optional; without a Hub the server creates its own, and without Audit
// control requests are not recorded.
type Deps struct {
	Config       config.APIConfig
	WS           config.WebSocketConfig
	Security     config.SecurityConfig
	Logger       *logging.Logger
	Engine       LoggingEngine
	Commands     Commander
	Participants Participants
	Sampler      SamplerControl
	Bus          Bus
	Hub          *Hub
	Audit        audit.Repository
	Version      string

	// SamplerPeriod applies to POST /sampler/start requests without period_ms.
	SamplerPeriod time.Duration
}

// Server is the HTTP API server.
//
// Thread Safety:
//   - Handlers may run concurrently; all collaborators are concurrency-safe.
type Server struct {
	cfg          config.APIConfig
	wsCfg        config.WebSocketConfig
	secret       string
	logger       *logging.Logger
	engine       LoggingEngine
	commands     Commander
	participants Participants
	sampler      SamplerControl
	samplerEvery time.Duration
	bus          Bus
	hub          *Hub
	audit        audit.Repository
	recorder     *audit.Recorder
	version      string

	server *http.Server
	cancel context.CancelFunc
	busSub eventbus.SubscriptionID
}

// New checks deps and returns a server ready for Start.
//
// Returns:
//   - *Server: configured, not yet listening
//   - error: if a required dependency is missing or the JWT secret is too short
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("logging engine is required")
	}
	if deps.Participants == nil {
		return nil, fmt.Errorf("participant directory is required")
	}
	if len(deps.Security.JWT.Secret) < auth.MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d characters", auth.MinSecretLength)
	}

	commands := deps.Commands
	if commands == nil {
		commands = command.New(deps.Engine)
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.WS, deps.Logger)
	}
	var recorder *audit.Recorder
	if deps.Audit != nil {
		recorder = audit.NewRecorder(deps.Audit, deps.Logger)
		commands = audit.NewCommandRecorder(commands, recorder, audit.SourceAPI)
	}

	return &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		secret:       deps.Security.JWT.Secret,
		logger:       deps.Logger,
		engine:       deps.Engine,
		commands:     commands,
		participants: deps.Participants,
		sampler:      deps.Sampler,
		samplerEvery: deps.SamplerPeriod,
		bus:          deps.Bus,
		hub:          hub,
		audit:        deps.Audit,
		recorder:     recorder,
		version:      deps.Version,
	}, nil
}

// Hub returns the WebSocket hub backing the stream route.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start follows session changes and begins listening in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	if s.bus != nil {
		s.busSub = s.bus.Subscribe(eventbus.SessionChanged, eventbus.AnyParticipant, eventbus.AnyDomain,
			func(eventbus.Event) {
				s.hub.Broadcast(ChannelLoggingStatus, command.Report(s.engine.Status()))
			})
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS", "address", s.server.Addr, "cert", s.cfg.TLS.CertFile)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Close stops the listener, waiting up to 10 seconds for in-flight requests.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	if s.bus != nil {
		s.bus.Unsubscribe(s.busSub)
	}
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
