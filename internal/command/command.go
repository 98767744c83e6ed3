package command

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/thermlog/internal/participantlog"
	"github.com/nerrad567/thermlog/internal/sink"
)

// ErrUnknownCommand indicates a verb the processor does not know.
var ErrUnknownCommand = fmt.Errorf("%w: unknown command", participantlog.ErrParameterInvalid)

// Engine is the set of engine operations commands drive.
type Engine interface {
	Start(ctx context.Context, t participantlog.Targets, interval time.Duration) error
	Stop() error
	Schedule(ctx context.Context, delay time.Duration, t participantlog.Targets) error
	SetRoutes(routes sink.RouteSet, fileName string) error
	SetInterval(d time.Duration) error
	Status() participantlog.Status
}

// Result is the outcome of one command.
type Result struct {
	Output string
	Code   participantlog.Code
	Err    error
}

// Text returns the output, or the error line when the command failed.
func (r Result) Text() string {
	if r.Err != nil {
		return ErrorLine(r.Err)
	}
	return r.Output
}

// ErrorLine renders err as "Error code: <Name>(<code>): <message>".
func ErrorLine(err error) string {
	c := participantlog.CodeOf(err)
	return fmt.Sprintf("Error code: %s(%d): %v", c, int(c), err)
}

// Processor runs commands against an engine.
type Processor struct {
	engine Engine
}

// New creates a processor for engine.
func New(engine Engine) *Processor {
	return &Processor{engine: engine}
}

// Execute parses and runs one command line.
func (p *Processor) Execute(ctx context.Context, line string) Result {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return failed(fmt.Errorf("%w: empty command", participantlog.ErrParameterInvalid))
	}
	verb, args := strings.ToLower(fields[0]), fields[1:]

	var (
		out string
		err error
	)
	switch verb {
	case "start":
		out, err = p.start(ctx, args)
	case "stop":
		out, err = p.stop(args)
	case "route":
		out, err = p.route(args)
	case "interval":
		out, err = p.interval(args)
	case "schedule":
		out, err = p.schedule(ctx, args)
	case "status":
		out = StatusText(p.engine.Status())
	case "help":
		out = Usage
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, verb)
	}
	if err != nil {
		return failed(err)
	}
	return Result{Output: out}
}

func failed(err error) Result {
	return Result{Code: participantlog.CodeOf(err), Err: err}
}

func (p *Processor) start(ctx context.Context, args []string) (string, error) {
	targets, err := participantlog.ParseTargets(args)
	if err != nil {
		return "", err
	}
	if err := p.engine.Start(ctx, targets, 0); err != nil {
		return "", err
	}
	return "Participant logging started\n" + StatusText(p.engine.Status()), nil
}

func (p *Processor) stop(args []string) (string, error) {
	if len(args) != 0 {
		return "", fmt.Errorf("%w: stop takes no arguments", participantlog.ErrParameterInvalid)
	}
	if err := p.engine.Stop(); err != nil {
		return "", err
	}
	return "Participant logging stopped", nil
}

func (p *Processor) route(args []string) (string, error) {
	if len(args) == 0 {
		return routeLine(p.engine.Status().Routes), nil
	}
	routes, fileName, err := sink.ParseRouteArgs(args)
	if err != nil {
		return "", fmt.Errorf("%w: %w", participantlog.ErrParameterInvalid, err)
	}
	if err := p.engine.SetRoutes(routes, fileName); err != nil {
		return "", err
	}
	return routeLine(routes), nil
}

func (p *Processor) interval(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%w: interval takes one value in ms", participantlog.ErrParameterInvalid)
	}
	ms, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return "", fmt.Errorf("%w: interval %q", participantlog.ErrParameterInvalid, args[0])
	}
	d := time.Duration(ms) * time.Millisecond
	if err := p.engine.SetInterval(d); err != nil {
		return "", err
	}
	return intervalLine(d), nil
}

// schedule takes an optional leading delay in ms followed by targets.
func (p *Processor) schedule(ctx context.Context, args []string) (string, error) {
	var delay time.Duration
	if len(args) > 0 {
		if ms, err := strconv.ParseUint(args[0], 10, 32); err == nil && len(args)%3 != 0 {
			delay = time.Duration(ms) * time.Millisecond
			args = args[1:]
		}
	}
	targets, err := participantlog.ParseTargets(args)
	if err != nil {
		return "", err
	}
	if err := p.engine.Schedule(ctx, delay, targets); err != nil {
		return "", err
	}
	return "Participant logging scheduled\n" + StatusText(p.engine.Status()), nil
}

// StatusText renders the status block.
func StatusText(s participantlog.Status) string {
	path := s.FilePath
	if path == "" {
		path = "NA"
	}
	session := s.SessionID
	if session == "" {
		session = "NA"
	}
	lines := []string{
		"Log state     : " + s.State,
		intervalLine(s.Interval),
		routeLine(s.Routes),
		"Log File Name : " + path,
		"Session       : " + session,
	}
	if !s.ScheduledFor.IsZero() {
		lines = append(lines, "Scheduled for : "+s.ScheduledFor.Format(time.RFC3339))
	}
	return strings.Join(lines, "\n")
}

func intervalLine(d time.Duration) string {
	return fmt.Sprintf("Log interval  : %d ms", d.Milliseconds())
}

func routeLine(r sink.RouteSet) string {
	return "Log route     : " + r.String()
}

// IsUsageError reports whether err came from malformed input rather than
// engine state.
func IsUsageError(err error) bool {
	return errors.Is(err, participantlog.ErrParameterInvalid)
}

// Usage describes the command language.
const Usage = `start    [all | {participant domain capability}...]
stop
route    [all | {console|debugger|eventlog|eventviewer|file [name]|stream}...]
interval <ms>
schedule [delay-ms] [all | {participant domain capability}...]
status`
