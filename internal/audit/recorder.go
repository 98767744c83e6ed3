package audit

import (
	"context"
	"strings"
	"time"

	"github.com/nerrad567/thermlog/internal/command"
)

// recordTimeout bounds one audit insert so a slow database cannot stall a
// command reply.
const recordTimeout = 2 * time.Second

// Logger is the logging interface the recorder needs.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Recorder writes entries and logs, rather than returns, storage failures.
type Recorder struct {
	repo   Repository
	logger Logger
}

// NewRecorder creates a recorder over repo. logger may be nil.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{repo: repo, logger: logger}
}

// Record stores e. The insert is detached from ctx cancellation so an
// action that completed is recorded even if its caller went away.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, &e); err != nil {
		r.logger.Warn("failed to record audit entry", "action", e.Action, "source", e.Source, "error", err)
	}
}

// Commander runs text commands.
type Commander interface {
	Execute(ctx context.Context, line string) command.Result
}

// CommandRecorder wraps a Commander and audits every command it runs.
type CommandRecorder struct {
	next     Commander
	recorder *Recorder
	source   string
}

// NewCommandRecorder audits commands run through next as coming from source.
func NewCommandRecorder(next Commander, recorder *Recorder, source string) *CommandRecorder {
	return &CommandRecorder{next: next, recorder: recorder, source: source}
}

// Execute implements Commander. Status queries are not audited.
func (c *CommandRecorder) Execute(ctx context.Context, line string) command.Result {
	res := c.next.Execute(ctx, line)
	if res.Err == nil && isQuery(line) {
		return res
	}

	e := Entry{
		Source:  c.source,
		Subject: SubjectFrom(ctx),
		Action:  line,
		Result:  ResultOK,
	}
	if res.Err != nil {
		e.Result = ResultError
		e.Detail = command.ErrorLine(res.Err)
	}
	c.recorder.Record(ctx, e)
	return res
}

func isQuery(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	verb := strings.ToLower(fields[0])
	return verb == "status" || verb == "help"
}

type subjectKey struct{}

// WithSubject returns a context carrying the acting subject.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFrom returns the subject stored by WithSubject, or "".
func SubjectFrom(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}
