package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/logger"
)

const (
	defaultSendTimeout = 30 * time.Second
	// rememberedRuns bounds how many notified run ids are kept.
	rememberedRuns = 1024
)

// Notifier sends one terminal message per run. It subscribes to the engine
// as a dag.Observer; delivery errors are logged and never reach the run.
type Notifier struct {
	messenger    Messenger
	logsTemplate string
	sendTimeout  time.Duration
	log          *logger.Logger

	mu       sync.Mutex
	notified map[string]struct{}
	order    []string
	limit    int
}

var _ dag.Observer = (*Notifier)(nil)

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogsURL sets the logs link template; see LogsURL.
func WithLogsURL(template string) Option {
	return func(n *Notifier) { n.logsTemplate = template }
}

// WithSendTimeout bounds each delivery started from RunFinished.
func WithSendTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.sendTimeout = d
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(n *Notifier) {
		if log != nil {
			n.log = log
		}
	}
}

// NewNotifier creates a notifier over m. A nil messenger logs messages.
func NewNotifier(m Messenger, opts ...Option) *Notifier {
	n := &Notifier{
		messenger:   m,
		sendTimeout: defaultSendTimeout,
		log:         logger.Get("notify"),
		notified:    make(map[string]struct{}),
		limit:       rememberedRuns,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.messenger == nil {
		n.messenger = LogMessenger{Log: n.log}
	}
	return n
}

// NotifySuccess sends the success message for run. It reports whether a
// message was dispatched; false means the run was already notified.
func (n *Notifier) NotifySuccess(ctx context.Context, run *dag.PipelineRun) bool {
	return n.dispatch(ctx, SuccessPayload(run))
}

// NotifyFailure sends the failure message for run naming taskID.
func (n *Notifier) NotifyFailure(ctx context.Context, run *dag.PipelineRun, taskID, detail string) bool {
	return n.dispatch(ctx, FailurePayload(run, taskID, detail, n.logsTemplate))
}

// TaskFinished is a no-op; notifications are per run.
func (n *Notifier) TaskFinished(*dag.PipelineRun, dag.TaskAttempt) {}

// RunFinished sends the message matching the run's terminal status.
func (n *Notifier) RunFinished(run *dag.PipelineRun) {
	ctx, cancel := context.WithTimeout(context.Background(), n.sendTimeout)
	defer cancel()

	switch run.Status() {
	case dag.RunSucceeded:
		n.NotifySuccess(ctx, run)
	case dag.RunFailed:
		n.NotifyFailure(ctx, run, run.FailedTask(), run.FailureDetail())
	}
}

// Notified reports whether a message was dispatched for runID.
func (n *Notifier) Notified(runID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.notified[runID]
	return ok
}

func (n *Notifier) dispatch(ctx context.Context, p Payload) bool {
	if !n.claim(p.RunID) {
		n.log.Debug("run already notified", logger.Fields(logger.FieldRunID, p.RunID))
		return false
	}

	fields := logger.Fields(
		logger.FieldRunID, p.RunID,
		logger.FieldPipelineID, p.PipelineID,
		"succeeded", p.Succeeded,
	)
	if !p.Succeeded {
		fields[logger.FieldTaskID] = p.TaskID
	}
	if err := n.post(ctx, BuildMessage(p)); err != nil {
		fields[logger.FieldError] = dag.ErrorDetail(err)
		n.log.Error("notification not delivered", fields)
		return true
	}
	n.log.Info("notification sent", fields)
	return true
}

// claim marks runID as notified and reports whether this call did so.
// Only the most recent ids are remembered; the oldest is forgotten first.
func (n *Notifier) claim(runID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.notified[runID]; ok {
		return false
	}
	n.notified[runID] = struct{}{}
	n.order = append(n.order, runID)
	if len(n.order) > n.limit {
		delete(n.notified, n.order[0])
		n.order = n.order[1:]
	}
	return true
}

func (n *Notifier) post(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("messenger panicked: %v", r)
		}
	}()
	return n.messenger.Post(ctx, msg)
}
