package audit

import (
	"context"

	"github.com/nerrad567/privatepub/internal/infrastructure/logging"
	"github.com/nerrad567/privatepub/internal/publisher"
	"github.com/nerrad567/privatepub/internal/pubsub"
)

type actorKey struct{}

// WithActor attaches the authenticated caller to ctx.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the caller attached by WithActor, or "".
func ActorFrom(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// Recorder writes audit entries for ticket and publish activity. Storage
// failures are logged and never fail the operation being audited.
type Recorder struct {
	repo   Repository
	logger *logging.Logger
}

// NewRecorder creates a Recorder over repo.
func NewRecorder(repo Repository, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Recorder{repo: repo, logger: logger}
}

// TicketIssued records a signed subscription ticket. Only the channel and
// timestamp are kept.
func (r *Recorder) TicketIssued(ctx context.Context, sub *pubsub.Subscription) {
	r.create(ctx, &AuditLog{
		Action:  ActionTicketIssued,
		Channel: sub.Channel,
		Actor:   ActorFrom(ctx),
		Outcome: OutcomeOK,
		Details: map[string]any{"timestamp": sub.Timestamp},
	})
}

// TicketVerified records a verification attempt and its result.
func (r *Recorder) TicketVerified(ctx context.Context, channel string, expiry pubsub.Expiry, err error) {
	entry := &AuditLog{
		Action:  ActionTicketVerified,
		Channel: channel,
		Actor:   ActorFrom(ctx),
		Outcome: OutcomeOK,
		Details: map[string]any{"expiry": expiry.String()},
	}
	if err != nil {
		entry.Outcome = OutcomeError
		entry.Details["error"] = err.Error()
	}
	r.create(ctx, entry)
}

// ObservePublish records a publish attempt. It implements publisher.Observer.
func (r *Recorder) ObservePublish(ctx context.Context, result publisher.Result) {
	entry := &AuditLog{
		Action:     ActionMessagePublished,
		Channel:    result.Channel,
		Actor:      ActorFrom(ctx),
		Outcome:    OutcomeOK,
		StatusCode: result.StatusCode,
		Details:    map[string]any{"duration_ms": result.Duration.Milliseconds()},
	}
	if result.Err != nil {
		entry.Outcome = OutcomeError
		entry.Details["error"] = result.Err.Error()
	}
	r.create(ctx, entry)
}

// List returns a page of audit entries.
func (r *Recorder) List(ctx context.Context, filter Filter) (*ListResult, error) {
	return r.repo.List(ctx, filter)
}

func (r *Recorder) create(ctx context.Context, entry *AuditLog) {
	// Detached from cancellation: the audited request may already be done.
	if err := r.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Warn("writing audit log failed", "action", entry.Action, "channel", entry.Channel, "error", err)
	}
}
