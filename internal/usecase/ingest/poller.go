package ingest

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"docnexus/internal/domain"
	"docnexus/internal/infra/tracer"
)

// DefaultPollInterval matches the processing dialog of the web client.
const DefaultPollInterval = 2 * time.Second

// PollOptions paces task polling.
type PollOptions struct {
	Interval time.Duration
	Burst    int
}

// WatchResult is the outcome of a finished watch.
type WatchResult struct {
	Status domain.TaskStatus
	// Metadata holds the stored record of each file, keyed by name. Files
	// whose metadata could not be fetched are absent.
	Metadata map[string]*domain.FileMetadata
}

// Poller follows an ingestion task until it succeeds or fails.
type Poller struct {
	api    domain.FileAPI
	bus    domain.EventBus
	opts   PollOptions
	logger *slog.Logger
}

// NewPoller creates a poller. bus may be nil.
func NewPoller(api domain.FileAPI, bus domain.EventBus, opts PollOptions, logger *slog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{api: api, bus: bus, opts: opts, logger: logger.With("component", "ingest")}
}

// Watch polls the task every interval, passing each status to onUpdate
// (which may be nil). The first poll happens one interval after the call.
//
// On SUCCESS the metadata of every file in names is fetched and returned.
// On FAILURE the server's status text is returned wrapped in
// domain.ErrTaskFailed. A transport error stops the watch and is returned
// as is; there is no retry.
func (p *Poller) Watch(ctx context.Context, taskID string, names []string, onUpdate func(domain.TaskStatus)) (*WatchResult, error) {
	ctx, span := tracer.StartSpan(ctx, "ingest.poll",
		trace.WithAttributes(tracer.StringAttr("task.id", taskID)))
	defer span.End()

	limiter := rate.NewLimiter(rate.Every(p.opts.Interval), p.opts.Burst)
	// Spend the initial burst so polling starts one interval from now.
	limiter.AllowN(time.Now(), p.opts.Burst)

	polls := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = ctxErr
			}
			tracer.RecordError(span, err)
			return nil, err
		}

		status, err := p.api.TaskStatus(ctx, taskID)
		polls++
		if err != nil {
			p.logger.Warn("task poll failed, stopping", "task_id", taskID, "error", err)
			tracer.RecordError(span, err)
			return nil, domain.WrapOp("ingest.poll", err)
		}

		p.publish(ctx, domain.EventTaskUpdated, taskID, *status)
		if onUpdate != nil {
			onUpdate(*status)
		}
		p.logger.Debug("task status", "task_id", taskID, "state", status.State, "stage", status.CurrentStage)

		if !status.State.Terminal() {
			continue
		}

		span.SetAttributes(
			tracer.StringAttr("task.state", string(status.State)),
			tracer.IntAttr("task.polls", polls),
		)
		p.publish(ctx, domain.EventTaskFinished, taskID, *status)

		if status.State == domain.TaskFailure {
			err := domain.NewDomainError("ingest.poll", domain.ErrTaskFailed, status.Status)
			tracer.RecordError(span, err)
			return &WatchResult{Status: *status}, err
		}

		res := &WatchResult{Status: *status, Metadata: make(map[string]*domain.FileMetadata, len(names))}
		for _, name := range names {
			meta, err := p.api.Metadata(ctx, name)
			if err != nil {
				p.logger.Warn("fetch file metadata", "file", name, "error", err)
				continue
			}
			res.Metadata[name] = meta
		}
		tracer.SetOK(span)
		return res, nil
	}
}

func (p *Poller) publish(ctx context.Context, t domain.EventType, taskID string, status domain.TaskStatus) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(ctx, domain.NewEvent(t, "", domain.TaskUpdatePayload{TaskID: taskID, Status: status}))
}
