package llm

import (
	"context"
	"time"

	"github.com/abhisek/lectern/internal/logging"
)

// UsageEvent describes one collaborator call as seen below the retry layer.
type UsageEvent struct {
	Purpose      string
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	CostUSD      float64
	At           time.Time
}

// UsageRecorder receives usage events. Implementations must be safe for
// concurrent use.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, ev UsageEvent) error
}

// LoggingProvider logs every call and forwards a UsageEvent to each recorder.
// Recorder failures are logged and never fail the call.
type LoggingProvider struct {
	inner     Provider
	log       *logging.Logger
	recorders []UsageRecorder
	now       func() time.Time
}

// WithLogging wraps p with call logging and usage recording.
func WithLogging(p Provider, log *logging.Logger, recorders ...UsageRecorder) *LoggingProvider {
	return &LoggingProvider{
		inner:     p,
		log:       logging.OrNop(log),
		recorders: recorders,
		now:       time.Now,
	}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := l.now()
	purpose := PurposeFrom(ctx)

	resp, err := l.inner.Generate(ctx, req)

	ev := UsageEvent{
		Purpose:   purpose,
		Model:     l.inner.ModelID(),
		LatencyMs: l.now().Sub(start).Milliseconds(),
		Success:   err == nil,
		At:        start,
	}
	if resp != nil {
		ev.InputTokens = resp.Usage.InputTokens
		ev.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			ev.Model = resp.Model
		}
	}
	if cost := LookupCost(ev.Model); cost != nil {
		ev.CostUSD = cost.Cost(ev.InputTokens, ev.OutputTokens)
	}

	if err != nil {
		ev.ErrorMessage = err.Error()
		l.log.Warn("collaborator call failed",
			"purpose", purpose,
			"model", ev.Model,
			"latency_ms", ev.LatencyMs,
			"error", ev.ErrorMessage,
		)
	} else {
		l.log.Debug("collaborator call",
			"purpose", purpose,
			"model", ev.Model,
			"latency_ms", ev.LatencyMs,
			"input_tokens", ev.InputTokens,
			"output_tokens", ev.OutputTokens,
		)
	}

	for _, r := range l.recorders {
		if recErr := r.RecordUsage(ctx, ev); recErr != nil {
			l.log.Warn("failed to record usage", "purpose", purpose, "error", recErr.Error())
		}
	}

	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}
