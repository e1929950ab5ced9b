package hermes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Siteselect/internal/scoring"
)

// Publisher turns scoring outcomes into events. Publish failures are logged
// and never returned; a Publisher with a nil Client does nothing.
type Publisher struct {
	client Client
	logger *slog.Logger
	now    func() time.Time
}

func NewPublisher(c Client, logger *slog.Logger) *Publisher {
	return &Publisher{client: c, logger: logger, now: time.Now}
}

// Enabled reports whether events are delivered anywhere.
func (p *Publisher) Enabled() bool { return p != nil && p.client != nil }

func (p *Publisher) LocationScored(ctx context.Context, requestID string, b *scoring.Breakdown) {
	if !p.Enabled() || b == nil {
		return
	}
	p.publish(ctx, SubjectLocationScored(b.TypeID), LocationScoredEvent{
		EventID:   uuid.NewString(),
		RequestID: requestID,
		Type:      b.TypeID,
		Lat:       b.Point.Lat,
		Lon:       b.Point.Lon,
		Radius:    b.Radius,
		Score:     b.Score,
		NoData:    b.NoData,
		Timestamp: p.now().UTC(),
	})
}

func (p *Publisher) LocationFailed(ctx context.Context, requestID, typeID string, pt scoring.Point, radius float64, err error) {
	if !p.Enabled() || err == nil {
		return
	}
	ev := LocationFailedEvent{
		EventID:   uuid.NewString(),
		RequestID: requestID,
		Type:      typeID,
		Lat:       pt.Lat,
		Lon:       pt.Lon,
		Radius:    radius,
		Error:     err.Error(),
		Timestamp: p.now().UTC(),
	}
	var se *scoring.StageError
	if errors.As(err, &se) {
		ev.Stage = string(se.Stage)
	}
	p.publish(ctx, SubjectLocationFailed(typeID), ev)
}

func (p *Publisher) BatchRanked(ctx context.Context, requestID, typeID string, radius float64, ranked []scoring.Ranked) {
	if !p.Enabled() || len(ranked) == 0 {
		return
	}
	p.publish(ctx, SubjectBatchRanked(typeID), BatchRankedEvent{
		EventID:    uuid.NewString(),
		RequestID:  requestID,
		Type:       typeID,
		Radius:     radius,
		Candidates: len(ranked),
		BestIndex:  ranked[0].Index,
		BestScore:  ranked[0].Breakdown.Score,
		Timestamp:  p.now().UTC(),
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, ev any) {
	if err := p.client.Publish(ctx, subject, ev); err != nil {
		p.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
