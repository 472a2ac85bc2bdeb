package narrative

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/kamino-places-api/app/observability/metrics"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

// Maintainer re-uploads narrative documents the provider has dropped,
// using the local copies kept by UploadNarrative.
type Maintainer struct {
	logger      *slog.Logger
	places      Places
	store       DocumentStore
	dir         string
	storeID     string
	concurrency int
}

func NewMaintainer(places Places, store DocumentStore, logger *slog.Logger, dir, storeID string, concurrency int) *Maintainer {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Maintainer{
		logger:      logger,
		places:      places,
		store:       store,
		dir:         dir,
		storeID:     storeID,
		concurrency: concurrency,
	}
}

type outcome string

const (
	outcomeValid     outcome = "valid"
	outcomeRefreshed outcome = "refreshed"
	outcomeFailed    outcome = "failed"
)

func (m *Maintainer) RefreshExpired(ctx context.Context) (*types.RefreshReport, error) {
	ctx, span := otel.Tracer("NarrativeMaintainer").Start(ctx, "RefreshExpired")
	defer span.End()
	l := m.logger.With(slog.String("method", "RefreshExpired"))

	places, err := m.places.ListWithNarrative(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list narratives: %w", err)
	}

	var refreshed, failed atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for _, p := range places {
		g.Go(func() error {
			res := m.refreshOne(gctx, p)
			metrics.Get().NarrativeRefreshOutcomes.Add(gctx, 1,
				metric.WithAttributes(attribute.String("result", string(res))))
			switch res {
			case outcomeRefreshed:
				refreshed.Add(1)
			case outcomeFailed:
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := &types.RefreshReport{
		Checked:   len(places),
		Refreshed: int(refreshed.Load()),
		Failed:    int(failed.Load()),
	}
	span.SetAttributes(
		attribute.Int("narratives.checked", report.Checked),
		attribute.Int("narratives.refreshed", report.Refreshed),
		attribute.Int("narratives.failed", report.Failed),
	)
	l.InfoContext(ctx, "Narrative refresh finished",
		slog.Int("checked", report.Checked),
		slog.Int("refreshed", report.Refreshed),
		slog.Int("failed", report.Failed))
	return report, nil
}

func (m *Maintainer) refreshOne(ctx context.Context, p types.Place) outcome {
	l := m.logger.With(slog.String("placeID", p.ID.String()))
	if !p.HasNarrative() {
		return outcomeValid
	}

	ok, err := m.store.Exists(ctx, *p.NarrativeDocumentID)
	if err != nil {
		l.WarnContext(ctx, "Failed to check narrative document", slog.Any("error", err))
		return outcomeFailed
	}
	if ok {
		return outcomeValid
	}

	data, err := os.ReadFile(localPath(m.dir, p.ID))
	if err != nil {
		l.WarnContext(ctx, "No local copy to re-upload", slog.Any("error", err))
		return outcomeFailed
	}
	doc, err := m.store.Upload(ctx, p.Name, bytes.NewReader(data))
	if err != nil {
		l.WarnContext(ctx, "Re-upload failed", slog.Any("error", err))
		return outcomeFailed
	}

	var storeID *string
	if m.storeID != "" {
		storeID = &m.storeID
	} else {
		storeID = p.NarrativeStoreID
	}
	if err := m.places.SetNarrative(ctx, p.ID, &doc.ID, storeID); err != nil {
		l.WarnContext(ctx, "Failed to save refreshed handle", slog.Any("error", err))
		return outcomeFailed
	}
	l.InfoContext(ctx, "Narrative document refreshed", slog.String("document", doc.ID))
	return outcomeRefreshed
}

// Run calls RefreshExpired every day at hour:00 in loc until ctx is done.
func (m *Maintainer) Run(ctx context.Context, hour int, loc *time.Location) {
	if loc == nil {
		loc = time.UTC
	}
	for {
		wait := time.Until(NextRun(time.Now(), hour, loc))
		m.logger.DebugContext(ctx, "Next narrative refresh scheduled", slog.Duration("in", wait))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if _, err := m.RefreshExpired(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.ErrorContext(ctx, "Scheduled narrative refresh failed", slog.Any("error", err))
		}
	}
}

// NextRun returns the first hour:00 strictly after now.
func NextRun(now time.Time, hour int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
