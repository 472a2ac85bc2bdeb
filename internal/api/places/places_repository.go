package places

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/kamino-places-api/app/observability/metrics"
	"github.com/FACorreiaa/kamino-places-api/internal/geo"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ListQuery is a normalised filter: sort column, direction and paging are
// already resolved by the service.
type ListQuery struct {
	Search      string
	Category    string
	Tags        []string
	IsHiddenGem *bool
	SortColumn  string
	Descending  bool
	Limit       int
	Offset      int
}

type Repository interface {
	Create(ctx context.Context, place types.Place) (*types.Place, error)
	CreateBulk(ctx context.Context, places []types.Place) ([]types.Place, error)
	FindByID(ctx context.Context, id uuid.UUID) (*types.Place, error)
	List(ctx context.Context, q ListQuery) ([]types.Place, int, error)
	// ListCandidates returns every live row matching q's filters, newest
	// first, optionally restricted to a bounding box. Paging fields are ignored.
	ListCandidates(ctx context.Context, q ListQuery, box *geo.BoundingBox) ([]types.Place, error)
	Update(ctx context.Context, id uuid.UUID, upd types.UpdatePlaceRequest) (*types.Place, error)
	ToggleHiddenGem(ctx context.Context, id uuid.UUID) (*types.Place, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	HardDeleteAll(ctx context.Context) (int64, error)
	Categories(ctx context.Context) ([]string, error)
	Tags(ctx context.Context) ([]string, error)
	ListWithNarrative(ctx context.Context) ([]types.Place, error)
	SetNarrative(ctx context.Context, id uuid.UUID, documentID, storeID *string) error
}

type RepositoryImpl struct {
	logger *slog.Logger
	db     DB
}

func NewRepository(db DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{
		logger: logger,
		db:     db,
	}
}

const placeColumns = `id, name, description, category, COALESCE(tags, '{}') AS tags, latitude, longitude,
	address, image_url, is_hidden_gem, opening_time, closing_time, tour_duration,
	COALESCE(closed_days, '{}') AS closed_days, schedule_by_day, crowd_info,
	narrative_document_id, narrative_store_id, created_at, updated_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func scanPlace(row pgx.Row) (types.Place, error) {
	var p types.Place
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Tags, &p.Latitude, &p.Longitude,
		&p.Address, &p.ImageURL, &p.IsHiddenGem, &p.OpeningTime, &p.ClosingTime, &p.TourDuration,
		&p.ClosedDays, &p.ScheduleByDay, &p.CrowdInfo,
		&p.NarrativeDocumentID, &p.NarrativeStoreID, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func collectPlaces(rows pgx.Rows) ([]types.Place, error) {
	defer rows.Close()
	out := make([]types.Place, 0)
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan place row: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating place rows: %w", err)
	}
	return out, nil
}

func failSpan(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

// jsonbValue keeps empty maps out of the column so missing schedules stay NULL.
func jsonbValue(m map[string]types.DayHours) any {
	if len(m) == 0 {
		return nil
	}
	return m
}

func rawJSONValue(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func insertBuilder(p types.Place) sq.InsertBuilder {
	return psql.Insert("places").
		Columns("name", "description", "category", "tags", "latitude", "longitude", "address",
			"image_url", "is_hidden_gem", "opening_time", "closing_time", "tour_duration",
			"closed_days", "schedule_by_day", "crowd_info").
		Values(p.Name, p.Description, p.Category, nonNilStrings(p.Tags), p.Latitude, p.Longitude, p.Address,
			p.ImageURL, p.IsHiddenGem, p.OpeningTime, p.ClosingTime, p.TourDuration,
			nonNilStrings(p.ClosedDays), jsonbValue(p.ScheduleByDay), rawJSONValue(p.CrowdInfo)).
		Suffix("RETURNING " + placeColumns)
}

func (r *RepositoryImpl) Create(ctx context.Context, place types.Place) (*types.Place, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("place.name", place.Name),
		attribute.String("place.category", place.Category),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "Create"))

	query, args, err := insertBuilder(place).ToSql()
	if err != nil {
		failSpan(span, err, "Failed to build query")
		return nil, fmt.Errorf("failed to build insert query: %w", err)
	}

	start := time.Now()
	created, err := scanPlace(r.db.QueryRow(ctx, query, args...))
	metrics.ObserveQuery(ctx, "places.create", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert place", slog.Any("error", err))
		failSpan(span, err, "Database insert failed")
		return nil, fmt.Errorf("failed to insert place: %w", err)
	}

	span.SetAttributes(attribute.String("place.id", created.ID.String()))
	l.DebugContext(ctx, "Place inserted", slog.String("id", created.ID.String()))
	return &created, nil
}

// CreateBulk inserts all places in one transaction.
func (r *RepositoryImpl) CreateBulk(ctx context.Context, places []types.Place) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "CreateBulk", trace.WithAttributes(
		attribute.Int("places.count", len(places)),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "CreateBulk"))

	start := time.Now()
	tx, err := r.db.Begin(ctx)
	if err != nil {
		failSpan(span, err, "Failed to start transaction")
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			l.WarnContext(ctx, "Rollback failed", slog.Any("error", rbErr))
		}
	}()

	created := make([]types.Place, 0, len(places))
	for i, p := range places {
		query, args, err := insertBuilder(p).ToSql()
		if err != nil {
			failSpan(span, err, "Failed to build query")
			return nil, fmt.Errorf("failed to build insert query for place %d: %w", i, err)
		}
		row, err := scanPlace(tx.QueryRow(ctx, query, args...))
		if err != nil {
			metrics.ObserveQuery(ctx, "places.create_bulk", start, err)
			l.ErrorContext(ctx, "Failed to insert place in bulk", slog.Int("index", i), slog.Any("error", err))
			failSpan(span, err, "Database insert failed")
			return nil, fmt.Errorf("failed to insert place %d: %w", i, err)
		}
		created = append(created, row)
	}

	err = tx.Commit(ctx)
	metrics.ObserveQuery(ctx, "places.create_bulk", start, err)
	if err != nil {
		failSpan(span, err, "Commit failed")
		return nil, fmt.Errorf("failed to commit bulk insert: %w", err)
	}
	l.InfoContext(ctx, "Places inserted", slog.Int("count", len(created)))
	return created, nil
}

func (r *RepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*types.Place, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "FindByID", trace.WithAttributes(
		attribute.String("place.id", id.String()),
	))
	defer span.End()

	query := `SELECT ` + placeColumns + ` FROM places WHERE id = $1 AND deleted_at IS NULL`

	start := time.Now()
	p, err := scanPlace(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveQuery(ctx, "places.find_by_id", start, nil)
		return nil, fmt.Errorf("place %s: %w", id, types.ErrNotFound)
	}
	metrics.ObserveQuery(ctx, "places.find_by_id", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to fetch place", slog.String("method", "FindByID"), slog.Any("error", err))
		failSpan(span, err, "Database query failed")
		return nil, fmt.Errorf("failed to fetch place: %w", err)
	}
	return &p, nil
}

// escapeLike stops user input from acting as LIKE wildcards.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func applyFilters(b sq.SelectBuilder, q ListQuery) sq.SelectBuilder {
	b = b.Where("deleted_at IS NULL")
	if q.Search != "" {
		b = b.Where("LOWER(name) LIKE ?", "%"+escapeLike(strings.ToLower(q.Search))+"%")
	}
	if q.Category != "" {
		b = b.Where("LOWER(category) = ?", strings.ToLower(q.Category))
	}
	for _, tag := range q.Tags {
		b = b.Where("LOWER(array_to_string(tags, ',')) LIKE ?", "%"+escapeLike(strings.ToLower(tag))+"%")
	}
	if q.IsHiddenGem != nil {
		b = b.Where(sq.Eq{"is_hidden_gem": *q.IsHiddenGem})
	}
	return b
}

func (r *RepositoryImpl) List(ctx context.Context, q ListQuery) ([]types.Place, int, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "List", trace.WithAttributes(
		attribute.String("filter.search", q.Search),
		attribute.String("filter.category", q.Category),
		attribute.Int("page.limit", q.Limit),
		attribute.Int("page.offset", q.Offset),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "List"))

	countSQL, countArgs, err := applyFilters(psql.Select("COUNT(*)").From("places"), q).ToSql()
	if err != nil {
		failSpan(span, err, "Failed to build query")
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	direction := "ASC"
	if q.Descending {
		direction = "DESC"
	}
	listSQL, listArgs, err := applyFilters(psql.Select(placeColumns).From("places"), q).
		OrderBy(q.SortColumn+" "+direction, "id ASC").
		Limit(uint64(q.Limit)).
		Offset(uint64(q.Offset)).
		ToSql()
	if err != nil {
		failSpan(span, err, "Failed to build query")
		return nil, 0, fmt.Errorf("failed to build list query: %w", err)
	}

	start := time.Now()
	var total int
	if err = r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		metrics.ObserveQuery(ctx, "places.count", start, err)
		l.ErrorContext(ctx, "Failed to count places", slog.Any("error", err))
		failSpan(span, err, "Database query failed")
		return nil, 0, fmt.Errorf("failed to count places: %w", err)
	}

	l.DebugContext(ctx, "Executing place list query", slog.String("query", listSQL), slog.Any("args", listArgs))
	rows, err := r.db.Query(ctx, listSQL, listArgs...)
	if err != nil {
		metrics.ObserveQuery(ctx, "places.list", start, err)
		l.ErrorContext(ctx, "Failed to list places", slog.Any("error", err))
		failSpan(span, err, "Database query failed")
		return nil, 0, fmt.Errorf("failed to list places: %w", err)
	}
	places, err := collectPlaces(rows)
	metrics.ObserveQuery(ctx, "places.list", start, err)
	if err != nil {
		failSpan(span, err, "Row scan failed")
		return nil, 0, err
	}

	span.SetAttributes(attribute.Int("results.count", len(places)), attribute.Int("results.total", total))
	return places, total, nil
}

func (r *RepositoryImpl) ListCandidates(ctx context.Context, q ListQuery, box *geo.BoundingBox) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "ListCandidates", trace.WithAttributes(
		attribute.String("filter.search", q.Search),
		attribute.String("filter.category", q.Category),
		attribute.Bool("filter.bounding_box", box != nil),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "ListCandidates"))

	b := applyFilters(psql.Select(placeColumns).From("places"), q)
	if box != nil {
		b = b.Where(sq.And{
			sq.GtOrEq{"latitude": box.MinLat},
			sq.LtOrEq{"latitude": box.MaxLat},
			sq.GtOrEq{"longitude": box.MinLon},
			sq.LtOrEq{"longitude": box.MaxLon},
		})
	}
	query, args, err := b.OrderBy("created_at DESC", "id ASC").ToSql()
	if err != nil {
		failSpan(span, err, "Failed to build query")
		return nil, fmt.Errorf("failed to build candidate query: %w", err)
	}

	l.DebugContext(ctx, "Executing candidate query", slog.String("query", query), slog.Any("args", args))
	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		metrics.ObserveQuery(ctx, "places.candidates", start, err)
		l.ErrorContext(ctx, "Failed to query candidates", slog.Any("error", err))
		failSpan(span, err, "Database query failed")
		return nil, fmt.Errorf("failed to query candidate places: %w", err)
	}
	places, err := collectPlaces(rows)
	metrics.ObserveQuery(ctx, "places.candidates", start, err)
	if err != nil {
		failSpan(span, err, "Row scan failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("results.count", len(places)))
	return places, nil
}

// Update applies the non-nil fields of upd. Empty image URLs and opening or
// closing times are written as NULL. Time values must already be normalised.
func (r *RepositoryImpl) Update(ctx context.Context, id uuid.UUID, upd types.UpdatePlaceRequest) (*types.Place, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("place.id", id.String()),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "Update"), slog.String("id", id.String()))

	b := psql.Update("places").
		Set("updated_at", sq.Expr("NOW()")).
		Where("id = ?", id).
		Where("deleted_at IS NULL")

	if upd.Name != nil {
		b = b.Set("name", *upd.Name)
	}
	if upd.Description != nil {
		b = b.Set("description", *upd.Description)
	}
	if upd.Category != nil {
		b = b.Set("category", *upd.Category)
	}
	if upd.Tags != nil {
		b = b.Set("tags", nonNilStrings(*upd.Tags))
	}
	if upd.Latitude != nil {
		b = b.Set("latitude", *upd.Latitude)
	}
	if upd.Longitude != nil {
		b = b.Set("longitude", *upd.Longitude)
	}
	if upd.Address != nil {
		b = b.Set("address", *upd.Address)
	}
	if upd.ImageURL != nil {
		b = b.Set("image_url", emptyAsNull(*upd.ImageURL))
	}
	if upd.IsHiddenGem != nil {
		b = b.Set("is_hidden_gem", *upd.IsHiddenGem)
	}
	if upd.OpeningTime != nil {
		b = b.Set("opening_time", emptyAsNull(*upd.OpeningTime))
	}
	if upd.ClosingTime != nil {
		b = b.Set("closing_time", emptyAsNull(*upd.ClosingTime))
	}
	if upd.TourDuration != nil {
		b = b.Set("tour_duration", *upd.TourDuration)
	}
	if upd.ClosedDays != nil {
		b = b.Set("closed_days", nonNilStrings(*upd.ClosedDays))
	}
	if upd.ScheduleByDay != nil {
		b = b.Set("schedule_by_day", jsonbValue(*upd.ScheduleByDay))
	}
	if upd.CrowdInfo != nil {
		b = b.Set("crowd_info", rawJSONValue(upd.CrowdInfo))
	}

	query, args, err := b.Suffix("RETURNING " + placeColumns).ToSql()
	if err != nil {
		failSpan(span, err, "Failed to build query")
		return nil, fmt.Errorf("failed to build update query: %w", err)
	}

	start := time.Now()
	p, err := scanPlace(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveQuery(ctx, "places.update", start, nil)
		return nil, fmt.Errorf("place %s: %w", id, types.ErrNotFound)
	}
	metrics.ObserveQuery(ctx, "places.update", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update place", slog.Any("error", err))
		failSpan(span, err, "Database update failed")
		return nil, fmt.Errorf("failed to update place: %w", err)
	}
	l.DebugContext(ctx, "Place updated")
	return &p, nil
}

func emptyAsNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *RepositoryImpl) ToggleHiddenGem(ctx context.Context, id uuid.UUID) (*types.Place, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "ToggleHiddenGem", trace.WithAttributes(
		attribute.String("place.id", id.String()),
	))
	defer span.End()

	query := `UPDATE places SET is_hidden_gem = NOT is_hidden_gem, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL RETURNING ` + placeColumns

	start := time.Now()
	p, err := scanPlace(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		metrics.ObserveQuery(ctx, "places.toggle_hidden_gem", start, nil)
		return nil, fmt.Errorf("place %s: %w", id, types.ErrNotFound)
	}
	metrics.ObserveQuery(ctx, "places.toggle_hidden_gem", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to toggle hidden gem", slog.String("method", "ToggleHiddenGem"), slog.Any("error", err))
		failSpan(span, err, "Database update failed")
		return nil, fmt.Errorf("failed to toggle hidden gem: %w", err)
	}
	return &p, nil
}

// SoftDelete marks a live row as deleted.
func (r *RepositoryImpl) SoftDelete(ctx context.Context, id uuid.UUID) error {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "SoftDelete", trace.WithAttributes(
		attribute.String("place.id", id.String()),
	))
	defer span.End()

	start := time.Now()
	tag, err := r.db.Exec(ctx, `UPDATE places SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	metrics.ObserveQuery(ctx, "places.soft_delete", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to soft delete place", slog.String("method", "SoftDelete"), slog.Any("error", err))
		failSpan(span, err, "Database update failed")
		return fmt.Errorf("failed to delete place: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("place %s: %w", id, types.ErrNotFound)
	}
	return nil
}

// HardDeleteAll physically removes every row, soft deleted ones included.
func (r *RepositoryImpl) HardDeleteAll(ctx context.Context) (int64, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "HardDeleteAll")
	defer span.End()

	start := time.Now()
	tag, err := r.db.Exec(ctx, `DELETE FROM places`)
	metrics.ObserveQuery(ctx, "places.hard_delete_all", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete all places", slog.String("method", "HardDeleteAll"), slog.Any("error", err))
		failSpan(span, err, "Database delete failed")
		return 0, fmt.Errorf("failed to delete all places: %w", err)
	}
	r.logger.WarnContext(ctx, "All places permanently deleted", slog.Int64("count", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func (r *RepositoryImpl) Categories(ctx context.Context) ([]string, error) {
	return r.distinctStrings(ctx, "Categories",
		`SELECT DISTINCT category FROM places WHERE deleted_at IS NULL ORDER BY category ASC`)
}

func (r *RepositoryImpl) Tags(ctx context.Context) ([]string, error) {
	return r.distinctStrings(ctx, "Tags",
		`SELECT DISTINCT tag FROM places, unnest(tags) AS tag WHERE deleted_at IS NULL ORDER BY tag ASC`)
}

func (r *RepositoryImpl) distinctStrings(ctx context.Context, name, query string) ([]string, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, name)
	defer span.End()

	start := time.Now()
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		metrics.ObserveQuery(ctx, "places."+strings.ToLower(name), start, err)
		r.logger.ErrorContext(ctx, "Failed to query distinct values", slog.String("method", name), slog.Any("error", err))
		failSpan(span, err, "Database query failed")
		return nil, fmt.Errorf("failed to query %s: %w", strings.ToLower(name), err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	metrics.ObserveQuery(ctx, "places."+strings.ToLower(name), start, err)
	if err != nil {
		failSpan(span, err, "Row scan failed")
		return nil, fmt.Errorf("failed to scan %s: %w", strings.ToLower(name), err)
	}
	return values, nil
}

func (r *RepositoryImpl) ListWithNarrative(ctx context.Context) ([]types.Place, error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "ListWithNarrative")
	defer span.End()

	query := `SELECT ` + placeColumns + ` FROM places
		WHERE narrative_document_id IS NOT NULL AND deleted_at IS NULL ORDER BY created_at ASC`

	start := time.Now()
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		metrics.ObserveQuery(ctx, "places.with_narrative", start, err)
		failSpan(span, err, "Database query failed")
		return nil, fmt.Errorf("failed to list places with narrative: %w", err)
	}
	places, err := collectPlaces(rows)
	metrics.ObserveQuery(ctx, "places.with_narrative", start, err)
	if err != nil {
		failSpan(span, err, "Row scan failed")
		return nil, err
	}
	return places, nil
}

// SetNarrative stores or clears the narrative handles of a live place.
func (r *RepositoryImpl) SetNarrative(ctx context.Context, id uuid.UUID, documentID, storeID *string) error {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "SetNarrative", trace.WithAttributes(
		attribute.String("place.id", id.String()),
		attribute.Bool("narrative.clear", documentID == nil),
	))
	defer span.End()

	start := time.Now()
	tag, err := r.db.Exec(ctx,
		`UPDATE places SET narrative_document_id = $2, narrative_store_id = $3, updated_at = NOW()
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, documentID, storeID)
	metrics.ObserveQuery(ctx, "places.set_narrative", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to set narrative", slog.String("method", "SetNarrative"), slog.Any("error", err))
		failSpan(span, err, "Database update failed")
		return fmt.Errorf("failed to set narrative: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("place %s: %w", id, types.ErrNotFound)
	}
	return nil
}
