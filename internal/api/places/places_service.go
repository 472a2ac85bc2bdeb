package places

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/kamino-places-api/app/observability/metrics"
	"github.com/FACorreiaa/kamino-places-api/internal/api"
	"github.com/FACorreiaa/kamino-places-api/internal/geo"
	"github.com/FACorreiaa/kamino-places-api/internal/schedule"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

const (
	defaultPage         = 1
	defaultLimit        = 10
	maxLimit            = 100
	defaultNearbyRadius = 5.0
	minRadiusKm         = 0.1
	maxRadiusKm         = 100.0

	categoriesCacheKey = "categories"
	tagsCacheKey       = "tags"
)

// Service defines the catalog operations exposed over HTTP.
type Service interface {
	CreatePlace(ctx context.Context, req types.CreatePlaceRequest) (*types.PlaceResponse, error)
	CreatePlacesBulk(ctx context.Context, req types.CreatePlacesBulkRequest) (*types.BulkCreateResponse, error)
	ListPlaces(ctx context.Context, filter types.PlaceFilter) (*types.PaginatedResponse[types.PlaceResponse], error)
	FindNearby(ctx context.Context, req types.NearbySearchRequest) ([]types.PlaceResponse, error)
	AvailableNow(ctx context.Context, req types.AvailableNowRequest) ([]types.PlaceResponse, error)
	GetPlace(ctx context.Context, id uuid.UUID) (*types.PlaceResponse, error)
	GetSchedule(ctx context.Context, id uuid.UUID) (*types.ScheduleResponse, error)
	UpdatePlace(ctx context.Context, id uuid.UUID, req types.UpdatePlaceRequest) (*types.PlaceResponse, error)
	ToggleHiddenGem(ctx context.Context, id uuid.UUID) (*types.PlaceResponse, error)
	DeletePlace(ctx context.Context, id uuid.UUID) (*types.DeleteResponse, error)
	DeleteAllPlaces(ctx context.Context) (*types.DeleteAllResponse, error)
	GetCategories(ctx context.Context) ([]string, error)
	GetTags(ctx context.Context) ([]string, error)
}

// Settings carries the runtime knobs of the catalog service.
type Settings struct {
	Mode           string
	AllowDeleteAll bool
	// Location is the zone used to evaluate opening hours. Defaults to UTC.
	Location *time.Location
	// Now is the service clock. Defaults to time.Now.
	Now      func() time.Time
	CacheTTL time.Duration
}

type ServiceImpl struct {
	logger     *slog.Logger
	repository Repository
	settings   Settings
	cache      *cache.Cache
}

func NewServiceImpl(repository Repository, logger *slog.Logger, settings Settings) *ServiceImpl {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.CacheTTL <= 0 {
		settings.CacheTTL = 10 * time.Minute
	}
	return &ServiceImpl{
		logger:     logger,
		repository: repository,
		settings:   settings,
		cache:      cache.New(settings.CacheTTL, 2*settings.CacheTTL),
	}
}

// clock returns the current weekday and time of day in the configured zone.
func (s *ServiceImpl) clock() (time.Weekday, schedule.TimeOfDay) {
	now := s.settings.Now().In(s.settings.Location)
	return now.Weekday(), schedule.At(now)
}

func (s *ServiceImpl) invalidateLookups() {
	s.cache.Delete(categoriesCacheKey)
	s.cache.Delete(tagsCacheKey)
}

func (s *ServiceImpl) countQuery(ctx context.Context, kind string) {
	metrics.Get().PlaceQueriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// preparePlace validates a create request and returns the record to insert
// with canonical time values.
func preparePlace(req types.CreatePlaceRequest) (types.Place, error) {
	if err := api.ValidateStruct(req); err != nil {
		return types.Place{}, err
	}
	opening, closing := blankAsNil(req.OpeningTime), blankAsNil(req.ClosingTime)
	if err := schedule.ValidateHours(opening, closing, req.ScheduleByDay, req.ClosedDays); err != nil {
		return types.Place{}, err
	}
	p := req.ToPlace()
	p.OpeningTime = normalizeTime(opening)
	p.ClosingTime = normalizeTime(closing)
	p.ScheduleByDay = normalizeDays(req.ScheduleByDay)
	p.ClosedDays = normalizeClosedDays(req.ClosedDays)
	return p, nil
}

func (s *ServiceImpl) CreatePlace(ctx context.Context, req types.CreatePlaceRequest) (*types.PlaceResponse, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "CreatePlace", trace.WithAttributes(
		attribute.String("place.name", req.Name),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "CreatePlace"))

	place, err := preparePlace(req)
	if err != nil {
		l.WarnContext(ctx, "Rejected place payload", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid payload")
		return nil, err
	}

	created, err := s.repository.Create(ctx, place)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository create failed")
		return nil, fmt.Errorf("failed to create place: %w", err)
	}
	s.invalidateLookups()
	metrics.Get().PlacesCreatedTotal.Add(ctx, 1)

	l.InfoContext(ctx, "Place created", slog.String("id", created.ID.String()))
	span.SetStatus(codes.Ok, "Place created")
	resp := s.toResponse(*created, nil)
	return &resp, nil
}

func (s *ServiceImpl) CreatePlacesBulk(ctx context.Context, req types.CreatePlacesBulkRequest) (*types.BulkCreateResponse, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "CreatePlacesBulk", trace.WithAttributes(
		attribute.Int("places.count", len(req.Places)),
	))
	defer span.End()

	if err := api.ValidateStruct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid payload")
		return nil, err
	}

	places := make([]types.Place, 0, len(req.Places))
	for i, item := range req.Places {
		p, err := preparePlace(item)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Invalid payload")
			return nil, fmt.Errorf("places[%d]: %w", i, err)
		}
		places = append(places, p)
	}

	created, err := s.repository.CreateBulk(ctx, places)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository bulk create failed")
		return nil, fmt.Errorf("failed to create places: %w", err)
	}
	s.invalidateLookups()
	metrics.Get().PlacesCreatedTotal.Add(ctx, int64(len(created)))

	out := make([]types.PlaceResponse, 0, len(created))
	for _, p := range created {
		out = append(out, s.toResponse(p, nil))
	}
	span.SetStatus(codes.Ok, "Places created")
	return &types.BulkCreateResponse{Created: len(out), Places: out}, nil
}

// ListPlaces paginates in the database unless a proximity filter is set,
// in which case bounding-box candidates are filtered and sorted here.
func (s *ServiceImpl) ListPlaces(ctx context.Context, filter types.PlaceFilter) (*types.PaginatedResponse[types.PlaceResponse], error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "ListPlaces", trace.WithAttributes(
		attribute.String("filter.search", filter.Search),
		attribute.String("filter.category", filter.Category),
		attribute.Bool("filter.proximity", filter.HasProximity()),
	))
	defer span.End()
	s.countQuery(ctx, "list")

	q, err := buildListQuery(filter)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid filter")
		return nil, err
	}
	page, limit := q.Offset/q.Limit+1, q.Limit

	if !filter.HasProximity() {
		rows, total, err := s.repository.List(ctx, q)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Repository list failed")
			return nil, fmt.Errorf("failed to list places: %w", err)
		}
		data := make([]types.PlaceResponse, 0, len(rows))
		for _, p := range rows {
			data = append(data, s.toResponse(p, nil))
		}
		return &types.PaginatedResponse[types.PlaceResponse]{
			Data: data,
			Meta: types.NewPaginationMeta(page, limit, total),
		}, nil
	}

	origin := geo.Point{Lat: *filter.Latitude, Lon: *filter.Longitude}
	box := geo.BoundingBoxAround(origin, *filter.Radius)
	candidates, err := s.repository.ListCandidates(ctx, q, &box)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository candidate query failed")
		return nil, fmt.Errorf("failed to list places: %w", err)
	}

	start := time.Now()
	ranked := geo.FilterWithinRadius(origin, candidates, placePoint, *filter.Radius)
	sortRanked(ranked, filter.SortBy, q.Descending)
	metrics.Get().ProximitySearchSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("kind", "list")))

	total := len(ranked)
	data := make([]types.PlaceResponse, 0, limit)
	for _, r := range paginate(ranked, q.Offset, limit) {
		data = append(data, s.toResponse(r.Item, &r.DistanceKm))
	}
	span.SetAttributes(attribute.Int("results.total", total))
	return &types.PaginatedResponse[types.PlaceResponse]{
		Data: data,
		Meta: types.NewPaginationMeta(page, limit, total),
	}, nil
}

func (s *ServiceImpl) FindNearby(ctx context.Context, req types.NearbySearchRequest) ([]types.PlaceResponse, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "FindNearby")
	defer span.End()
	l := s.logger.With(slog.String("method", "FindNearby"))
	s.countQuery(ctx, "nearby")

	crit, err := s.nearbyCriteria(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid nearby request")
		return nil, err
	}
	span.SetAttributes(
		attribute.Float64("origin.lat", crit.origin.Lat),
		attribute.Float64("origin.lon", crit.origin.Lon),
		attribute.Float64("radius.km", crit.radius),
		attribute.Int("limit", crit.limit),
	)

	box := geo.BoundingBoxAround(crit.origin, crit.radius)
	candidates, err := s.repository.ListCandidates(ctx, ListQuery{}, &box)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository candidate query failed")
		return nil, fmt.Errorf("failed to find nearby places: %w", err)
	}

	start := time.Now()
	out := make([]types.PlaceResponse, 0, crit.limit)
	for _, r := range geo.RankByDistance(crit.origin, candidates, placePoint) {
		if len(out) == crit.limit {
			break
		}
		if r.DistanceKm > crit.radius || !crit.accepts(r.Item) {
			continue
		}
		out = append(out, s.toResponse(r.Item, &r.DistanceKm))
	}
	metrics.Get().ProximitySearchSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("kind", "nearby")))

	l.DebugContext(ctx, "Nearby search done", slog.Int("candidates", len(candidates)), slog.Int("results", len(out)))
	return out, nil
}

// AvailableNow returns places open at the service clock. Unknown schedules
// are excluded.
func (s *ServiceImpl) AvailableNow(ctx context.Context, req types.AvailableNowRequest) ([]types.PlaceResponse, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "AvailableNow", trace.WithAttributes(
		attribute.String("filter.category", req.Category),
	))
	defer span.End()
	s.countQuery(ctx, "available_now")

	if err := api.ValidateStruct(req); err != nil {
		return nil, err
	}
	limit, err := resolveLimit(req.Limit)
	if err != nil {
		return nil, err
	}
	if (req.Latitude == nil) != (req.Longitude == nil) || (req.Radius != nil && req.Latitude == nil) {
		return nil, fmt.Errorf("%w: latitude and longitude must be provided together", types.ErrInvalidArgument)
	}

	day, now := s.clock()
	q := ListQuery{Category: req.Category}

	if req.Latitude == nil {
		candidates, err := s.repository.ListCandidates(ctx, q, nil)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Repository candidate query failed")
			return nil, fmt.Errorf("failed to list open places: %w", err)
		}
		out := make([]types.PlaceResponse, 0, limit)
		for _, p := range candidates {
			if len(out) == limit {
				break
			}
			if schedule.IsOpenNow(p, day, now) == schedule.StatusOpen {
				out = append(out, s.toResponse(p, nil))
			}
		}
		return out, nil
	}

	radius, err := resolveRadius(req.Radius)
	if err != nil {
		return nil, err
	}
	origin := geo.Point{Lat: *req.Latitude, Lon: *req.Longitude}
	box := geo.BoundingBoxAround(origin, radius)
	candidates, err := s.repository.ListCandidates(ctx, q, &box)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository candidate query failed")
		return nil, fmt.Errorf("failed to list open places: %w", err)
	}
	out := make([]types.PlaceResponse, 0, limit)
	for _, r := range geo.RankByDistance(origin, candidates, placePoint) {
		if len(out) == limit {
			break
		}
		if r.DistanceKm > radius || schedule.IsOpenNow(r.Item, day, now) != schedule.StatusOpen {
			continue
		}
		out = append(out, s.toResponse(r.Item, &r.DistanceKm))
	}
	return out, nil
}

func (s *ServiceImpl) GetPlace(ctx context.Context, id uuid.UUID) (*types.PlaceResponse, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "GetPlace", trace.WithAttributes(
		attribute.String("place.id", id.String()),
	))
	defer span.End()
	s.countQuery(ctx, "get")

	p, err := s.repository.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	resp := s.toResponse(*p, nil)
	return &resp, nil
}

func (s *ServiceImpl) GetSchedule(ctx context.Context, id uuid.UUID) (*types.ScheduleResponse, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "GetSchedule", trace.WithAttributes(
		attribute.String("place.id", id.String()),
	))
	defer span.End()
	s.countQuery(ctx, "schedule")

	p, err := s.repository.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	day, now := s.clock()
	sched := schedule.FromPlace(*p)
	week := make([]types.DaySchedule, 0, 7)
	for _, d := range sched.Week() {
		row := types.DaySchedule{
			Day:    schedule.WeekdayName(d.Day),
			Status: dayStatus(d.Resolution).String(),
			Source: d.Source.String(),
		}
		if d.HasWindow {
			row.Open = d.Window.Open.String()
			row.Close = d.Window.Close.String()
		}
		week = append(week, row)
	}

	return &types.ScheduleResponse{
		PlaceID:    p.ID,
		Name:       p.Name,
		Weekday:    schedule.WeekdayName(day),
		Time:       now.String(),
		OpenStatus: sched.Status(day, now).String(),
		Week:       week,
		Display:    schedule.English.Lines(sched),
	}, nil
}

// dayStatus summarises a day regardless of the time: closed days are
// closed, days with a window are open, anything else is unknown.
func dayStatus(r schedule.Resolution) schedule.Status {
	switch {
	case r.Source == schedule.SourceClosedDay:
		return schedule.StatusClosed
	case r.HasWindow:
		return schedule.StatusOpen
	default:
		return schedule.StatusUnknown
	}
}

// UpdatePlace applies a partial update. Hour fields are validated against
// the stored record so that a lone closingTime is checked against the
// existing openingTime.
func (s *ServiceImpl) UpdatePlace(ctx context.Context, id uuid.UUID, req types.UpdatePlaceRequest) (*types.PlaceResponse, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "UpdatePlace", trace.WithAttributes(
		attribute.String("place.id", id.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "UpdatePlace"), slog.String("id", id.String()))

	if err := api.ValidateStruct(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid payload")
		return nil, err
	}

	existing, err := s.repository.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if isEmptyUpdate(req) {
		span.AddEvent("No update fields provided.")
		l.InfoContext(ctx, "No fields provided for place update, returning current record")
		resp := s.toResponse(*existing, nil)
		return &resp, nil
	}

	opening, closing := schedule.MergeFlatHours(existing.OpeningTime, existing.ClosingTime, req.OpeningTime, req.ClosingTime)
	byDay := existing.ScheduleByDay
	if req.ScheduleByDay != nil {
		byDay = *req.ScheduleByDay
	}
	closedDays := existing.ClosedDays
	if req.ClosedDays != nil {
		closedDays = *req.ClosedDays
	}
	if err := schedule.ValidateHours(opening, closing, byDay, closedDays); err != nil {
		l.WarnContext(ctx, "Rejected hours update", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid hours")
		return nil, err
	}

	req.OpeningTime = normalizeUpdateTime(req.OpeningTime)
	req.ClosingTime = normalizeUpdateTime(req.ClosingTime)
	if req.ScheduleByDay != nil {
		days := normalizeDays(*req.ScheduleByDay)
		req.ScheduleByDay = &days
	}
	if req.ClosedDays != nil {
		days := normalizeClosedDays(*req.ClosedDays)
		req.ClosedDays = &days
	}

	updated, err := s.repository.Update(ctx, id, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository update failed")
		return nil, err
	}
	s.invalidateLookups()
	span.SetStatus(codes.Ok, "Place updated")
	resp := s.toResponse(*updated, nil)
	return &resp, nil
}

func (s *ServiceImpl) ToggleHiddenGem(ctx context.Context, id uuid.UUID) (*types.PlaceResponse, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "ToggleHiddenGem", trace.WithAttributes(
		attribute.String("place.id", id.String()),
	))
	defer span.End()

	p, err := s.repository.ToggleHiddenGem(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	resp := s.toResponse(*p, nil)
	return &resp, nil
}

func (s *ServiceImpl) DeletePlace(ctx context.Context, id uuid.UUID) (*types.DeleteResponse, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "DeletePlace", trace.WithAttributes(
		attribute.String("place.id", id.String()),
	))
	defer span.End()

	if err := s.repository.SoftDelete(ctx, id); err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.invalidateLookups()
	s.logger.InfoContext(ctx, "Place soft deleted", slog.String("id", id.String()))
	return &types.DeleteResponse{ID: id, Deleted: true}, nil
}

// DeleteAllPlaces permanently removes the catalog. It is refused in
// production and unless explicitly enabled.
func (s *ServiceImpl) DeleteAllPlaces(ctx context.Context) (*types.DeleteAllResponse, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "DeleteAllPlaces", trace.WithAttributes(
		attribute.String("mode", s.settings.Mode),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "DeleteAllPlaces"))

	if s.settings.Mode == "production" || !s.settings.AllowDeleteAll {
		l.WarnContext(ctx, "Hard delete refused", slog.String("mode", s.settings.Mode), slog.Bool("allowDeleteAll", s.settings.AllowDeleteAll))
		span.SetStatus(codes.Error, "Forbidden")
		return nil, fmt.Errorf("hard delete is disabled: %w", types.ErrForbidden)
	}

	n, err := s.repository.HardDeleteAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Repository delete failed")
		return nil, err
	}
	s.invalidateLookups()
	return &types.DeleteAllResponse{DeletedCount: n}, nil
}

func (s *ServiceImpl) GetCategories(ctx context.Context) ([]string, error) {
	return s.cachedLookup(ctx, categoriesCacheKey, s.repository.Categories)
}

func (s *ServiceImpl) GetTags(ctx context.Context) ([]string, error) {
	return s.cachedLookup(ctx, tagsCacheKey, s.repository.Tags)
}

func (s *ServiceImpl) cachedLookup(ctx context.Context, key string, load func(context.Context) ([]string, error)) ([]string, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "Lookup", trace.WithAttributes(
		attribute.String("lookup", key),
	))
	defer span.End()
	s.countQuery(ctx, key)

	if v, found := s.cache.Get(key); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return v.([]string), nil
	}
	values, err := load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	s.cache.Set(key, values, cache.DefaultExpiration)
	return values, nil
}

func (s *ServiceImpl) toResponse(p types.Place, distance *float64) types.PlaceResponse {
	day, now := s.clock()
	resp := types.PlaceResponse{
		ID:                  p.ID,
		Name:                p.Name,
		Description:         p.Description,
		Category:            p.Category,
		Tags:                nonNilStrings(p.Tags),
		Latitude:            p.Latitude,
		Longitude:           p.Longitude,
		Address:             p.Address,
		ImageURL:            p.ImageURL,
		IsHiddenGem:         p.IsHiddenGem,
		OpeningTime:         p.OpeningTime,
		ClosingTime:         p.ClosingTime,
		TourDuration:        p.TourDuration,
		ClosedDays:          p.ClosedDays,
		ScheduleByDay:       p.ScheduleByDay,
		CrowdInfo:           p.CrowdInfo,
		NarrativeDocumentID: p.NarrativeDocumentID,
		NarrativeStoreID:    p.NarrativeStoreID,
		OpenStatus:          schedule.IsOpenNow(p, day, now).String(),
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	if distance != nil {
		d := geo.RoundKm(*distance)
		resp.Distance = &d
	}
	return resp
}
