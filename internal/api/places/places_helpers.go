package places

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/FACorreiaa/kamino-places-api/internal/api"
	"github.com/FACorreiaa/kamino-places-api/internal/geo"
	"github.com/FACorreiaa/kamino-places-api/internal/schedule"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

var sortColumns = map[string]string{
	"name":      "name",
	"category":  "category",
	"createdAt": "created_at",
}

func placePoint(p types.Place) geo.Point {
	return geo.Point{Lat: p.Latitude, Lon: p.Longitude}
}

func resolveRadius(r *float64) (float64, error) {
	if r == nil {
		return defaultNearbyRadius, nil
	}
	if *r < minRadiusKm || *r > maxRadiusKm {
		return 0, fmt.Errorf("%w: radius must be between %.1f and %.0f km, got %g", types.ErrInvalidArgument, minRadiusKm, maxRadiusKm, *r)
	}
	return *r, nil
}

func resolveLimit(l *int) (int, error) {
	if l == nil {
		return defaultLimit, nil
	}
	if *l < 1 || *l > maxLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d, got %d", types.ErrInvalidArgument, maxLimit, *l)
	}
	return *l, nil
}

// buildListQuery validates a listing filter and resolves its defaults.
func buildListQuery(f types.PlaceFilter) (ListQuery, error) {
	if err := api.ValidateStruct(f); err != nil {
		return ListQuery{}, err
	}

	page := f.Page
	if page <= 0 {
		page = defaultPage
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		return ListQuery{}, fmt.Errorf("%w: limit must be at most %d", types.ErrInvalidArgument, maxLimit)
	}
	// page*limit bounds both the offset and offset+limit.
	if page > math.MaxInt/limit {
		return ListQuery{}, fmt.Errorf("%w: page %d is out of range", types.ErrInvalidArgument, page)
	}

	set := 0
	for _, v := range []*float64{f.Latitude, f.Longitude, f.Radius} {
		if v != nil {
			set++
		}
	}
	if set != 0 && set != 3 {
		return ListQuery{}, fmt.Errorf("%w: latitude, longitude and radius must be provided together", types.ErrInvalidArgument)
	}
	if set == 3 {
		if _, err := resolveRadius(f.Radius); err != nil {
			return ListQuery{}, err
		}
	}

	column, ok := sortColumns[f.SortBy]
	if !ok {
		column = "created_at"
	}

	return ListQuery{
		Search:      strings.TrimSpace(f.Search),
		Category:    strings.TrimSpace(f.Category),
		Tags:        f.Tags,
		IsHiddenGem: f.IsHiddenGem,
		SortColumn:  column,
		Descending:  !strings.EqualFold(f.SortOrder, "ASC"),
		Limit:       limit,
		Offset:      (page - 1) * limit,
	}, nil
}

// sortRanked orders proximity results in memory. Ties keep candidate order.
func sortRanked(ranked []geo.Ranked[types.Place], sortBy string, desc bool) {
	var compare func(a, b geo.Ranked[types.Place]) int
	switch sortBy {
	case "distance":
		compare = func(a, b geo.Ranked[types.Place]) int { return cmp.Compare(a.DistanceKm, b.DistanceKm) }
	case "name":
		compare = func(a, b geo.Ranked[types.Place]) int {
			return strings.Compare(strings.ToLower(a.Item.Name), strings.ToLower(b.Item.Name))
		}
	case "category":
		compare = func(a, b geo.Ranked[types.Place]) int {
			return strings.Compare(strings.ToLower(a.Item.Category), strings.ToLower(b.Item.Category))
		}
	default:
		compare = func(a, b geo.Ranked[types.Place]) int { return a.Item.CreatedAt.Compare(b.Item.CreatedAt) }
	}
	slices.SortStableFunc(ranked, func(a, b geo.Ranked[types.Place]) int {
		if desc {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

type nearbyCriteria struct {
	origin  geo.Point
	radius  float64
	limit   int
	minTour *int
	maxTour *int
	day     time.Weekday
	visit   *schedule.Window
}

func (s *ServiceImpl) nearbyCriteria(req types.NearbySearchRequest) (nearbyCriteria, error) {
	if err := api.ValidateStruct(req); err != nil {
		return nearbyCriteria{}, err
	}
	radius, err := resolveRadius(req.Radius)
	if err != nil {
		return nearbyCriteria{}, err
	}
	limit, err := resolveLimit(req.Limit)
	if err != nil {
		return nearbyCriteria{}, err
	}
	if req.MinTourDuration != nil && req.MaxTourDuration != nil && *req.MinTourDuration > *req.MaxTourDuration {
		return nearbyCriteria{}, fmt.Errorf("%w: minTourDuration exceeds maxTourDuration", types.ErrInvalidArgument)
	}

	day, _ := s.clock()
	if req.Day != nil && *req.Day != "" {
		d, ok := schedule.ParseWeekday(*req.Day)
		if !ok {
			return nearbyCriteria{}, fmt.Errorf("%w: unknown weekday %q", types.ErrInvalidArgument, *req.Day)
		}
		day = d
	}

	visit, err := visitWindow(blankAsNil(req.OpeningTime), blankAsNil(req.ClosingTime))
	if err != nil {
		return nearbyCriteria{}, err
	}

	return nearbyCriteria{
		origin:  geo.Point{Lat: *req.Latitude, Lon: *req.Longitude},
		radius:  radius,
		limit:   limit,
		minTour: req.MinTourDuration,
		maxTour: req.MaxTourDuration,
		day:     day,
		visit:   visit,
	}, nil
}

// visitWindow builds the requested visit window. A lone bound is open
// ended towards the start or the end of the day.
func visitWindow(opening, closing *string) (*schedule.Window, error) {
	switch {
	case opening != nil && closing != nil:
		w, err := schedule.ValidateWindow(*opening, *closing)
		if err != nil {
			return nil, err
		}
		return &w, nil
	case opening != nil:
		o, err := schedule.ParseTimeOfDay(*opening)
		if err != nil {
			return nil, err
		}
		return &schedule.Window{Open: o, Close: schedule.NewTimeOfDay(23, 59, 59)}, nil
	case closing != nil:
		c, err := schedule.ParseTimeOfDay(*closing)
		if err != nil {
			return nil, err
		}
		return &schedule.Window{Open: 0, Close: c}, nil
	}
	return nil, nil
}

func (c nearbyCriteria) accepts(p types.Place) bool {
	if c.minTour != nil || c.maxTour != nil {
		if p.TourDuration == nil {
			return false
		}
		if c.minTour != nil && *p.TourDuration < *c.minTour {
			return false
		}
		if c.maxTour != nil && *p.TourDuration > *c.maxTour {
			return false
		}
	}
	if c.visit != nil {
		r := schedule.FromPlace(p).Resolve(c.day)
		if !r.HasWindow || !r.Window.Overlaps(*c.visit) {
			return false
		}
	}
	return true
}

func blankAsNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

// normalizeTime renders a validated time in canonical form.
func normalizeTime(s *string) *string {
	if s == nil {
		return nil
	}
	n, err := schedule.Normalize(*s)
	if err != nil {
		return s
	}
	return &n
}

// normalizeUpdateTime keeps the empty string, which clears the column.
func normalizeUpdateTime(s *string) *string {
	if s == nil || *s == "" {
		return s
	}
	return normalizeTime(s)
}

func normalizeDays(byDay map[string]types.DayHours) map[string]types.DayHours {
	if byDay == nil {
		return nil
	}
	out := make(map[string]types.DayHours, len(byDay))
	for name, h := range byDay {
		d, ok := schedule.ParseWeekday(name)
		if !ok {
			continue
		}
		out[schedule.WeekdayName(d)] = types.DayHours{
			Open:  *normalizeTime(&h.Open),
			Close: *normalizeTime(&h.Close),
		}
	}
	return out
}

func normalizeClosedDays(days []string) []string {
	if days == nil {
		return nil
	}
	out := make([]string, 0, len(days))
	for _, name := range days {
		d, ok := schedule.ParseWeekday(name)
		if !ok {
			continue
		}
		if n := schedule.WeekdayName(d); !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func isEmptyUpdate(u types.UpdatePlaceRequest) bool {
	return u.Name == nil && u.Description == nil && u.Category == nil && u.Tags == nil &&
		u.Latitude == nil && u.Longitude == nil && u.Address == nil && u.ImageURL == nil &&
		u.IsHiddenGem == nil && u.OpeningTime == nil && u.ClosingTime == nil &&
		u.TourDuration == nil && u.ClosedDays == nil && u.ScheduleByDay == nil && len(u.CrowdInfo) == 0
}
