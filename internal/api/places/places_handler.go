package places

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/kamino-places-api/internal/api"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) start(r *http.Request, name, route string) (*http.Request, trace.Span, *slog.Logger) {
	ctx, span := otel.Tracer("PlacesHandler").Start(r.Context(), name, trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
	))
	l := h.logger.With(slog.String("handler", name))
	l.DebugContext(ctx, "Handler invoked")
	return r.WithContext(ctx), span, l
}

// PathID parses the {id} URL parameter.
func PathID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a valid UUID", types.ErrInvalidArgument, param)
	}
	return id, nil
}

// CreatePlace godoc
// @Summary      Create place
// @Description  Creates a place. Opening hours are validated before insert.
// @Tags         Places
// @Accept       json
// @Produce      json
// @Param        place body types.CreatePlaceRequest true "Place"
// @Success      201 {object} api.Envelope{data=types.PlaceResponse}
// @Failure      400 {object} api.Response
// @Failure      500 {object} api.Response
// @Router       /places [post]
func (h *Handler) CreatePlace(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "CreatePlace", "/places")
	defer span.End()

	var req types.CreatePlaceRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	place, err := h.service.CreatePlace(r.Context(), req)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusCreated, place)
}

// CreatePlacesBulk godoc
// @Summary      Create places in bulk
// @Description  Creates between 1 and 100 places in a single transaction.
// @Tags         Places
// @Accept       json
// @Produce      json
// @Param        places body types.CreatePlacesBulkRequest true "Places"
// @Success      201 {object} api.Envelope{data=types.BulkCreateResponse}
// @Failure      400 {object} api.Response
// @Failure      500 {object} api.Response
// @Router       /places/bulk [post]
func (h *Handler) CreatePlacesBulk(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "CreatePlacesBulk", "/places/bulk")
	defer span.End()

	var req types.CreatePlacesBulkRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.CreatePlacesBulk(r.Context(), req)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	l.InfoContext(r.Context(), "Bulk create completed", slog.Int("created", resp.Created))
	api.WriteEnvelope(w, r, http.StatusCreated, resp)
}

// ListPlaces godoc
// @Summary      List places
// @Description  Paginated listing with search, category, tags, hidden gem and proximity filters.
// @Tags         Places
// @Produce      json
// @Param        search      query string  false "Case-insensitive name substring"
// @Param        category    query string  false "Category"
// @Param        tags        query string  false "Comma separated tags, all must match"
// @Param        isHiddenGem query bool    false "Hidden gem flag"
// @Param        latitude    query number  false "Origin latitude"
// @Param        longitude   query number  false "Origin longitude"
// @Param        radius      query number  false "Radius in km (0.1-100)"
// @Param        sortBy      query string  false "name, category, createdAt or distance"
// @Param        sortOrder   query string  false "ASC or DESC"
// @Param        page        query int     false "Page, default 1"
// @Param        limit       query int     false "Page size, default 10, max 100"
// @Success      200 {object} api.Envelope{data=types.PaginatedResponse[types.PlaceResponse]}
// @Failure      400 {object} api.Response
// @Failure      500 {object} api.Response
// @Router       /places [get]
func (h *Handler) ListPlaces(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "ListPlaces", "/places")
	defer span.End()

	filter, err := parsePlaceFilter(r.URL.Query())
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}

	resp, err := h.service.ListPlaces(r.Context(), filter)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, resp)
}

// FindNearby godoc
// @Summary      Nearby places
// @Description  Places within the radius of an origin, nearest first.
// @Tags         Places
// @Accept       json
// @Produce      json
// @Param        query body types.NearbySearchRequest true "Nearby search"
// @Success      200 {object} api.Envelope{data=[]types.PlaceResponse}
// @Failure      400 {object} api.Response
// @Failure      500 {object} api.Response
// @Router       /places/nearby [post]
func (h *Handler) FindNearby(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "FindNearby", "/places/nearby")
	defer span.End()

	var req types.NearbySearchRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.FindNearby(r.Context(), req)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	// POST is a query here, not a creation.
	api.WriteEnvelopeMessage(w, r, http.StatusOK, api.MessageRetrieved, resp)
}

// AvailableNow godoc
// @Summary      Places open now
// @Description  Places whose opening hours include the current time. Places without hours are excluded.
// @Tags         Places
// @Produce      json
// @Param        latitude  query number false "Origin latitude"
// @Param        longitude query number false "Origin longitude"
// @Param        radius    query number false "Radius in km (0.1-100), default 5"
// @Param        category  query string false "Category"
// @Param        limit     query int    false "Maximum results, default 10"
// @Success      200 {object} api.Envelope{data=[]types.PlaceResponse}
// @Failure      400 {object} api.Response
// @Router       /places/available-now [get]
func (h *Handler) AvailableNow(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "AvailableNow", "/places/available-now")
	defer span.End()

	req, err := parseAvailableNow(r.URL.Query())
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}

	resp, err := h.service.AvailableNow(r.Context(), req)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, resp)
}

// GetCategories godoc
// @Summary      Categories
// @Tags         Places
// @Produce      json
// @Success      200 {object} api.Envelope{data=[]string}
// @Router       /places/categories [get]
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "GetCategories", "/places/categories")
	defer span.End()

	values, err := h.service.GetCategories(r.Context())
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, values)
}

// GetTags godoc
// @Summary      Tags
// @Tags         Places
// @Produce      json
// @Success      200 {object} api.Envelope{data=[]string}
// @Router       /places/tags [get]
func (h *Handler) GetTags(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "GetTags", "/places/tags")
	defer span.End()

	values, err := h.service.GetTags(r.Context())
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, values)
}

// GetPlace godoc
// @Summary      Get place
// @Tags         Places
// @Produce      json
// @Param        id path string true "Place ID"
// @Success      200 {object} api.Envelope{data=types.PlaceResponse}
// @Failure      400 {object} api.Response
// @Failure      404 {object} api.Response
// @Router       /places/{id} [get]
func (h *Handler) GetPlace(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "GetPlace", "/places/{id}")
	defer span.End()

	id, err := PathID(r, "id")
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	place, err := h.service.GetPlace(r.Context(), id)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, place)
}

// GetSchedule godoc
// @Summary      Place schedule
// @Description  Current open status and the resolved weekly hours.
// @Tags         Places
// @Produce      json
// @Param        id path string true "Place ID"
// @Success      200 {object} api.Envelope{data=types.ScheduleResponse}
// @Failure      404 {object} api.Response
// @Router       /places/{id}/schedule [get]
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "GetSchedule", "/places/{id}/schedule")
	defer span.End()

	id, err := PathID(r, "id")
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	resp, err := h.service.GetSchedule(r.Context(), id)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, resp)
}

// UpdatePlace godoc
// @Summary      Update place
// @Description  Partial update. An empty openingTime or closingTime clears it.
// @Tags         Places
// @Accept       json
// @Produce      json
// @Param        id    path string                   true "Place ID"
// @Param        place body types.UpdatePlaceRequest true "Fields to update"
// @Success      200 {object} api.Envelope{data=types.PlaceResponse}
// @Failure      400 {object} api.Response
// @Failure      404 {object} api.Response
// @Router       /places/{id} [patch]
func (h *Handler) UpdatePlace(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "UpdatePlace", "/places/{id}")
	defer span.End()

	id, err := PathID(r, "id")
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	var req types.UpdatePlaceRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	place, err := h.service.UpdatePlace(r.Context(), id, req)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, place)
}

// ToggleHiddenGem godoc
// @Summary      Toggle hidden gem
// @Tags         Places
// @Produce      json
// @Param        id path string true "Place ID"
// @Success      200 {object} api.Envelope{data=types.PlaceResponse}
// @Failure      404 {object} api.Response
// @Router       /places/{id}/toggle-hidden-gem [patch]
func (h *Handler) ToggleHiddenGem(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "ToggleHiddenGem", "/places/{id}/toggle-hidden-gem")
	defer span.End()

	id, err := PathID(r, "id")
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	place, err := h.service.ToggleHiddenGem(r.Context(), id)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, place)
}

// DeletePlace godoc
// @Summary      Delete place
// @Description  Soft delete.
// @Tags         Places
// @Produce      json
// @Param        id path string true "Place ID"
// @Success      200 {object} api.Envelope{data=types.DeleteResponse}
// @Failure      404 {object} api.Response
// @Router       /places/{id} [delete]
func (h *Handler) DeletePlace(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "DeletePlace", "/places/{id}")
	defer span.End()

	id, err := PathID(r, "id")
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	resp, err := h.service.DeletePlace(r.Context(), id)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, resp)
}

// DeleteAllPlaces godoc
// @Summary      Delete every place
// @Description  Permanent delete. Refused in production or unless admin.allowDeleteAll is set.
// @Tags         Admin
// @Produce      json
// @Success      200 {object} api.Envelope{data=types.DeleteAllResponse}
// @Failure      401 {object} api.Response
// @Failure      403 {object} api.Response
// @Security     BearerAuth
// @Router       /places/admin/complete-delete-all [delete]
func (h *Handler) DeleteAllPlaces(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "DeleteAllPlaces", "/places/admin/complete-delete-all")
	defer span.End()

	resp, err := h.service.DeleteAllPlaces(r.Context())
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, resp)
}

func parsePlaceFilter(q url.Values) (types.PlaceFilter, error) {
	f := types.PlaceFilter{
		Search:    q.Get("search"),
		Category:  q.Get("category"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if raw := q.Get("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Tags = append(f.Tags, t)
			}
		}
	}
	if raw := q.Get("isHiddenGem"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("%w: isHiddenGem must be a boolean", types.ErrInvalidArgument)
		}
		f.IsHiddenGem = &b
	}

	var err error
	if f.Latitude, err = floatParam(q, "latitude"); err != nil {
		return f, err
	}
	if f.Longitude, err = floatParam(q, "longitude"); err != nil {
		return f, err
	}
	if f.Radius, err = floatParam(q, "radius"); err != nil {
		return f, err
	}
	page, err := intParam(q, "page")
	if err != nil {
		return f, err
	}
	if page != nil {
		f.Page = *page
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		return f, err
	}
	if limit != nil {
		f.Limit = *limit
	}
	return f, nil
}

func parseAvailableNow(q url.Values) (types.AvailableNowRequest, error) {
	req := types.AvailableNowRequest{Category: q.Get("category")}
	var err error
	if req.Latitude, err = floatParam(q, "latitude"); err != nil {
		return req, err
	}
	if req.Longitude, err = floatParam(q, "longitude"); err != nil {
		return req, err
	}
	if req.Radius, err = floatParam(q, "radius"); err != nil {
		return req, err
	}
	req.Limit, err = intParam(q, "limit")
	return req, err
}

func floatParam(q url.Values, name string) (*float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be a number", types.ErrInvalidArgument, name)
	}
	return &v, nil
}

func intParam(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be an integer", types.ErrInvalidArgument, name)
	}
	return &v, nil
}
