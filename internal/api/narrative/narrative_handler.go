package narrative

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/kamino-places-api/internal/api"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

// Refresher runs one narrative maintenance pass.
type Refresher interface {
	RefreshExpired(ctx context.Context) (*types.RefreshReport, error)
}

type Handler struct {
	service        Service
	refresher      Refresher
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewHandler(service Service, refresher Refresher, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		service:        service,
		refresher:      refresher,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (h *Handler) start(r *http.Request, name, route string) (*http.Request, trace.Span, *slog.Logger) {
	ctx, span := otel.Tracer("NarrativeHandler").Start(r.Context(), name, trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
	))
	return r.WithContext(ctx), span, h.logger.With(slog.String("handler", name))
}

func placeParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s must be a valid UUID", types.ErrInvalidArgument, name)
	}
	return id, nil
}

// UploadNarrative godoc
// @Summary      Upload narrative
// @Description  Attaches a PDF document (max 10 MiB) used to narrate the place.
// @Tags         Narratives
// @Accept       multipart/form-data
// @Produce      json
// @Param        id   path     string true "Place ID"
// @Param        file formData file   true "PDF document"
// @Success      201 {object} api.Envelope{data=types.NarrativeUploadResponse}
// @Failure      400 {object} api.Response
// @Failure      404 {object} api.Response
// @Failure      503 {object} api.Response
// @Router       /places/{id}/narrative [post]
func (h *Handler) UploadNarrative(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "UploadNarrative", "/places/{id}/narrative")
	defer span.End()

	id, err := placeParam(r, "id")
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}

	// Multipart overhead on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		l.WarnContext(r.Context(), "Invalid multipart body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUploadBytes+1))
	if err != nil {
		l.ErrorContext(r.Context(), "Failed to read upload", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "could not read file")
		return
	}

	resp, err := h.service.UploadNarrative(r.Context(), id, header.Header.Get("Content-Type"), data)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusCreated, resp)
}

// GetNarrative godoc
// @Summary      Narrative metadata
// @Tags         Narratives
// @Produce      json
// @Param        id path string true "Place ID"
// @Success      200 {object} api.Envelope{data=types.NarrativeInfo}
// @Failure      404 {object} api.Response
// @Router       /places/{id}/narrative [get]
func (h *Handler) GetNarrative(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "GetNarrative", "/places/{id}/narrative")
	defer span.End()

	id, err := placeParam(r, "id")
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	info, err := h.service.GetNarrative(r.Context(), id)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, info)
}

// DeleteNarrative godoc
// @Summary      Delete narrative
// @Tags         Narratives
// @Produce      json
// @Param        id path string true "Place ID"
// @Success      200 {object} api.Envelope{data=types.DeleteResponse}
// @Failure      404 {object} api.Response
// @Router       /places/{id}/narrative [delete]
func (h *Handler) DeleteNarrative(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "DeleteNarrative", "/places/{id}/narrative")
	defer span.End()

	id, err := placeParam(r, "id")
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	if err := h.service.DeleteNarrative(r.Context(), id); err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, types.DeleteResponse{ID: id, Deleted: true})
}

// RefreshNarratives godoc
// @Summary      Refresh expired narratives
// @Description  Re-uploads documents the provider no longer holds.
// @Tags         Admin
// @Produce      json
// @Success      200 {object} api.Envelope{data=types.RefreshReport}
// @Failure      401 {object} api.Response
// @Security     BearerAuth
// @Router       /places/admin/narratives/refresh [post]
func (h *Handler) RefreshNarratives(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "RefreshNarratives", "/places/admin/narratives/refresh")
	defer span.End()

	report, err := h.refresher.RefreshExpired(r.Context())
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelopeMessage(w, r, http.StatusOK, api.MessageUpdated, report)
}

// Narrate godoc
// @Summary      Narrate place
// @Description  Short story about the place drawn from its narrative document.
// @Tags         Narratives
// @Produce      json
// @Param        placeId path string true "Place ID"
// @Success      200 {object} api.Envelope{data=types.NarrationResponse}
// @Failure      404 {object} api.Response
// @Failure      503 {object} api.Response
// @Router       /narrator/{placeId} [get]
func (h *Handler) Narrate(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "Narrate", "/narrator/{placeId}")
	defer span.End()

	id, err := placeParam(r, "placeId")
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	resp, err := h.service.Narrate(r.Context(), id)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelope(w, r, http.StatusOK, resp)
}

// Ask godoc
// @Summary      Ask Gemini
// @Tags         Gemini
// @Accept       json
// @Produce      json
// @Param        body body types.AskRequest true "Prompt"
// @Success      200 {object} api.Envelope{data=types.AskResponse}
// @Failure      400 {object} api.Response
// @Failure      503 {object} api.Response
// @Router       /gemini/ask [post]
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "Ask", "/gemini/ask")
	defer span.End()

	var req types.AskRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.service.Ask(r.Context(), req)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelopeMessage(w, r, http.StatusOK, api.MessageRetrieved, resp)
}

// AskWithNarrative godoc
// @Summary      Ask about a place
// @Description  Answers a question grounded on the place's narrative document.
// @Tags         Gemini
// @Accept       json
// @Produce      json
// @Param        body body types.AskWithNarrativeRequest true "Question"
// @Success      200 {object} api.Envelope{data=types.AskWithNarrativeResponse}
// @Failure      400 {object} api.Response
// @Failure      404 {object} api.Response
// @Failure      503 {object} api.Response
// @Router       /gemini/ask-with-narrative [post]
func (h *Handler) AskWithNarrative(w http.ResponseWriter, r *http.Request) {
	r, span, l := h.start(r, "AskWithNarrative", "/gemini/ask-with-narrative")
	defer span.End()

	var req types.AskWithNarrativeRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	resp, err := h.service.AskWithNarrative(r.Context(), req)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	api.WriteEnvelopeMessage(w, r, http.StatusOK, api.MessageRetrieved, resp)
}
