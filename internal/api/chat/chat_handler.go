package chat

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/kamino-places-api/internal/api"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

const defaultSessionTTL = 30 * time.Minute

// Handler answers chat messages and keeps each session's conversation in
// an expiring in-memory cache.
type Handler struct {
	service  Service
	sessions *cache.Cache
	logger   *slog.Logger
}

func NewHandler(service Service, sessionTTL time.Duration, logger *slog.Logger) *Handler {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &Handler{
		service:  service,
		sessions: cache.New(sessionTTL, 2*sessionTTL),
		logger:   logger,
	}
}

func (h *Handler) conversation(sessionID string) Conversation {
	if v, ok := h.sessions.Get(sessionID); ok {
		if conv, ok := v.(Conversation); ok {
			return conv
		}
	}
	return Conversation{}
}

// HandleMessage godoc
// @Summary      Chat with Kamino
// @Description  Rule-based assistant. Send the returned sessionId back to keep the place in context.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        body body types.ChatRequest true "Message"
// @Success      200 {object} api.Envelope{data=types.ChatResponse}
// @Failure      400 {object} api.Response
// @Failure      500 {object} api.Response
// @Router       /chat [post]
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ChatHandler").Start(r.Context(), "HandleMessage", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/chat"),
	))
	defer span.End()
	r = r.WithContext(ctx)
	l := h.logger.With(slog.String("handler", "HandleMessage"))

	var req types.ChatRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := api.ValidateStruct(req); err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	span.SetAttributes(attribute.String("chat.session", req.SessionID))

	reply, conv, err := h.service.HandleMessage(ctx, h.conversation(req.SessionID), req.Message)
	if err != nil {
		api.ServiceErrorResponse(w, r, l, err)
		return
	}
	h.sessions.SetDefault(req.SessionID, conv)

	api.WriteEnvelopeMessage(w, r, http.StatusOK, api.MessageRetrieved, types.ChatResponse{
		Type:      reply.Intent,
		Answer:    reply.Answer,
		SessionID: req.SessionID,
	})
}
