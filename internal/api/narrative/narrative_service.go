package narrative

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/kamino-places-api/internal/api"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

const DefaultMaxUploadBytes = 10 << 20

// Places is the part of the place repository the narrative layer needs.
type Places interface {
	FindByID(ctx context.Context, id uuid.UUID) (*types.Place, error)
	SetNarrative(ctx context.Context, id uuid.UUID, documentID, storeID *string) error
	ListWithNarrative(ctx context.Context) ([]types.Place, error)
}

type Service interface {
	UploadNarrative(ctx context.Context, placeID uuid.UUID, contentType string, data []byte) (*types.NarrativeUploadResponse, error)
	GetNarrative(ctx context.Context, placeID uuid.UUID) (*types.NarrativeInfo, error)
	DeleteNarrative(ctx context.Context, placeID uuid.UUID) error
	Narrate(ctx context.Context, placeID uuid.UUID) (*types.NarrationResponse, error)
	Ask(ctx context.Context, req types.AskRequest) (*types.AskResponse, error)
	AskWithNarrative(ctx context.Context, req types.AskWithNarrativeRequest) (*types.AskWithNarrativeResponse, error)
}

type Settings struct {
	// Dir holds the local copy of every uploaded document, named <placeID>.pdf.
	Dir            string
	StoreID        string
	MaxUploadBytes int64
	// Pick returns a value in [0, n). Defaults to rand.IntN.
	Pick func(n int) int
}

type ServiceImpl struct {
	logger    *slog.Logger
	places    Places
	store     DocumentStore
	generator TextGenerator
	settings  Settings
}

func NewServiceImpl(places Places, store DocumentStore, generator TextGenerator, logger *slog.Logger, settings Settings) *ServiceImpl {
	if settings.MaxUploadBytes <= 0 {
		settings.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if settings.Pick == nil {
		settings.Pick = rand.IntN
	}
	return &ServiceImpl{
		logger:    logger,
		places:    places,
		store:     store,
		generator: generator,
		settings:  settings,
	}
}

func localPath(dir string, placeID uuid.UUID) string {
	return filepath.Join(dir, placeID.String()+".pdf")
}

func (s *ServiceImpl) storeID() *string {
	if s.settings.StoreID == "" {
		return nil
	}
	id := s.settings.StoreID
	return &id
}

func (s *ServiceImpl) checkPDF(contentType string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: file is empty", types.ErrInvalidArgument)
	}
	if int64(len(data)) > s.settings.MaxUploadBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", types.ErrInvalidArgument, s.settings.MaxUploadBytes)
	}
	mediaType, _, _ := strings.Cut(contentType, ";")
	if strings.TrimSpace(mediaType) != pdfMIMEType {
		return fmt.Errorf("%w: only %s files are accepted", types.ErrInvalidArgument, pdfMIMEType)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		return fmt.Errorf("%w: file is not a PDF document", types.ErrInvalidArgument)
	}
	return nil
}

// UploadNarrative stores a PDF for the place. A previous document is
// removed from the provider once the new handle is saved.
func (s *ServiceImpl) UploadNarrative(ctx context.Context, placeID uuid.UUID, contentType string, data []byte) (*types.NarrativeUploadResponse, error) {
	ctx, span := otel.Tracer("NarrativeService").Start(ctx, "UploadNarrative", trace.WithAttributes(
		attribute.String("place.id", placeID.String()),
		attribute.Int("file.size", len(data)),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "UploadNarrative"), slog.String("placeID", placeID.String()))

	if err := s.checkPDF(contentType, data); err != nil {
		span.SetStatus(codes.Error, "Rejected file")
		return nil, err
	}

	place, err := s.places.FindByID(ctx, placeID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	doc, err := s.store.Upload(ctx, place.Name, bytes.NewReader(data))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Upload failed")
		return nil, fmt.Errorf("failed to upload narrative: %w", err)
	}

	if err := s.writeLocalCopy(placeID, data); err != nil {
		l.WarnContext(ctx, "Failed to keep local narrative copy", slog.Any("error", err))
	}

	if err := s.places.SetNarrative(ctx, placeID, &doc.ID, s.storeID()); err != nil {
		if delErr := s.store.Delete(ctx, doc.ID); delErr != nil {
			l.WarnContext(ctx, "Failed to remove orphaned document", slog.String("document", doc.ID), slog.Any("error", delErr))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Saving handle failed")
		return nil, fmt.Errorf("failed to save narrative handle: %w", err)
	}

	if place.HasNarrative() && *place.NarrativeDocumentID != doc.ID {
		if err := s.store.Delete(ctx, *place.NarrativeDocumentID); err != nil {
			l.WarnContext(ctx, "Failed to delete previous document", slog.String("document", *place.NarrativeDocumentID), slog.Any("error", err))
		}
	}

	l.InfoContext(ctx, "Narrative uploaded", slog.String("document", doc.ID))
	return &types.NarrativeUploadResponse{
		PlaceID:    place.ID,
		PlaceName:  place.Name,
		DocumentID: doc.ID,
	}, nil
}

func (s *ServiceImpl) writeLocalCopy(placeID uuid.UUID, data []byte) error {
	if s.settings.Dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.settings.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath(s.settings.Dir, placeID), data, 0o644)
}

func (s *ServiceImpl) placeWithNarrative(ctx context.Context, placeID uuid.UUID) (*types.Place, error) {
	place, err := s.places.FindByID(ctx, placeID)
	if err != nil {
		return nil, err
	}
	if !place.HasNarrative() {
		return nil, fmt.Errorf("narrative for place %s: %w", placeID, types.ErrNotFound)
	}
	return place, nil
}

func (s *ServiceImpl) GetNarrative(ctx context.Context, placeID uuid.UUID) (*types.NarrativeInfo, error) {
	ctx, span := otel.Tracer("NarrativeService").Start(ctx, "GetNarrative", trace.WithAttributes(
		attribute.String("place.id", placeID.String()),
	))
	defer span.End()

	place, err := s.placeWithNarrative(ctx, placeID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &types.NarrativeInfo{
		PlaceID:             place.ID,
		PlaceName:           place.Name,
		HasNarrative:        true,
		NarrativeStoreID:    place.NarrativeStoreID,
		NarrativeDocumentID: place.NarrativeDocumentID,
	}, nil
}

func (s *ServiceImpl) DeleteNarrative(ctx context.Context, placeID uuid.UUID) error {
	ctx, span := otel.Tracer("NarrativeService").Start(ctx, "DeleteNarrative", trace.WithAttributes(
		attribute.String("place.id", placeID.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "DeleteNarrative"), slog.String("placeID", placeID.String()))

	place, err := s.placeWithNarrative(ctx, placeID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.store.Delete(ctx, *place.NarrativeDocumentID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Provider delete failed")
		return fmt.Errorf("failed to delete narrative document: %w", err)
	}
	if s.settings.Dir != "" {
		if err := os.Remove(localPath(s.settings.Dir, placeID)); err != nil && !errors.Is(err, os.ErrNotExist) {
			l.WarnContext(ctx, "Failed to remove local copy", slog.Any("error", err))
		}
	}
	if err := s.places.SetNarrative(ctx, placeID, nil, nil); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to clear narrative handle: %w", err)
	}
	l.InfoContext(ctx, "Narrative deleted")
	return nil
}

// Narrate tells a short story about the place from its document.
func (s *ServiceImpl) Narrate(ctx context.Context, placeID uuid.UUID) (*types.NarrationResponse, error) {
	ctx, span := otel.Tracer("NarrativeService").Start(ctx, "Narrate", trace.WithAttributes(
		attribute.String("place.id", placeID.String()),
	))
	defer span.End()

	place, err := s.placeWithNarrative(ctx, placeID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	prompt := fmt.Sprintf("%s\nLugar: %s", narratorPrompts[s.settings.Pick(len(narratorPrompts))], place.Name)
	text, err := s.store.Search(ctx, *place.NarrativeDocumentID, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Narration failed")
		return nil, fmt.Errorf("failed to narrate place: %w", err)
	}

	story := StripIntro(text)
	invite := chatInvites[s.settings.Pick(len(chatInvites))]
	return &types.NarrationResponse{Text: story + "\n\n" + invite}, nil
}

func (s *ServiceImpl) Ask(ctx context.Context, req types.AskRequest) (*types.AskResponse, error) {
	ctx, span := otel.Tracer("NarrativeService").Start(ctx, "Ask")
	defer span.End()

	if err := api.ValidateStruct(req); err != nil {
		return nil, err
	}
	answer, err := s.generator.Generate(ctx, req.Prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Generation failed")
		return nil, fmt.Errorf("failed to answer prompt: %w", err)
	}
	return &types.AskResponse{Answer: answer}, nil
}

func (s *ServiceImpl) AskWithNarrative(ctx context.Context, req types.AskWithNarrativeRequest) (*types.AskWithNarrativeResponse, error) {
	ctx, span := otel.Tracer("NarrativeService").Start(ctx, "AskWithNarrative", trace.WithAttributes(
		attribute.String("place.id", req.PlaceID),
	))
	defer span.End()

	if err := api.ValidateStruct(req); err != nil {
		return nil, err
	}
	placeID, err := uuid.Parse(req.PlaceID)
	if err != nil {
		return nil, fmt.Errorf("%w: placeId must be a valid UUID", types.ErrInvalidArgument)
	}

	place, err := s.placeWithNarrative(ctx, placeID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	answer, err := s.store.Search(ctx, *place.NarrativeDocumentID, req.Question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Grounded answer failed")
		return nil, fmt.Errorf("failed to answer question: %w", err)
	}
	return &types.AskWithNarrativeResponse{
		Place:    types.PlaceRef{ID: place.ID, Name: place.Name},
		Question: req.Question,
		Answer:   answer,
	}, nil
}
