package narrative

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/FACorreiaa/kamino-places-api/app/observability/metrics"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

const pdfMIMEType = "application/pdf"

// Document is a file held by the LLM provider.
type Document struct {
	ID       string
	URI      string
	MIMEType string
}

// DocumentStore keeps narrative documents on the provider side and answers
// prompts grounded on one of them.
type DocumentStore interface {
	Upload(ctx context.Context, displayName string, r io.Reader) (Document, error)
	Exists(ctx context.Context, documentID string) (bool, error)
	Delete(ctx context.Context, documentID string) error
	Search(ctx context.Context, documentID, prompt string) (string, error)
}

// TextGenerator answers free prompts without a document.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

var (
	_ DocumentStore = (*GeminiStore)(nil)
	_ TextGenerator = (*GeminiStore)(nil)
	_ DocumentStore = UnavailableStore{}
	_ TextGenerator = UnavailableStore{}
)

type GeminiConfig struct {
	APIKey            string
	Model             string
	RequestsPerSecond float64
	Burst             int
}

// GeminiStore implements DocumentStore and TextGenerator on the Gemini
// Files and Models APIs. Every call waits on a shared token bucket.
type GeminiStore struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	logger  *slog.Logger
}

func NewGeminiStore(ctx context.Context, cfg GeminiConfig, logger *slog.Logger) (*GeminiStore, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	rps, burst := cfg.RequestsPerSecond, cfg.Burst
	if rps <= 0 {
		rps = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &GeminiStore{
		client:  client,
		model:   model,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  logger,
	}, nil
}

// call waits for the limiter and records the request metrics.
func (g *GeminiStore) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := otel.Tracer("GeminiStore").Start(ctx, op, trace.WithAttributes(
		attribute.String("llm.model", g.model),
	))
	defer span.End()

	if err := g.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Rate limiter wait failed")
		return fmt.Errorf("rate limiter: %w", err)
	}
	attrs := metric.WithAttributes(attribute.String("operation", op))
	m := metrics.Get()
	m.LLMRequestsTotal.Add(ctx, 1, attrs)
	if err := fn(ctx); err != nil {
		m.LLMRequestErrorsTotal.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return err
	}
	return nil
}

func (g *GeminiStore) Upload(ctx context.Context, displayName string, r io.Reader) (Document, error) {
	var doc Document
	err := g.call(ctx, "Upload", func(ctx context.Context) error {
		f, err := g.client.Files.Upload(ctx, r, &genai.UploadFileConfig{
			MIMEType:    pdfMIMEType,
			DisplayName: displayName,
		})
		if err != nil {
			return fmt.Errorf("failed to upload document: %w", err)
		}
		doc = Document{ID: f.Name, URI: f.URI, MIMEType: f.MIMEType}
		return nil
	})
	if err == nil {
		g.logger.InfoContext(ctx, "Document uploaded", slog.String("document", doc.ID))
	}
	return doc, err
}

func (g *GeminiStore) get(ctx context.Context, documentID string) (*genai.File, error) {
	var file *genai.File
	err := g.call(ctx, "Get", func(ctx context.Context) error {
		f, err := g.client.Files.Get(ctx, documentID, nil)
		if err != nil {
			return err
		}
		file = f
		return nil
	})
	return file, err
}

// Exists reports false when the provider no longer knows the document,
// which happens once uploaded files expire.
func (g *GeminiStore) Exists(ctx context.Context, documentID string) (bool, error) {
	_, err := g.get(ctx, documentID)
	if isNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up document: %w", err)
	}
	return true, nil
}

func (g *GeminiStore) Delete(ctx context.Context, documentID string) error {
	err := g.call(ctx, "Delete", func(ctx context.Context) error {
		_, err := g.client.Files.Delete(ctx, documentID, nil)
		return err
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

func (g *GeminiStore) Search(ctx context.Context, documentID, prompt string) (string, error) {
	file, err := g.get(ctx, documentID)
	if isNotFound(err) {
		return "", fmt.Errorf("document %s: %w", documentID, types.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up document: %w", err)
	}
	mime := file.MIMEType
	if mime == "" {
		mime = pdfMIMEType
	}
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(file.URI, mime),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	return g.generate(ctx, "Search", contents)
}

func (g *GeminiStore) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, "Generate", genai.Text(prompt))
}

func (g *GeminiStore) generate(ctx context.Context, op string, contents []*genai.Content) (string, error) {
	var text string
	err := g.call(ctx, op, func(ctx context.Context) error {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
		if err != nil {
			return fmt.Errorf("failed to generate content: %w", err)
		}
		text = strings.TrimSpace(resp.Text())
		return nil
	})
	return text, err
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusNotFound
	}
	return false
}

// UnavailableStore stands in when no API key is configured.
type UnavailableStore struct{}

func (UnavailableStore) Upload(context.Context, string, io.Reader) (Document, error) {
	return Document{}, types.ErrNarrativeUnavailable
}

func (UnavailableStore) Exists(context.Context, string) (bool, error) {
	return false, types.ErrNarrativeUnavailable
}

func (UnavailableStore) Delete(context.Context, string) error {
	return types.ErrNarrativeUnavailable
}

func (UnavailableStore) Search(context.Context, string, string) (string, error) {
	return "", types.ErrNarrativeUnavailable
}

func (UnavailableStore) Generate(context.Context, string) (string, error) {
	return "", types.ErrNarrativeUnavailable
}
