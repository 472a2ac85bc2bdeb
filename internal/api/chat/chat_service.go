package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/kamino-places-api/app/observability/metrics"
	"github.com/FACorreiaa/kamino-places-api/internal/api/narrative"
	"github.com/FACorreiaa/kamino-places-api/internal/api/places"
	"github.com/FACorreiaa/kamino-places-api/internal/geo"
	"github.com/FACorreiaa/kamino-places-api/internal/schedule"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

const recommendationCount = 3

// Catalog lists the places the chatbot can talk about.
type Catalog interface {
	ListCandidates(ctx context.Context, q places.ListQuery, box *geo.BoundingBox) ([]types.Place, error)
}

// Conversation is the context carried between two messages of a session.
type Conversation struct {
	LastPlaceID *uuid.UUID
}

type Reply struct {
	Intent types.ChatIntent
	Answer string
}

type Service interface {
	HandleMessage(ctx context.Context, conv Conversation, message string) (Reply, Conversation, error)
}

type Settings struct {
	Location *time.Location
	Now      func() time.Time
	// Pick returns a value in [0, n). Defaults to rand.IntN.
	Pick func(n int) int
}

type ServiceImpl struct {
	logger   *slog.Logger
	catalog  Catalog
	store    narrative.DocumentStore
	settings Settings
}

func NewServiceImpl(catalog Catalog, store narrative.DocumentStore, logger *slog.Logger, settings Settings) *ServiceImpl {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	if settings.Pick == nil {
		settings.Pick = rand.IntN
	}
	return &ServiceImpl{
		logger:   logger,
		catalog:  catalog,
		store:    store,
		settings: settings,
	}
}

// HandleMessage answers one message. The returned conversation replaces
// conv for the next message of the session.
func (s *ServiceImpl) HandleMessage(ctx context.Context, conv Conversation, message string) (Reply, Conversation, error) {
	ctx, span := otel.Tracer("ChatService").Start(ctx, "HandleMessage", trace.WithAttributes(
		attribute.Int("message.length", len(message)),
	))
	defer span.End()

	reply, next, err := s.answer(ctx, conv, message)
	if err != nil {
		span.RecordError(err)
		return Reply{}, conv, err
	}
	span.SetAttributes(attribute.String("chat.intent", string(reply.Intent)))
	metrics.Get().ChatMessagesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("intent", string(reply.Intent))))
	return reply, next, nil
}

func (s *ServiceImpl) answer(ctx context.Context, conv Conversation, message string) (Reply, Conversation, error) {
	msg := Normalize(message)

	if farewellWords.in(msg) {
		return Reply{Intent: types.IntentFarewell, Answer: answerFarewell}, Conversation{}, nil
	}
	if greetingWords.in(msg) {
		return Reply{Intent: types.IntentGreeting, Answer: answerGreeting}, conv, nil
	}

	all, err := s.catalog.ListCandidates(ctx, places.ListQuery{}, nil)
	if err != nil {
		return Reply{}, conv, fmt.Errorf("failed to load places: %w", err)
	}
	last := lookup(all, conv.LastPlaceID)

	if recommendWords.in(msg) {
		return Reply{Intent: types.IntentRecommendation, Answer: recommend(all, last)}, conv, nil
	}

	found := FindPlace(all, msg)
	if found != nil {
		last = found
		conv = Conversation{LastPlaceID: &found.ID}
	}

	if curiosityPattern.MatchString(msg) && last != nil {
		if text, ok := s.search(ctx, last, promptCuriosity); ok {
			return Reply{Intent: types.IntentCuriosity, Answer: text + answerCuriositySuffix}, conv, nil
		}
		return Reply{Intent: types.IntentCuriosity, Answer: answerCuriosityFallback}, conv, nil
	}

	if last != nil {
		switch {
		case scheduleWords.in(msg):
			return Reply{Intent: types.IntentSchedule, Answer: s.sign(s.formatSchedule(*last), "schedule")}, conv, nil
		case priceWords.in(msg):
			if text, ok := s.search(ctx, last, promptPrice); ok {
				return Reply{Intent: types.IntentPrice, Answer: text}, conv, nil
			}
			return Reply{Intent: types.IntentPrice, Answer: answerNoPrice}, conv, nil
		case activityWords.in(msg):
			if text, ok := s.search(ctx, last, promptActivity); ok {
				return Reply{Intent: types.IntentActivity, Answer: text}, conv, nil
			}
			return Reply{Intent: types.IntentActivity, Answer: answerNoActivity}, conv, nil
		case infoWords.in(msg):
			return Reply{Intent: types.IntentInfo, Answer: s.sign(formatInfo(*last), "info")}, conv, nil
		}

		if text, ok := s.search(ctx, last, fmt.Sprintf(promptNarrative, message)); ok {
			return Reply{Intent: types.IntentNarrative, Answer: text}, conv, nil
		}
	}

	return Reply{Intent: types.IntentOther, Answer: answerOther}, conv, nil
}

// search asks the place's narrative document. It reports false when the
// place has none or the provider fails, so callers fall back to a canned answer.
func (s *ServiceImpl) search(ctx context.Context, p *types.Place, prompt string) (string, bool) {
	if !p.HasNarrative() {
		return "", false
	}
	text, err := s.store.Search(ctx, *p.NarrativeDocumentID, prompt)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, types.ErrNarrativeUnavailable) {
			level = slog.LevelDebug
		}
		s.logger.Log(ctx, level, "Narrative search failed",
			slog.String("placeID", p.ID.String()), slog.Any("error", err))
		return "", false
	}
	text = CleanAnswer(text)
	return text, text != ""
}

func (s *ServiceImpl) sign(text, kind string) string {
	options := signatures[kind]
	if len(options) == 0 {
		return text
	}
	return text + "\n\n" + options[s.settings.Pick(len(options))]
}

func (s *ServiceImpl) formatSchedule(p types.Place) string {
	sched := schedule.FromPlace(p)
	var b strings.Builder
	b.WriteString("Horarios de " + p.Name + ":")
	lines := schedule.Spanish.Lines(sched)
	for _, line := range lines {
		b.WriteString("\n" + line)
	}
	if len(lines) == 0 {
		b.WriteString("\nNo hay horarios registrados.")
	}

	now := s.settings.Now().In(s.settings.Location)
	switch sched.Status(now.Weekday(), schedule.At(now)) {
	case schedule.StatusOpen:
		b.WriteString("\nAhora mismo está abierto.")
	case schedule.StatusClosed:
		b.WriteString("\nAhora mismo está cerrado.")
	}
	return b.String()
}

func formatInfo(p types.Place) string {
	tags := "N/A"
	if len(p.Tags) > 0 {
		tags = strings.Join(p.Tags, ", ")
	}
	return fmt.Sprintf("Información sobre %s:\nDirección: %s\nCategoría: %s\nTags: %s", p.Name, p.Address, p.Category, tags)
}

func recommend(all []types.Place, last *types.Place) string {
	var b strings.Builder
	b.WriteString("Aquí tienes otros lugares que puedes visitar:")
	n := 0
	for _, p := range all {
		if n == recommendationCount {
			break
		}
		if last != nil && p.ID == last.ID {
			continue
		}
		fmt.Fprintf(&b, "\n• %s (%s)", p.Name, p.Category)
		n++
	}
	b.WriteString("\n¿Te gustaría saber más sobre alguno de ellos?")
	return b.String()
}

func lookup(all []types.Place, id *uuid.UUID) *types.Place {
	if id == nil {
		return nil
	}
	for i := range all {
		if all[i].ID == *id {
			return &all[i]
		}
	}
	return nil
}

// FindPlace picks the place a normalised message talks about. An exact name
// match wins. Otherwise every name word longer than three letters present in
// the message scores one and every contained tag scores two. Ties keep the
// first place.
func FindPlace(all []types.Place, msg string) *types.Place {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(msg) {
		words[w] = struct{}{}
	}

	var best *types.Place
	bestScore := 0
	for i := range all {
		p := &all[i]
		name := Normalize(p.Name)
		if name == msg {
			return p
		}
		score := 0
		for _, w := range strings.Fields(name) {
			if _, ok := words[w]; ok && len([]rune(w)) > 3 {
				score++
			}
		}
		for _, tag := range p.Tags {
			if t := Normalize(tag); t != "" && strings.Contains(msg, t) {
				score += 2
			}
		}
		if score > bestScore {
			best, bestScore = p, score
		}
	}
	return best
}
