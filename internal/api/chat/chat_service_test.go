package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/kamino-places-api/internal/api/narrative"
	"github.com/FACorreiaa/kamino-places-api/internal/api/places"
	"github.com/FACorreiaa/kamino-places-api/internal/geo"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) ListCandidates(ctx context.Context, q places.ListQuery, box *geo.BoundingBox) ([]types.Place, error) {
	args := m.Called(ctx, q, box)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upload(ctx context.Context, displayName string, r io.Reader) (narrative.Document, error) {
	args := m.Called(ctx, displayName, r)
	return args.Get(0).(narrative.Document), args.Error(1)
}

func (m *MockStore) Exists(ctx context.Context, documentID string) (bool, error) {
	args := m.Called(ctx, documentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, documentID string) error {
	return m.Called(ctx, documentID).Error(0)
}

func (m *MockStore) Search(ctx context.Context, documentID, prompt string) (string, error) {
	args := m.Called(ctx, documentID, prompt)
	return args.String(0), args.Error(1)
}

func ptr[T any](v T) *T { return &v }

// saturday4pm is 2024-06-15 16:00 UTC, a Saturday.
var saturday4pm = time.Date(2024, time.June, 15, 16, 0, 0, 0, time.UTC)

var (
	larco = types.Place{
		ID: uuid.New(), Name: "Museo Larco", Category: "museum", Address: "Av. Bolívar 1515",
		Tags: []string{"arqueología"}, OpeningTime: ptr("09:00"), ClosingTime: ptr("18:00"),
		ClosedDays: []string{"monday"},
	}
	kennedy = types.Place{
		ID: uuid.New(), Name: "Parque Kennedy", Category: "park", Address: "Miraflores",
		Tags: []string{"gatos"}, NarrativeDocumentID: ptr("files/kennedy"),
	}
	pucllana   = types.Place{ID: uuid.New(), Name: "Huaca Pucllana", Category: "archaeological site"}
	tostaduria = types.Place{ID: uuid.New(), Name: "Tostaduría Bisetti", Category: "cafe"}

	catalog = []types.Place{larco, kennedy, pucllana, tostaduria}
)

func newTestService(cat Catalog, store narrative.DocumentStore) *ServiceImpl {
	return NewServiceImpl(cat, store, slog.New(slog.NewTextHandler(io.Discard, nil)), Settings{
		Now:  func() time.Time { return saturday4pm },
		Pick: func(int) int { return 0 },
	})
}

func catalogMock() *MockCatalog {
	cat := new(MockCatalog)
	cat.On("ListCandidates", mock.Anything, places.ListQuery{}, (*geo.BoundingBox)(nil)).Return(catalog, nil)
	return cat
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"¿Qué HORARIO tiene el Museo Larco?", "que horario tiene el museo larco"},
		{"  Café   del Ñandú!!  ", "cafe del nandu"},
		{"Dirección/ubicación", "direccion ubicacion"},
		{"", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Normalize(tc.in), tc.in)
	}
}

func TestCleanAnswer(t *testing.T) {
	assert.Equal(t, "La entrada cuesta 30 soles.", CleanAnswer("Según el texto: La entrada cuesta 30 soles."))
	assert.Equal(t, "Uno.\nDos.", CleanAnswer("Uno.\n\n\nDos."))
	assert.Equal(t, "Abre temprano.", CleanAnswer("De acuerdo al documento - Abre temprano."))
}

func TestFindPlace(t *testing.T) {
	t.Run("exact name wins", func(t *testing.T) {
		got := FindPlace(catalog, Normalize("Huaca Pucllana"))
		require.NotNil(t, got)
		assert.Equal(t, pucllana.ID, got.ID)
	})

	t.Run("tags outweigh a name word", func(t *testing.T) {
		got := FindPlace(catalog, Normalize("un parque con arqueología"))
		require.NotNil(t, got)
		assert.Equal(t, larco.ID, got.ID)
	})

	t.Run("short words do not count", func(t *testing.T) {
		assert.Nil(t, FindPlace([]types.Place{{Name: "El Ojo"}}, "el ojo que llora"))
	})

	t.Run("no match", func(t *testing.T) {
		assert.Nil(t, FindPlace(catalog, "donde como ceviche"))
	})
}

func TestServiceImpl_HandleMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("farewell clears the context", func(t *testing.T) {
		cat := new(MockCatalog)
		reply, conv, err := newTestService(cat, nil).HandleMessage(ctx, Conversation{LastPlaceID: &larco.ID}, "Muchas gracias, adiós")
		require.NoError(t, err)
		assert.Equal(t, types.IntentFarewell, reply.Intent)
		assert.Equal(t, answerFarewell, reply.Answer)
		assert.Nil(t, conv.LastPlaceID)
		cat.AssertNotCalled(t, "ListCandidates", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("greeting keeps the context", func(t *testing.T) {
		reply, conv, err := newTestService(new(MockCatalog), nil).HandleMessage(ctx, Conversation{LastPlaceID: &larco.ID}, "¡Hola!")
		require.NoError(t, err)
		assert.Equal(t, types.IntentGreeting, reply.Intent)
		assert.Equal(t, &larco.ID, conv.LastPlaceID)
	})

	t.Run("recommendation skips the place in context", func(t *testing.T) {
		reply, _, err := newTestService(catalogMock(), nil).HandleMessage(ctx, Conversation{LastPlaceID: &larco.ID}, "¿Qué otros lugares me recomiendas?")
		require.NoError(t, err)
		assert.Equal(t, types.IntentRecommendation, reply.Intent)
		assert.Equal(t, "Aquí tienes otros lugares que puedes visitar:\n"+
			"• Parque Kennedy (park)\n"+
			"• Huaca Pucllana (archaeological site)\n"+
			"• Tostaduría Bisetti (cafe)\n"+
			"¿Te gustaría saber más sobre alguno de ellos?", reply.Answer)
	})

	t.Run("schedule of a detected place", func(t *testing.T) {
		reply, conv, err := newTestService(catalogMock(), nil).HandleMessage(ctx, Conversation{}, "¿Cuál es el horario del Museo Larco?")
		require.NoError(t, err)
		assert.Equal(t, types.IntentSchedule, reply.Intent)
		assert.Equal(t, "Horarios de Museo Larco:\n"+
			"Martes: 09:00–18:00\n"+
			"Miércoles: 09:00–18:00\n"+
			"Jueves: 09:00–18:00\n"+
			"Viernes: 09:00–18:00\n"+
			"Sábado: 09:00–18:00\n"+
			"Domingo: 09:00–18:00\n"+
			"Cerrado: Lunes\n"+
			"Ahora mismo está abierto.\n\n"+
			signatures["schedule"][0], reply.Answer)
		require.NotNil(t, conv.LastPlaceID)
		assert.Equal(t, larco.ID, *conv.LastPlaceID)
	})

	t.Run("info from context", func(t *testing.T) {
		reply, _, err := newTestService(catalogMock(), nil).HandleMessage(ctx, Conversation{LastPlaceID: &larco.ID}, "¿Y la dirección?")
		require.NoError(t, err)
		assert.Equal(t, types.IntentInfo, reply.Intent)
		assert.Equal(t, "Información sobre Museo Larco:\nDirección: Av. Bolívar 1515\nCategoría: museum\nTags: arqueología\n\n"+
			signatures["info"][0], reply.Answer)
	})

	t.Run("price from the narrative document", func(t *testing.T) {
		store := new(MockStore)
		store.On("Search", mock.Anything, "files/kennedy", promptPrice).Return("Según el texto: La entrada es libre.", nil).Once()
		reply, _, err := newTestService(catalogMock(), store).HandleMessage(ctx, Conversation{LastPlaceID: &kennedy.ID}, "¿Cuánto cuesta la entrada?")
		require.NoError(t, err)
		assert.Equal(t, types.IntentPrice, reply.Intent)
		assert.Equal(t, "La entrada es libre.", reply.Answer)
		store.AssertExpectations(t)
	})

	t.Run("price without a document", func(t *testing.T) {
		reply, _, err := newTestService(catalogMock(), nil).HandleMessage(ctx, Conversation{LastPlaceID: &larco.ID}, "precio")
		require.NoError(t, err)
		assert.Equal(t, types.IntentPrice, reply.Intent)
		assert.Equal(t, answerNoPrice, reply.Answer)
	})

	t.Run("activity without a document", func(t *testing.T) {
		reply, _, err := newTestService(catalogMock(), nil).HandleMessage(ctx, Conversation{LastPlaceID: &larco.ID}, "¿Hay algún taller?")
		require.NoError(t, err)
		assert.Equal(t, types.IntentActivity, reply.Intent)
		assert.Equal(t, answerNoActivity, reply.Answer)
	})

	t.Run("curiosity without a document", func(t *testing.T) {
		reply, conv, err := newTestService(catalogMock(), nil).HandleMessage(ctx, Conversation{}, "Cuéntame algo del Museo Larco")
		require.NoError(t, err)
		assert.Equal(t, types.IntentCuriosity, reply.Intent)
		assert.Equal(t, answerCuriosityFallback, reply.Answer)
		assert.Equal(t, larco.ID, *conv.LastPlaceID)
	})

	t.Run("curiosity from the document", func(t *testing.T) {
		store := new(MockStore)
		store.On("Search", mock.Anything, "files/kennedy", promptCuriosity).Return("Es famoso por sus gatos.", nil).Once()
		reply, _, err := newTestService(catalogMock(), store).HandleMessage(ctx, Conversation{}, "Dime un dato curioso del Parque Kennedy")
		require.NoError(t, err)
		assert.Equal(t, types.IntentCuriosity, reply.Intent)
		assert.Equal(t, "Es famoso por sus gatos."+answerCuriositySuffix, reply.Answer)
	})

	t.Run("free question falls back to the document", func(t *testing.T) {
		store := new(MockStore)
		store.On("Search", mock.Anything, "files/kennedy", "Responde de forma muy breve y coherente: ¿Quién lo construyó? Maximo tres oraciones.").
			Return("Se inauguró en 1940.", nil).Once()
		reply, _, err := newTestService(catalogMock(), store).HandleMessage(ctx, Conversation{LastPlaceID: &kennedy.ID}, "¿Quién lo construyó?")
		require.NoError(t, err)
		assert.Equal(t, types.IntentNarrative, reply.Intent)
		assert.Equal(t, "Se inauguró en 1940.", reply.Answer)
	})

	t.Run("provider failure degrades to other", func(t *testing.T) {
		store := new(MockStore)
		store.On("Search", mock.Anything, "files/kennedy", mock.Anything).Return("", errors.New("quota")).Once()
		reply, _, err := newTestService(catalogMock(), store).HandleMessage(ctx, Conversation{LastPlaceID: &kennedy.ID}, "¿Quién lo construyó?")
		require.NoError(t, err)
		assert.Equal(t, types.IntentOther, reply.Intent)
	})

	t.Run("no context", func(t *testing.T) {
		reply, conv, err := newTestService(catalogMock(), nil).HandleMessage(ctx, Conversation{}, "¿Cómo está el clima?")
		require.NoError(t, err)
		assert.Equal(t, types.IntentOther, reply.Intent)
		assert.Equal(t, answerOther, reply.Answer)
		assert.Nil(t, conv.LastPlaceID)
	})

	t.Run("stale context is ignored", func(t *testing.T) {
		gone := uuid.New()
		reply, _, err := newTestService(catalogMock(), nil).HandleMessage(ctx, Conversation{LastPlaceID: &gone}, "horario")
		require.NoError(t, err)
		assert.Equal(t, types.IntentOther, reply.Intent)
	})

	t.Run("catalog failure", func(t *testing.T) {
		cat := new(MockCatalog)
		cat.On("ListCandidates", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()
		_, conv, err := newTestService(cat, nil).HandleMessage(ctx, Conversation{LastPlaceID: &larco.ID}, "horario")
		require.Error(t, err)
		assert.Equal(t, &larco.ID, conv.LastPlaceID)
	})
}
