package narrative

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

type MockPlaces struct {
	mock.Mock
}

func (m *MockPlaces) FindByID(ctx context.Context, id uuid.UUID) (*types.Place, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Place), args.Error(1)
}

func (m *MockPlaces) SetNarrative(ctx context.Context, id uuid.UUID, documentID, storeID *string) error {
	return m.Called(ctx, id, documentID, storeID).Error(0)
}

func (m *MockPlaces) ListWithNarrative(ctx context.Context) ([]types.Place, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Place), args.Error(1)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Upload(ctx context.Context, displayName string, r io.Reader) (Document, error) {
	args := m.Called(ctx, displayName, r)
	return args.Get(0).(Document), args.Error(1)
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

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")

func ptr[T any](v T) *T { return &v }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(places Places, store DocumentStore, gen TextGenerator, settings Settings) *ServiceImpl {
	if settings.Pick == nil {
		settings.Pick = func(int) int { return 0 }
	}
	return NewServiceImpl(places, store, gen, discardLogger(), settings)
}

func TestServiceImpl_UploadNarrative(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("uploads, keeps a local copy and saves the handle", func(t *testing.T) {
		places, store := new(MockPlaces), new(MockStore)
		dir := t.TempDir()
		svc := newTestService(places, store, nil, Settings{Dir: dir, StoreID: "kamino"})

		places.On("FindByID", mock.Anything, id).Return(&types.Place{ID: id, Name: "Huaca Pucllana"}, nil).Once()
		store.On("Upload", mock.Anything, "Huaca Pucllana", mock.Anything).Return(Document{ID: "files/abc"}, nil).Once()
		places.On("SetNarrative", mock.Anything, id, ptr("files/abc"), ptr("kamino")).Return(nil).Once()

		resp, err := svc.UploadNarrative(ctx, id, "application/pdf", pdfBytes)
		require.NoError(t, err)
		assert.Equal(t, "files/abc", resp.DocumentID)
		assert.Equal(t, "Huaca Pucllana", resp.PlaceName)

		saved, err := os.ReadFile(filepath.Join(dir, id.String()+".pdf"))
		require.NoError(t, err)
		assert.Equal(t, pdfBytes, saved)
		places.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("replaces the previous document", func(t *testing.T) {
		places, store := new(MockPlaces), new(MockStore)
		svc := newTestService(places, store, nil, Settings{})

		places.On("FindByID", mock.Anything, id).Return(&types.Place{ID: id, Name: "Larco", NarrativeDocumentID: ptr("files/old")}, nil).Once()
		store.On("Upload", mock.Anything, "Larco", mock.Anything).Return(Document{ID: "files/new"}, nil).Once()
		places.On("SetNarrative", mock.Anything, id, ptr("files/new"), (*string)(nil)).Return(nil).Once()
		store.On("Delete", mock.Anything, "files/old").Return(nil).Once()

		_, err := svc.UploadNarrative(ctx, id, "application/pdf; charset=binary", pdfBytes)
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("removes the upload when the handle cannot be saved", func(t *testing.T) {
		places, store := new(MockPlaces), new(MockStore)
		svc := newTestService(places, store, nil, Settings{})

		places.On("FindByID", mock.Anything, id).Return(&types.Place{ID: id, Name: "Larco"}, nil).Once()
		store.On("Upload", mock.Anything, "Larco", mock.Anything).Return(Document{ID: "files/new"}, nil).Once()
		places.On("SetNarrative", mock.Anything, id, ptr("files/new"), (*string)(nil)).Return(errors.New("db down")).Once()
		store.On("Delete", mock.Anything, "files/new").Return(nil).Once()

		_, err := svc.UploadNarrative(ctx, id, "application/pdf", pdfBytes)
		require.Error(t, err)
		store.AssertExpectations(t)
	})

	rejected := []struct {
		name        string
		contentType string
		data        []byte
		max         int64
	}{
		{"empty file", "application/pdf", nil, 0},
		{"wrong content type", "image/png", pdfBytes, 0},
		{"missing magic bytes", "application/pdf", []byte("hello"), 0},
		{"too large", "application/pdf", pdfBytes, 8},
	}
	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			places, store := new(MockPlaces), new(MockStore)
			svc := newTestService(places, store, nil, Settings{MaxUploadBytes: tc.max})
			_, err := svc.UploadNarrative(ctx, id, tc.contentType, tc.data)
			require.ErrorIs(t, err, types.ErrInvalidArgument)
			places.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
			store.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
		})
	}

	t.Run("unknown place", func(t *testing.T) {
		places, store := new(MockPlaces), new(MockStore)
		svc := newTestService(places, store, nil, Settings{})
		places.On("FindByID", mock.Anything, id).Return(nil, types.ErrNotFound).Once()

		_, err := svc.UploadNarrative(ctx, id, "application/pdf", pdfBytes)
		require.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("provider not configured", func(t *testing.T) {
		places := new(MockPlaces)
		svc := newTestService(places, UnavailableStore{}, UnavailableStore{}, Settings{})
		places.On("FindByID", mock.Anything, id).Return(&types.Place{ID: id, Name: "Larco"}, nil).Once()

		_, err := svc.UploadNarrative(ctx, id, "application/pdf", pdfBytes)
		require.ErrorIs(t, err, types.ErrNarrativeUnavailable)
	})
}

func TestServiceImpl_GetAndDeleteNarrative(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("metadata", func(t *testing.T) {
		places := new(MockPlaces)
		svc := newTestService(places, new(MockStore), nil, Settings{})
		places.On("FindByID", mock.Anything, id).Return(&types.Place{
			ID: id, Name: "Larco", NarrativeDocumentID: ptr("files/a"), NarrativeStoreID: ptr("kamino"),
		}, nil).Once()

		info, err := svc.GetNarrative(ctx, id)
		require.NoError(t, err)
		assert.True(t, info.HasNarrative)
		assert.Equal(t, "files/a", *info.NarrativeDocumentID)
	})

	t.Run("no narrative attached", func(t *testing.T) {
		places := new(MockPlaces)
		svc := newTestService(places, new(MockStore), nil, Settings{})
		places.On("FindByID", mock.Anything, id).Return(&types.Place{ID: id, Name: "Larco"}, nil).Once()

		_, err := svc.GetNarrative(ctx, id)
		require.ErrorIs(t, err, types.ErrNotFound)
	})

	t.Run("delete clears provider, local copy and handle", func(t *testing.T) {
		places, store := new(MockPlaces), new(MockStore)
		dir := t.TempDir()
		local := filepath.Join(dir, id.String()+".pdf")
		require.NoError(t, os.WriteFile(local, pdfBytes, 0o644))
		svc := newTestService(places, store, nil, Settings{Dir: dir})

		places.On("FindByID", mock.Anything, id).Return(&types.Place{ID: id, NarrativeDocumentID: ptr("files/a")}, nil).Once()
		store.On("Delete", mock.Anything, "files/a").Return(nil).Once()
		places.On("SetNarrative", mock.Anything, id, (*string)(nil), (*string)(nil)).Return(nil).Once()

		require.NoError(t, svc.DeleteNarrative(ctx, id))
		_, err := os.Stat(local)
		assert.True(t, errors.Is(err, os.ErrNotExist))
		places.AssertExpectations(t)
	})
}

func TestServiceImpl_Narrate(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	places, store := new(MockPlaces), new(MockStore)
	svc := newTestService(places, store, nil, Settings{})

	places.On("FindByID", mock.Anything, id).Return(&types.Place{ID: id, Name: "Parque Kennedy", NarrativeDocumentID: ptr("files/k")}, nil).Once()
	store.On("Search", mock.Anything, "files/k", mock.MatchedBy(func(p string) bool {
		return p == narratorPrompts[0]+"\nLugar: Parque Kennedy"
	})).Return("¡Claro que sí! Aquí va. El parque es famoso por sus gatos.", nil).Once()

	resp, err := svc.Narrate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "El parque es famoso por sus gatos.\n\n"+chatInvites[0], resp.Text)
}

func TestServiceImpl_Ask(t *testing.T) {
	ctx := context.Background()

	t.Run("free prompt", func(t *testing.T) {
		gen := new(MockGenerator)
		svc := newTestService(new(MockPlaces), new(MockStore), gen, Settings{})
		gen.On("Generate", mock.Anything, "¿Qué comer en Lima?").Return("Ceviche.", nil).Once()

		resp, err := svc.Ask(ctx, types.AskRequest{Prompt: "¿Qué comer en Lima?"})
		require.NoError(t, err)
		assert.Equal(t, "Ceviche.", resp.Answer)
	})

	t.Run("empty prompt", func(t *testing.T) {
		gen := new(MockGenerator)
		svc := newTestService(new(MockPlaces), new(MockStore), gen, Settings{})
		_, err := svc.Ask(ctx, types.AskRequest{})
		require.ErrorIs(t, err, types.ErrInvalidArgument)
		gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
	})

	t.Run("grounded on the place document", func(t *testing.T) {
		id := uuid.New()
		places, store := new(MockPlaces), new(MockStore)
		svc := newTestService(places, store, nil, Settings{})
		places.On("FindByID", mock.Anything, id).Return(&types.Place{ID: id, Name: "Larco", NarrativeDocumentID: ptr("files/l")}, nil).Once()
		store.On("Search", mock.Anything, "files/l", "¿Cuándo abrió?").Return("En 1926.", nil).Once()

		resp, err := svc.AskWithNarrative(ctx, types.AskWithNarrativeRequest{PlaceID: id.String(), Question: "¿Cuándo abrió?"})
		require.NoError(t, err)
		assert.Equal(t, "Larco", resp.Place.Name)
		assert.Equal(t, "En 1926.", resp.Answer)
	})

	t.Run("invalid place id", func(t *testing.T) {
		svc := newTestService(new(MockPlaces), new(MockStore), nil, Settings{})
		_, err := svc.AskWithNarrative(ctx, types.AskWithNarrativeRequest{PlaceID: "nope", Question: "¿?"})
		require.ErrorIs(t, err, types.ErrInvalidArgument)
	})
}

func TestStripIntro(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"El museo guarda cerámica moche.", "El museo guarda cerámica moche."},
		{"¡Claro que sí! Te cuento algo. La huaca es preinca.", "La huaca es preinca."},
		{"Hola, viajero.\nEl parque tiene gatos.", "El parque tiene gatos."},
		{"Saludos.", "Saludos."},
		{"  Perfecto, aquí va. Lima fue fundada en 1535.", "Lima fue fundada en 1535."},
		{"Perfecto, aquí va: Lima fue fundada en 1535.", "Perfecto, aquí va: Lima fue fundada en 1535."},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, StripIntro(tc.in), tc.in)
	}
}
