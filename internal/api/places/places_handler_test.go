package places

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/kamino-places-api/internal/api"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreatePlace(ctx context.Context, req types.CreatePlaceRequest) (*types.PlaceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PlaceResponse), args.Error(1)
}

func (m *MockService) CreatePlacesBulk(ctx context.Context, req types.CreatePlacesBulkRequest) (*types.BulkCreateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.BulkCreateResponse), args.Error(1)
}

func (m *MockService) ListPlaces(ctx context.Context, filter types.PlaceFilter) (*types.PaginatedResponse[types.PlaceResponse], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PaginatedResponse[types.PlaceResponse]), args.Error(1)
}

func (m *MockService) FindNearby(ctx context.Context, req types.NearbySearchRequest) ([]types.PlaceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.PlaceResponse), args.Error(1)
}

func (m *MockService) AvailableNow(ctx context.Context, req types.AvailableNowRequest) ([]types.PlaceResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.PlaceResponse), args.Error(1)
}

func (m *MockService) GetPlace(ctx context.Context, id uuid.UUID) (*types.PlaceResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PlaceResponse), args.Error(1)
}

func (m *MockService) GetSchedule(ctx context.Context, id uuid.UUID) (*types.ScheduleResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ScheduleResponse), args.Error(1)
}

func (m *MockService) UpdatePlace(ctx context.Context, id uuid.UUID, req types.UpdatePlaceRequest) (*types.PlaceResponse, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PlaceResponse), args.Error(1)
}

func (m *MockService) ToggleHiddenGem(ctx context.Context, id uuid.UUID) (*types.PlaceResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.PlaceResponse), args.Error(1)
}

func (m *MockService) DeletePlace(ctx context.Context, id uuid.UUID) (*types.DeleteResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DeleteResponse), args.Error(1)
}

func (m *MockService) DeleteAllPlaces(ctx context.Context) (*types.DeleteAllResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.DeleteAllResponse), args.Error(1)
}

func (m *MockService) GetCategories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockService) GetTags(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func newTestRouter(svc Service) http.Handler {
	h := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	r.Post("/places", h.CreatePlace)
	r.Get("/places", h.ListPlaces)
	r.Post("/places/nearby", h.FindNearby)
	r.Get("/places/available-now", h.AvailableNow)
	r.Get("/places/{id}", h.GetPlace)
	r.Patch("/places/{id}", h.UpdatePlace)
	r.Delete("/places/admin/complete-delete-all", h.DeleteAllPlaces)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, reader))
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

func TestHandler_CreatePlace(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockService)
		id := uuid.New()
		svc.On("CreatePlace", mock.Anything, mock.MatchedBy(func(r types.CreatePlaceRequest) bool {
			return r.Name == "Larco" && *r.OpeningTime == "09:00"
		})).Return(&types.PlaceResponse{ID: id, Name: "Larco", OpenStatus: "open"}, nil).Once()

		rec, body := do(t, newTestRouter(svc), http.MethodPost, "/places",
			`{"name":"Larco","description":"d","category":"museum","latitude":1,"longitude":2,"address":"a","openingTime":"09:00"}`)
		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, api.MessageCreated, body["message"])
		assert.Equal(t, id.String(), body["data"].(map[string]any)["id"])
		svc.AssertExpectations(t)
	})

	t.Run("unknown field", func(t *testing.T) {
		rec, body := do(t, newTestRouter(new(MockService)), http.MethodPost, "/places", `{"nombre":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, false, body["success"])
		assert.Contains(t, body["error"], "nombre")
	})

	t.Run("invalid window maps to 400", func(t *testing.T) {
		svc := new(MockService)
		svc.On("CreatePlace", mock.Anything, mock.Anything).Return(nil, types.ErrInvalidTimeWindow).Once()

		rec, body := do(t, newTestRouter(svc), http.MethodPost, "/places", `{"name":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, types.ErrInvalidTimeWindow.Error(), body["error"])
	})
}

func TestHandler_GetPlace(t *testing.T) {
	t.Run("bad id", func(t *testing.T) {
		rec, _ := do(t, newTestRouter(new(MockService)), http.MethodGet, "/places/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		svc := new(MockService)
		id := uuid.New()
		svc.On("GetPlace", mock.Anything, id).Return(nil, types.ErrNotFound).Once()

		rec, _ := do(t, newTestRouter(svc), http.MethodGet, "/places/"+id.String(), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("database failure is hidden", func(t *testing.T) {
		svc := new(MockService)
		id := uuid.New()
		svc.On("GetPlace", mock.Anything, id).Return(nil, assert.AnError).Once()

		rec, body := do(t, newTestRouter(svc), http.MethodGet, "/places/"+id.String(), "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Internal server error", body["error"])
	})
}

func TestHandler_ListPlaces(t *testing.T) {
	t.Run("parses query", func(t *testing.T) {
		svc := new(MockService)
		svc.On("ListPlaces", mock.Anything, mock.MatchedBy(func(f types.PlaceFilter) bool {
			return f.Search == "museo" && len(f.Tags) == 2 && f.Tags[1] == "art" &&
				f.IsHiddenGem != nil && *f.IsHiddenGem && *f.Radius == 2.5 && f.Page == 3 && f.Limit == 20
		})).Return(&types.PaginatedResponse[types.PlaceResponse]{
			Data: []types.PlaceResponse{},
			Meta: types.NewPaginationMeta(3, 20, 0),
		}, nil).Once()

		rec, body := do(t, newTestRouter(svc), http.MethodGet,
			"/places?search=museo&tags=history,%20art&isHiddenGem=true&latitude=-12&longitude=-77&radius=2.5&page=3&limit=20", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, api.MessageRetrieved, body["message"])
		svc.AssertExpectations(t)
	})

	t.Run("bad number", func(t *testing.T) {
		rec, _ := do(t, newTestRouter(new(MockService)), http.MethodGet, "/places?radius=far", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_FindNearby(t *testing.T) {
	svc := new(MockService)
	svc.On("FindNearby", mock.Anything, mock.Anything).Return([]types.PlaceResponse{{Name: "near"}}, nil).Once()

	rec, body := do(t, newTestRouter(svc), http.MethodPost, "/places/nearby", `{"latitude":0,"longitude":0,"radius":3}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.MessageRetrieved, body["message"])
	assert.Len(t, body["data"], 1)
}

func TestHandler_AvailableNow(t *testing.T) {
	svc := new(MockService)
	svc.On("AvailableNow", mock.Anything, mock.MatchedBy(func(r types.AvailableNowRequest) bool {
		return r.Category == "park" && r.Latitude == nil && *r.Limit == 3
	})).Return([]types.PlaceResponse{}, nil).Once()

	rec, _ := do(t, newTestRouter(svc), http.MethodGet, "/places/available-now?category=park&limit=3", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestHandler_UpdatePlace(t *testing.T) {
	svc := new(MockService)
	id := uuid.New()
	svc.On("UpdatePlace", mock.Anything, id, mock.MatchedBy(func(r types.UpdatePlaceRequest) bool {
		return r.ClosingTime != nil && *r.ClosingTime == "" && r.Name == nil
	})).Return(&types.PlaceResponse{ID: id}, nil).Once()

	rec, body := do(t, newTestRouter(svc), http.MethodPatch, "/places/"+id.String(), `{"closingTime":""}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, api.MessageUpdated, body["message"])
}

func TestHandler_DeleteAllPlaces(t *testing.T) {
	svc := new(MockService)
	svc.On("DeleteAllPlaces", mock.Anything).Return(nil, types.ErrForbidden).Once()

	rec, _ := do(t, newTestRouter(svc), http.MethodDelete, "/places/admin/complete-delete-all", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
