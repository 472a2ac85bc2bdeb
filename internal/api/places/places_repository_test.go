package places

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/kamino-places-api/internal/geo"
	"github.com/FACorreiaa/kamino-places-api/internal/types"
)

var placeColumnNames = []string{
	"id", "name", "description", "category", "tags", "latitude", "longitude",
	"address", "image_url", "is_hidden_gem", "opening_time", "closing_time", "tour_duration",
	"closed_days", "schedule_by_day", "crowd_info",
	"narrative_document_id", "narrative_store_id", "created_at", "updated_at",
}

func placeRow(p types.Place) []any {
	return []any{
		p.ID, p.Name, p.Description, p.Category, p.Tags, p.Latitude, p.Longitude,
		p.Address, p.ImageURL, p.IsHiddenGem, p.OpeningTime, p.ClosingTime, p.TourDuration,
		p.ClosedDays, p.ScheduleByDay, p.CrowdInfo,
		p.NarrativeDocumentID, p.NarrativeStoreID, p.CreatedAt, p.UpdatedAt,
	}
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func newMockRepo(t *testing.T) (*RepositoryImpl, pgxmock.PgxPoolIface) {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewRepository(pool, slog.New(slog.NewTextHandler(io.Discard, nil))), pool
}

func samplePlace() types.Place {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return types.Place{
		ID:          uuid.New(),
		Name:        "Circuito Mágico del Agua",
		Description: "Fountains",
		Category:    "park",
		Tags:        []string{"water", "night"},
		Latitude:    -12.0706,
		Longitude:   -77.0336,
		Address:     "Jr. Madre de Dios",
		OpeningTime: ptr("15:00"),
		ClosingTime: ptr("22:30"),
		ClosedDays:  []string{"monday"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestRepositoryImpl_Create(t *testing.T) {
	repo, pool := newMockRepo(t)
	p := samplePlace()

	pool.ExpectQuery(regexp.QuoteMeta("INSERT INTO places (name,description,category,tags,latitude,longitude,address,")).
		WithArgs(anyArgs(15)...).
		WillReturnRows(pgxmock.NewRows(placeColumnNames).AddRow(placeRow(p)...))

	created, err := repo.Create(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, p.ID, created.ID)
	assert.Equal(t, []string{"water", "night"}, created.Tags)
	assert.Equal(t, "22:30", *created.ClosingTime)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositoryImpl_CreateBulk(t *testing.T) {
	t.Run("commits all rows", func(t *testing.T) {
		repo, pool := newMockRepo(t)
		a, b := samplePlace(), samplePlace()

		pool.ExpectBegin()
		pool.ExpectQuery("INSERT INTO places").WithArgs(anyArgs(15)...).
			WillReturnRows(pgxmock.NewRows(placeColumnNames).AddRow(placeRow(a)...))
		pool.ExpectQuery("INSERT INTO places").WithArgs(anyArgs(15)...).
			WillReturnRows(pgxmock.NewRows(placeColumnNames).AddRow(placeRow(b)...))
		pool.ExpectCommit()

		created, err := repo.CreateBulk(context.Background(), []types.Place{a, b})
		require.NoError(t, err)
		require.Len(t, created, 2)
		assert.Equal(t, b.ID, created[1].ID)
		require.NoError(t, pool.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		repo, pool := newMockRepo(t)
		a := samplePlace()

		pool.ExpectBegin()
		pool.ExpectQuery("INSERT INTO places").WithArgs(anyArgs(15)...).
			WillReturnError(errors.New("violates check constraint"))
		pool.ExpectRollback()

		_, err := repo.CreateBulk(context.Background(), []types.Place{a, a})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "place 0")
		require.NoError(t, pool.ExpectationsWereMet())
	})
}

func TestRepositoryImpl_FindByID(t *testing.T) {
	query := regexp.QuoteMeta("FROM places WHERE id = $1 AND deleted_at IS NULL")

	t.Run("found", func(t *testing.T) {
		repo, pool := newMockRepo(t)
		p := samplePlace()
		pool.ExpectQuery(query).WithArgs(p.ID).
			WillReturnRows(pgxmock.NewRows(placeColumnNames).AddRow(placeRow(p)...))

		got, err := repo.FindByID(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.Name, got.Name)
		assert.Equal(t, []string{"monday"}, got.ClosedDays)
	})

	t.Run("not found", func(t *testing.T) {
		repo, pool := newMockRepo(t)
		id := uuid.New()
		pool.ExpectQuery(query).WithArgs(id).WillReturnError(pgx.ErrNoRows)

		_, err := repo.FindByID(context.Background(), id)
		require.ErrorIs(t, err, types.ErrNotFound)
	})
}

func TestRepositoryImpl_List(t *testing.T) {
	repo, pool := newMockRepo(t)
	p := samplePlace()
	hidden := true

	where := `WHERE deleted_at IS NULL AND LOWER(name) LIKE $1 AND LOWER(category) = $2 AND LOWER(array_to_string(tags, ',')) LIKE $3 AND is_hidden_gem = $4`
	pool.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM places "+where)).
		WithArgs(`%50\%%`, "park", "%water%", true).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(21))
	pool.ExpectQuery(regexp.QuoteMeta(where+" ORDER BY name DESC, id ASC LIMIT 10 OFFSET 20")).
		WithArgs(`%50\%%`, "park", "%water%", true).
		WillReturnRows(pgxmock.NewRows(placeColumnNames).AddRow(placeRow(p)...))

	rows, total, err := repo.List(context.Background(), ListQuery{
		Search:      "50%",
		Category:    "Park",
		Tags:        []string{"Water"},
		IsHiddenGem: &hidden,
		SortColumn:  "name",
		Descending:  true,
		Limit:       10,
		Offset:      20,
	})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, rows, 1)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositoryImpl_ListCandidates(t *testing.T) {
	repo, pool := newMockRepo(t)
	box := geo.BoundingBox{MinLat: -1, MaxLat: 1, MinLon: -2, MaxLon: 2}

	pool.ExpectQuery(regexp.QuoteMeta("WHERE deleted_at IS NULL AND (latitude >= $1 AND latitude <= $2 AND longitude >= $3 AND longitude <= $4) ORDER BY created_at DESC, id ASC")).
		WithArgs(-1.0, 1.0, -2.0, 2.0).
		WillReturnRows(pgxmock.NewRows(placeColumnNames))

	rows, err := repo.ListCandidates(context.Background(), ListQuery{Limit: 5}, &box)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositoryImpl_Update(t *testing.T) {
	repo, pool := newMockRepo(t)
	p := samplePlace()
	p.OpeningTime = nil

	pool.ExpectQuery(regexp.QuoteMeta("UPDATE places SET updated_at = NOW(), name = $1, opening_time = $2 WHERE id = $3 AND deleted_at IS NULL RETURNING")).
		WithArgs("Renamed", nil, p.ID).
		WillReturnRows(pgxmock.NewRows(placeColumnNames).AddRow(placeRow(p)...))

	got, err := repo.Update(context.Background(), p.ID, types.UpdatePlaceRequest{Name: ptr("Renamed"), OpeningTime: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, got.OpeningTime)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositoryImpl_UpdateClearsImageURL(t *testing.T) {
	repo, pool := newMockRepo(t)
	p := samplePlace()
	p.ImageURL = nil

	pool.ExpectQuery(regexp.QuoteMeta("UPDATE places SET updated_at = NOW(), image_url = $1 WHERE id = $2 AND deleted_at IS NULL RETURNING")).
		WithArgs(nil, p.ID).
		WillReturnRows(pgxmock.NewRows(placeColumnNames).AddRow(placeRow(p)...))

	got, err := repo.Update(context.Background(), p.ID, types.UpdatePlaceRequest{ImageURL: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, got.ImageURL)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositoryImpl_SoftDelete(t *testing.T) {
	query := regexp.QuoteMeta("UPDATE places SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL")

	t.Run("deleted", func(t *testing.T) {
		repo, pool := newMockRepo(t)
		id := uuid.New()
		pool.ExpectExec(query).WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		require.NoError(t, repo.SoftDelete(context.Background(), id))
	})

	t.Run("already deleted or missing", func(t *testing.T) {
		repo, pool := newMockRepo(t)
		id := uuid.New()
		pool.ExpectExec(query).WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		require.ErrorIs(t, repo.SoftDelete(context.Background(), id), types.ErrNotFound)
	})
}

func TestRepositoryImpl_HardDeleteAll(t *testing.T) {
	repo, pool := newMockRepo(t)
	pool.ExpectExec(regexp.QuoteMeta("DELETE FROM places")).WillReturnResult(pgxmock.NewResult("DELETE", 42))

	n, err := repo.HardDeleteAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestRepositoryImpl_Lookups(t *testing.T) {
	repo, pool := newMockRepo(t)
	pool.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT category FROM places")).
		WillReturnRows(pgxmock.NewRows([]string{"category"}).AddRow("museum").AddRow("park"))
	pool.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT tag FROM places, unnest(tags) AS tag")).
		WillReturnRows(pgxmock.NewRows([]string{"tag"}).AddRow("art"))

	cats, err := repo.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"museum", "park"}, cats)

	tags, err := repo.Tags(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"art"}, tags)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestRepositoryImpl_SetNarrative(t *testing.T) {
	repo, pool := newMockRepo(t)
	id := uuid.New()
	doc, store := "files/abc", "store-1"

	pool.ExpectExec(regexp.QuoteMeta("UPDATE places SET narrative_document_id = $2")).
		WithArgs(id, &doc, &store).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec(regexp.QuoteMeta("UPDATE places SET narrative_document_id = $2")).
		WithArgs(id, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.SetNarrative(context.Background(), id, &doc, &store))
	require.ErrorIs(t, repo.SetNarrative(context.Background(), id, nil, nil), types.ErrNotFound)
	require.NoError(t, pool.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%\_a\\b`, escapeLike(`100%_a\b`))
}
