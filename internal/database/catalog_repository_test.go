package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/smarttransit/seat-reservation-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCatalogRepo(t *testing.T) (*CatalogRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewCatalogRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func TestUpsertCountry_ReportsCreated(t *testing.T) {
	repo, mock := setupCatalogRepo(t)

	mock.ExpectQuery(`INSERT INTO countries`).
		WithArgs("Chile", "CL").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created"}).AddRow(int64(1), true))
	mock.ExpectQuery(`INSERT INTO countries`).
		WithArgs("Chile", "CL").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created"}).AddRow(int64(1), false))

	country, created, err := repo.UpsertCountry(context.Background(), "Chile", "cl")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "CL", country.Code)

	_, created, err = repo.UpsertCountry(context.Background(), "Chile", "CL")
	require.NoError(t, err)
	assert.False(t, created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchCities_EscapesWildcards(t *testing.T) {
	repo, mock := setupCatalogRepo(t)

	mock.ExpectQuery(`FROM cities c`).
		WithArgs(`%50\%%`, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}))

	results, err := repo.SearchCities(context.Background(), "50%", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
}

func TestSearchCities_Results(t *testing.T) {
	repo, mock := setupCatalogRepo(t)

	mock.ExpectQuery(`FROM cities c`).
		WithArgs("%san%", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "text"}).
			AddRow(int64(3), "Santiago, Region Metropolitana, Chile").
			AddRow(int64(9), "San Antonio, Valparaiso, Chile"))

	results, err := repo.SearchCities(context.Background(), "san", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Santiago, Region Metropolitana, Chile", results[0].Text)
}

func TestDeleteCity(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(mock sqlmock.Sqlmock)
		verify func(t *testing.T, err error)
	}{
		{
			name: "deleted",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM cities`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
			},
			verify: func(t *testing.T, err error) { assert.NoError(t, err) },
		},
		{
			name: "missing",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM cities`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			verify: func(t *testing.T, err error) { assert.True(t, domain.IsNotFound(err)) },
		},
		{
			name: "referenced by a route",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`DELETE FROM cities`).WithArgs(int64(4)).
					WillReturnError(&pq.Error{Code: "23503", Constraint: "routes_origin_city_id_fkey"})
			},
			verify: func(t *testing.T, err error) { assert.True(t, domain.IsConflict(err)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := setupCatalogRepo(t)
			tt.setup(mock)
			tt.verify(t, repo.DeleteCity(context.Background(), 4))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
