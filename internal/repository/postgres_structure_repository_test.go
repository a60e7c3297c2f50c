package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
)

func newStructureRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return sqlxDB, mock, func() {
		sqlxDB.Close()
		db.Close()
	}
}

func sampleStructure() *models.CourseStructure {
	two := 2
	return &models.CourseStructure{
		CourseID: "42",
		Categories: []models.GradingCategory{{
			ID:     10,
			Name:   "Homework",
			Weight: 40,
			Rules:  models.DropRules{DropLowest: &two, NeverDrop: []int64{101}},
			Assignments: []models.AssignmentDefinition{
				{ID: 101, Name: "HW1", PointsPossible: 10},
				{ID: 102, Name: "HW2", PointsPossible: 10},
			},
		}},
		Roster:    []models.Student{{ID: 9, Name: "Ada Lovelace", SortableName: "Lovelace, Ada"}},
		FetchedAt: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPostgresStructureRepositorySave(t *testing.T) {
	db, mock, cleanup := newStructureRepoMock(t)
	defer cleanup()

	repo := NewPostgresStructureRepository(db)
	mock.ExpectQuery("INSERT INTO course_structures").
		WithArgs("42", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(3))

	version, err := repo.Save(context.Background(), sampleStructure())
	require.NoError(t, err)
	assert.Equal(t, int64(3), version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStructureRepositoryLoad(t *testing.T) {
	db, mock, cleanup := newStructureRepoMock(t)
	defer cleanup()

	structure := sampleStructure()
	payload, err := json.Marshal(structure)
	require.NoError(t, err)

	repo := NewPostgresStructureRepository(db)
	rows := sqlmock.NewRows([]string{"course_id", "payload", "version", "fetched_at"}).
		AddRow("42", payload, 5, structure.FetchedAt)
	mock.ExpectQuery("SELECT course_id, payload, version, fetched_at FROM course_structures").
		WithArgs("42").
		WillReturnRows(rows)

	loaded, err := repo.Load(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, int64(5), loaded.Version)
	require.Len(t, loaded.Categories, 1)
	assert.Equal(t, []int64{101}, loaded.Categories[0].Rules.NeverDrop)
	assert.Equal(t, 2, *loaded.Categories[0].Rules.DropLowest)
	assert.Nil(t, loaded.Categories[0].Rules.DropHighest)
}

func TestPostgresStructureRepositoryLoadMissing(t *testing.T) {
	db, mock, cleanup := newStructureRepoMock(t)
	defer cleanup()

	repo := NewPostgresStructureRepository(db)
	mock.ExpectQuery("SELECT course_id, payload").
		WithArgs("404").
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "payload", "version", "fetched_at"}))

	_, err := repo.Load(context.Background(), "404")
	require.ErrorIs(t, err, appErrors.ErrStructureMissing)
}

func TestPostgresStructureRepositoryEnsureSchema(t *testing.T) {
	db, mock, cleanup := newStructureRepoMock(t)
	defer cleanup()

	repo := NewPostgresStructureRepository(db)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS course_structures").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.EnsureSchema(context.Background()))
}
