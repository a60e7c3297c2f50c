package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
)

const courseStructuresSchema = `CREATE TABLE IF NOT EXISTS course_structures (
    course_id  TEXT PRIMARY KEY,
    payload    JSONB NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    fetched_at TIMESTAMPTZ NOT NULL
)`

type courseStructureRow struct {
	CourseID  string    `db:"course_id"`
	Payload   []byte    `db:"payload"`
	Version   int64     `db:"version"`
	FetchedAt time.Time `db:"fetched_at"`
}

// PostgresStructureRepository persists course structures in the course_structures table.
type PostgresStructureRepository struct {
	db *sqlx.DB
}

// NewPostgresStructureRepository constructs the repository.
func NewPostgresStructureRepository(db *sqlx.DB) *PostgresStructureRepository {
	return &PostgresStructureRepository{db: db}
}

// Backend names the storage kind.
func (r *PostgresStructureRepository) Backend() string {
	return "postgres"
}

// EnsureSchema creates the backing table when missing.
func (r *PostgresStructureRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, courseStructuresSchema); err != nil {
		return fmt.Errorf("ensure course_structures schema: %w", err)
	}
	return nil
}

// Save upserts the structure; every overwrite increments the row's version.
func (r *PostgresStructureRepository) Save(ctx context.Context, structure *models.CourseStructure) (int64, error) {
	if structure == nil || structure.CourseID == "" {
		return 0, fmt.Errorf("save course structure: course id required")
	}
	payload, err := json.Marshal(structure)
	if err != nil {
		return 0, fmt.Errorf("marshal course structure %s: %w", structure.CourseID, err)
	}
	fetchedAt := structure.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	const query = `INSERT INTO course_structures (course_id, payload, version, fetched_at)
VALUES ($1, $2, 1, $3)
ON CONFLICT (course_id)
DO UPDATE SET payload = EXCLUDED.payload, version = course_structures.version + 1, fetched_at = EXCLUDED.fetched_at
RETURNING version`

	var version int64
	if err := r.db.QueryRowxContext(ctx, query, structure.CourseID, payload, fetchedAt).Scan(&version); err != nil {
		return 0, fmt.Errorf("upsert course structure: %w", err)
	}
	return version, nil
}

// Load returns the stored structure or ErrStructureMissing.
func (r *PostgresStructureRepository) Load(ctx context.Context, courseID string) (*models.CourseStructure, error) {
	const query = `SELECT course_id, payload, version, fetched_at FROM course_structures WHERE course_id = $1`

	var row courseStructureRow
	if err := r.db.GetContext(ctx, &row, query, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStructureMissing
		}
		return nil, fmt.Errorf("load course structure: %w", err)
	}

	var structure models.CourseStructure
	if err := json.Unmarshal(row.Payload, &structure); err != nil {
		return nil, fmt.Errorf("unmarshal course structure %s: %w", courseID, err)
	}
	structure.CourseID = row.CourseID
	structure.Version = row.Version
	structure.FetchedAt = row.FetchedAt
	return &structure, nil
}

// Close releases the database pool.
func (r *PostgresStructureRepository) Close() error {
	return r.db.Close()
}
