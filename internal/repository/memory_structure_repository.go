package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/noah-isme/canvas-gradebook/internal/models"
	appErrors "github.com/noah-isme/canvas-gradebook/pkg/errors"
)

// MemoryStructureRepository keeps course structures in process memory. Values
// are stored serialised so callers never share mutable state with the store.
type MemoryStructureRepository struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	payload []byte
	version int64
}

// NewMemoryStructureRepository constructs an empty repository.
func NewMemoryStructureRepository() *MemoryStructureRepository {
	return &MemoryStructureRepository{entries: make(map[string]memoryEntry)}
}

// Backend names the storage kind.
func (r *MemoryStructureRepository) Backend() string {
	return "memory"
}

// Save overwrites the course's structure and returns its new version.
func (r *MemoryStructureRepository) Save(ctx context.Context, structure *models.CourseStructure) (int64, error) {
	if structure == nil || structure.CourseID == "" {
		return 0, fmt.Errorf("save course structure: course id required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	version := r.entries[structure.CourseID].version + 1
	clone := *structure
	clone.Version = version
	payload, err := json.Marshal(clone)
	if err != nil {
		return 0, fmt.Errorf("marshal course structure %s: %w", structure.CourseID, err)
	}
	r.entries[structure.CourseID] = memoryEntry{payload: payload, version: version}
	return version, nil
}

// Load returns the latest structure for the course.
func (r *MemoryStructureRepository) Load(ctx context.Context, courseID string) (*models.CourseStructure, error) {
	r.mu.RLock()
	entry, ok := r.entries[courseID]
	r.mu.RUnlock()
	if !ok {
		return nil, appErrors.ErrStructureMissing
	}

	var structure models.CourseStructure
	if err := json.Unmarshal(entry.payload, &structure); err != nil {
		return nil, fmt.Errorf("unmarshal course structure %s: %w", courseID, err)
	}
	return &structure, nil
}

// Close is a no-op.
func (r *MemoryStructureRepository) Close() error {
	return nil
}
