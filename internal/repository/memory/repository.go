package memory

import (
	"context"
	"sync"

	"followup-tracker/internal/model"
	"followup-tracker/internal/repository"
)

// InMemorySnapshotRepository keeps the serialized snapshot so that loads
// never share pointers with the caller's state.
type InMemorySnapshotRepository struct {
	data  []byte
	mutex sync.RWMutex
}

func NewInMemorySnapshotRepository() *InMemorySnapshotRepository {
	return &InMemorySnapshotRepository{}
}

func (r *InMemorySnapshotRepository) Load(ctx context.Context) (*model.TrackedState, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if r.data == nil {
		return nil, repository.ErrSnapshotNotFound
	}
	return model.UnmarshalSnapshot(r.data)
}

func (r *InMemorySnapshotRepository) Save(ctx context.Context, state *model.TrackedState) error {
	data, err := model.MarshalSnapshot(state)
	if err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.data = data
	return nil
}

func (r *InMemorySnapshotRepository) Delete(ctx context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.data = nil
	return nil
}

// SetRaw replaces the stored bytes as-is, e.g. to simulate a corrupted snapshot.
func (r *InMemorySnapshotRepository) SetRaw(data []byte) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.data = append([]byte(nil), data...)
}
