package bolt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"followup-tracker/internal/model"
	"followup-tracker/internal/repository"
)

var snapshotBucket = []byte("Snapshots")

// BoltSnapshotRepository stores the snapshot in a single bbolt bucket.
type BoltSnapshotRepository struct {
	db *bbolt.DB
}

// Open creates (if needed) and opens the database file at path.
func Open(path string) (*BoltSnapshotRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(snapshotBucket); err != nil {
			return fmt.Errorf("create bucket %s: %w", snapshotBucket, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltSnapshotRepository{db: db}, nil
}

func (r *BoltSnapshotRepository) Close() error {
	return r.db.Close()
}

func (r *BoltSnapshotRepository) Load(ctx context.Context) (*model.TrackedState, error) {
	var data []byte
	err := r.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(snapshotBucket).Get([]byte(repository.SnapshotKey)); v != nil {
			// v is only valid inside the transaction
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, repository.ErrSnapshotNotFound
	}
	return model.UnmarshalSnapshot(data)
}

func (r *BoltSnapshotRepository) Save(ctx context.Context, state *model.TrackedState) error {
	data, err := model.MarshalSnapshot(state)
	if err != nil {
		return err
	}
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put([]byte(repository.SnapshotKey), data)
	})
}

func (r *BoltSnapshotRepository) Delete(ctx context.Context) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(snapshotBucket).Delete([]byte(repository.SnapshotKey))
	})
}

// PutRaw writes bytes under the snapshot key without encoding them.
func (r *BoltSnapshotRepository) PutRaw(data []byte) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(snapshotBucket).Put([]byte(repository.SnapshotKey), data)
	})
}
