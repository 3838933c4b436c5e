package repository

import (
	"context"
	"errors"

	"followup-tracker/internal/model"
)

// SnapshotKey is the fixed logical name under which the state is stored.
const SnapshotKey = "followup_tracker_state"

// ErrSnapshotNotFound is returned by Load when nothing has been saved yet.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository persists the whole TrackedState as one blob. Save
// overwrites the previous snapshot.
type SnapshotRepository interface {
	Load(ctx context.Context) (*model.TrackedState, error)
	Save(ctx context.Context, state *model.TrackedState) error
	Delete(ctx context.Context) error
}

var ErrAccountNotFound = errors.New("account not found")

// AccountRepository stores the signed-in mailbox owner. Save creates or
// updates by provider id.
type AccountRepository interface {
	Save(ctx context.Context, account *model.Account) error
	FindByID(ctx context.Context, id string) (*model.Account, error)
	FindByProviderID(ctx context.Context, providerID string) (*model.Account, error)
}
