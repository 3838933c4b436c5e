package memory

import (
	"context"
	"sync"

	"followup-tracker/internal/model"
	"followup-tracker/internal/repository"
)

type InMemoryAccountRepository struct {
	accounts map[string]*model.Account
	mutex    sync.RWMutex
}

func NewInMemoryAccountRepository() *InMemoryAccountRepository {
	return &InMemoryAccountRepository{
		accounts: make(map[string]*model.Account),
	}
}

func (r *InMemoryAccountRepository) Save(ctx context.Context, account *model.Account) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for id, existing := range r.accounts {
		if existing.ProviderID == account.ProviderID && id != account.ID {
			delete(r.accounts, id)
		}
	}
	copied := *account
	r.accounts[account.ID] = &copied
	return nil
}

func (r *InMemoryAccountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	account, exists := r.accounts[id]
	if !exists {
		return nil, repository.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (r *InMemoryAccountRepository) FindByProviderID(ctx context.Context, providerID string) (*model.Account, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, account := range r.accounts {
		if account.ProviderID == providerID {
			copied := *account
			return &copied, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}
