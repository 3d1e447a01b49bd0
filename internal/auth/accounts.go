package auth

import (
	"fmt"
	"sync"

	"codegate/internal/config"
	"codegate/pkg/models"
)

// Accounts is the runtime account table. Accounts are loaded once from
// configuration and never added or removed while the process runs; only
// the enabled flag is mutable, under admin control.
type Accounts struct {
	mu      sync.RWMutex
	order   []string
	byName  map[string]*models.Account
}

// NewAccounts builds the account table from configuration entries.
func NewAccounts(entries []config.AccountEntry) (*Accounts, error) {
	a := &Accounts{byName: make(map[string]*models.Account, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("account with empty name")
		}
		if _, ok := a.byName[e.Name]; ok {
			return nil, fmt.Errorf("duplicate account %q", e.Name)
		}
		role := models.Role(e.Role)
		if role != models.RoleAdmin && role != models.RoleUser {
			return nil, fmt.Errorf("account %q has unknown role %q", e.Name, e.Role)
		}
		a.byName[e.Name] = &models.Account{
			Name:    e.Name,
			Email:   e.Email,
			Role:    role,
			Enabled: e.Enabled,
		}
		a.order = append(a.order, e.Name)
	}
	return a, nil
}

// Get returns a snapshot of the named account.
func (a *Accounts) Get(name string) (*models.Account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	acct, ok := a.byName[name]
	if !ok {
		return nil, false
	}
	copied := *acct
	return &copied, true
}

// List returns snapshots of all accounts in configuration order.
func (a *Accounts) List() []*models.Account {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*models.Account, 0, len(a.order))
	for _, name := range a.order {
		copied := *a.byName[name]
		out = append(out, &copied)
	}
	return out
}

// SetEnabled flips the enabled flag for an account.
func (a *Accounts) SetEnabled(name string, enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	acct, ok := a.byName[name]
	if !ok {
		return ErrUnknownAccount
	}
	acct.Enabled = enabled
	return nil
}
