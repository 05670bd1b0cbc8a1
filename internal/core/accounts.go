package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/sales-ai-analyst/internal/logging"
	"github.com/JonMunkholm/sales-ai-analyst/internal/store"
)

// AccountStore persists account details.
type AccountStore interface {
	Get(ctx context.Context, email string) (store.Account, error)
	Upsert(ctx context.Context, acc store.Account) (store.Account, error)
}

// ValidateAccount checks the fields the account form marks as required.
func ValidateAccount(acc store.Account) error {
	var missing []string
	if strings.TrimSpace(acc.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(acc.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(acc.ShopName) == "" {
		missing = append(missing, "shopName")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s required", ErrAccountIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// GetAccount loads the account details for email.
func (s *Service) GetAccount(ctx context.Context, email string) (store.Account, error) {
	if s.accounts == nil {
		return store.Account{}, ErrAccountsUnavailable
	}
	acc, err := s.accounts.Get(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		logging.FromContext(ctx).Error("account lookup failed", "error", err)
	}
	return acc, err
}

// SaveAccount validates and stores account details for the signed-in user.
// The stored email is always the session's.
func (s *Service) SaveAccount(ctx context.Context, sessionID string, acc store.Account) (store.Account, error) {
	if s.accounts == nil {
		return store.Account{}, ErrAccountsUnavailable
	}
	view, err := s.Snapshot(sessionID)
	if err != nil {
		return store.Account{}, err
	}
	if view.Email == "" {
		return store.Account{}, ErrNotSignedIn
	}
	if acc.Email == "" {
		acc.Email = view.Email
	}
	if !strings.EqualFold(strings.TrimSpace(acc.Email), view.Email) {
		return store.Account{}, fmt.Errorf("%w: email must match the signed-in user", ErrAccountIncomplete)
	}
	if err := ValidateAccount(acc); err != nil {
		return store.Account{}, err
	}

	saved, err := s.accounts.Upsert(ctx, acc)
	if err != nil {
		sessionLogger(ctx, sessionID).Error("account save failed", "error", err)
		return store.Account{}, err
	}
	sessionLogger(ctx, sessionID).Info("account details saved")
	return saved, nil
}
