package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"

	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/store"
)

// PreferenceInput is what signup supplies. Empty fields take defaults.
type PreferenceInput struct {
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
	Theme    string `json:"theme" validate:"omitempty,oneof=light dark system"`
	Language string `json:"language" validate:"omitempty,bcp47_language_tag"`
}

// PreferenceService creates the preference row that marks a user as known
// to the provisioning engine. Accounts and categories are left to
// provisioning.
type PreferenceService struct {
	store           store.PreferenceStore
	validate        *validator.Validate
	defaultCurrency string
}

func NewPreferenceService(s store.PreferenceStore, defaultCurrency string) *PreferenceService {
	if defaultCurrency == "" {
		defaultCurrency = "EUR"
	}
	return &PreferenceService{store: s, validate: newValidator(), defaultCurrency: defaultCurrency}
}

// CreatePreference fails with a validation error when the owner already has
// a preference row.
func (s *PreferenceService) CreatePreference(ctx context.Context, ownerID string, in PreferenceInput) (core.UserPreference, error) {
	if strings.TrimSpace(ownerID) == "" {
		return core.UserPreference{}, core.Validation("owner_id", core.ErrEmptyOwner.Error())
	}
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return core.UserPreference{}, validationError(err)
	}

	code := strings.ToUpper(strings.TrimSpace(in.Currency))
	if code == "" {
		code = s.defaultCurrency
	}
	if _, err := currency.Lookup(code); err != nil {
		return core.UserPreference{}, err
	}

	pref := core.UserPreference{
		Currency: code,
		Theme:    valueOr(in.Theme, "system"),
		Language: valueOr(in.Language, "en"),
	}
	created, err := s.store.CreatePreference(ctx, ownerID, pref)
	if err != nil {
		return core.UserPreference{}, err
	}
	slog.InfoContext(ctx, "Preference created", "owner_id", ownerID, "currency", created.Currency)
	return created, nil
}

func valueOr(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}
