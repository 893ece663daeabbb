package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

// TransactionInput is the user-facing shape of a new transaction. Amount and
// date are text so that parsing errors surface as validation errors.
type TransactionInput struct {
	Amount        string            `json:"amount" validate:"required"`
	Description   string            `json:"description" validate:"required,max=500"`
	EntryType     string            `json:"entry_type" validate:"required,oneof=INCOME EXPENSES ADJUST"`
	Date          string            `json:"transaction_date"`
	FromAccountID string            `json:"from_account_id"`
	ToAccountID   string            `json:"to_account_id"`
	CategoryID    string            `json:"category_id"`
	Status        string            `json:"status" validate:"omitempty,oneof=PENDING COMPLETED CANCELLED"`
	AddedBy       string            `json:"added_by" validate:"omitempty,oneof=MANUAL AI 3RDPARTY API IMPORT OTHER AUTO"`
	Attachments   []string          `json:"attachments" validate:"omitempty,max=10,dive,url"`
	Metadata      map[string]string `json:"metadata"`
}

// TransferInput moves Amount from one account to another.
type TransferInput struct {
	Amount        string `json:"amount" validate:"required"`
	Description   string `json:"description" validate:"max=500"`
	Date          string `json:"transaction_date"`
	FromAccountID string `json:"from_account_id" validate:"required"`
	ToAccountID   string `json:"to_account_id" validate:"required,nefield=FromAccountID"`
}

// TransferResult holds what CreateTransfer managed to persist. On error it
// may be partially filled.
type TransferResult struct {
	Contra core.Transaction   `json:"contra"`
	Legs   []core.Transaction `json:"legs"`
}

// TransactionService validates user input and writes transactions.
type TransactionService struct {
	store        store.DataStore
	validate     *validator.Validate
	transferLegs bool
	now          func() time.Time
}

type TransactionOption func(*TransactionService)

// WithTransferLegs toggles materialization of the INCOME/EXPENSES legs of a
// transfer. Enabled by default.
func WithTransferLegs(enabled bool) TransactionOption {
	return func(s *TransactionService) { s.transferLegs = enabled }
}

// WithClock sets the clock used for the default transaction date.
func WithClock(now func() time.Time) TransactionOption {
	return func(s *TransactionService) { s.now = now }
}

func NewTransactionService(s store.DataStore, opts ...TransactionOption) *TransactionService {
	svc := &TransactionService{
		store:        s,
		validate:     newValidator(),
		transferLegs: true,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// CreateTransaction validates in, fills the default account for the entry
// type from the owner's preference when none was given, checks that every
// reference exists and persists the row.
func (s *TransactionService) CreateTransaction(ctx context.Context, ownerID string, in TransactionInput) (core.Transaction, error) {
	if strings.TrimSpace(ownerID) == "" {
		return core.Transaction{}, core.Validation("owner_id", core.ErrEmptyOwner.Error())
	}
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return core.Transaction{}, validationError(err)
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := s.parseDate(in.Date)
	if err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		OwnerID:       ownerID,
		FromAccountID: strings.TrimSpace(in.FromAccountID),
		ToAccountID:   strings.TrimSpace(in.ToAccountID),
		CategoryID:    strings.TrimSpace(in.CategoryID),
		Amount:        amount,
		Description:   strings.TrimSpace(in.Description),
		Attachments:   in.Attachments,
		Date:          date,
		EntryType:     core.EntryType(in.EntryType),
		AddedBy:       core.Provenance(in.AddedBy),
		Status:        core.TransactionStatus(in.Status),
		Metadata:      in.Metadata,
	}

	if err := s.fillDefaultAccount(ctx, &t); err != nil {
		return core.Transaction{}, err
	}
	if err := s.checkReferences(ctx, t); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, ownerID, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction created",
		"owner_id", ownerID,
		"transaction_id", created.ID,
		"entry_type", created.EntryType)
	return created, nil
}

// CreateTransfer persists a CONTRA row and, when enabled, its two legs. The
// writes are independent: a failure after the CONTRA leaves the rows already
// written in place and returns them with the error.
func (s *TransactionService) CreateTransfer(ctx context.Context, ownerID string, in TransferInput) (TransferResult, error) {
	var res TransferResult
	if strings.TrimSpace(ownerID) == "" {
		return res, core.Validation("owner_id", core.ErrEmptyOwner.Error())
	}
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return res, validationError(err)
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return res, err
	}
	date, err := s.parseDate(in.Date)
	if err != nil {
		return res, err
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = core.TransferLegDescription
	}

	contra := core.Transaction{
		OwnerID:       ownerID,
		FromAccountID: strings.TrimSpace(in.FromAccountID),
		ToAccountID:   strings.TrimSpace(in.ToAccountID),
		Amount:        amount,
		Description:   description,
		Date:          date,
		EntryType:     core.EntryContra,
		AddedBy:       core.AddedManual,
		Status:        core.StatusCompleted,
	}
	if _, err := core.ExpandTransfer(contra); err != nil {
		return res, err
	}
	if err := s.checkReferences(ctx, contra); err != nil {
		return res, err
	}

	res.Contra, err = s.store.CreateTransaction(ctx, ownerID, contra)
	if err != nil {
		return res, fmt.Errorf("create transfer: %w", err)
	}
	if !s.transferLegs {
		return res, nil
	}

	rows, err := core.ExpandTransfer(res.Contra)
	if err != nil {
		return res, err
	}
	for _, leg := range rows[1:] {
		created, err := s.store.CreateTransaction(ctx, ownerID, leg)
		if err != nil {
			slog.ErrorContext(ctx, "Transfer leg not written",
				"owner_id", ownerID,
				"transfer_id", res.Contra.ID,
				"entry_type", leg.EntryType,
				"error", err)
			return res, core.PartialFailure("create transfer leg "+string(leg.EntryType), err)
		}
		res.Legs = append(res.Legs, created)
	}

	slog.InfoContext(ctx, "Transfer created",
		"owner_id", ownerID,
		"transfer_id", res.Contra.ID,
		"legs", len(res.Legs))
	return res, nil
}

func (s *TransactionService) parseDate(in string) (core.Date, error) {
	if strings.TrimSpace(in) == "" {
		return core.DateOf(s.now()), nil
	}
	return core.ParseDate(in)
}

func (s *TransactionService) fillDefaultAccount(ctx context.Context, t *core.Transaction) error {
	needIncome := t.EntryType == core.EntryIncome && t.ToAccountID == ""
	needExpense := t.EntryType == core.EntryExpenses && t.FromAccountID == ""
	if !needIncome && !needExpense {
		return nil
	}
	pref, err := s.store.FindPreference(ctx, t.OwnerID)
	if err != nil {
		return fmt.Errorf("load preference: %w", err)
	}
	if pref == nil {
		return nil
	}
	if needIncome {
		t.ToAccountID = pref.DefaultIncomeAccountID
	}
	if needExpense {
		t.FromAccountID = pref.DefaultExpenseAccountID
	}
	return nil
}

func (s *TransactionService) checkReferences(ctx context.Context, t core.Transaction) error {
	for _, id := range []string{t.FromAccountID, t.ToAccountID} {
		if id == "" {
			continue
		}
		a, err := s.store.FindAccount(ctx, t.OwnerID, id)
		if err != nil {
			return fmt.Errorf("load account: %w", err)
		}
		if a == nil {
			return core.NotFound("account", id)
		}
	}
	if t.CategoryID == "" {
		return nil
	}
	c, err := s.store.FindCategory(ctx, t.OwnerID, t.CategoryID)
	if err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	if c == nil {
		return core.NotFound("category", t.CategoryID)
	}
	if want, ok := core.CategoryTypeFor(t.EntryType); ok && c.Type != want {
		return core.Validation("category_id", fmt.Sprintf("category type %s does not match entry type %s", c.Type, t.EntryType))
	}
	return nil
}
