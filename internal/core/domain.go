package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountCash       AccountType = "CASH"
	AccountBank       AccountType = "BANK"
	AccountCredit     AccountType = "CREDIT"
	AccountInvestment AccountType = "INVESTMENT"

	CategoryIncome   CategoryType = "INCOME"
	CategoryExpense  CategoryType = "EXPENSE"
	CategoryTransfer CategoryType = "TRANSFER"

	EntryIncome   EntryType = "INCOME"
	EntryExpenses EntryType = "EXPENSES"
	EntryAdjust   EntryType = "ADJUST"
	EntryContra   EntryType = "CONTRA"

	AddedManual     Provenance = "MANUAL"
	AddedAI         Provenance = "AI"
	AddedThirdParty Provenance = "3RDPARTY"
	AddedAPI        Provenance = "API"
	AddedImport     Provenance = "IMPORT"
	AddedOther      Provenance = "OTHER"
	AddedAuto       Provenance = "AUTO"
	AddedTransfer   Provenance = "TRANSFER"

	StatusPending   TransactionStatus = "PENDING"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusCancelled TransactionStatus = "CANCELLED"
)

type (
	AccountType       string
	CategoryType      string
	EntryType         string
	Provenance        string
	TransactionStatus string

	Account struct {
		ID             string          `json:"id"`
		OwnerID        string          `json:"owner_id"`
		Name           string          `json:"name"`
		Type           AccountType     `json:"type"`
		Currency       string          `json:"currency"`
		OpeningBalance decimal.Decimal `json:"opening_balance"`
		// Balance is maintained by whatever writes transactions and may drift;
		// reports derive balances from history instead.
		Balance     decimal.Decimal `json:"balance"`
		Active      bool            `json:"active"`
		AllowDelete bool            `json:"allow_delete"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}

	Category struct {
		ID             string          `json:"id"`
		OwnerID        string          `json:"owner_id"`
		ParentID       string          `json:"parent_id,omitempty"`
		Name           string          `json:"name"`
		Type           CategoryType    `json:"type"`
		OpeningBalance decimal.Decimal `json:"opening_balance"`
		Color          string          `json:"color"`
		Icon           string          `json:"icon"`
		CreatedAt      time.Time       `json:"created_at"`
		UpdatedAt      time.Time       `json:"updated_at"`
	}

	// Transaction is one ledger row. Optional references (accounts, category)
	// are empty strings when unset. Amount is a magnitude; the direction comes
	// from EntryType.
	Transaction struct {
		ID            string            `json:"id"`
		OwnerID       string            `json:"owner_id"`
		FromAccountID string            `json:"from_account_id,omitempty"`
		ToAccountID   string            `json:"to_account_id,omitempty"`
		CategoryID    string            `json:"category_id,omitempty"`
		Amount        decimal.Decimal   `json:"amount"`
		Description   string            `json:"description"`
		Attachments   []string          `json:"attachments,omitempty"`
		Date          Date              `json:"transaction_date"`
		EntryType     EntryType         `json:"entry_type"`
		AddedBy       Provenance        `json:"added_by"`
		Status        TransactionStatus `json:"status"`
		Metadata      map[string]string `json:"metadata,omitempty"`
		CreatedAt     time.Time         `json:"created_at"`
		UpdatedAt     time.Time         `json:"updated_at"`
	}

	UserPreference struct {
		OwnerID                 string    `json:"owner_id"`
		Currency                string    `json:"currency"`
		Theme                   string    `json:"theme"`
		Language                string    `json:"language"`
		DefaultIncomeAccountID  string    `json:"default_income_account_id,omitempty"`
		DefaultExpenseAccountID string    `json:"default_expense_account_id,omitempty"`
		MigrationCompleted      bool      `json:"migration_completed"`
		CreatedAt               time.Time `json:"created_at"`
		UpdatedAt               time.Time `json:"updated_at"`
	}

	Currency struct {
		Code      string `json:"code"`
		Symbol    string `json:"symbol"`
		Precision int    `json:"precision"`
	}

	Notification struct {
		ID        string    `json:"id"`
		OwnerID   string    `json:"owner_id"`
		Title     string    `json:"title"`
		Body      string    `json:"body"`
		Read      bool      `json:"read"`
		CreatedAt time.Time `json:"created_at"`
	}
)

var (
	ErrEmptyOwner       = errors.New("empty owner")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidAmount    = errors.New("invalid amount")
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountCash, AccountBank, AccountCredit, AccountInvestment:
		return true
	}
	return false
}

func (t CategoryType) IsValid() bool {
	switch t {
	case CategoryIncome, CategoryExpense, CategoryTransfer:
		return true
	}
	return false
}

func (t EntryType) IsValid() bool {
	switch t {
	case EntryIncome, EntryExpenses, EntryAdjust, EntryContra:
		return true
	}
	return false
}

// Sign returns +1 for income and -1 for every other entry type.
func (t EntryType) Sign() int {
	if t == EntryIncome {
		return 1
	}
	return -1
}

func (p Provenance) IsValid() bool {
	switch p {
	case AddedManual, AddedAI, AddedThirdParty, AddedAPI, AddedImport, AddedOther, AddedAuto, AddedTransfer:
		return true
	}
	return false
}

func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CategoryTypeFor returns the category type that pairs with an entry type.
// ADJUST and CONTRA have no pairing.
func CategoryTypeFor(t EntryType) (CategoryType, bool) {
	switch t {
	case EntryIncome:
		return CategoryIncome, true
	case EntryExpenses:
		return CategoryExpense, true
	}
	return "", false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.OwnerID) == "" {
		return Validation("owner_id", ErrEmptyOwner.Error())
	}
	if strings.TrimSpace(a.Name) == "" {
		return Validation("name", ErrEmptyName.Error())
	}
	if !a.Type.IsValid() {
		return Validation("type", "unknown account type "+string(a.Type))
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.OwnerID) == "" {
		return Validation("owner_id", ErrEmptyOwner.Error())
	}
	if strings.TrimSpace(c.Name) == "" {
		return Validation("name", ErrEmptyName.Error())
	}
	if !c.Type.IsValid() {
		return Validation("type", "unknown category type "+string(c.Type))
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.OwnerID) == "" {
		return Validation("owner_id", ErrEmptyOwner.Error())
	}
	if t.Amount.IsNegative() {
		return Validation("amount", ErrInvalidAmount.Error())
	}
	if !t.EntryType.IsValid() {
		return Validation("entry_type", "unknown entry type "+string(t.EntryType))
	}
	if t.AddedBy != "" && !t.AddedBy.IsValid() {
		return Validation("added_by", "unknown provenance "+string(t.AddedBy))
	}
	if t.Status != "" && !t.Status.IsValid() {
		return Validation("status", "unknown status "+string(t.Status))
	}
	if len(t.Description) > 500 {
		return Validation("description", "too long (max 500 characters)")
	}
	return nil
}
