package mongostore

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fintrack/internal/core"
)

type accountDoc struct {
	ID             string               `bson:"_id"`
	OwnerID        string               `bson:"owner_id"`
	Name           string               `bson:"name"`
	Type           string               `bson:"type"`
	Currency       string               `bson:"currency"`
	OpeningBalance primitive.Decimal128 `bson:"opening_balance"`
	Balance        primitive.Decimal128 `bson:"balance"`
	Active         bool                 `bson:"active"`
	AllowDelete    bool                 `bson:"allow_delete"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

type categoryDoc struct {
	ID             string               `bson:"_id"`
	OwnerID        string               `bson:"owner_id"`
	ParentID       string               `bson:"parent_id,omitempty"`
	Name           string               `bson:"name"`
	Type           string               `bson:"type"`
	OpeningBalance primitive.Decimal128 `bson:"opening_balance"`
	Color          string               `bson:"color"`
	Icon           string               `bson:"icon"`
	CreatedAt      time.Time            `bson:"created_at"`
	UpdatedAt      time.Time            `bson:"updated_at"`
}

type transactionDoc struct {
	ID            string               `bson:"_id"`
	OwnerID       string               `bson:"owner_id"`
	FromAccountID string               `bson:"from_account_id,omitempty"`
	ToAccountID   string               `bson:"to_account_id,omitempty"`
	CategoryID    string               `bson:"category_id,omitempty"`
	Amount        primitive.Decimal128 `bson:"amount"`
	Description   string               `bson:"description"`
	Attachments   []string             `bson:"attachments,omitempty"`
	// Date is YYYY-MM-DD, empty when unknown, so it sorts lexically.
	Date      string            `bson:"transaction_date"`
	EntryType string            `bson:"entry_type"`
	AddedBy   string            `bson:"added_by"`
	Status    string            `bson:"status"`
	Metadata  map[string]string `bson:"metadata,omitempty"`
	CreatedAt time.Time         `bson:"created_at"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

type preferenceDoc struct {
	OwnerID                 string    `bson:"_id"`
	Currency                string    `bson:"currency"`
	Theme                   string    `bson:"theme"`
	Language                string    `bson:"language"`
	DefaultIncomeAccountID  string    `bson:"default_income_account_id"`
	DefaultExpenseAccountID string    `bson:"default_expense_account_id"`
	MigrationCompleted      bool      `bson:"migration_completed"`
	CreatedAt               time.Time `bson:"created_at"`
	UpdatedAt               time.Time `bson:"updated_at"`
}

type currencyDoc struct {
	Code      string `bson:"_id"`
	Symbol    string `bson:"symbol"`
	Precision int    `bson:"precision"`
}

type notificationDoc struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"owner_id"`
	Title     string    `bson:"title"`
	Body      string    `bson:"body"`
	Read      bool      `bson:"read"`
	CreatedAt time.Time `bson:"created_at"`
}

type activityDoc struct {
	ActorID  string    `bson:"actor_id"`
	Action   string    `bson:"action"`
	Entity   string    `bson:"entity"`
	EntityID string    `bson:"entity_id"`
	Message  string    `bson:"message"`
	Change   string    `bson:"change"`
	At       time.Time `bson:"created_at"`
}

type archivedDoc struct {
	Table     string    `bson:"table_name"`
	RecordID  string    `bson:"record_id"`
	OwnerID   string    `bson:"owner_id"`
	Snapshot  string    `bson:"snapshot"`
	DeletedAt time.Time `bson:"deleted_at"`
}

func toDecimal128(d decimal.Decimal) primitive.Decimal128 {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.NewDecimal128(0, 0)
	}
	return v
}

func fromDecimal128(v primitive.Decimal128) decimal.Decimal {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

func newAccountDoc(a core.Account) accountDoc {
	return accountDoc{
		ID: a.ID, OwnerID: a.OwnerID, Name: a.Name, Type: string(a.Type), Currency: a.Currency,
		OpeningBalance: toDecimal128(a.OpeningBalance), Balance: toDecimal128(a.Balance),
		Active: a.Active, AllowDelete: a.AllowDelete, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

func (d accountDoc) model() core.Account {
	return core.Account{
		ID: d.ID, OwnerID: d.OwnerID, Name: d.Name, Type: core.AccountType(d.Type), Currency: d.Currency,
		OpeningBalance: fromDecimal128(d.OpeningBalance), Balance: fromDecimal128(d.Balance),
		Active: d.Active, AllowDelete: d.AllowDelete, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

func newCategoryDoc(c core.Category) categoryDoc {
	return categoryDoc{
		ID: c.ID, OwnerID: c.OwnerID, ParentID: c.ParentID, Name: c.Name, Type: string(c.Type),
		OpeningBalance: toDecimal128(c.OpeningBalance), Color: c.Color, Icon: c.Icon,
		CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

func (d categoryDoc) model() core.Category {
	return core.Category{
		ID: d.ID, OwnerID: d.OwnerID, ParentID: d.ParentID, Name: d.Name, Type: core.CategoryType(d.Type),
		OpeningBalance: fromDecimal128(d.OpeningBalance), Color: d.Color, Icon: d.Icon,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

func newTransactionDoc(t core.Transaction) transactionDoc {
	return transactionDoc{
		ID: t.ID, OwnerID: t.OwnerID, FromAccountID: t.FromAccountID, ToAccountID: t.ToAccountID,
		CategoryID: t.CategoryID, Amount: toDecimal128(t.Amount), Description: t.Description,
		Attachments: t.Attachments, Date: t.Date.String(), EntryType: string(t.EntryType),
		AddedBy: string(t.AddedBy), Status: string(t.Status), Metadata: t.Metadata,
		CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

func (d transactionDoc) model() core.Transaction {
	return core.Transaction{
		ID: d.ID, OwnerID: d.OwnerID, FromAccountID: d.FromAccountID, ToAccountID: d.ToAccountID,
		CategoryID: d.CategoryID, Amount: fromDecimal128(d.Amount), Description: d.Description,
		Attachments: d.Attachments, Date: core.ParseDateLenient(d.Date), EntryType: core.EntryType(d.EntryType),
		AddedBy: core.Provenance(d.AddedBy), Status: core.TransactionStatus(d.Status), Metadata: d.Metadata,
		CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

func newPreferenceDoc(p core.UserPreference) preferenceDoc {
	return preferenceDoc{
		OwnerID: p.OwnerID, Currency: p.Currency, Theme: p.Theme, Language: p.Language,
		DefaultIncomeAccountID: p.DefaultIncomeAccountID, DefaultExpenseAccountID: p.DefaultExpenseAccountID,
		MigrationCompleted: p.MigrationCompleted, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
	}
}

func (d preferenceDoc) model() core.UserPreference {
	return core.UserPreference{
		OwnerID: d.OwnerID, Currency: d.Currency, Theme: d.Theme, Language: d.Language,
		DefaultIncomeAccountID: d.DefaultIncomeAccountID, DefaultExpenseAccountID: d.DefaultExpenseAccountID,
		MigrationCompleted: d.MigrationCompleted, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}
