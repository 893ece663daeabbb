package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/store"
)

// Store implements store.Backend on top of a CollectionProvider.
type Store struct {
	provider CollectionProvider
	now      func() time.Time
}

var _ store.Backend = (*Store)(nil)

func NewStore(provider CollectionProvider) *Store {
	return &Store{provider: provider, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Store) coll(name string) Collection {
	return s.provider.Collection(name)
}

func byOwner(owner, id string) bson.M {
	return bson.M{"owner_id": owner, "_id": id}
}

func (s *Store) findOne(ctx context.Context, name string, filter bson.M, out any, op string) (bool, error) {
	err := s.coll(name).FindOne(ctx, filter, out)
	if errors.Is(err, ErrNoDocument) {
		return false, nil
	}
	if err != nil {
		return false, core.Backend(op, err)
	}
	return true, nil
}

func (s *Store) update(ctx context.Context, name string, filter bson.M, set bson.M, entity, id, op string) error {
	matched, err := s.coll(name).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return core.Backend(op, err)
	}
	if matched == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, name, entity, owner, id string) error {
	n, err := s.coll(name).DeleteOne(ctx, byOwner(owner, id))
	if err != nil {
		return core.Backend("delete "+entity, err)
	}
	if n == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}

// --- accounts ---

func (s *Store) ListAccounts(ctx context.Context, owner string) ([]core.Account, error) {
	var docs []accountDoc
	err := s.coll(accountsCollection).Find(ctx, bson.M{"owner_id": owner},
		FindOptions{Sort: bson.D{{Key: "created_at", Value: 1}}}, &docs)
	if err != nil {
		return nil, core.Backend("list accounts", err)
	}
	out := make([]core.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) FindAccount(ctx context.Context, owner, id string) (*core.Account, error) {
	var d accountDoc
	ok, err := s.findOne(ctx, accountsCollection, byOwner(owner, id), &d, "find account")
	if !ok || err != nil {
		return nil, err
	}
	a := d.model()
	return &a, nil
}

func (s *Store) CreateAccount(ctx context.Context, owner string, a core.Account) (core.Account, error) {
	a.OwnerID = owner
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = s.now()
	a.UpdatedAt = a.CreatedAt
	if err := s.coll(accountsCollection).InsertOne(ctx, newAccountDoc(a)); err != nil {
		return core.Account{}, core.Backend("create account", err)
	}
	return a, nil
}

func (s *Store) UpdateAccount(ctx context.Context, owner, id string, patch store.AccountPatch) (core.Account, error) {
	cur, err := s.FindAccount(ctx, owner, id)
	if err != nil {
		return core.Account{}, err
	}
	if cur == nil {
		return core.Account{}, core.NotFound("account", id)
	}
	a := *cur
	patch.Apply(&a)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.UpdatedAt = s.now()
	d := newAccountDoc(a)
	set := bson.M{
		"name": d.Name, "type": d.Type, "currency": d.Currency, "balance": d.Balance,
		"active": d.Active, "allow_delete": d.AllowDelete, "updated_at": d.UpdatedAt,
	}
	if err := s.update(ctx, accountsCollection, byOwner(owner, id), set, "account", id, "update account"); err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (s *Store) DeleteAccount(ctx context.Context, owner, id string) error {
	return s.delete(ctx, accountsCollection, "account", owner, id)
}

// --- categories ---

func (s *Store) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	var docs []categoryDoc
	err := s.coll(categoriesCollection).Find(ctx, bson.M{"owner_id": owner},
		FindOptions{Sort: bson.D{{Key: "created_at", Value: 1}}}, &docs)
	if err != nil {
		return nil, core.Backend("list categories", err)
	}
	out := make([]core.Category, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) FindCategory(ctx context.Context, owner, id string) (*core.Category, error) {
	var d categoryDoc
	ok, err := s.findOne(ctx, categoriesCollection, byOwner(owner, id), &d, "find category")
	if !ok || err != nil {
		return nil, err
	}
	c := d.model()
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, owner string, c core.Category) (core.Category, error) {
	c.OwnerID = owner
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	if err := s.coll(categoriesCollection).InsertOne(ctx, newCategoryDoc(c)); err != nil {
		return core.Category{}, core.Backend("create category", err)
	}
	return c, nil
}

func (s *Store) UpdateCategory(ctx context.Context, owner, id string, patch store.CategoryPatch) (core.Category, error) {
	cur, err := s.FindCategory(ctx, owner, id)
	if err != nil {
		return core.Category{}, err
	}
	if cur == nil {
		return core.Category{}, core.NotFound("category", id)
	}
	c := *cur
	patch.Apply(&c)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.UpdatedAt = s.now()
	set := bson.M{
		"parent_id": c.ParentID, "name": c.Name, "type": string(c.Type),
		"color": c.Color, "icon": c.Icon, "updated_at": c.UpdatedAt,
	}
	if err := s.update(ctx, categoriesCollection, byOwner(owner, id), set, "category", id, "update category"); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (s *Store) DeleteCategory(ctx context.Context, owner, id string) error {
	return s.delete(ctx, categoriesCollection, "category", owner, id)
}

// --- transactions ---

func transactionQuery(owner string, f store.TransactionFilter) bson.M {
	q := bson.M{"owner_id": owner}
	set := func(key, v string) {
		if v != "" {
			q[key] = v
		}
	}
	set("from_account_id", f.FromAccountID)
	set("to_account_id", f.ToAccountID)
	set("category_id", f.CategoryID)
	set("entry_type", string(f.EntryType))
	set("status", string(f.Status))
	set("added_by", string(f.AddedBy))
	if f.From.IsKnown() || f.To.IsKnown() {
		rng := bson.M{"$ne": ""}
		if f.From.IsKnown() {
			rng["$gte"] = f.From.String()
		}
		if f.To.IsKnown() {
			rng["$lte"] = f.To.String()
		}
		q["transaction_date"] = rng
	}
	return q
}

// ListTransactions sorts newest date first. Unknown dates are stored as the
// empty string and therefore come last.
func (s *Store) ListTransactions(ctx context.Context, owner string, f store.TransactionFilter) ([]core.Transaction, error) {
	var docs []transactionDoc
	opts := FindOptions{
		Sort:  bson.D{{Key: "transaction_date", Value: -1}, {Key: "created_at", Value: -1}},
		Skip:  int64(f.Offset),
		Limit: int64(f.Limit),
	}
	if err := s.coll(transactionsCollection).Find(ctx, transactionQuery(owner, f), opts, &docs); err != nil {
		return nil, core.Backend("list transactions", err)
	}
	out := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) FindTransaction(ctx context.Context, owner, id string) (*core.Transaction, error) {
	var d transactionDoc
	ok, err := s.findOne(ctx, transactionsCollection, byOwner(owner, id), &d, "find transaction")
	if !ok || err != nil {
		return nil, err
	}
	t := d.model()
	return &t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, owner string, t core.Transaction) (core.Transaction, error) {
	t.OwnerID = owner
	if t.Status == "" {
		t.Status = core.StatusCompleted
	}
	if t.AddedBy == "" {
		t.AddedBy = core.AddedManual
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = s.now()
	t.UpdatedAt = t.CreatedAt
	if err := s.coll(transactionsCollection).InsertOne(ctx, newTransactionDoc(t)); err != nil {
		return core.Transaction{}, core.Backend("create transaction", err)
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, owner, id string, patch store.TransactionPatch) (core.Transaction, error) {
	cur, err := s.FindTransaction(ctx, owner, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if cur == nil {
		return core.Transaction{}, core.NotFound("transaction", id)
	}
	t := *cur
	patch.Apply(&t)
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.UpdatedAt = s.now()
	d := newTransactionDoc(t)
	set := bson.M{
		"from_account_id": d.FromAccountID, "to_account_id": d.ToAccountID, "category_id": d.CategoryID,
		"amount": d.Amount, "description": d.Description, "transaction_date": d.Date,
		"entry_type": d.EntryType, "status": d.Status, "updated_at": d.UpdatedAt,
	}
	if err := s.update(ctx, transactionsCollection, byOwner(owner, id), set, "transaction", id, "update transaction"); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, owner, id string) error {
	return s.delete(ctx, transactionsCollection, "transaction", owner, id)
}

// --- preferences ---

func (s *Store) FindPreference(ctx context.Context, owner string) (*core.UserPreference, error) {
	var d preferenceDoc
	ok, err := s.findOne(ctx, preferencesCollection, bson.M{"_id": owner}, &d, "find preference")
	if !ok || err != nil {
		return nil, err
	}
	p := d.model()
	return &p, nil
}

func (s *Store) CreatePreference(ctx context.Context, owner string, p core.UserPreference) (core.UserPreference, error) {
	if owner == "" {
		return core.UserPreference{}, core.Validation("owner_id", core.ErrEmptyOwner.Error())
	}
	existing, err := s.FindPreference(ctx, owner)
	if err != nil {
		return core.UserPreference{}, err
	}
	if existing != nil {
		return core.UserPreference{}, core.Validation("owner_id", "preference already exists")
	}
	p.OwnerID = owner
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	if err := s.coll(preferencesCollection).InsertOne(ctx, newPreferenceDoc(p)); err != nil {
		return core.UserPreference{}, core.Backend("create preference", err)
	}
	return p, nil
}

func (s *Store) UpdatePreference(ctx context.Context, owner string, patch store.PreferencePatch) (core.UserPreference, error) {
	cur, err := s.FindPreference(ctx, owner)
	if err != nil {
		return core.UserPreference{}, err
	}
	if cur == nil {
		return core.UserPreference{}, core.NotFound("user_preference", owner)
	}
	p := *cur
	patch.Apply(&p)
	p.UpdatedAt = s.now()
	set := bson.M{
		"currency": p.Currency, "theme": p.Theme, "language": p.Language,
		"default_income_account_id":  p.DefaultIncomeAccountID,
		"default_expense_account_id": p.DefaultExpenseAccountID,
		"migration_completed":        p.MigrationCompleted,
		"updated_at":                 p.UpdatedAt,
	}
	if err := s.update(ctx, preferencesCollection, bson.M{"_id": owner}, set, "user_preference", owner, "update preference"); err != nil {
		return core.UserPreference{}, err
	}
	return p, nil
}

// ListCurrencies reads the currencies collection and falls back to the
// built-in catalogue when it has not been seeded.
func (s *Store) ListCurrencies(ctx context.Context) ([]core.Currency, error) {
	var docs []currencyDoc
	err := s.coll(currenciesCollection).Find(ctx, bson.M{},
		FindOptions{Sort: bson.D{{Key: "_id", Value: 1}}}, &docs)
	if err != nil {
		return nil, core.Backend("list currencies", err)
	}
	if len(docs) == 0 {
		return currency.Default().List(), nil
	}
	out := make([]core.Currency, 0, len(docs))
	for _, d := range docs {
		out = append(out, core.Currency{Code: d.Code, Symbol: d.Symbol, Precision: d.Precision})
	}
	return out, nil
}

// --- notifications, activity, archive ---

func (s *Store) CreateNotification(ctx context.Context, owner string, n core.Notification) (core.Notification, error) {
	if owner == "" {
		return core.Notification{}, core.Validation("owner_id", core.ErrEmptyOwner.Error())
	}
	n.OwnerID = owner
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	doc := notificationDoc{ID: n.ID, OwnerID: owner, Title: n.Title, Body: n.Body, Read: n.Read, CreatedAt: n.CreatedAt}
	if err := s.coll(notificationsCollection).InsertOne(ctx, doc); err != nil {
		return core.Notification{}, core.Backend("create notification", err)
	}
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, owner string, limit int) ([]core.Notification, error) {
	var docs []notificationDoc
	err := s.coll(notificationsCollection).Find(ctx, bson.M{"owner_id": owner},
		FindOptions{Sort: bson.D{{Key: "created_at", Value: -1}}, Limit: int64(limit)}, &docs)
	if err != nil {
		return nil, core.Backend("list notifications", err)
	}
	out := make([]core.Notification, 0, len(docs))
	for _, d := range docs {
		out = append(out, core.Notification{ID: d.ID, OwnerID: d.OwnerID, Title: d.Title, Body: d.Body, Read: d.Read, CreatedAt: d.CreatedAt})
	}
	return out, nil
}

func (s *Store) RecordActivity(ctx context.Context, e core.AuditEntry) error {
	change, err := core.EncodeChange(e.Change)
	if err != nil {
		return core.Backend("encode activity", err)
	}
	doc := activityDoc{
		ActorID: e.ActorID, Action: string(e.Action), Entity: string(e.Entity),
		EntityID: e.EntityID, Message: e.Message, Change: string(change), At: e.At,
	}
	return core.Backend("record activity", s.coll(activityCollection).InsertOne(ctx, doc))
}

func (s *Store) ArchiveRecord(ctx context.Context, r core.ArchivedRecord) error {
	snapshot, err := core.EncodeChange(r.Snapshot)
	if err != nil {
		return core.Backend("encode snapshot", err)
	}
	doc := archivedDoc{Table: r.Table, RecordID: r.RecordID, OwnerID: r.OwnerID, Snapshot: string(snapshot), DeletedAt: r.DeletedAt}
	return core.Backend("archive record", s.coll(archiveCollection).InsertOne(ctx, doc))
}
