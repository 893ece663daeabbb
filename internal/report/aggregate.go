// Package report derives dashboard view models from already fetched
// transactions, categories and accounts. Nothing here performs I/O.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// DefaultRecentLimit is how many transactions Snapshot.RecentTransactions
// holds unless configured otherwise.
const DefaultRecentLimit = 10

var hundred = decimal.NewFromInt(100)

type (
	CategoryRank struct {
		Category core.Category `json:"category"`
		Count    int           `json:"transaction_count"`
	}

	AccountRank struct {
		Account core.Account    `json:"account"`
		Inflow  decimal.Decimal `json:"inflow"`
	}

	AmountFrequency struct {
		Amount decimal.Decimal `json:"amount"`
		Count  int             `json:"count"`
	}

	// CategorySummary is one row of the spending or income breakdown.
	// TrendPercentage is reserved and always 0.
	CategorySummary struct {
		Category         core.Category   `json:"category"`
		Total            decimal.Decimal `json:"total"`
		TransactionCount int             `json:"transaction_count"`
		PercentageShare  float64         `json:"percentage_share"`
		TrendPercentage  float64         `json:"trend_percentage"`
	}

	AccountBalance struct {
		Account core.Account    `json:"account"`
		Balance decimal.Decimal `json:"balance"`
	}

	Snapshot struct {
		TopCategories      []CategoryRank     `json:"top_categories"`
		TopAccounts        []AccountRank      `json:"top_accounts"`
		CommonAmounts      []AmountFrequency  `json:"common_amounts"`
		TotalBalance       decimal.Decimal    `json:"total_balance"`
		IncomeTotal        decimal.Decimal    `json:"income_total"`
		ExpenseTotal       decimal.Decimal    `json:"expense_total"`
		RecentTransactions []core.Transaction `json:"recent_transactions"`
		CategorySpending   []CategorySummary  `json:"category_spending"`
		CategoryIncome     []CategorySummary  `json:"category_income"`
		AccountBalances    []AccountBalance   `json:"account_balances"`
		PeriodLabel        string             `json:"period_label"`
	}
)

// Aggregator holds the knobs of the computation. The zero value is usable.
type Aggregator struct {
	// Now supplies the fallback period when no transaction has a known date.
	Now func() time.Time
	// Location is where period labels are computed; UTC when nil.
	Location *time.Location
	// RecentLimit caps RecentTransactions; DefaultRecentLimit when <= 0.
	RecentLimit int
	// TopN truncates the ranking lists; 0 keeps every entry.
	TopN int
}

// Aggregate runs the default Aggregator.
func Aggregate(transactions []core.Transaction, categories []core.Category, accounts []core.Account) Snapshot {
	return Aggregator{}.Aggregate(transactions, categories, accounts)
}

// Aggregate never fails. Empty input yields zero totals, empty lists and
// the current month as the period label.
func (g Aggregator) Aggregate(transactions []core.Transaction, categories []core.Category, accounts []core.Account) Snapshot {
	s := Snapshot{
		TotalBalance: decimal.Zero,
		IncomeTotal:  decimal.Zero,
		ExpenseTotal: decimal.Zero,
	}
	for _, t := range transactions {
		amt := core.Magnitude(t.Amount)
		switch t.EntryType {
		case core.EntryIncome:
			s.TotalBalance = s.TotalBalance.Add(amt)
			s.IncomeTotal = s.IncomeTotal.Add(amt)
		case core.EntryExpenses:
			s.TotalBalance = s.TotalBalance.Sub(amt)
			s.ExpenseTotal = s.ExpenseTotal.Add(amt)
		default:
			s.TotalBalance = s.TotalBalance.Sub(amt)
		}
	}

	s.TopCategories = truncate(topCategories(transactions, categories), g.TopN)
	s.TopAccounts = truncate(topAccounts(transactions, accounts), g.TopN)
	s.CommonAmounts = truncate(commonAmounts(transactions), g.TopN)
	s.RecentTransactions = recent(transactions, g.recentLimit())
	s.CategorySpending = summarize(transactions, categories, core.EntryExpenses)
	s.CategoryIncome = summarize(transactions, categories, core.EntryIncome)
	s.AccountBalances = AccountBalances(transactions, accounts)
	s.PeriodLabel = g.periodLabel(transactions)
	return s
}

func (g Aggregator) recentLimit() int {
	if g.RecentLimit <= 0 {
		return DefaultRecentLimit
	}
	return g.RecentLimit
}

func truncate[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func topCategories(transactions []core.Transaction, categories []core.Category) []CategoryRank {
	counts := make(map[string]int, len(categories))
	for _, t := range transactions {
		if t.CategoryID != "" {
			counts[t.CategoryID]++
		}
	}
	out := make([]CategoryRank, 0, len(categories))
	for _, c := range categories {
		out = append(out, CategoryRank{Category: c, Count: counts[c.ID]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

// topAccounts ranks referenced accounts ahead of unreferenced ones, then by
// inflow, so a destination of zero-amount rows still outranks an idle account.
func topAccounts(transactions []core.Transaction, accounts []core.Account) []AccountRank {
	inflow := make(map[string]decimal.Decimal, len(accounts))
	for _, t := range transactions {
		if t.ToAccountID != "" {
			inflow[t.ToAccountID] = inflow[t.ToAccountID].Add(core.Magnitude(t.Amount))
		}
	}
	out := make([]AccountRank, 0, len(accounts))
	referenced := make([]bool, 0, len(accounts))
	for _, a := range accounts {
		v, ok := inflow[a.ID]
		if !ok {
			v = decimal.Zero
		}
		out = append(out, AccountRank{Account: a, Inflow: v})
		referenced = append(referenced, ok)
	}
	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := idx[i], idx[j]
		if referenced[a] != referenced[b] {
			return referenced[a]
		}
		return out[a].Inflow.GreaterThan(out[b].Inflow)
	})
	ranked := make([]AccountRank, len(out))
	for i, k := range idx {
		ranked[i] = out[k]
	}
	return ranked
}

// commonAmounts groups by numeric value, so 5 and 5.00 are one amount; the
// first spelling seen is kept.
func commonAmounts(transactions []core.Transaction) []AmountFrequency {
	index := map[string]int{}
	var out []AmountFrequency
	for _, t := range transactions {
		amt := core.Magnitude(t.Amount)
		key := amt.String()
		if i, ok := index[key]; ok {
			out[i].Count++
			continue
		}
		index[key] = len(out)
		out = append(out, AmountFrequency{Amount: amt, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}

func recent(transactions []core.Transaction, limit int) []core.Transaction {
	out := make([]core.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if t.Date.IsKnown() {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date.Time) })
	return truncate(out, limit)
}

// summarize builds the per-category breakdown for one entry type. Rows
// without a category, with an id missing from categories, or whose category
// has the wrong type are left out.
func summarize(transactions []core.Transaction, categories []core.Category, entry core.EntryType) []CategorySummary {
	want, _ := core.CategoryTypeFor(entry)
	byID := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	index := map[string]int{}
	var out []CategorySummary
	total := decimal.Zero
	for _, t := range transactions {
		if t.EntryType != entry || t.CategoryID == "" {
			continue
		}
		c, ok := byID[t.CategoryID]
		if !ok || c.Type != want {
			continue
		}
		amt := core.Magnitude(t.Amount)
		total = total.Add(amt)
		i, seen := index[c.ID]
		if !seen {
			i = len(out)
			index[c.ID] = i
			out = append(out, CategorySummary{Category: c, Total: decimal.Zero})
		}
		out[i].Total = out[i].Total.Add(amt)
		out[i].TransactionCount++
	}

	for i := range out {
		if total.IsPositive() {
			out[i].PercentageShare = out[i].Total.Div(total).Mul(hundred).InexactFloat64()
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total.GreaterThan(out[j].Total) })
	if out == nil {
		out = []CategorySummary{}
	}
	return out
}

// AccountBalances recomputes each account's balance from history: opening
// balance plus inflows (to) minus outflows (from). Synthetic transfer legs
// are skipped because the CONTRA row already moves the money between the
// two accounts.
func AccountBalances(transactions []core.Transaction, accounts []core.Account) []AccountBalance {
	delta := make(map[string]decimal.Decimal, len(accounts))
	for _, t := range transactions {
		if core.IsTransferLeg(t) {
			continue
		}
		amt := core.Magnitude(t.Amount)
		if t.ToAccountID != "" {
			delta[t.ToAccountID] = delta[t.ToAccountID].Add(amt)
		}
		if t.FromAccountID != "" {
			delta[t.FromAccountID] = delta[t.FromAccountID].Sub(amt)
		}
	}
	out := make([]AccountBalance, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountBalance{Account: a, Balance: a.OpeningBalance.Add(delta[a.ID])})
	}
	return out
}
