package provision

import (
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/currency"
)

// Role marks which preference pointer a default account backs.
type Role string

const (
	RoleIncome  Role = "INCOME"
	RoleExpense Role = "EXPENSE"
	RoleNone    Role = "NONE"
)

type AccountTemplate struct {
	Role        Role
	Name        string
	Type        core.AccountType
	AllowDelete bool
}

type CategoryTemplate struct {
	Name  string
	Type  core.CategoryType
	Icon  string
	Color string
}

// Defaults is the versioned starter data a new user receives.
type Defaults struct {
	Version    string
	Currency   string
	Accounts   []AccountTemplate
	Categories []CategoryTemplate
}

// Account returns the template backing role.
func (d Defaults) Account(role Role) (AccountTemplate, bool) {
	for _, a := range d.Accounts {
		if a.Role == role {
			return a, true
		}
	}
	return AccountTemplate{}, false
}

// Validate checks that exactly one account backs each pointer, names are
// unique and the currency is a known ISO code.
func (d Defaults) Validate() error {
	var problems []string

	roles := map[Role]int{}
	names := map[string]bool{}
	for _, a := range d.Accounts {
		roles[a.Role]++
		key := strings.ToLower(a.Name)
		if strings.TrimSpace(a.Name) == "" {
			problems = append(problems, "account template with empty name")
		} else if names[key] {
			problems = append(problems, fmt.Sprintf("duplicate account %q", a.Name))
		}
		names[key] = true
		if !a.Type.IsValid() {
			problems = append(problems, fmt.Sprintf("account %q has invalid type %q", a.Name, a.Type))
		}
	}
	if roles[RoleIncome] != 1 {
		problems = append(problems, fmt.Sprintf("need exactly one income account, have %d", roles[RoleIncome]))
	}
	if roles[RoleExpense] != 1 {
		problems = append(problems, fmt.Sprintf("need exactly one expense account, have %d", roles[RoleExpense]))
	}

	cats := map[string]bool{}
	for _, c := range d.Categories {
		key := string(c.Type) + "/" + strings.ToLower(c.Name)
		if cats[key] {
			problems = append(problems, fmt.Sprintf("duplicate category %q", c.Name))
		}
		cats[key] = true
		if c.Type != core.CategoryIncome && c.Type != core.CategoryExpense {
			problems = append(problems, fmt.Sprintf("category %q must be INCOME or EXPENSE", c.Name))
		}
	}

	if _, err := currency.Lookup(d.Currency); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("defaults %s: %s", d.Version, strings.Join(problems, "; "))
	}
	return nil
}

// V1 is the original compact starter set.
var V1 = Defaults{
	Version:  "v1",
	Currency: "EUR",
	Accounts: []AccountTemplate{
		{Role: RoleIncome, Name: "Income", Type: core.AccountBank, AllowDelete: true},
		{Role: RoleExpense, Name: "Expense", Type: core.AccountCash, AllowDelete: true},
	},
	Categories: []CategoryTemplate{
		{Name: "Salary", Type: core.CategoryIncome, Icon: "briefcase", Color: "#2E7D32"},
		{Name: "Other Income", Type: core.CategoryIncome, Icon: "plus-circle", Color: "#66BB6A"},
		{Name: "Food", Type: core.CategoryExpense, Icon: "utensils", Color: "#EF6C00"},
		{Name: "Transport", Type: core.CategoryExpense, Icon: "bus", Color: "#1565C0"},
		{Name: "Housing", Type: core.CategoryExpense, Icon: "home", Color: "#6D4C41"},
		{Name: "Utilities", Type: core.CategoryExpense, Icon: "bolt", Color: "#F9A825"},
		{Name: "Entertainment", Type: core.CategoryExpense, Icon: "film", Color: "#8E24AA"},
		{Name: "Health", Type: core.CategoryExpense, Icon: "heart", Color: "#C62828"},
	},
}

// V2 adds cash and bank accounts, protects the pointer-backed accounts from
// deletion and ships the extended category list.
var V2 = Defaults{
	Version:  "v2",
	Currency: "EUR",
	Accounts: []AccountTemplate{
		{Role: RoleIncome, Name: "Income", Type: core.AccountBank, AllowDelete: false},
		{Role: RoleExpense, Name: "Expense", Type: core.AccountCash, AllowDelete: false},
		{Role: RoleNone, Name: "Cash", Type: core.AccountCash, AllowDelete: true},
		{Role: RoleNone, Name: "Bank", Type: core.AccountBank, AllowDelete: true},
	},
	Categories: []CategoryTemplate{
		{Name: "Salary", Type: core.CategoryIncome, Icon: "briefcase", Color: "#2E7D32"},
		{Name: "Bonus", Type: core.CategoryIncome, Icon: "award", Color: "#388E3C"},
		{Name: "Business", Type: core.CategoryIncome, Icon: "store", Color: "#43A047"},
		{Name: "Investments", Type: core.CategoryIncome, Icon: "chart-line", Color: "#00897B"},
		{Name: "Gifts Received", Type: core.CategoryIncome, Icon: "gift", Color: "#26A69A"},
		{Name: "Rental Income", Type: core.CategoryIncome, Icon: "key", Color: "#4DB6AC"},
		{Name: "Other Income", Type: core.CategoryIncome, Icon: "plus-circle", Color: "#66BB6A"},
		{Name: "Food", Type: core.CategoryExpense, Icon: "utensils", Color: "#EF6C00"},
		{Name: "Groceries", Type: core.CategoryExpense, Icon: "shopping-basket", Color: "#FB8C00"},
		{Name: "Transport", Type: core.CategoryExpense, Icon: "bus", Color: "#1565C0"},
		{Name: "Fuel", Type: core.CategoryExpense, Icon: "gas-pump", Color: "#1E88E5"},
		{Name: "Housing", Type: core.CategoryExpense, Icon: "home", Color: "#6D4C41"},
		{Name: "Utilities", Type: core.CategoryExpense, Icon: "bolt", Color: "#F9A825"},
		{Name: "Internet & Phone", Type: core.CategoryExpense, Icon: "wifi", Color: "#FDD835"},
		{Name: "Entertainment", Type: core.CategoryExpense, Icon: "film", Color: "#8E24AA"},
		{Name: "Health", Type: core.CategoryExpense, Icon: "heart", Color: "#C62828"},
		{Name: "Insurance", Type: core.CategoryExpense, Icon: "shield", Color: "#AD1457"},
		{Name: "Education", Type: core.CategoryExpense, Icon: "graduation-cap", Color: "#3949AB"},
		{Name: "Shopping", Type: core.CategoryExpense, Icon: "shopping-bag", Color: "#D81B60"},
		{Name: "Clothing", Type: core.CategoryExpense, Icon: "tshirt", Color: "#EC407A"},
		{Name: "Travel", Type: core.CategoryExpense, Icon: "plane", Color: "#0288D1"},
		{Name: "Personal Care", Type: core.CategoryExpense, Icon: "spa", Color: "#7E57C2"},
		{Name: "Gifts & Donations", Type: core.CategoryExpense, Icon: "hand-holding-heart", Color: "#5E35B1"},
		{Name: "Subscriptions", Type: core.CategoryExpense, Icon: "repeat", Color: "#546E7A"},
		{Name: "Taxes & Fees", Type: core.CategoryExpense, Icon: "file-invoice", Color: "#455A64"},
		{Name: "Other Expenses", Type: core.CategoryExpense, Icon: "ellipsis-h", Color: "#78909C"},
	},
}

// DefaultsByVersion resolves a shipped variant by its version tag.
func DefaultsByVersion(version string) (Defaults, error) {
	switch strings.ToLower(strings.TrimSpace(version)) {
	case "v1", "1":
		return V1, nil
	case "v2", "2", "":
		return V2, nil
	}
	return Defaults{}, core.Validation("defaults_version", fmt.Sprintf("unknown version %q", version))
}
