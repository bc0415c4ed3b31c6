package core

// CatchAllCategory is the bucket unknown categories fall into. Unrecognized
// values are normalized here, never rejected.
const CatchAllCategory = "Other"

var expenseCategories = map[string]struct{}{
	"Housing":       {},
	"Utilities":     {},
	"Groceries":     {},
	"Transport":     {},
	"Insurance":     {},
	"Health":        {},
	"Subscriptions": {},
	"Entertainment": {},
	"Education":     {},
	"Debt":          {},
	"Other":         {},
}

var incomeCategories = map[string]struct{}{
	"Salary":     {},
	"Freelance":  {},
	"Investment": {},
	"Rental":     {},
	"Pension":    {},
	"Other":      {},
}

// Categories returns the recognized category names for a kind.
func Categories(k Kind) []string {
	src := expenseCategories
	if k == Income {
		src = incomeCategories
	}
	out := make([]string, 0, len(src))
	for name := range src {
		out = append(out, name)
	}
	return out
}

// NormalizeCategory maps a free-form category to the recognized set for the
// given kind, falling back to the catch-all bucket.
func NormalizeCategory(k Kind, category string) string {
	src := expenseCategories
	if k == Income {
		src = incomeCategories
	}
	if _, ok := src[category]; ok {
		return category
	}
	return CatchAllCategory
}
