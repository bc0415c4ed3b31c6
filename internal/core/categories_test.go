package core

import "testing"

func TestNormalizeCategory(t *testing.T) {
	cases := []struct {
		kind     Kind
		category string
		want     string
	}{
		{Expense, "Housing", "Housing"},
		{Expense, "Salary", CatchAllCategory}, // income category on expense kind
		{Expense, "housing", CatchAllCategory},
		{Expense, "", CatchAllCategory},
		{Income, "Salary", "Salary"},
		{Income, "Groceries", CatchAllCategory},
	}
	for _, tc := range cases {
		if got := NormalizeCategory(tc.kind, tc.category); got != tc.want {
			t.Fatalf("NormalizeCategory(%s, %q) = %q, want %q", tc.kind, tc.category, got, tc.want)
		}
	}
}

func TestCategoriesContainCatchAll(t *testing.T) {
	for _, k := range []Kind{Income, Expense} {
		found := false
		for _, c := range Categories(k) {
			if c == CatchAllCategory {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s categories missing %q", k, CatchAllCategory)
		}
	}
}
