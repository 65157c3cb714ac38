package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CategoryTotal is the summed amount of one (type, category) group.
type CategoryTotal struct {
	Type     TransactionType
	Category string
	Amount   decimal.Decimal
}

// Summary holds the aggregate figures of one snapshot.
type Summary struct {
	Count         int
	TotalIncome   decimal.Decimal
	TotalExpenses decimal.Decimal
	Balance       decimal.Decimal
	ByCategory    []CategoryTotal
}

// TotalByType sums the amount of every transaction of the given type.
func TotalByType(txs []Transaction, typ TransactionType) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.Type == typ {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// Balance is total income minus total expenses.
func Balance(txs []Transaction) decimal.Decimal {
	return TotalByType(txs, Income).Sub(TotalByType(txs, Expense))
}

// GroupByTypeAndCategory sums amounts per (type, category) pair. Groups are
// ordered income first, then expense, then by category name.
func GroupByTypeAndCategory(txs []Transaction) []CategoryTotal {
	type key struct {
		typ      TransactionType
		category string
	}
	index := make(map[key]int)
	var groups []CategoryTotal
	for _, tx := range txs {
		k := key{tx.Type, tx.Category}
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, CategoryTotal{Type: tx.Type, Category: tx.Category, Amount: decimal.Zero})
		}
		groups[i].Amount = groups[i].Amount.Add(tx.Amount)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Type != groups[j].Type {
			return typeRank(groups[i].Type) < typeRank(groups[j].Type)
		}
		return groups[i].Category < groups[j].Category
	})
	return groups
}

// Summarize computes every figure shown for a snapshot.
func Summarize(txs []Transaction) Summary {
	income := TotalByType(txs, Income)
	expenses := TotalByType(txs, Expense)
	return Summary{
		Count:         len(txs),
		TotalIncome:   income,
		TotalExpenses: expenses,
		Balance:       income.Sub(expenses),
		ByCategory:    GroupByTypeAndCategory(txs),
	}
}

// MaxGroup returns the largest group amount, zero for no groups.
func (s Summary) MaxGroup() decimal.Decimal {
	max := decimal.Zero
	for _, g := range s.ByCategory {
		if g.Amount.GreaterThan(max) {
			max = g.Amount
		}
	}
	return max
}

func typeRank(t TransactionType) int {
	switch t {
	case Income:
		return 0
	case Expense:
		return 1
	default:
		return 2
	}
}
