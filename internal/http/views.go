package http

import (
	"github.com/shopspring/decimal"

	"tracker/internal/core"
	"tracker/internal/services"
	"tracker/internal/session"
)

type loginView struct {
	Flashes []session.Flash
	Error   string
}

type typeOption struct {
	Value   string
	Label   string
	Checked bool
}

type transactionRow struct {
	ID          int64
	Date        string
	Type        string
	TypeClass   string
	Category    string
	Amount      string
	Description string
}

type chartBar struct {
	Label  string
	Type   string
	Class  string
	Amount string
	Width  int
}

type dashboardView struct {
	Flashes     []session.Flash
	Form        transactionForm
	Types       []typeOption
	FormError   string
	DeleteID    string
	DeleteError string

	HasTransactions bool
	Transactions    []transactionRow

	TotalIncome     string
	TotalExpenses   string
	Balance         string
	BalanceNegative bool

	Bars   []chartBar
	MaxBar string
}

type errorView struct {
	Title   string
	Message string
}

func newDashboardView(ov services.Overview, form transactionForm, flashes []session.Flash) dashboardView {
	v := dashboardView{
		Flashes:         flashes,
		Form:            form,
		Types:           typeOptions(form.Type),
		HasTransactions: len(ov.Transactions) > 0,
		TotalIncome:     core.FormatAmount(ov.Summary.TotalIncome),
		TotalExpenses:   core.FormatAmount(ov.Summary.TotalExpenses),
		Balance:         core.FormatAmount(ov.Summary.Balance),
		BalanceNegative: ov.Summary.Balance.IsNegative(),
	}

	v.Transactions = make([]transactionRow, 0, len(ov.Transactions))
	for _, tx := range ov.Transactions {
		v.Transactions = append(v.Transactions, transactionRow{
			ID:          tx.ID,
			Date:        tx.Date.Format(core.DateLayout),
			Type:        tx.Type.Label(),
			TypeClass:   tx.Type.String(),
			Category:    tx.Category,
			Amount:      core.FormatAmount(tx.Amount),
			Description: tx.Description,
		})
	}

	max := ov.Summary.MaxGroup()
	v.MaxBar = core.FormatAmount(max)
	for _, g := range ov.Summary.ByCategory {
		v.Bars = append(v.Bars, chartBar{
			Label:  g.Category,
			Type:   g.Type.Label(),
			Class:  g.Type.String(),
			Amount: core.FormatAmount(g.Amount),
			Width:  barWidth(g.Amount, max),
		})
	}
	return v
}

func typeOptions(selected string) []typeOption {
	sel, err := core.ParseType(selected)
	if err != nil {
		sel = core.Income
	}
	opts := make([]typeOption, 0, 2)
	for _, t := range []core.TransactionType{core.Income, core.Expense} {
		opts = append(opts, typeOption{Value: t.String(), Label: t.Label(), Checked: t == sel})
	}
	return opts
}

// barWidth returns amount as a rounded percentage of max. Non-zero amounts
// get at least 2 so they stay visible.
func barWidth(amount, max decimal.Decimal) int {
	if !max.IsPositive() || !amount.IsPositive() {
		return 0
	}
	width := int(amount.Mul(decimal.NewFromInt(100)).Div(max).Round(0).IntPart())
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
