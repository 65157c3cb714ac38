package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"tracker/internal/core"
	"tracker/internal/services"
)

// transactionForm carries the raw values of the entry form so they can be
// rendered back after a rejected submission.
type transactionForm struct {
	Date        string
	Type        string
	Category    string
	Amount      string
	Description string
}

// defaultTransactionForm is the form shown on a fresh page.
func defaultTransactionForm() transactionForm {
	return transactionForm{
		Date:     core.Today().Format(core.DateLayout),
		Type:     core.Income.String(),
		Category: core.DefaultCategory,
		Amount:   "0.00",
	}
}

// readTransactionForm collects the entry form fields from a parsed request.
func readTransactionForm(r *http.Request) transactionForm {
	return transactionForm{
		Date:        sanitizeInput(r.PostForm.Get("date")),
		Type:        sanitizeInput(r.PostForm.Get("type")),
		Category:    sanitizeInput(r.PostForm.Get("category")),
		Amount:      sanitizeInput(r.PostForm.Get("amount")),
		Description: sanitizeMultiline(r.PostForm.Get("description")),
	}
}

// Transaction converts the raw values. A blank amount counts as zero, the
// same as the untouched form default.
func (f transactionForm) Transaction() (core.NewTransaction, error) {
	date, err := core.ParseDate(f.Date)
	if err != nil {
		return core.NewTransaction{}, err
	}
	typ, err := core.ParseType(f.Type)
	if err != nil {
		return core.NewTransaction{}, err
	}
	amountStr := f.Amount
	if amountStr == "" {
		amountStr = "0"
	}
	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		return core.NewTransaction{}, err
	}
	return core.NewTransaction{
		Date:        date,
		Type:        typ,
		Category:    f.Category,
		Amount:      amount,
		Description: f.Description,
	}, nil
}

// parseDeleteID reads the id field of the delete form.
func parseDeleteID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.PostForm.Get("id")), 10, 64)
	if err != nil || id < 1 {
		return 0, services.ErrInvalidID
	}
	return id, nil
}

// isInvalidInput reports whether err was caused by what the user typed.
func isInvalidInput(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate,
		core.ErrInvalidType,
		core.ErrInvalidAmount,
		core.ErrEmptyCategory,
		core.ErrCategoryTooLong,
		services.ErrInvalidID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// RequireMethod writes 405 and returns false when the request method is not
// one of methods.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	w.WriteHeader(http.StatusMethodNotAllowed)
	return false
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// sanitizeMultiline is sanitizeInput that keeps tabs and line breaks.
func sanitizeMultiline(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if (r < 32 && r != '\t' && r != '\n' && r != '\r') || r == 127 {
			return -1
		}
		return r
	}, s)
}
