package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	// DefaultCategory is used when the entry form leaves the category blank.
	DefaultCategory = "General"

	// MaxCategoryLength mirrors the category column width.
	MaxCategoryLength = 50

	// DateLayout is the wire and storage format of a transaction date.
	DateLayout = "2006-01-02"
)

type (
	TransactionType string

	// Transaction is one persisted income or expense row.
	Transaction struct {
		ID          int64
		Date        time.Time
		Type        TransactionType
		Category    string
		Amount      decimal.Decimal
		Description string
	}

	// NewTransaction carries the fields of a row that has not been stored yet.
	NewTransaction struct {
		Date        time.Time
		Type        TransactionType
		Category    string
		Amount      decimal.Decimal
		Description string
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyCategory   = errors.New("empty category")
	ErrCategoryTooLong = errors.New("category too long (max 50 characters)")
)

// ParseType normalises s to a TransactionType, accepting any letter case.
func ParseType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToLower(strings.TrimSpace(s))); t {
	case Income, Expense:
		return t, nil
	default:
		return "", ErrInvalidType
	}
}

// Valid reports whether t is one of the two stored literals.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Label returns the capitalised form shown in the UI ("Income", "Expense").
func (t TransactionType) Label() string {
	if t == "" {
		return ""
	}
	s := string(t)
	return strings.ToUpper(s[:1]) + s[1:]
}

func (t TransactionType) String() string {
	return string(t)
}

// ParseDate parses a YYYY-MM-DD string into a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// Today returns the current calendar date at UTC midnight.
func Today() time.Time {
	return CalendarDate(time.Now())
}

// CalendarDate drops the clock part of t, keeping its local year, month and day.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Normalize lower-cases the type, trims text fields, applies the default
// category and strips the clock part of the date.
func (n NewTransaction) Normalize() NewTransaction {
	n.Type = TransactionType(strings.ToLower(strings.TrimSpace(string(n.Type))))
	n.Category = strings.TrimSpace(n.Category)
	if n.Category == "" {
		n.Category = DefaultCategory
	}
	n.Description = strings.TrimSpace(n.Description)
	if !n.Date.IsZero() {
		n.Date = CalendarDate(n.Date)
	}
	return n
}

func (n NewTransaction) Validate() error {
	if n.Date.IsZero() {
		return ErrInvalidDate
	}
	if !n.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(n.Category) == "" {
		return ErrEmptyCategory
	}
	if utf8.RuneCountInString(n.Category) > MaxCategoryLength {
		return ErrCategoryTooLong
	}
	if n.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
