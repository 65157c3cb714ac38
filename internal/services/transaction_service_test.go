package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/core"
	"tracker/internal/storage"
)

type fakeRepo struct {
	rows      []core.Transaction
	nextID    int64
	failWith  error
	deleted   []int64
	schemaRun int
	closed    bool
}

func (f *fakeRepo) EnsureSchema(ctx context.Context) error {
	f.schemaRun++
	return f.failWith
}

func (f *fakeRepo) Insert(ctx context.Context, tx core.NewTransaction) (int64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	f.nextID++
	f.rows = append([]core.Transaction{{
		ID:          f.nextID,
		Date:        tx.Date,
		Type:        tx.Type,
		Category:    tx.Category,
		Amount:      tx.Amount,
		Description: tx.Description,
	}}, f.rows...)
	return f.nextID, nil
}

func (f *fakeRepo) List(ctx context.Context) ([]core.Transaction, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	return append([]core.Transaction(nil), f.rows...), nil
}

func (f *fakeRepo) Delete(ctx context.Context, id int64) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.deleted = append(f.deleted, id)
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeRepo) Ping(ctx context.Context) error { return f.failWith }

func (f *fakeRepo) Close() error {
	f.closed = true
	return nil
}

type fakePublisher struct {
	created  []int64
	deleted  []int64
	failWith error
	closed   bool
}

func (p *fakePublisher) PublishCreated(ctx context.Context, id int64, tx core.NewTransaction) error {
	p.created = append(p.created, id)
	return p.failWith
}

func (p *fakePublisher) PublishDeleted(ctx context.Context, id int64) error {
	p.deleted = append(p.deleted, id)
	return p.failWith
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func day(s string) time.Time {
	d, _ := core.ParseDate(s)
	return d
}

func TestRecordNormalisesAndPublishes(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub)

	id, err := svc.Record(context.Background(), core.NewTransaction{
		Date:     day("2024-01-01"),
		Type:     "INCOME",
		Category: "  ",
		Amount:   decimal.RequireFromString("1000"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
	assert.Equal(t, []int64{1}, pub.created)

	require.Len(t, repo.rows, 1)
	assert.Equal(t, core.Income, repo.rows[0].Type)
	assert.Equal(t, core.DefaultCategory, repo.rows[0].Category)
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name string
		tx   core.NewTransaction
		want error
	}{
		{
			name: "negative amount",
			tx:   core.NewTransaction{Date: day("2024-01-01"), Type: core.Expense, Amount: decimal.RequireFromString("-1")},
			want: core.ErrInvalidAmount,
		},
		{
			name: "unknown type",
			tx:   core.NewTransaction{Date: day("2024-01-01"), Type: "transfer"},
			want: core.ErrInvalidType,
		},
		{
			name: "missing date",
			tx:   core.NewTransaction{Type: core.Income},
			want: core.ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{}
			pub := &fakePublisher{}
			svc := NewTransactionService(repo, pub)

			_, err := svc.Record(context.Background(), tt.tx)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, repo.rows)
			assert.Empty(t, pub.created)
		})
	}
}

func TestRecordKeepsUnavailableChain(t *testing.T) {
	repo := &fakeRepo{failWith: storage.ErrUnavailable}
	svc := NewTransactionService(repo, nil)

	_, err := svc.Record(context.Background(), core.NewTransaction{
		Date: day("2024-01-01"),
		Type: core.Income,
	})
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestPublishFailureDoesNotFailRecord(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{failWith: errors.New("broker down")}
	svc := NewTransactionService(repo, pub)

	_, err := svc.Record(context.Background(), core.NewTransaction{Date: day("2024-01-01"), Type: core.Income})
	require.NoError(t, err)
	require.NoError(t, svc.Remove(context.Background(), 1))
	assert.Len(t, repo.rows, 0)
}

func TestOverviewScenario(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewTransactionService(repo, nil)
	ctx := context.Background()

	_, err := svc.Record(ctx, core.NewTransaction{
		Date: day("2024-01-01"), Type: core.Income, Category: "Salary",
		Amount: decimal.RequireFromString("1000.00"), Description: "Jan pay",
	})
	require.NoError(t, err)
	_, err = svc.Record(ctx, core.NewTransaction{
		Date: day("2024-01-02"), Type: core.Expense, Category: "Rent",
		Amount: decimal.RequireFromString("500.00"),
	})
	require.NoError(t, err)

	ov, err := svc.Overview(ctx)
	require.NoError(t, err)
	require.Len(t, ov.Transactions, 2)
	assert.Equal(t, "Rent", ov.Transactions[0].Category)
	assert.Equal(t, 2, ov.Summary.Count)
	assert.True(t, ov.Summary.TotalIncome.Equal(decimal.RequireFromString("1000")))
	assert.True(t, ov.Summary.TotalExpenses.Equal(decimal.RequireFromString("500")))
	assert.True(t, ov.Summary.Balance.Equal(decimal.RequireFromString("500")))
}

func TestOverviewUnavailable(t *testing.T) {
	svc := NewTransactionService(&fakeRepo{failWith: storage.ErrUnavailable}, nil)
	_, err := svc.Overview(context.Background())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
}

func TestRemove(t *testing.T) {
	repo := &fakeRepo{}
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Remove(ctx, 0), ErrInvalidID)
	assert.ErrorIs(t, svc.Remove(ctx, -4), ErrInvalidID)
	assert.Empty(t, repo.deleted)

	// Absent ids are a silent no-op.
	require.NoError(t, svc.Remove(ctx, 42))
	require.NoError(t, svc.Remove(ctx, 42))
	assert.Equal(t, []int64{42, 42}, repo.deleted)
	assert.Equal(t, []int64{42, 42}, pub.deleted)
}

func TestPrepareAndReady(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewTransactionService(repo, nil)
	require.NoError(t, svc.Prepare(context.Background()))
	assert.Equal(t, 1, repo.schemaRun)
	assert.NoError(t, svc.Ready(context.Background()))
}

func TestClose(t *testing.T) {
	t.Run("nil publisher", func(t *testing.T) {
		repo := &fakeRepo{}
		svc := NewTransactionService(repo, nil)
		require.NoError(t, svc.Close())
		assert.True(t, repo.closed)
	})

	t.Run("both", func(t *testing.T) {
		repo := &fakeRepo{}
		pub := &fakePublisher{}
		svc := NewTransactionService(repo, pub)
		require.NoError(t, svc.Close())
		assert.True(t, repo.closed)
		assert.True(t, pub.closed)
	})
}
