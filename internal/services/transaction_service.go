package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tracker/internal/core"
)

// ErrInvalidID is returned when a delete is requested for an id below 1.
var ErrInvalidID = errors.New("invalid transaction id")

// Repository is the persistence the service needs. *storage.TransactionStore
// satisfies it.
type Repository interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, tx core.NewTransaction) (int64, error)
	List(ctx context.Context) ([]core.Transaction, error)
	Delete(ctx context.Context, id int64) error
	Ping(ctx context.Context) error
	Close() error
}

// Publisher announces changes to other systems. *amqp.Client satisfies it.
type Publisher interface {
	PublishCreated(ctx context.Context, id int64, tx core.NewTransaction) error
	PublishDeleted(ctx context.Context, id int64) error
	Close() error
}

// Overview is one consistent snapshot of the table plus its summary.
type Overview struct {
	Transactions []core.Transaction
	Summary      core.Summary
}

// TransactionService orchestrates transaction operations across the store
// and the optional event publisher.
type TransactionService struct {
	repo      Repository
	publisher Publisher
}

// NewTransactionService wires repo and publisher. publisher may be nil.
func NewTransactionService(repo Repository, publisher Publisher) *TransactionService {
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
	}
}

// Prepare runs the schema migration. It is meant to be called once at startup.
func (s *TransactionService) Prepare(ctx context.Context) error {
	return s.repo.EnsureSchema(ctx)
}

// Record normalises and validates tx, stores it and publishes a created event.
// Publishing failures are logged and never fail the request.
func (s *TransactionService) Record(ctx context.Context, tx core.NewTransaction) (int64, error) {
	tx = tx.Normalize()
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	id, err := s.repo.Insert(ctx, tx)
	if err != nil {
		return 0, fmt.Errorf("record transaction: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishCreated(ctx, id, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to publish created event", "id", id, "error", err)
		}
	}

	return id, nil
}

// Overview lists every transaction and summarises the same snapshot.
func (s *TransactionService) Overview(ctx context.Context) (Overview, error) {
	txs, err := s.repo.List(ctx)
	if err != nil {
		return Overview{}, fmt.Errorf("load overview: %w", err)
	}
	return Overview{
		Transactions: txs,
		Summary:      core.Summarize(txs),
	}, nil
}

// Remove deletes the row with id. An id that does not exist is not an error.
func (s *TransactionService) Remove(ctx context.Context, id int64) error {
	if id < 1 {
		return ErrInvalidID
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove transaction: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.PublishDeleted(ctx, id); err != nil {
			slog.ErrorContext(ctx, "Failed to publish deleted event", "id", id, "error", err)
		}
	}
	return nil
}

// Ready reports whether the store can be reached.
func (s *TransactionService) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Close closes both the store and the publisher.
func (s *TransactionService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}
