package postgres

import (
	"context"
	"errors"
	"fmt"

	"pair-date-backend/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements repository.Store on a pgx pool
type Store struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

// NewStore creates a new Postgres-backed store
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

func (s *Store) Users() repository.UserRepository         { return &UserRepository{db: s.db} }
func (s *Store) Couples() repository.CoupleRepository     { return &CoupleRepository{db: s.db} }
func (s *Store) Proposals() repository.ProposalRepository { return &ProposalRepository{db: s.db} }
func (s *Store) Swipes() repository.SwipeRepository       { return &SwipeRepository{db: s.db} }
func (s *Store) Matches() repository.MatchRepository      { return &MatchRepository{db: s.db} }
func (s *Store) Plans() repository.PlanRepository         { return &PlanRepository{db: s.db} }

// WithTx runs fn inside one transaction. Nested calls reuse the outer one.
func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	if s.pool == nil {
		return errors.New("postgres pool is nil")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(&Store{pool: s.pool, db: tx, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, repository.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
