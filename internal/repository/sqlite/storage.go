package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/nkiryanov/walletledger/internal/repository"
)

// DBTX is satisfied by *sql.DB and *sql.Tx
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Storage over sqlite database opened with db.OpenSQLite
// Write transactions take the database lock on BEGIN, so wallet updates never interleave
type Storage struct {
	db *sql.DB
	tx *sql.Tx
}

func NewStorage(db *sql.DB) repository.Storage {
	return &Storage{db: db}
}

func (s *Storage) conn() DBTX {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *Storage) User() repository.UserRepo {
	return &UserRepo{DB: s.conn()}
}

func (s *Storage) Wallet() repository.WalletRepo {
	return &WalletRepo{DB: s.conn()}
}

func (s *Storage) Transaction() repository.TransactionRepo {
	return &TransactionRepo{DB: s.conn()}
}

// InTx runs fn in a transaction
// sqlite has no savepoints through database/sql, so nested call joins the outer transaction
func (s *Storage) InTx(ctx context.Context, fn func(repository.Storage) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return fmt.Errorf("db tx error: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}

		switch err {
		case nil:
			err = tx.Commit()
		default:
			_ = tx.Rollback()
		}
	}()

	err = fn(&Storage{db: s.db, tx: tx})

	return err
}

const (
	// Pause between BEGIN attempts while another writer holds the database lock
	beginRetryInterval = 5 * time.Millisecond

	// How long to wait for the lock when ctx has no deadline
	defaultLockWait = 10 * time.Second
)

// begin waits for the database write lock until ctx is done
// ctx is not wrapped with a timeout here: database/sql rolls the tx back once its ctx is cancelled
func (s *Storage) begin(ctx context.Context) (*sql.Tx, error) {
	giveUp := time.Now().Add(defaultLockWait)
	if deadline, ok := ctx.Deadline(); ok {
		giveUp = deadline
	}

	for {
		tx, err := s.db.BeginTx(ctx, nil)
		if err == nil || !isBusy(err) {
			return tx, err
		}

		if time.Now().After(giveUp) {
			return nil, errors.Join(err, ctx.Err())
		}

		timer := time.NewTimer(beginRetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %w", err, ctx.Err())
		case <-timer.C:
		}
	}
}

// Timestamps are kept as unix microseconds
func toMicro(t time.Time) int64 {
	return t.UnixMicro()
}

func fromMicro(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func isConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && (sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked)
}
