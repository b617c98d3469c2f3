// Package transaction manages the single transaction a reconciliation run
// executes in.
package transaction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
)

var (
	// ErrAlreadyCommitted is returned when finishing a committed transaction
	ErrAlreadyCommitted = errors.New("transaction already committed")
	// ErrAlreadyRolledBack is returned when committing a rolled back transaction
	ErrAlreadyRolledBack = errors.New("transaction already rolled back")
)

// IsolationLevel represents the transaction isolation level
type IsolationLevel int

const (
	// ReadUncommitted allows dirty reads
	ReadUncommitted IsolationLevel = iota
	// ReadCommitted prevents dirty reads
	ReadCommitted
	// RepeatableRead prevents non-repeatable reads
	RepeatableRead
	// Serializable provides full isolation
	Serializable
)

// String returns the string representation of the isolation level
func (l IsolationLevel) String() string {
	switch l {
	case ReadUncommitted:
		return "READ UNCOMMITTED"
	case ReadCommitted:
		return "READ COMMITTED"
	case RepeatableRead:
		return "REPEATABLE READ"
	case Serializable:
		return "SERIALIZABLE"
	default:
		return "READ COMMITTED"
	}
}

// ParseIsolationLevel converts a name such as "read committed" or
// "serializable" to an IsolationLevel. Empty selects ReadCommitted.
func ParseIsolationLevel(s string) (IsolationLevel, error) {
	normalized := strings.ToUpper(strings.NewReplacer("_", " ", "-", " ").Replace(strings.TrimSpace(s)))
	switch normalized {
	case "", "READ COMMITTED":
		return ReadCommitted, nil
	case "READ UNCOMMITTED":
		return ReadUncommitted, nil
	case "REPEATABLE READ":
		return RepeatableRead, nil
	case "SERIALIZABLE":
		return Serializable, nil
	default:
		return ReadCommitted, fmt.Errorf("unknown isolation level: %s", s)
	}
}

// ToSQLOptions converts IsolationLevel to sql.TxOptions
func (l IsolationLevel) ToSQLOptions() *sql.TxOptions {
	var level sql.IsolationLevel
	switch l {
	case ReadUncommitted:
		level = sql.LevelReadUncommitted
	case ReadCommitted:
		level = sql.LevelReadCommitted
	case RepeatableRead:
		level = sql.LevelRepeatableRead
	case Serializable:
		level = sql.LevelSerializable
	default:
		level = sql.LevelReadCommitted
	}
	return &sql.TxOptions{Isolation: level}
}

// Beginner starts transactions. *sql.DB and *sql.Conn implement it; a
// reconciliation run uses a single *sql.Conn.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Transaction wraps a sql.Tx and tracks how it finished
type Transaction struct {
	tx         *sql.Tx
	committed  atomic.Bool
	rolledBack atomic.Bool
}

// Manager starts transactions on one connection
type Manager struct {
	conn Beginner
}

// NewManager creates a new transaction manager
func NewManager(conn Beginner) *Manager {
	return &Manager{conn: conn}
}

func (m *Manager) begin(ctx context.Context, level IsolationLevel) (*Transaction, error) {
	tx, err := m.conn.BeginTx(ctx, level.ToSQLOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Transaction{tx: tx}, nil
}

// WithTransactionIsolation executes a function within a transaction with
// specified isolation level. Any error from fn rolls the transaction back and
// is returned unchanged, or joined with the rollback failure.
func (m *Manager) WithTransactionIsolation(ctx context.Context, level IsolationLevel, fn func(tx *sql.Tx) error) error {
	tx, err := m.begin(ctx, level)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-throw panic after rollback
		}
	}()

	if err := fn(tx.tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

// Commit commits the transaction
func (t *Transaction) Commit() error {
	if t.committed.Load() {
		return ErrAlreadyCommitted
	}
	if t.rolledBack.Load() {
		return ErrAlreadyRolledBack
	}

	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	t.committed.Store(true)
	return nil
}

// Rollback rolls back the transaction. Rolling back twice is a no-op.
func (t *Transaction) Rollback() error {
	if t.committed.Load() {
		return ErrAlreadyCommitted
	}
	if t.rolledBack.Load() {
		return nil
	}

	if err := t.tx.Rollback(); err != nil {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	t.rolledBack.Store(true)
	return nil
}
