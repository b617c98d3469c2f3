package transaction

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestConn opens a file-backed database with a test table and returns a
// single connection from it
func setupTestConn(t *testing.T) (*sql.DB, *sql.Conn) {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "tx.db"))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE test_records (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)
	`)
	if err != nil {
		t.Fatalf("failed to create test table: %v", err)
	}

	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("failed to get connection: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return db, conn
}

func countRecords(t *testing.T, conn *sql.Conn, name string) int {
	t.Helper()

	var count int
	err := conn.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM test_records WHERE name = ?", name).Scan(&count)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	return count
}

func TestTransaction_CommitAndRollback(t *testing.T) {
	_, conn := setupTestConn(t)
	mgr := NewManager(conn)
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		tx, err := mgr.begin(ctx, ReadCommitted)
		if err != nil {
			t.Fatalf("begin failed: %v", err)
		}

		if _, err := tx.tx.ExecContext(ctx, "INSERT INTO test_records (name) VALUES (?)", "committed"); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		if got := countRecords(t, conn, "committed"); got != 1 {
			t.Errorf("expected 1 record, got %d", got)
		}

		if err := tx.Commit(); !errors.Is(err, ErrAlreadyCommitted) {
			t.Errorf("expected ErrAlreadyCommitted, got %v", err)
		}
		if err := tx.Rollback(); !errors.Is(err, ErrAlreadyCommitted) {
			t.Errorf("expected ErrAlreadyCommitted on rollback, got %v", err)
		}
	})

	t.Run("Rollback", func(t *testing.T) {
		tx, err := mgr.begin(ctx, Serializable)
		if err != nil {
			t.Fatalf("begin failed: %v", err)
		}

		if _, err := tx.tx.ExecContext(ctx, "INSERT INTO test_records (name) VALUES (?)", "rolled_back"); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		if err := tx.Rollback(); err != nil {
			t.Fatalf("Rollback failed: %v", err)
		}
		if err := tx.Rollback(); err != nil {
			t.Errorf("second Rollback should be a no-op, got %v", err)
		}

		if got := countRecords(t, conn, "rolled_back"); got != 0 {
			t.Errorf("expected 0 records, got %d", got)
		}
		if err := tx.Commit(); !errors.Is(err, ErrAlreadyRolledBack) {
			t.Errorf("expected ErrAlreadyRolledBack, got %v", err)
		}
	})
}

func TestManager_WithTransactionIsolation(t *testing.T) {
	_, conn := setupTestConn(t)
	mgr := NewManager(conn)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		err := mgr.WithTransactionIsolation(ctx, ReadCommitted, func(tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, "INSERT INTO test_records (name) VALUES (?)", "ok")
			return err
		})
		if err != nil {
			t.Fatalf("WithTransactionIsolation failed: %v", err)
		}
		if got := countRecords(t, conn, "ok"); got != 1 {
			t.Errorf("expected 1 record, got %d", got)
		}
	})

	t.Run("ErrorRollsBack", func(t *testing.T) {
		sentinel := errors.New("second write failed")

		err := mgr.WithTransactionIsolation(ctx, ReadCommitted, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, "INSERT INTO test_records (name) VALUES (?)", "partial"); err != nil {
				return err
			}
			return sentinel
		})
		if !errors.Is(err, sentinel) {
			t.Fatalf("expected sentinel error, got %v", err)
		}
		if got := countRecords(t, conn, "partial"); got != 0 {
			t.Errorf("expected rollback to discard the first write, got %d records", got)
		}
	})

	t.Run("PanicRollsBack", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
			if got := countRecords(t, conn, "panicked"); got != 0 {
				t.Errorf("expected 0 records after panic, got %d", got)
			}
		}()

		mgr.WithTransactionIsolation(ctx, ReadCommitted, func(tx *sql.Tx) error {
			tx.ExecContext(ctx, "INSERT INTO test_records (name) VALUES (?)", "panicked")
			panic("boom")
		})
	})
}

func TestManager_BeginFailure(t *testing.T) {
	_, conn := setupTestConn(t)
	conn.Close()

	called := false
	err := NewManager(conn).WithTransactionIsolation(context.Background(), ReadCommitted, func(*sql.Tx) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatal("expected error beginning on a closed connection")
	}
	if called {
		t.Error("fn must not run when the transaction cannot begin")
	}
}

func TestIsolationLevel(t *testing.T) {
	tests := []struct {
		input string
		level IsolationLevel
		name  string
	}{
		{"", ReadCommitted, "READ COMMITTED"},
		{"read_committed", ReadCommitted, "READ COMMITTED"},
		{"read uncommitted", ReadUncommitted, "READ UNCOMMITTED"},
		{"Repeatable-Read", RepeatableRead, "REPEATABLE READ"},
		{"SERIALIZABLE", Serializable, "SERIALIZABLE"},
	}

	for _, tt := range tests {
		level, err := ParseIsolationLevel(tt.input)
		if err != nil {
			t.Errorf("ParseIsolationLevel(%q) failed: %v", tt.input, err)
			continue
		}
		if level != tt.level {
			t.Errorf("ParseIsolationLevel(%q) = %v, want %v", tt.input, level, tt.level)
		}
		if level.String() != tt.name {
			t.Errorf("String() = %q, want %q", level.String(), tt.name)
		}
	}

	if _, err := ParseIsolationLevel("snapshot"); err == nil {
		t.Error("expected error for unknown isolation level")
	}

	if opts := Serializable.ToSQLOptions(); opts.Isolation != sql.LevelSerializable {
		t.Errorf("expected LevelSerializable, got %v", opts.Isolation)
	}
}
