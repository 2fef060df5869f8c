package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestWithDSNDefaults(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{
			name: "bare_path",
			dsn:  "data/app.db",
			want: "data/app.db?_fk=1&_txlock=immediate&_busy_timeout=5000",
		},
		{
			name: "existing_query",
			dsn:  "file:app.db?cache=shared",
			want: "file:app.db?cache=shared&_fk=1&_txlock=immediate&_busy_timeout=5000",
		},
		{
			name: "caller_overrides_kept",
			dsn:  "app.db?_fk=0&_busy_timeout=100",
			want: "app.db?_fk=0&_busy_timeout=100&_txlock=immediate",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := withDSNDefaults(test.dsn); got != test.want {
				t.Fatalf("withDSNDefaults(%q) = %q, want %q", test.dsn, got, test.want)
			}
		})
	}
}

func TestNewAppliesMigrationsAndSeedsRoles(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()

	roles, err := database.Queries.ListRoles(context.Background())
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	if len(roles) != 3 {
		t.Fatalf("expected 3 seeded roles, got %d", len(roles))
	}
}

func TestRunInTxRollsBackOnError(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "tx.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()
	ctx := context.Background()

	sentinel := errors.New("boom")
	err = database.RunInTx(ctx, func(tx *DB) error {
		if _, err := tx.Queries.CreateRole(ctx, "coach"); err != nil {
			t.Fatalf("create role: %v", err)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}

	roles, err := database.Queries.ListRoles(ctx)
	if err != nil {
		t.Fatalf("list roles: %v", err)
	}
	for _, role := range roles {
		if role.Name == "coach" {
			t.Fatalf("role insert was not rolled back")
		}
	}
}

func TestMigrationsCreateTables(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "tables.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()

	expectedTables := []string{
		"roles",
		"users",
		"venues",
		"courts",
		"court_units",
		"court_schedule_slots",
		"court_blocks",
		"bookings",
		"booking_courts",
	}
	for _, table := range expectedTables {
		var name string
		err := database.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name = ?",
			table,
		).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			t.Fatalf("missing expected table %q after migrations", table)
		}
		if err != nil {
			t.Fatalf("query table %q existence: %v", table, err)
		}
	}
}

func TestForeignKeyIntegrity(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "fk.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer database.Close()

	var foreignKeysEnabled int
	if err := database.QueryRow("PRAGMA foreign_keys;").Scan(&foreignKeysEnabled); err != nil {
		t.Fatalf("query foreign_keys pragma: %v", err)
	}
	if foreignKeysEnabled != 1 {
		t.Fatalf("expected foreign_keys pragma enabled, got %d", foreignKeysEnabled)
	}

	_, err = database.Exec(
		`INSERT INTO venues (owner_id, name, created_at, updated_at) VALUES (9999, 'Ghost Club', 0, 0)`,
	)
	if err == nil {
		t.Fatal("expected foreign key constraint failure for invalid owner_id")
	}
}
