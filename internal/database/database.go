package database

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Connect opens and pings the archive database. driver is "postgres" or
// "sqlite".
func Connect(driver, dbURL string) (*sqlx.DB, error) {
	slog.Info("[DATABASE] Connecting", "driver", driver, "url_length", len(dbURL))

	db, err := sqlx.Connect(driver, dbURL)
	if err != nil {
		slog.Error("[DATABASE] Connection failed", "driver", driver, "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	slog.Info("[DATABASE] Connection established", "driver", driver)
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Archived history ledger entries, one row per entry per engine session
		`CREATE TABLE IF NOT EXISTS bin_history (
			session_id TEXT NOT NULL,
			entry_id BIGINT NOT NULL,
			bin_id INT NOT NULL,
			bin_name TEXT NOT NULL,
			action TEXT NOT NULL CHECK(action IN ('Emptied', 'Collected')),
			fill_level INT NOT NULL CHECK(fill_level >= 0 AND fill_level <= 100),
			volume_liters DOUBLE PRECISION NOT NULL,
			recorded_at BIGINT NOT NULL,
			archived_at BIGINT NOT NULL,
			PRIMARY KEY (session_id, entry_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bin_history_recorded_at ON bin_history(recorded_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bin_history_bin_id ON bin_history(bin_id)`,
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	slog.Info("[DATABASE] Migrations applied", "count", len(migrations))
	return nil
}
