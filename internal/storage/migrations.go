package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

var defaultMigrations = []Migration{
	{
		Version:     1,
		Description: "create legacy todos table",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS todos (
					id INTEGER PRIMARY KEY NOT NULL,
					value TEXT NOT NULL,
					intValue INTEGER
				)`,
				`INSERT OR IGNORE INTO todos (id, value, intValue) VALUES (1, 'hello', 1)`,
				`INSERT OR IGNORE INTO todos (id, value, intValue) VALUES (2, 'world', 2)`,
			}
			return execAll(tx, 1, statements)
		},
	},
	{
		Version:     2,
		Description: "create users, phones and bookings",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS users (
					id TEXT PRIMARY KEY,
					email TEXT UNIQUE NOT NULL,
					password TEXT NOT NULL,
					name TEXT NOT NULL,
					country_code TEXT,
					phone_number TEXT,
					address TEXT,
					gender TEXT,
					birthday TEXT,
					image TEXT,
					created_at TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS user_phones (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					country_code TEXT NOT NULL,
					phone_number TEXT NOT NULL,
					phone_type TEXT NOT NULL,
					FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
				)`,
				`CREATE TABLE IF NOT EXISTS bookings (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					from_location TEXT NOT NULL,
					to_location TEXT NOT NULL,
					departure_date TEXT NOT NULL,
					departure_time TEXT NOT NULL,
					arrival_date TEXT NOT NULL,
					arrival_time TEXT NOT NULL,
					customer_name TEXT NOT NULL,
					customer_contact TEXT NOT NULL,
					driver_name TEXT,
					driver_contact TEXT,
					owner_name TEXT,
					owner_contact TEXT,
					money REAL,
					advance REAL,
					payment_amount REAL,
					payment_status TEXT,
					oil_status TEXT,
					booking_status TEXT,
					return_type TEXT,
					extras TEXT,
					created_at TEXT NOT NULL,
					FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
				)`,
				`CREATE INDEX IF NOT EXISTS idx_users_email ON users(email)`,
				`CREATE INDEX IF NOT EXISTS idx_user_phones_user_id ON user_phones(user_id)`,
				`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
			}
			return execAll(tx, 2, statements)
		},
	},
	{
		Version:     3,
		Description: "create documents",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE TABLE IF NOT EXISTS documents (
					id TEXT PRIMARY KEY,
					user_id TEXT NOT NULL,
					name TEXT NOT NULL,
					file_path TEXT NOT NULL,
					file_type TEXT NOT NULL,
					expiry_date TEXT NOT NULL,
					comments TEXT,
					created_at TEXT NOT NULL,
					FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
				)`,
				`CREATE INDEX IF NOT EXISTS idx_documents_user_id ON documents(user_id)`,
			}
			if err := execAll(tx, 3, statements); err != nil {
				return err
			}

			// Older installs created documents before comments existed.
			ok, err := columnExists(tx, "documents", "comments")
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
			if _, err := tx.Exec(`ALTER TABLE documents ADD COLUMN comments TEXT`); err != nil {
				return fmt.Errorf("add documents.comments: %w", err)
			}
			return nil
		},
	},
	{
		Version:     4,
		Description: "enforce single primary phone",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`UPDATE user_phones
				SET phone_type = 'Secondary'
				WHERE phone_type = 'Primary'
				AND rowid NOT IN (
					SELECT MIN(rowid) FROM user_phones WHERE phone_type = 'Primary' GROUP BY user_id
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_phones_primary
				ON user_phones(user_id) WHERE phone_type = 'Primary'`,
			}
			return execAll(tx, 4, statements)
		},
	},
	{
		Version:     5,
		Description: "add booking and document created_at indexes",
		Up: func(tx *sql.Tx) error {
			statements := []string{
				`CREATE INDEX IF NOT EXISTS idx_bookings_user_id_created_at ON bookings(user_id, created_at)`,
				`CREATE INDEX IF NOT EXISTS idx_documents_user_id_created_at ON documents(user_id, created_at)`,
			}
			return execAll(tx, 5, statements)
		},
	},
}

func DefaultMigrations() []Migration {
	out := make([]Migration, len(defaultMigrations))
	copy(out, defaultMigrations)
	return out
}

func CurrentSchemaVersion() int {
	return maxMigrationVersion(defaultMigrations)
}

// RunMigrations applies every migration newer than PRAGMA user_version. Each
// version commits on its own, together with its user_version bump.
func RunMigrations(ctx context.Context, db *sql.DB, migrations []Migration) error {
	if db == nil {
		return fmt.Errorf("run migrations: db is nil")
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		description TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	current, err := readUserVersion(ctx, db)
	if err != nil {
		return err
	}

	maxVersion := maxMigrationVersion(ordered)
	if current > maxVersion {
		return fmt.Errorf("%w: db=%d code=%d", ErrSchemaTooNew, current, maxVersion)
	}

	for _, migration := range ordered {
		if migration.Version <= current {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration v%d: %w", migration.Version, err)
		}

		if err := migration.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration v%d (%s): %w", migration.Version, migration.Description, err)
		}

		if _, err := tx.Exec(`INSERT OR REPLACE INTO schema_migrations(version, description, applied_at) VALUES (?, ?, ?)`,
			migration.Version, migration.Description, fmtTime(nowUTC())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record schema migration v%d: %w", migration.Version, err)
		}

		// PRAGMA does not take bound parameters; Version is an int.
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, migration.Version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("update user_version v%d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", migration.Version, err)
		}
	}

	return nil
}

func readUserVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

func execAll(tx *sql.Tx, version int, statements []string) error {
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration v%d statement: %w", version, err)
		}
	}
	return nil
}

func maxMigrationVersion(migrations []Migration) int {
	max := 0
	for _, migration := range migrations {
		if migration.Version > max {
			max = migration.Version
		}
	}
	return max
}

func columnExists(tx *sql.Tx, table, column string) (bool, error) {
	rows, err := tx.Query(`PRAGMA table_info(` + table + `)`)
	if err != nil {
		return false, fmt.Errorf("query table info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			typeStr string
			notNull int
			dfltVal sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &typeStr, &notNull, &dfltVal, &pk); err != nil {
			return false, fmt.Errorf("scan table info %s: %w", table, err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterate table info %s: %w", table, err)
	}
	return false, nil
}
