package credentials

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/homevault/internal/dbx"
	"github.com/dmitrijs2005/homevault/internal/server/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresSource reads records from the credentials table.
type PostgresSource struct {
	db *sql.DB
}

func NewPostgresSource(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// OpenPostgres opens a pgx-backed *sql.DB for dsn and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func (s *PostgresSource) Load(ctx context.Context) ([]Record, error) {
	return loadRecords(ctx, s.db)
}

func loadRecords(ctx context.Context, db dbx.Querier) ([]Record, error) {
	query :=
		`SELECT username, password_hash FROM credentials
		 ORDER BY id
		 `

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Username, &r.PasswordHash); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return records, nil
}

// Add stores a record, replacing any rows already held for username so the
// table never grows duplicates through this path.
func (s *PostgresSource) Add(ctx context.Context, username, passwordHash string) error {
	if err := validateRecord(username, passwordHash); err != nil {
		return err
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.Querier) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE username = $1`, username); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credentials (username, password_hash) VALUES ($1, $2)`,
			username, passwordHash); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}
