package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/amissa/backend/internal/config"
	"github.com/amissa/backend/internal/logging"
	"github.com/amissa/backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const usageText = `Usage: migrate [command]

Commands:
  (default)   apply pending migrations
  status      list applied and pending migrations
  reset       drop every table and recreate from the consolidated schema
  fresh       drop every table and apply all migrations in order`

func main() {
	cfg := config.Load()
	logging.Setup()

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	ctx := context.Background()
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logging.Fatal("connect failed", "error", err)
	}
	defer pool.Close()

	m := &migrator{pool: pool, dir: findMigrationDir()}
	switch cmd {
	case "":
		err = m.up(ctx)
	case "status":
		err = m.status(ctx, os.Stdout)
	case "reset":
		if err = m.dropAll(ctx); err == nil {
			err = m.consolidated(ctx)
		}
	case "fresh":
		if err = m.dropAll(ctx); err == nil {
			err = m.up(ctx)
		}
	default:
		fmt.Fprintln(os.Stderr, usageText)
		os.Exit(2)
	}
	if err != nil {
		logging.Fatal("migrate failed", "command", cmd, "error", err)
	}
}

func findMigrationDir() string {
	for _, dir := range []string{"migrations", "../migrations", "../../migrations"} {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			return dir
		}
	}
	return "migrations"
}

// upFiles returns the sorted *.up.sql migration names of dir, without the suffix.
func upFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, strings.TrimSuffix(e.Name(), ".up.sql"))
		}
	}
	sort.Strings(names)
	return names, nil
}

type migrator struct {
	pool *pgxpool.Pool
	dir  string
}

func (m *migrator) ensureTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	return err
}

func (m *migrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.pool.Query(ctx, `SELECT name FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(names))
	for _, n := range names {
		done[n] = true
	}
	return done, nil
}

func (m *migrator) read(file string) (string, error) {
	b, err := os.ReadFile(filepath.Join(m.dir, file))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	return string(b), nil
}

// up applies each pending migration and records it in the same transaction.
func (m *migrator) up(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	names, err := upFiles(m.dir)
	if err != nil {
		return err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return err
	}

	count := 0
	for _, name := range names {
		if done[name] {
			continue
		}
		sql, err := m.read(name + ".up.sql")
		if err != nil {
			return err
		}
		err = pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, sql); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name)
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		count++
		slog.Info("migration applied", "migration", name)
	}

	if count == 0 {
		slog.Info("all migrations already applied")
	} else {
		slog.Info("migrations completed", "count", count)
	}
	return nil
}

func (m *migrator) status(ctx context.Context, w io.Writer) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	names, err := upFiles(m.dir)
	if err != nil {
		return err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return err
	}
	return writeStatus(w, names, done)
}

// writeStatus prints one line per migration and fails when some are pending.
func writeStatus(w io.Writer, names []string, done map[string]bool) error {
	pending := 0
	for _, name := range names {
		state := "applied"
		if !done[name] {
			state = "pending"
			pending++
		}
		fmt.Fprintf(w, "%-8s %s\n", state, name)
	}
	if pending > 0 {
		return errPending{n: pending}
	}
	return nil
}

type errPending struct{ n int }

func (e errPending) Error() string { return fmt.Sprintf("%d pending migrations", e.n) }

func (m *migrator) dropAll(ctx context.Context) error {
	sql, err := m.read("000_drop_all.sql")
	if err != nil {
		return err
	}
	if _, err := m.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("drop all: %w", err)
	}
	slog.Info("all tables dropped")
	return nil
}

// consolidated creates the schema in one step and marks every migration as applied.
func (m *migrator) consolidated(ctx context.Context) error {
	sql, err := m.read("000_consolidated.sql")
	if err != nil {
		return err
	}
	names, err := upFiles(m.dir)
	if err != nil {
		return err
	}
	if _, err := m.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("consolidated schema: %w", err)
	}
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, name := range names {
		batch.Queue(`INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING`, name)
	}
	if err := m.pool.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	slog.Info("consolidated schema applied", "migrations_marked", len(names))
	return nil
}
