// Package postgres is the production Store, backed by a pgx connection pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/config"
)

// Connect opens a pool, checks it answers and makes sure the schema exists.
func Connect(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	logger.Info("connected to postgres", zap.String("database", poolCfg.ConnConfig.Database), zap.Int32("max_conns", poolCfg.MaxConns))
	return pool, nil
}

// schema is applied on every start. Money columns are NUMERIC and round-trip through float64.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS vendors (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_1099_eligible BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS ingredients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		vendor_id TEXT NOT NULL DEFAULT '',
		purchase_price NUMERIC(14,4) NOT NULL,
		purchase_unit TEXT NOT NULL DEFAULT '',
		usage_unit TEXT NOT NULL DEFAULT '',
		unit_conversion_factor NUMERIC(14,6) NOT NULL,
		yield_percent NUMERIC(7,6) NOT NULL,
		last_price_update TIMESTAMPTZ NULL,
		deleted BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS menu_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		selling_price NUMERIC(14,4) NOT NULL,
		q_factor NUMERIC(14,4) NOT NULL DEFAULT 0,
		target_cost_percent NUMERIC(7,4) NOT NULL DEFAULT 0,
		estimated_prep_time_minutes NUMERIC(10,2) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS recipe_lines (
		menu_item_id TEXT NOT NULL REFERENCES menu_items(id),
		ingredient_id TEXT NOT NULL REFERENCES ingredients(id),
		quantity_used NUMERIC(14,6) NOT NULL,
		PRIMARY KEY (menu_item_id, ingredient_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		sale_date DATE NOT NULL,
		menu_item_id TEXT NOT NULL REFERENCES menu_items(id),
		quantity_sold INTEGER NOT NULL CHECK (quantity_sold > 0),
		discounts NUMERIC(14,4) NOT NULL DEFAULT 0,
		PRIMARY KEY (sale_date, menu_item_id)
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category_group TEXT NOT NULL,
		schedule_c_line TEXT NOT NULL DEFAULT '',
		deleted BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE TABLE IF NOT EXISTS expenses (
		id TEXT PRIMARY KEY,
		vendor_id TEXT NOT NULL,
		expense_date DATE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS expense_lines (
		id TEXT PRIMARY KEY,
		expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
		vendor_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		raw_vendor_code TEXT NOT NULL DEFAULT '',
		raw_description TEXT NOT NULL DEFAULT '',
		quantity NUMERIC(14,4) NOT NULL DEFAULT 0,
		unit_price NUMERIC(14,4) NOT NULL DEFAULT 0,
		line_total NUMERIC(14,4) NOT NULL,
		mapped_ingredient_id TEXT NOT NULL DEFAULT '',
		mapped_category_id TEXT NOT NULL DEFAULT '',
		mapping_confidence NUMERIC(4,3) NOT NULL DEFAULT 0,
		locked BOOLEAN NOT NULL DEFAULT FALSE,
		CHECK (mapped_ingredient_id = '' OR mapped_category_id = '')
	)`,
	`CREATE INDEX IF NOT EXISTS expense_lines_expense_idx ON expense_lines (expense_id, position)`,
	`CREATE TABLE IF NOT EXISTS mapping_rules (
		id TEXT PRIMARY KEY,
		vendor_id TEXT NOT NULL,
		match_type TEXT NOT NULL,
		match_value TEXT NOT NULL,
		ingredient_id TEXT NOT NULL DEFAULT '',
		category_id TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		priority INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS pay_runs (
		id TEXT PRIMARY KEY,
		period_start DATE NOT NULL,
		period_end DATE NOT NULL,
		total_gross NUMERIC(14,2) NOT NULL,
		total_net NUMERIC(14,2) NOT NULL,
		total_employer_cost NUMERIC(14,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payroll_records (
		id TEXT PRIMARY KEY,
		pay_run_id TEXT NOT NULL REFERENCES pay_runs(id),
		employee_id TEXT NOT NULL,
		employee_name TEXT NOT NULL DEFAULT '',
		period_start DATE NOT NULL,
		period_end DATE NOT NULL,
		regular_hours NUMERIC(8,2) NOT NULL,
		overtime_hours NUMERIC(8,2) NOT NULL,
		hourly_rate NUMERIC(10,4) NOT NULL,
		tips NUMERIC(14,2) NOT NULL,
		gross_pay NUMERIC(14,2) NOT NULL,
		federal_withholding NUMERIC(14,2) NOT NULL,
		state_withholding NUMERIC(14,2) NOT NULL,
		social_security NUMERIC(14,2) NOT NULL,
		medicare NUMERIC(14,2) NOT NULL,
		total_withholding NUMERIC(14,2) NOT NULL,
		net_pay NUMERIC(14,2) NOT NULL,
		employer_social_security NUMERIC(14,2) NOT NULL,
		employer_medicare NUMERIC(14,2) NOT NULL,
		futa NUMERIC(14,2) NOT NULL,
		suta NUMERIC(14,2) NOT NULL,
		employer_taxes NUMERIC(14,2) NOT NULL,
		total_employer_cost NUMERIC(14,2) NOT NULL,
		posted_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS payroll_records_period_idx ON payroll_records (period_start, period_end)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		expense_id TEXT NOT NULL REFERENCES expenses(id),
		vendor_id TEXT NOT NULL,
		invoice_number TEXT NOT NULL,
		invoice_date DATE NOT NULL,
		due_date DATE NULL,
		total NUMERIC(14,2) NOT NULL,
		status TEXT NOT NULL,
		approved_at TIMESTAMPTZ NULL,
		posted_at TIMESTAMPTZ NULL,
		rejection_reason TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS invoices_expense_idx ON invoices (expense_id)`,
	`CREATE TABLE IF NOT EXISTS ledger_lines (
		id TEXT PRIMARY KEY,
		invoice_id TEXT NOT NULL REFERENCES invoices(id),
		account TEXT NOT NULL,
		debit NUMERIC(14,2) NOT NULL DEFAULT 0,
		credit NUMERIC(14,2) NOT NULL DEFAULT 0,
		memo TEXT NOT NULL DEFAULT '',
		entry_date TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payment_batches (
		id TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		check_start_number INTEGER NOT NULL DEFAULT 0,
		approved_at TIMESTAMPTZ NULL,
		processed_at TIMESTAMPTZ NULL
	)`,
	`CREATE TABLE IF NOT EXISTS payment_items (
		batch_id TEXT NOT NULL REFERENCES payment_batches(id) ON DELETE CASCADE,
		invoice_id TEXT NOT NULL,
		vendor_id TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		check_number INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL,
		PRIMARY KEY (batch_id, invoice_id)
	)`,
	`CREATE INDEX IF NOT EXISTS payment_items_invoice_idx ON payment_items (invoice_id)`,
	`CREATE TABLE IF NOT EXISTS vendor_payments (
		batch_id TEXT NOT NULL,
		invoice_id TEXT NOT NULL,
		vendor_id TEXT NOT NULL,
		amount NUMERIC(14,2) NOT NULL,
		check_number INTEGER NOT NULL,
		paid_on DATE NOT NULL,
		PRIMARY KEY (batch_id, invoice_id)
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS vendor_payments_invoice_key ON vendor_payments (invoice_id)`,
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
