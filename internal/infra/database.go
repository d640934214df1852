package infra

import (
	"fmt"

	"clinicash/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate
// for all tables and then applies the idempotent SQL patches GORM cannot
// express (partial unique indexes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates the schema. Also used by integration tests.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Clinic{},
		&model.PosTerminal{},
		&model.Client{},
		&model.PaymentMethodDefinition{},
		&model.CashSession{},
		&model.Ticket{},
		&model.Payment{},
		&model.DebtLedger{},
		&model.EntityChangeLog{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches applies DDL that AutoMigrate cannot express. Each
// statement is guarded so re-running on an already-patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one OPEN session per (clinic, terminal) pair. COALESCE folds
		// the NULL-terminal case into the same uniqueness guarantee.
		{"unique open session per clinic/terminal", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uniq_open_session_per_drawer') THEN
    CREATE UNIQUE INDEX uniq_open_session_per_drawer
        ON cash_sessions (clinic_id, COALESCE(pos_terminal_id, '00000000-0000-0000-0000-000000000000'::uuid))
        WHERE status = 'OPEN';
  END IF;
END $$`},
		// The cascade and the sequential-close check both scan open sessions
		// by clinic and opening time.
		{"open sessions by clinic/opening_time", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_open_sessions_clinic_opening') THEN
    CREATE INDEX idx_open_sessions_clinic_opening
        ON cash_sessions (clinic_id, opening_time)
        WHERE status = 'OPEN';
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
