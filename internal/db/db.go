package db

import (
	"fmt"
	"strings"

	"decisionjar/internal/auth"
	"decisionjar/internal/jar"
	"decisionjar/internal/jobs"
	"decisionjar/internal/rewards"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens postgres for postgres:// DSNs and sqlite for file: or *.db DSNs.
func Connect(dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		dialector = postgres.Open(dsn)
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"):
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL %q", dsn)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if gdb.Dialector.Name() == "sqlite" {
		// single writer; also keeps ":memory:" databases alive across pool connections
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&auth.User{},
		&jar.Group{},
		&jar.Membership{},
		&jar.Idea{},
		&rewards.UnlockedAchievement{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	stmts := []string{
		// candidate pool lookup: group + unselected
		`create index if not exists idx_ideas_pool on ideas(group_id, selected_at, category);`,
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	if gdb.Dialector.Name() == "postgres" {
		stmts = append(stmts,
			`create index if not exists idx_ideas_tags on ideas using gin (tags);`,
			`create index if not exists idx_ideas_unselected on ideas(group_id) where selected_at is null;`,
		)
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
