package db

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// Blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/subtrack/internal/models"
)

// ConnectAndMigrate opens the database selected by the DSN and brings the
// schema up to date. Postgres DSNs get a retry loop (container startup);
// anything else is treated as a sqlite file path. With MIGRATIONS=1 the SQL
// migrations in ./migrations run via golang-migrate (postgres only);
// otherwise AutoMigrate covers dev and sqlite setups.
func ConnectAndMigrate(rawDSN string) (*gorm.DB, error) {
	dsn := NormalizeDSN(rawDSN)
	if dsn == "" {
		return nil, errors.New("empty DATABASE_DSN, check environment configuration")
	}
	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "1" {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error
	if IsPostgresDSN(dsn) {
		for i := 0; i < 10; i++ {
			db, err = gorm.Open(postgres.Open(dsn), cfg)
			if err == nil {
				break
			}
			log.Println("retrying DB connection...", err)
			time.Sleep(2 * time.Second)
		}
	} else {
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.Println("[DB] using DSN:", MaskDSN(dsn))

	if migrationsRequested() {
		if !IsPostgresDSN(dsn) {
			return nil, errors.New("MIGRATIONS=1 requires a postgres DSN; sqlite uses AutoMigrate")
		}
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range []interface{}{&models.User{}, &models.Client{}} {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	for _, table := range []string{"users", "clients"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	return db, nil
}

func migrationsRequested() bool {
	v := strings.ToLower(os.Getenv("MIGRATIONS"))
	return v == "1" || v == "true" || v == "yes"
}

// runSQLMigrations executes migrations in ./migrations using the file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
