package db

import (
	"fmt"
	"time"

	"bosko/config"
	blog "bosko/logger"
	"bosko/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Models lists every table managed by AutoMigrate.
var Models = []interface{}{
	&model.User{},
	&model.OAuthCredential{},
	&model.Profile{},
	&model.ProfileConnection{},
	&model.Asset{},
	&model.Track{},
}

// Open connects to MySQL with gorm and configures the connection pool.
func Open(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.DBDebug {
		level = logger.Info
	}

	gdb, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{
		Logger:                                   logger.Default.LogMode(level),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	blog.Info("connected to database",
		blog.String("host", cfg.DBHost),
		blog.String("name", cfg.DBName))
	return gdb, nil
}

// Close closes the underlying connection pool.
func Close(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate creates or updates every table in Models.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}
	blog.Info("models migrated", blog.Int("tables", len(Models)))
	return nil
}
