package configs

import (
	"fmt"

	"brunopizza/entity"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ConnectionDB opens the configured database. TranslateError maps driver unique
// violations to gorm.ErrDuplicatedKey.
func ConnectionDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBSource)
	case "postgres":
		dialector = postgres.Open(cfg.DBSource)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	level := gormlogger.Warn
	if cfg.AppEnv == "dev" {
		level = gormlogger.Info
	}
	return gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(level),
	})
}

func SetupDatabase(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.User{},
		&entity.Product{}, &entity.Size{}, &entity.Topping{},
		&entity.Voucher{},
		&entity.Order{}, &entity.OrderLine{}, &entity.OrderLineTopping{},
		&entity.OrderStatusLog{},
		&entity.BankTransaction{},
	)
}
