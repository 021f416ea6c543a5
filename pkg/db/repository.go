package db

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/smith3v/tg-phrasebook/pkg/config"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Export DB variable
var DB *gorm.DB

func InitDB(cfg config.DatabaseConfig) error {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		logger.Error("unsupported database configuration", "driver", cfg.Driver, "error", err)
		return err
	}
	queries, levelErr := newQueryLogger(config.AppConfig.Logging, dialector.Name())
	if levelErr != nil {
		logger.Error("invalid gorm log level", "value", config.AppConfig.Logging.GormLevel, "error", levelErr)
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{Logger: queries})
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return err
	}
	if err := Migrate(gdb); err != nil {
		return err
	}
	DB = gdb
	return nil
}

func dialectorFor(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", config.DriverSQLite:
		path := strings.TrimSpace(cfg.Path)
		if path == "" {
			path = config.DefaultDatabasePath
		}
		return sqlite.Open(SQLiteDSN(path)), nil
	case config.DriverPostgres:
		dsn := "host=" + cfg.Host +
			" user=" + cfg.User +
			" password=" + cfg.Password +
			" dbname=" + cfg.DBName +
			" port=" + strconv.Itoa(cfg.Port) +
			" sslmode=" + cfg.SSLMode
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// SQLiteDSN enables foreign keys on every pooled connection so that deleting
// a pair cascades to its tags and progress row.
func SQLiteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_foreign_keys=on"
}

// Migrate brings the schema up to date. Installations created before
// categories existed get every pair tagged with DefaultCategory.
func Migrate(gdb *gorm.DB) error {
	if gdb == nil {
		return nil
	}
	migrator := gdb.Migrator()
	hadPairs := migrator.HasTable(&TranslationPair{})
	hadTags := migrator.HasTable(&CategoryTag{})

	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		logger.Error("failed to auto-migrate database", "error", err)
		return err
	}
	if hadPairs && !hadTags {
		if err := backfillDefaultCategory(gdb); err != nil {
			logger.Error("failed to backfill default category", "error", err)
			return err
		}
	}
	return nil
}

func backfillDefaultCategory(gdb *gorm.DB) error {
	res := gdb.Exec(`
INSERT INTO category_tags (pair_id, category)
SELECT id, ? FROM translation_pairs
`, DefaultCategory)
	if res.Error != nil {
		return res.Error
	}
	logger.Info("backfilled default category", "category", DefaultCategory, "pairs", res.RowsAffected)
	return nil
}
