package db

import (
	"fmt"
	"log/slog"
	"strings"

	"pressroom/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database named by url. A "sqlite://" prefix selects
// the embedded sqlite driver, anything else is handed to postgres.
func Open(url string, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	isSQLite := strings.HasPrefix(url, "sqlite://")

	if isSQLite {
		path := strings.TrimPrefix(url, "sqlite://")
		dialector = sqlite.Open(sqliteDSN(path))
		log.Info("connecting to sqlite database", "path", path)
	} else {
		// pgx accepts both URL and key=value DSNs.
		dialector = postgres.Open(url)
		log.Info("connecting to postgres database")
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		// sqlite allows one writer; a single connection serializes
		// transactions instead of failing them with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	log.Info("database connection established")
	return database, nil
}

func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Migrate creates or updates every table the service uses.
func Migrate(database *gorm.DB) error {
	return database.AutoMigrate(
		&models.User{},
		&models.Hashtag{},
		&models.Content{},
		&models.Comment{},
		&models.ArticleLike{},
		&models.CommentLike{},
		&models.Follow{},
		&models.Notification{},
	)
}
