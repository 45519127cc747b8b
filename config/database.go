package config

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/vnkhanh/crowdsourcing/logger"
	"github.com/vnkhanh/crowdsourcing/models"
)

// ConnectDB opens the configured database and migrates every table.
func ConnectDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DBPath)
	case "postgres", "":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}

	// In production, SQL is only logged at Warn unless DEBUG_SQL=true.
	logLevel := gormlogger.Info
	if cfg.IsProduction() && !cfg.DebugSQL {
		logLevel = gormlogger.Warn
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(
			log.New(logger.Writer(), "\r\n", log.LstdFlags),
			gormlogger.Config{LogLevel: logLevel, IgnoreRecordNotFoundError: true},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Infof("Connected to %s & migrated successfully", dialector.Name())
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Survey{},
		&models.Question{},
		&models.Submission{},
		&models.Answer{},
		&models.SurveyReport{},
		&models.SurveyReportDisplay{},
		&models.ExportJob{},
	)
}
