package services

import (
	"fmt"
	"os"
	"time"

	"github.com/alexxvives/akademo_api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func postgresDSN() string {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		return dsn
	}

	// Fallback to individual environment variables
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		shared.GetEnv("DB_HOST", "localhost"),
		shared.GetEnv("DB_USER", "postgres"),
		shared.GetEnv("DB_PASSWORD", "postgres"),
		shared.GetEnv("DB_NAME", "akademo"),
		shared.GetEnv("DB_PORT", "5432"),
		shared.GetEnv("DB_SSLMODE", "disable"),
		shared.GetEnv("DB_TIMEZONE", "UTC"),
	)
}

// openPostgres connects with exponential backoff so the API can start before
// the database container is ready.
func openPostgres(dsn string) (db *gorm.DB, err error) {
	maxRetries := shared.GetEnvInt("DB_CONNECT_RETRIES", 10)
	retryDelay := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("Attempting to connect to database (attempt %d/%d)...", attempt, maxRetries)

		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
		})

		if err == nil {
			sqlDB, dbErr := db.DB()
			if dbErr == nil {
				pingErr := sqlDB.Ping()
				if pingErr == nil {
					sqlDB.SetMaxOpenConns(shared.GetEnvInt("DB_MAX_OPEN_CONNS", 25))
					sqlDB.SetMaxIdleConns(shared.GetEnvInt("DB_MAX_IDLE_CONNS", 5))
					sqlDB.SetConnMaxLifetime(30 * time.Minute)
					log.Println("Successfully connected to database")
					return db, nil
				}
				err = pingErr
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			break
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		// Exponential backoff with max delay of 10 seconds
		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	log.Printf("Failed to connect to database after %d attempts: %v", maxRetries, err)
	return nil, err
}
