package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexxvives/akademo_api/model"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const DATABASE_SVC = "database_svc"

const (
	DriverPostgres = "postgres"
	DriverSqlite   = "sqlite"
)

// DatabaseService owns the gorm connection. DB_DRIVER picks postgres for
// deployments or sqlite for local development.
type DatabaseService struct {
	context.DefaultService
	db *gorm.DB

	driver           string
	database         string
	cleanupInterval  time.Duration
	sessionRetention time.Duration
	stopCleanup      chan struct{}
}

func (ds DatabaseService) Id() string {
	return DATABASE_SVC
}

func (ds DatabaseService) Db() *gorm.DB {
	return ds.db
}

func (ds DatabaseService) Driver() string {
	return ds.driver
}

func (ds *DatabaseService) Configure(ctx *context.Context) error {
	ds.driver = strings.ToLower(shared.GetEnv("DB_DRIVER", DriverSqlite))
	switch ds.driver {
	case DriverPostgres:
		ds.database = postgresDSN()
	case DriverSqlite:
		ds.database = shared.GetEnv("DB_DATABASE", "akademo.db")
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q, expected postgres or sqlite", ds.driver)
	}

	ds.cleanupInterval = shared.GetEnvDuration("SESSION_CLEANUP_INTERVAL", 24*time.Hour)
	ds.sessionRetention = shared.GetEnvDuration("SESSION_STALE_RETENTION", 30*24*time.Hour)

	return ds.DefaultService.Configure(ctx)
}

// Start the service and open connection to the database
// Migrate any tables that have changed since last runtime
func (ds *DatabaseService) Start() (err error) {
	ds.db, err = Open(ds.driver, ds.database)
	if err != nil {
		return err
	}

	if err = MigrateModels(ds.db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	ds.stopCleanup = startSessionCleanup(ds.db, ds.cleanupInterval, ds.sessionRetention)

	log.WithField("driver", ds.driver).Println("Database connected and migrated successfully")
	return nil
}

func (ds *DatabaseService) Shutdown() {
	if ds.stopCleanup != nil {
		close(ds.stopCleanup)
	}
	if ds.db != nil {
		if sqlDB, err := ds.db.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func (ds *DatabaseService) HandleError(err error) error {
	return classifyDatabaseError(err)
}

// Open connects to dsn with the named driver
func Open(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case DriverPostgres:
		return openPostgres(dsn)
	case DriverSqlite:
		return OpenSqlite(dsn)
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// DatabaseProvider is implemented by every gorm backed store
type DatabaseProvider interface {
	Db() *gorm.DB
	HandleError(err error) error
}

func migrationModels() []interface{} {
	return []interface{}{
		// Content models
		&model.Academy{},
		&model.Lesson{},
		&model.Video{},

		&model.User{},

		// Session integrity models
		&model.DeviceSession{},
		&model.PlayState{},
	}
}

// MigrateModels creates or updates every table the engine needs
func MigrateModels(db *gorm.DB) error {
	return db.AutoMigrate(migrationModels()...)
}

// classifyDatabaseError tags err with a stable error type and logs it at a
// level matching its severity. Not found rows are also marked with
// shared.ErrNotFound so callers can test with errors.Is.
func classifyDatabaseError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound // 404
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict // 409
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest // 400
		errorType = "FOREIGN_KEY_VIOLATION"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError // 500
		errorType = "TRANSACTION_ERROR"
	default:
		msg := err.Error()
		if strings.Contains(msg, "duplicate key value violates unique constraint") || strings.Contains(msg, "UNIQUE constraint failed") {
			statusCode = http.StatusConflict // 409
			errorType = "UNIQUE_CONSTRAINT"
		} else if (strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist")) || strings.Contains(msg, "no such table") {
			statusCode = http.StatusInternalServerError // 500
			errorType = "SCHEMA_ERROR"
		} else if strings.Contains(msg, "connection refused") || strings.Contains(msg, "database is closed") || strings.Contains(msg, "database is locked") {
			statusCode = http.StatusServiceUnavailable // 503
			errorType = "DATABASE_CONNECTION_ERROR"
		} else {
			statusCode = http.StatusInternalServerError // 500
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	if statusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w: %w", errorType, shared.ErrNotFound, err)
	}
	if statusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%s: %w: %w", errorType, shared.ErrTransientStore, err)
	}
	return fmt.Errorf("%s: %w", errorType, err)
}

// startSessionCleanup periodically drops device rows that have been inactive
// longer than retention. The returned channel stops the loop when closed.
func startSessionCleanup(db *gorm.DB, interval, retention time.Duration) chan struct{} {
	stop := make(chan struct{})
	if interval <= 0 || retention <= 0 {
		return stop
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				res := db.Where("is_active = ? AND last_seen_at < ?", false, time.Now().Add(-retention)).
					Delete(&model.DeviceSession{})
				if res.Error != nil {
					log.Printf("Failed to cleanup stale device sessions: %v", res.Error)
					continue
				}
				if res.RowsAffected > 0 {
					log.WithField("deleted", res.RowsAffected).Info("Cleaned up stale device sessions")
				}
			}
		}
	}()
	return stop
}
