package main

import (
	"flag"
	"log"
	"strings"
	"time"

	"github.com/alexxvives/akademo_api/seed/seeders"
	"github.com/alexxvives/akademo_api/services"
	"github.com/alexxvives/akademo_api/shared"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		seedType = flag.String("type", "all", "Type of seeding: all, catalog, users")
		driver   = flag.String("driver", "", "Database driver, postgres or sqlite (overrides DB_DRIVER)")
		dsn      = flag.String("db", "", "Database path or DSN (overrides DB_DATABASE / DATABASE_URL)")
		tokens   = flag.Bool("tokens", false, "Print a development access token for every seeded user")
		help     = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	dbDriver := strings.ToLower(*driver)
	if dbDriver == "" {
		dbDriver = strings.ToLower(shared.GetEnv("DB_DRIVER", services.DriverSqlite))
	}
	databaseDSN := *dsn
	if databaseDSN == "" {
		if dbDriver == services.DriverPostgres {
			databaseDSN = shared.GetEnv("DATABASE_URL", "")
		} else {
			databaseDSN = shared.GetEnv("DB_DATABASE", "akademo.db")
		}
	}

	db, err := services.Open(dbDriver, databaseDSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := services.MigrateModels(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Printf("Connected to %s database", dbDriver)

	mainSeeder := seeders.NewMainSeeder(db)

	switch *seedType {
	case "all":
		log.Println("Running complete database seeding...")
		err = mainSeeder.SeedAll()
	case "catalog":
		log.Println("Seeding academies, lessons and videos only...")
		err = mainSeeder.SeedCatalogOnly()
	case "users":
		log.Println("Seeding users only...")
		err = mainSeeder.SeedUsersOnly()
	default:
		log.Fatalf("Unknown seed type: %s. Use 'all', 'catalog' or 'users'", *seedType)
	}
	if err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	if *tokens {
		printTokens()
	}

	log.Println("Seeding operation completed successfully!")
}

func printTokens() {
	secret := shared.GetEnv("JWT_SECRET", "")
	if secret == "" {
		log.Println("JWT_SECRET is not set, skipping development tokens")
		return
	}

	jwtSvc := services.NewJWTService(secret, shared.GetEnvDuration("JWT_ACCESS_TOKEN_TTL", 24*time.Hour))
	for _, user := range seeders.DemoUsers() {
		token, err := jwtSvc.ToJWT(user.ID, user.Role)
		if err != nil {
			log.Printf("Failed to sign token for %s: %v", user.Email, err)
			continue
		}
		log.Printf("%-8s %s", user.Role, token)
	}
}

func showHelp() {
	log.Println(`
Database Seeding Tool for the Akademo viewing session API

Usage: go run ./seed [flags]

Flags:
  -type string
        Type of seeding to perform (default "all")
        Options: all, catalog, users
  -driver string
        postgres or sqlite (overrides DB_DRIVER)
  -db string
        Database path or DSN (overrides DB_DATABASE / DATABASE_URL)
  -tokens
        Print a development access token for every seeded user
  -help
        Show this help message

Environment Variables:
  DB_DRIVER   - Database driver (default: sqlite)
  DB_DATABASE - sqlite database path (default: akademo.db)
  JWT_SECRET  - Signing secret used by -tokens
`)
}
