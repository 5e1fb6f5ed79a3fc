package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/spounge-ai/sysaudit/internal/infra/config"
	"github.com/spounge-ai/sysaudit/internal/infra/secrets"
	"github.com/spounge-ai/sysaudit/internal/wiring"
)

func main() {
	cfg, err := config.Load(os.Getenv("SYSAUDIT_CONFIG_PATH"), nil)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dbURL := cfg.Persistence.Postgres.URL
	if name := cfg.Persistence.Postgres.URLParameter; name != "" {
		awsCfg, err := wiring.LoadAWSConfig(context.Background(), cfg.AWS)
		if err != nil {
			log.Fatalf("failed to load aws config: %v", err)
		}
		dbURL, err = secrets.NewParameterStore(awsCfg).GetSecret(context.Background(), name)
		if err != nil {
			log.Fatalf("failed to resolve database url: %v", err)
		}
	}
	if dbURL == "" {
		log.Fatal("persistence.postgres.url is not set")
	}

	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		log.Fatalf("failed to create migration instance: %v", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("migration failed: %v", err)
	}

	fmt.Println("Migrations completed successfully.")

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to connect to database for verification: %v", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_name LIKE 'db_assessment_%' ORDER BY table_name`)
	if err != nil {
		log.Fatalf("failed to query tables: %v", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			log.Fatalf("failed to scan table name: %v", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("failed to list tables: %v", err)
	}

	if len(tables) == 0 {
		fmt.Println("No assessment tables found.")
		return
	}
	fmt.Println("Assessment tables:")
	for _, table := range tables {
		fmt.Printf("- %s\n", table)
	}
}
