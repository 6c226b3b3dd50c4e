package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/smarttransit/seat-reservation-backend/internal/config"
	"github.com/smarttransit/seat-reservation-backend/internal/database"
)

// Tables holding passenger data. The catalog (countries to trips) is kept unless -all is set.
var (
	passengerTables = []string{"reservations", "verification_sessions", "verification_rate_limits", "users"}
	catalogTables   = []string{"trips", "seats", "vehicles", "routes", "cities", "regions", "countries"}
)

func main() {
	var (
		dbURLFlag string
		all       bool
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&all, "all", false, "also truncate the catalog tables")
	flag.Parse()

	cfg, err := config.LoadForTool(dbURLFlag)
	if err != nil {
		log.Fatal(err)
	}
	if cfg.IsProduction() {
		log.Fatal("refusing to clear data with ENVIRONMENT=production")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                cfg.Database.URL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	tables := passengerTables
	if all {
		tables = append(tables, catalogTables...)
	}

	fmt.Println("Connected to database. Truncating tables...")

	if _, err := db.Exec(truncateSQL(tables)); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	fmt.Println("Data cleared successfully (tables truncated, identities reset).")

	fmt.Println("Post-clear row counts:")
	for _, t := range tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}

func truncateSQL(tables []string) string {
	sql := "TRUNCATE TABLE "
	for i, t := range tables {
		if i > 0 {
			sql += ", "
		}
		sql += t
	}
	return sql + " RESTART IDENTITY CASCADE"
}
