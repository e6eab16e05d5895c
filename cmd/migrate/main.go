// Command migrate runs schema operations for the sql data backends.
package main

import (
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"

	"footballsocial/internal/config"
	"footballsocial/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <auto|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.DataBackend == config.BackendREST {
		return fmt.Errorf("the rest backend manages its own schema")
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "auto":
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("auto migrate failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		status := database.TableStatus(db)
		tables := make([]string, 0, len(status))
		for table := range status {
			tables = append(tables, table)
		}
		sort.Strings(tables)
		for _, table := range tables {
			log.Printf("backend=%s table=%s exists=%t", cfg.DataBackend, table, status[table])
		}
	default:
		return usage()
	}

	return nil
}
