package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"catalog-ingest/internal/cli"
	"catalog-ingest/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	if len(os.Args) < 2 {
		printUsage()
		return 1
	}

	command := os.Args[1]
	args := os.Args[2:]

	if command == "help" || command == "--help" || command == "-h" {
		printUsage()
		return 0
	}

	config.LoadDotEnv()
	ctx := context.Background()

	var err error
	switch command {
	case "init-db":
		err = cli.RunInitDB(ctx, args)
	case "ingest":
		err = cli.RunIngest(ctx, args)
	case "import-categories":
		err = cli.RunImportCategories(ctx, args)
	case "stats":
		err = cli.RunStats(ctx, args)
	case "watch":
		err = cli.RunWatch(ctx, args)
	case "serve":
		err = cli.RunServe(ctx, args)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		return 1
	}

	if err != nil {
		log.Printf("Error during '%s': %v", command, err)
		return 1
	}
	return 0
}

func printUsage() {
	fmt.Println("Catalog ingestion CLI")
	fmt.Println("Usage: catalog-ingest <command> [options]")
	fmt.Println("\nSetup Commands:")
	fmt.Println("  init-db [--db=<conn>]                  Creates the catalog tables if they do not exist.")
	fmt.Println("  import-categories --file=<path>        Inserts a category tree, parents first.")
	fmt.Println("\nIngestion Commands:")
	fmt.Println("  ingest --file=<path|-> [--dry-run] [--json]")
	fmt.Println("                                         Normalizes one export document and writes it as a batch.")
	fmt.Println("  watch [--dir=<path>] [--interval=<d>]  Processes export files as they arrive in a directory.")
	fmt.Println("  serve [--addr=<addr>]                  Accepts export documents on POST /api/batches.")
	fmt.Println("\nUtility Commands:")
	fmt.Println("  stats                                  Prints row counts of the catalog tables.")
	fmt.Println("  help                                   Shows this message.")
	fmt.Println("\nEnvironment Variables:")
	fmt.Println("  CATALOG_STORE_TYPE     'postgresql' (default) or 'sqlite'")
	fmt.Println("  DB_CONN_STRING         PostgreSQL connection string")
	fmt.Println("  CATALOG_SQLITE_PATH    SQLite database file (default: catalog.db)")
	fmt.Println("  CATALOG_CATEGORY_IDS   Comma-separated category allow-list (default: 74035,74033,261120)")
	fmt.Println("  CATALOG_CONFIG_FILE    Optional YAML configuration file")
	fmt.Println("  WATCH_DIR              Directory polled by 'watch' (default: inbox)")
	fmt.Println("  WATCH_INTERVAL         Poll interval for 'watch' (default: 5s)")
	fmt.Println("  WATCH_MAX_ATTEMPTS     Faults before a batch file is moved to failed/ (default: 3)")
	fmt.Println("  HTTP_ADDR              Listen address for 'serve' (default: :8080)")
	fmt.Println("  HTTP_MAX_BODY_BYTES    Largest accepted export document (default: 33554432)")
	fmt.Println("  LOG_LEVEL              logrus level (default: info)")
	fmt.Println("  LOG_FORMAT             'text' (default) or 'json'")
	fmt.Println("\nA .env file in the working directory is loaded if present.")
}
