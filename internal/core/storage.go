package core

import (
	"context"
	"fmt"
	"os"

	"surveycore/internal/infra/persistence/csvstore"
	"surveycore/internal/infra/persistence/memory"
	"surveycore/internal/infra/persistence/postgres"
	"surveycore/internal/infra/persistence/sqlite"
	"surveycore/pkg/domain"
)

// StorageDriver identifies a concrete response store implementation.
type StorageDriver string

const (
	StorageCSV      StorageDriver = "csv"      // CSV log + snapshot files (default)
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenResponseStore selects a backend using environment variables.
// Defaults to csv when unset.
//
//	SURVEYCORE_STORAGE_DRIVER: csv|memory|sqlite|postgres (default csv)
//	SURVEYCORE_CSV_DIR: directory for CSV files when driver=csv (default .)
//	SURVEYCORE_SQLITE_PATH: path to sqlite file (default ./surveycore.db)
//	SURVEYCORE_POSTGRES_DSN: postgres DSN when driver=postgres
//
// extended controls whether CSV output carries the extended intake columns.
func OpenResponseStore(ctx context.Context, extended bool) (domain.ResponseStore, error) {
	driver := os.Getenv("SURVEYCORE_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageCSV)
	}
	switch StorageDriver(driver) {
	case StorageCSV:
		dir := os.Getenv("SURVEYCORE_CSV_DIR")
		if dir == "" {
			dir = "."
		}
		return csvstore.NewStore(dir, extended)
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		path := os.Getenv("SURVEYCORE_SQLITE_PATH")
		return sqlite.NewStore(path)
	case StoragePostgres:
		return postgres.NewStore(ctx, os.Getenv("SURVEYCORE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
