package problem

import (
	"context"
	"fmt"
	"os"

	"github.com/mind-engage/tutorgrade/internal/db"
)

// Backend selects where questions and submissions live.
type Backend string

const (
	BackendLocal  Backend = "local"  // CSV/JSON files
	BackendSheets Backend = "sheets" // spreadsheet-backed
	BackendSQL    Backend = "sql"    // sqlite or postgres
)

type OpenOptions struct {
	Backend Backend

	DataDir string // local

	DBDriver string // sql
	DBDSN    string

	Sheet           SheetConfig // sheets
	CredentialsFile string
}

// Open builds the Repository for the configured backend.
func Open(ctx context.Context, o OpenOptions) (Repository, error) {
	switch o.Backend {
	case BackendLocal, "":
		return NewLocalFileStore(o.DataDir)
	case BackendSQL:
		dbh, err := db.Open(ctx, db.Driver(o.DBDriver), o.DBDSN)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
		return NewSQLStore(dbh, o.DBDriver), nil
	case BackendSheets:
		creds, err := os.ReadFile(o.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("sheets credentials: %w", err)
		}
		return NewSheetStore(ctx, o.Sheet, creds)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", o.Backend)
	}
}
