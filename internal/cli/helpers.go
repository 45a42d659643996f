package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/memosuite/memoq/internal/config"
	"github.com/memosuite/memoq/internal/db"
	"github.com/memosuite/memoq/internal/draft"
	"github.com/memosuite/memoq/internal/store"
)

// openStore loads config, opens the database, and verifies the schema is
// current. The caller owns closing the returned DB.
func openStore(cmd *cobra.Command) (*store.Store, *db.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override DB path from flag if provided
	if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
		cfg.DBPath = dbPath
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, pending, err := database.MigrationStatus()
	if err != nil {
		database.Close()
		return nil, nil, nil, err
	}
	if len(pending) > 0 {
		database.Close()
		return nil, nil, nil, database.RequiresMigrationError()
	}

	return store.New(database), database, cfg, nil
}

// newReconciler builds a draft reconciler honoring the configured
// autosave interval.
func newReconciler(st *store.Store, cfg *config.Config) *draft.Reconciler {
	rec := draft.NewReconciler(st, nil)
	if cfg != nil && cfg.AutosaveSeconds > 0 {
		rec.SetInterval(time.Duration(cfg.AutosaveSeconds) * time.Second)
	}
	return rec
}

// parseID parses a positive integer id argument
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %q", arg)
	}
	return id, nil
}

// readValueOrFile resolves a value flag: "@path" reads a file, "-" reads
// stdin, anything else is taken literally.
func readValueOrFile(value string) (string, error) {
	switch {
	case value == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	case strings.HasPrefix(value, "@"):
		data, err := os.ReadFile(value[1:])
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", value[1:], err)
		}
		return string(data), nil
	default:
		return value, nil
	}
}
