package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/blongworth/locness-dash/internal/config"
)

// New builds the adapter selected by the validated configuration. File
// backends are chosen by extension: .parquet reads as a columnar file,
// anything else as a SQLite database. Called once at startup; there is no
// re-dispatch afterwards.
func New(ctx context.Context, cfg *config.Config) (Adapter, error) {
	switch {
	case cfg.DynamoDBTable != "":
		return NewDynamoDB(ctx, cfg.DynamoDBTable, cfg.DynamoDBRegion)
	case strings.HasSuffix(cfg.DataPath, ".parquet"):
		return NewParquet(cfg.DataPath), nil
	case cfg.DataPath != "":
		return NewSQLite(cfg.DataPath)
	default:
		return nil, fmt.Errorf("no backend configured")
	}
}
