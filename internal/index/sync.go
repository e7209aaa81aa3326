package index

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/JohnDeved/otrkey-cli/internal/client"
)

// SyncResult summarizes a catalog download.
type SyncResult struct {
	Mirrors int
	Rows    int
}

// Sync downloads the published mirror list and catalog and replaces the
// cached copies with them. Nothing is written unless both downloads succeed.
func Sync(ctx context.Context, c *client.Client, db *DB, catalogURL, mirrorsURL string, onProgress client.ProgressFunc) (SyncResult, error) {
	mirrors, err := c.FetchMirrors(ctx, mirrorsURL)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetching mirror list: %w", err)
	}

	rows, err := c.FetchCatalog(ctx, catalogURL, onProgress)
	if err != nil {
		return SyncResult{}, fmt.Errorf("fetching catalog: %w", err)
	}

	if err := db.ReplaceAll(mirrors, rows); err != nil {
		return SyncResult{}, fmt.Errorf("storing catalog: %w", err)
	}

	log.Info().Int("mirrors", len(mirrors)).Int("rows", len(rows)).Msg("catalog synced")
	return SyncResult{Mirrors: len(mirrors), Rows: len(rows)}, nil
}
