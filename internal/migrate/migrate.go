// Package migrate replays a legacy JSON-file mailbox into an indexed store.
// The replay rides the store's idempotent upsert, so running a migration
// twice leaves the target with the same row count as running it once.
package migrate

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/shapescale/dialbox/internal/store"
	"github.com/shapescale/dialbox/internal/store/jsonfile"
)

// Result summarizes one migration run.
type Result struct {
	Total   int
	Created int
	Skipped int
}

// Run copies every message from the legacy mailbox at legacyPath into dst.
// Messages whose IDs already exist in dst are counted as skipped.
func Run(ctx context.Context, legacyPath string, dst store.Store, log *logrus.Logger) (*Result, error) {
	src, err := jsonfile.Open(legacyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy mailbox: %w", err)
	}

	msgs, err := src.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy mailbox: %w", err)
	}

	res := &Result{Total: len(msgs)}
	for i := range msgs {
		created, err := dst.UpsertMessage(ctx, &msgs[i])
		if err != nil {
			return nil, fmt.Errorf("failed to migrate message %s: %w", msgs[i].ID, err)
		}
		if created {
			res.Created++
		} else {
			res.Skipped++
		}
	}

	if log != nil {
		log.WithFields(logrus.Fields{
			"total":   res.Total,
			"created": res.Created,
			"skipped": res.Skipped,
		}).Info("migration complete")
	}
	return res, nil
}
