package storage

import (
	"context"

	"bridgeScope/internal/model"
)

// Storage defines a sink for completed reconciliation snapshots. Sinks are
// write-only reports.
type Storage interface {
	PutSnapshot(ctx context.Context, snapshot model.Snapshot) error
}

// Multi fans a snapshot out to several sinks, stopping at the first error.
type Multi []Storage

func (m Multi) PutSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	for _, sink := range m {
		if err := sink.PutSnapshot(ctx, snapshot); err != nil {
			return err
		}
	}
	return nil
}
