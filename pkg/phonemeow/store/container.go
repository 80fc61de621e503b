package store

import (
	"context"

	"go.mau.fi/util/dbutil"

	"go.mau.fi/phonemeow/pkg/phonemeow/store/upgrades"
)

// Container is a wrapper for a SQL database holding the contact pair
// archive and hash snapshots of any number of signed-in accounts.
type Container struct {
	db *dbutil.Database
}

func NewStore(db *dbutil.Database, log dbutil.DatabaseLogger) *Container {
	return &Container{db: db.Child("phonemeow_version", upgrades.Table, log)}
}

func (c *Container) Upgrade(ctx context.Context) error {
	return c.db.Upgrade(ctx)
}

func (c *Container) PairQuery() *PairQuery {
	return &PairQuery{dbutil.MakeQueryHelper(c.db, newStoredPair)}
}

func (c *Container) SnapshotQuery() *SnapshotQuery {
	return &SnapshotQuery{dbutil.MakeQueryHelper(c.db, newStoredSnapshot)}
}
