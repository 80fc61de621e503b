package store

import (
	"context"

	"go.mau.fi/util/dbutil"
)

// StoredSnapshot is one point-in-time hash set per account and kind. The
// set is replaced wholesale on every write; it is only ever compared, never
// queried element-wise.
type StoredSnapshot struct {
	AccountID string
	Kind      string
	Hashes    []string
}

func newStoredSnapshot(qh *dbutil.QueryHelper[*StoredSnapshot]) *StoredSnapshot {
	return &StoredSnapshot{}
}

func (ss *StoredSnapshot) Scan(row dbutil.Scannable) (*StoredSnapshot, error) {
	err := row.Scan(&ss.AccountID, &ss.Kind, &dbutil.JSON{Data: &ss.Hashes})
	if err != nil {
		return nil, err
	}
	return ss, nil
}

const (
	getSnapshotQuery = `
		SELECT account_id, kind, hashes FROM phonemeow_hash_snapshot WHERE account_id=$1 AND kind=$2
	`
	upsertSnapshotQuery = `
		INSERT INTO phonemeow_hash_snapshot (account_id, kind, hashes)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, kind) DO UPDATE SET hashes=excluded.hashes
	`
	deleteAllSnapshotsQuery = `DELETE FROM phonemeow_hash_snapshot WHERE account_id=$1`
)

type SnapshotQuery struct {
	*dbutil.QueryHelper[*StoredSnapshot]
}

// Get returns nil when no snapshot of the given kind has been archived.
func (sq *SnapshotQuery) Get(ctx context.Context, accountID, kind string) ([]string, error) {
	snapshot, err := sq.QueryOne(ctx, getSnapshotQuery, accountID, kind)
	if err != nil || snapshot == nil {
		return nil, err
	}
	if snapshot.Hashes == nil {
		// A persisted empty set is distinct from no snapshot at all.
		return []string{}, nil
	}
	return snapshot.Hashes, nil
}

func (sq *SnapshotQuery) Put(ctx context.Context, accountID, kind string, hashes []string) error {
	if hashes == nil {
		hashes = []string{}
	}
	return sq.Exec(ctx, upsertSnapshotQuery, accountID, kind, dbutil.JSON{Data: hashes})
}

func (sq *SnapshotQuery) DeleteAll(ctx context.Context, accountID string) error {
	return sq.Exec(ctx, deleteAllSnapshotsQuery, accountID)
}
