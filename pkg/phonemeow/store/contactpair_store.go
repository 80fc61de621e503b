package store

import (
	"context"

	"go.mau.fi/util/dbutil"

	"go.mau.fi/phonemeow/pkg/phonemeow/types"
)

// StoredPair is one archived ContactPair row, keyed by account and contact
// content hash. The pair itself is stored as a JSON blob: its shape changes
// with the engine and the store does not need to query inside it.
type StoredPair struct {
	AccountID   string
	ContactHash string
	Pair        *types.ContactPair
}

func newStoredPair(qh *dbutil.QueryHelper[*StoredPair]) *StoredPair {
	return &StoredPair{}
}

func (sp *StoredPair) Scan(row dbutil.Scannable) (*StoredPair, error) {
	var pair types.ContactPair
	err := row.Scan(&sp.AccountID, &sp.ContactHash, &dbutil.JSON{Data: &pair})
	if err != nil {
		return nil, err
	}
	sp.Pair = &pair
	return sp, nil
}

const (
	getAllPairsQuery = `
		SELECT account_id, contact_hash, pair FROM phonemeow_contact_pair WHERE account_id=$1
	`
	upsertPairQuery = `
		INSERT INTO phonemeow_contact_pair (account_id, contact_hash, pair)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id, contact_hash) DO UPDATE SET pair=excluded.pair
	`
	deletePairQuery     = `DELETE FROM phonemeow_contact_pair WHERE account_id=$1 AND contact_hash=$2`
	deleteAllPairsQuery = `DELETE FROM phonemeow_contact_pair WHERE account_id=$1`
)

type PairQuery struct {
	*dbutil.QueryHelper[*StoredPair]
}

func (pq *PairQuery) GetAll(ctx context.Context, accountID string) ([]*types.ContactPair, error) {
	rows, err := pq.QueryMany(ctx, getAllPairsQuery, accountID)
	if err != nil {
		return nil, err
	}
	pairs := make([]*types.ContactPair, len(rows))
	for i, row := range rows {
		pairs[i] = row.Pair
	}
	return pairs, nil
}

func (pq *PairQuery) Put(ctx context.Context, accountID string, pair *types.ContactPair) error {
	return pq.Exec(ctx, upsertPairQuery, accountID, pair.Contact.ContentHash(), dbutil.JSON{Data: pair})
}

func (pq *PairQuery) Delete(ctx context.Context, accountID, contactHash string) error {
	return pq.Exec(ctx, deletePairQuery, accountID, contactHash)
}

func (pq *PairQuery) DeleteAll(ctx context.Context, accountID string) error {
	return pq.Exec(ctx, deleteAllPairsQuery, accountID)
}
