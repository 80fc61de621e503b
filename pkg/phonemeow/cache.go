// phonemeow - a phone number identity resolution and contact sync engine.
// Copyright (C) 2024 Tulir Asokan
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package phonemeow

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"go.mau.fi/phonemeow/pkg/phonemeow/types"
)

// PairStore is the durable backing of the contact cache, scoped per
// signed-in account. The store package provides the SQL implementation.
type PairStore interface {
	GetAll(ctx context.Context, accountID string) ([]*types.ContactPair, error)
	Put(ctx context.Context, accountID string, pair *types.ContactPair) error
	Delete(ctx context.Context, accountID, contactHash string) error
	DeleteAll(ctx context.Context, accountID string) error
}

// SnapshotStore persists point-in-time hash sets per account and kind.
// Get returns nil when no snapshot of that kind exists.
type SnapshotStore interface {
	Get(ctx context.Context, accountID, kind string) ([]string, error)
	Put(ctx context.Context, accountID, kind string, hashes []string) error
	DeleteAll(ctx context.Context, accountID string) error
}

// Snapshot kinds. Local and server are the change-detection sets of the
// sync status check; mismatched records filtered hashes that produced no
// cached pair after a full sync, so they stop forcing resyncs.
const (
	SnapshotLocal      = "local"
	SnapshotServer     = "server"
	SnapshotMismatched = "mismatched"
)

// ContactCache is the queryable store of resolved ContactPairs: an offline
// fallback and the shortcut around rehashing already-resolved contacts.
// Every mutation writes through to the PairStore immediately so the cache
// survives process restarts; there is no batching. Upserts replace by
// contact content hash, last write wins.
type ContactCache struct {
	log       zerolog.Logger
	store     PairStore
	accountID string

	lock  sync.RWMutex
	pairs map[string]*types.ContactPair
	// userHashIndex maps every candidate hash of every cached contact's
	// numbers back to the contact hash owning it.
	userHashIndex map[string]string
}

// NewContactCache loads the persisted archive for the given account. A
// deserialization failure of the backing store is treated as an empty
// archive, logged and never fatal.
func NewContactCache(ctx context.Context, store PairStore, accountID string, log zerolog.Logger) *ContactCache {
	cache := &ContactCache{
		log:           log.With().Str("component", "contact_cache").Logger(),
		store:         store,
		accountID:     accountID,
		pairs:         make(map[string]*types.ContactPair),
		userHashIndex: make(map[string]string),
	}
	pairs, err := store.GetAll(ctx, accountID)
	if err != nil {
		cache.log.Warn().Err(err).Msg("Failed to load contact archive, starting empty")
		return cache
	}
	for _, pair := range pairs {
		cache.index(pair)
	}
	return cache
}

func (cc *ContactCache) index(pair *types.ContactPair) {
	contactHash := pair.Contact.ContentHash()
	cc.pairs[contactHash] = pair
	for _, hash := range CandidateHashesForAll(pair.Contact.DigitStrings()) {
		cc.userHashIndex[hash] = contactHash
	}
}

func (cc *ContactCache) unindex(contactHash string) {
	delete(cc.pairs, contactHash)
	for hash, owner := range cc.userHashIndex {
		if owner == contactHash {
			delete(cc.userHashIndex, hash)
		}
	}
}

// Add upserts one pair by contact content hash and writes through.
func (cc *ContactCache) Add(ctx context.Context, pair *types.ContactPair) error {
	cc.lock.Lock()
	defer cc.lock.Unlock()
	return cc.addLocked(ctx, pair)
}

func (cc *ContactCache) addLocked(ctx context.Context, pair *types.ContactPair) error {
	contactHash := pair.Contact.ContentHash()
	cc.unindex(contactHash)
	cc.index(pair)
	return cc.store.Put(ctx, cc.accountID, pair)
}

// AddAll upserts a batch of pairs. Persistence failures are returned after
// every pair has been applied in memory.
func (cc *ContactCache) AddAll(ctx context.Context, pairs []*types.ContactPair) error {
	cc.lock.Lock()
	defer cc.lock.Unlock()
	var firstErr error
	for _, pair := range pairs {
		if err := cc.addLocked(ctx, pair); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// GetByContactHash returns the cached pair for a contact content hash, or
// nil when the contact has not been archived.
func (cc *ContactCache) GetByContactHash(contactHash string) *types.ContactPair {
	cc.lock.RLock()
	defer cc.lock.RUnlock()
	return cc.pairs[contactHash]
}

// GetByUserHash cross-references a server-side user hash back to the local
// contact whose numbers could have produced it. This is how a display name
// and photo are rendered for a bare directory account.
func (cc *ContactCache) GetByUserHash(userHash string) *types.ContactPair {
	cc.lock.RLock()
	defer cc.lock.RUnlock()
	contactHash, ok := cc.userHashIndex[userHash]
	if !ok {
		return nil
	}
	return cc.pairs[contactHash]
}

// GetByPhoneNumbers returns the first cached pair whose contact shares any
// phone number digit string with the input set.
func (cc *ContactCache) GetByPhoneNumbers(digits []string) *types.ContactPair {
	cc.lock.RLock()
	defer cc.lock.RUnlock()
	for _, pair := range cc.pairs {
		for _, own := range pair.Contact.DigitStrings() {
			if slices.Contains(digits, own) {
				return pair
			}
		}
	}
	return nil
}

// All returns every cached pair.
func (cc *ContactCache) All() []*types.ContactPair {
	cc.lock.RLock()
	defer cc.lock.RUnlock()
	pairs := make([]*types.ContactPair, 0, len(cc.pairs))
	for _, pair := range cc.pairs {
		pairs = append(pairs, pair)
	}
	return pairs
}

// Len returns the number of cached pairs.
func (cc *ContactCache) Len() int {
	cc.lock.RLock()
	defer cc.lock.RUnlock()
	return len(cc.pairs)
}

// Clear empties the cache and its persisted representation.
func (cc *ContactCache) Clear(ctx context.Context) error {
	cc.lock.Lock()
	defer cc.lock.Unlock()
	cc.pairs = make(map[string]*types.ContactPair)
	cc.userHashIndex = make(map[string]string)
	return cc.store.DeleteAll(ctx, cc.accountID)
}
