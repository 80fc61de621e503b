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
	"fmt"

	"golang.org/x/exp/slices"

	"go.mau.fi/phonemeow/pkg/phonemeow/addressbook"
	"go.mau.fi/phonemeow/pkg/phonemeow/types"
)

type SyncReason string

const (
	SyncReasonLocalChanged  SyncReason = "local-hashes-changed"
	SyncReasonServerChanged SyncReason = "server-hashes-changed"
	SyncReasonUncachedMatch SyncReason = "uncached-matches"
	SyncReasonUpToDate      SyncReason = "up-to-date"
)

type SyncDecision struct {
	ResyncRequired bool
	Reason         SyncReason
}

// localUserHashes is the union of candidate hashes over every phone number
// of every device contact, sorted so snapshots compare stably.
func localUserHashes(contacts []types.Contact) []string {
	var numbers []string
	for _, contact := range contacts {
		numbers = append(numbers, contact.DigitStrings()...)
	}
	hashes := CandidateHashesForAll(numbers)
	slices.Sort(hashes)
	return hashes
}

func hashSetsEqual(a, b []string) bool {
	sortedA := slices.Clone(a)
	sortedB := slices.Clone(b)
	slices.Sort(sortedA)
	slices.Sort(sortedB)
	return slices.Equal(sortedA, sortedB)
}

// DetermineSyncStatus decides whether the expensive fetch-and-match cycle
// against the remote directory is necessary. Three tiers, cheapest first:
//
//  1. No local snapshot, a changed local hash set, or no server snapshot
//     means the device contact set changed since the last run.
//  2. A server hash set that differs from the archived one means the
//     registered directory changed. The fresh server set is persisted even
//     though resync is reported, so the next comparison runs against
//     current truth.
//  3. Both snapshots matching current reality: if some hash in the
//     filtered server-local intersection is not yet resolvable through the
//     cache, matches exist that were never cached.
//
// The check trades a little staleness risk for skipping a full contact
// fetch and per-contact matching pass on every run.
func (cli *Client) DetermineSyncStatus(ctx context.Context, contacts []types.Contact) (SyncDecision, error) {
	localHashes := localUserHashes(contacts)

	archivedLocal, err := cli.Snapshots.Get(ctx, cli.AccountID, SnapshotLocal)
	if err != nil {
		return SyncDecision{}, fmt.Errorf("failed to load local hash snapshot: %w", err)
	}
	archivedServer, err := cli.Snapshots.Get(ctx, cli.AccountID, SnapshotServer)
	if err != nil {
		return SyncDecision{}, fmt.Errorf("failed to load server hash snapshot: %w", err)
	}
	if archivedLocal == nil || archivedServer == nil || !hashSetsEqual(archivedLocal, localHashes) {
		return SyncDecision{ResyncRequired: true, Reason: SyncReasonLocalChanged}, nil
	}

	serverHashes, err := cli.Directory.FetchServerUserHashes(ctx)
	if err != nil {
		return SyncDecision{}, err
	}
	if !hashSetsEqual(archivedServer, serverHashes) {
		sorted := slices.Clone(serverHashes)
		slices.Sort(sorted)
		if putErr := cli.Snapshots.Put(ctx, cli.AccountID, SnapshotServer, sorted); putErr != nil {
			cli.Log.Warn().Err(putErr).Msg("Failed to persist fresh server hash snapshot")
		}
		return SyncDecision{ResyncRequired: true, Reason: SyncReasonServerChanged}, nil
	}

	mismatched, err := cli.Snapshots.Get(ctx, cli.AccountID, SnapshotMismatched)
	if err != nil {
		return SyncDecision{}, fmt.Errorf("failed to load mismatched hash snapshot: %w", err)
	}
	filtered := filterHashes(serverHashes, localHashes, mismatched)
	resolved := 0
	for _, hash := range filtered {
		if cli.Cache.GetByUserHash(hash) != nil {
			resolved++
		}
	}
	if resolved < len(filtered) {
		return SyncDecision{ResyncRequired: true, Reason: SyncReasonUncachedMatch}, nil
	}
	return SyncDecision{Reason: SyncReasonUpToDate}, nil
}

// filterHashes returns the server hashes also derivable locally, minus the
// ones previously flagged as mismatched.
func filterHashes(serverHashes, localHashes, mismatched []string) []string {
	var filtered []string
	for _, hash := range serverHashes {
		if slices.Contains(localHashes, hash) && !slices.Contains(mismatched, hash) {
			filtered = append(filtered, hash)
		}
	}
	return filtered
}

// LoadContacts is the main sync entry point. It fails fast without address
// book permission, fetches device contacts (memoized unless forced), and
// either returns the existing archive unchanged or runs the full
// fetch-match-archive cycle. When the directory is unreachable and the
// cache holds data, the cache is returned as a degraded fallback.
func (cli *Client) LoadContacts(ctx context.Context, forceUpdate bool) ([]*types.ContactPair, error) {
	if perm := cli.AddressBook.Permission(ctx); perm != addressbook.PermissionGranted {
		return nil, fmt.Errorf("%w: permission is %s", ErrPermissionDenied, perm)
	}
	contacts, err := cli.fetchDeviceContacts(ctx, forceUpdate)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch device contacts: %w", err)
	}
	decision, err := cli.DetermineSyncStatus(ctx, contacts)
	if err != nil {
		if cli.Cache.Len() > 0 {
			cli.Log.Warn().Err(err).Msg("Sync status check failed, falling back to cached archive")
			return cli.Cache.All(), nil
		}
		return nil, err
	}
	cli.Log.Debug().
		Bool("resync_required", decision.ResyncRequired).
		Str("reason", string(decision.Reason)).
		Msg("Determined synchronization status")
	if !decision.ResyncRequired {
		return cli.Cache.All(), nil
	}
	return cli.updateContacts(ctx, contacts)
}

// updateContacts matches the fetched contacts against the remote directory
// in bulk, merges the resulting pairs into the cache and replaces the hash
// snapshots wholesale. Partial matching failures are returned alongside the
// merged result.
func (cli *Client) updateContacts(ctx context.Context, contacts []types.Contact) ([]*types.ContactPair, error) {
	serverHashes, err := cli.Directory.FetchServerUserHashes(ctx)
	if err != nil {
		if cli.Cache.Len() > 0 {
			cli.Log.Warn().Err(err).Msg("Directory fetch failed, falling back to cached archive")
			return cli.Cache.All(), nil
		}
		return nil, err
	}
	serverSet := make(map[string]struct{}, len(serverHashes))
	for _, hash := range serverHashes {
		serverSet[hash] = struct{}{}
	}

	pairs, matchErr := collectBatch(ctx, contacts, defaultBatchConcurrency, func(ctx context.Context, contact types.Contact) (*types.ContactPair, error) {
		return cli.matchContact(ctx, contact, serverSet)
	})
	if len(pairs) == 0 && matchErr != nil {
		return nil, matchErr
	}
	if err = cli.Cache.AddAll(ctx, pairs); err != nil {
		cli.Log.Err(err).Msg("Failed to persist matched contact pairs")
	}
	cli.archiveSnapshots(ctx, contacts, serverHashes)
	return cli.Cache.All(), matchErr
}

// matchContact reconciles one contact: every number's possible hashes are
// intersected with the server hash set and the hits resolved into users.
// Numbers yielding no candidate hash are skipped, not fatal.
func (cli *Client) matchContact(ctx context.Context, contact types.Contact, serverSet map[string]struct{}) (*types.ContactPair, error) {
	pair := &types.ContactPair{Contact: contact}
	for _, number := range contact.PhoneNumbers {
		possible := PossibleHashes(number.Digits)
		if possible == nil {
			continue
		}
		var hits []string
		for _, hash := range possible {
			if _, ok := serverSet[hash]; ok {
				hits = append(hits, hash)
			}
		}
		if len(hits) == 0 {
			continue
		}
		matched, err := cli.Directory.FetchUsersByHashes(ctx, hits)
		if matched == nil && err != nil {
			return nil, fmt.Errorf("contact %s: %w", contact.ContentHash(), err)
		}
		var users []types.User
		for _, hash := range hits {
			for _, user := range matched[hash] {
				if !slices.ContainsFunc(users, func(u types.User) bool { return u.Identifier == user.Identifier }) {
					users = append(users, user)
				}
			}
		}
		if numberPair := types.NewNumberPair(Digits(number.Digits), users); numberPair != nil {
			pair.NumberPairs = append(pair.NumberPairs, numberPair)
		}
	}
	return pair, nil
}

// archiveSnapshots replaces all three hash snapshots with current truth.
// The mismatched set records filtered hashes that still resolve to no
// cached pair after this sync, so they stop triggering tier three.
func (cli *Client) archiveSnapshots(ctx context.Context, contacts []types.Contact, serverHashes []string) {
	localHashes := localUserHashes(contacts)
	if err := cli.Snapshots.Put(ctx, cli.AccountID, SnapshotLocal, localHashes); err != nil {
		cli.Log.Warn().Err(err).Msg("Failed to persist local hash snapshot")
	}
	sortedServer := slices.Clone(serverHashes)
	slices.Sort(sortedServer)
	if err := cli.Snapshots.Put(ctx, cli.AccountID, SnapshotServer, sortedServer); err != nil {
		cli.Log.Warn().Err(err).Msg("Failed to persist server hash snapshot")
	}
	var mismatched []string
	for _, hash := range filterHashes(sortedServer, localHashes, nil) {
		if cli.Cache.GetByUserHash(hash) == nil {
			mismatched = append(mismatched, hash)
		}
	}
	if err := cli.Snapshots.Put(ctx, cli.AccountID, SnapshotMismatched, mismatched); err != nil {
		cli.Log.Warn().Err(err).Msg("Failed to persist mismatched hash snapshot")
	}
}
