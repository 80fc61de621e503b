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
	"path"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"go.mau.fi/phonemeow/pkg/phonemeow/types"
)

// Directory is the remote key-value store holding the registered user
// directory. Implementations live outside the engine; web.KVClient is the
// production one.
type Directory interface {
	GetValues(ctx context.Context, path string) (gjson.Result, error)
	SetValue(ctx context.Context, path string, value any) error
}

// Directory paths. The hash set is a flat JSON array of hex strings, each
// users/<hash> node is a JSON array of user records.
const (
	userHashesPath = "user_hashes"
	usersPath      = "users"
)

// DirectoryResolver layers typed operations over the raw key-value
// directory. All JSON is decoded at this boundary; nothing past it sees
// untyped payloads.
type DirectoryResolver struct {
	dir         Directory
	log         zerolog.Logger
	concurrency int
}

func NewDirectoryResolver(dir Directory, log zerolog.Logger) *DirectoryResolver {
	return &DirectoryResolver{
		dir:         dir,
		log:         log.With().Str("component", "directory_resolver").Logger(),
		concurrency: defaultBatchConcurrency,
	}
}

// FetchServerUserHashes fetches the set of all registered user hashes.
func (dr *DirectoryResolver) FetchServerUserHashes(ctx context.Context) ([]string, error) {
	value, err := dr.dir.GetValues(ctx, userHashesPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyncFailure, err)
	}
	if !value.Exists() {
		return nil, nil
	}
	if !value.IsArray() {
		return nil, fmt.Errorf("%w: user hash set is not an array", ErrMalformedDirectoryRecord)
	}
	entries := value.Array()
	hashes := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type != gjson.String {
			return nil, fmt.Errorf("%w: user hash entry is not a string", ErrMalformedDirectoryRecord)
		}
		hashes = append(hashes, entry.Str)
	}
	return hashes, nil
}

// FetchUsersByHash fetches every registered account stored under one hash.
// An absent node is a normal empty result, not an error.
func (dr *DirectoryResolver) FetchUsersByHash(ctx context.Context, hash string) ([]types.User, error) {
	value, err := dr.dir.GetValues(ctx, path.Join(usersPath, hash))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSyncFailure, err)
	}
	if !value.Exists() {
		return nil, nil
	}
	if !value.IsArray() {
		return nil, fmt.Errorf("%w: users node is not an array", ErrMalformedDirectoryRecord)
	}
	entries := value.Array()
	users := make([]types.User, 0, len(entries))
	for _, entry := range entries {
		user, err := decodeUser(entry)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

type hashUsers struct {
	hash  string
	users []types.User
}

// FetchUsersByHashes bulk-resolves a candidate hash set into the accounts
// registered under each hash. Branches fan out and join; single-hash
// failures are compiled into the returned error while the successes are
// still returned, so a non-nil map with a non-nil error is partial success.
func (dr *DirectoryResolver) FetchUsersByHashes(ctx context.Context, hashes []string) (map[string][]types.User, error) {
	results, err := collectBatch(ctx, hashes, dr.concurrency, func(ctx context.Context, hash string) (hashUsers, error) {
		users, fetchErr := dr.FetchUsersByHash(ctx, hash)
		if fetchErr != nil {
			return hashUsers{}, fmt.Errorf("hash %s: %w", hash, fetchErr)
		}
		return hashUsers{hash: hash, users: users}, nil
	})
	if len(results) == 0 {
		return nil, err
	}
	matched := make(map[string][]types.User)
	for _, res := range results {
		if len(res.users) > 0 {
			matched[res.hash] = res.users
		}
	}
	return matched, err
}

// FetchUsersForNumber resolves one raw number string directly into candidate
// accounts, deduplicated by identifier.
func (dr *DirectoryResolver) FetchUsersForNumber(ctx context.Context, number string) ([]types.User, error) {
	candidates := PossibleHashes(number)
	if candidates == nil {
		return nil, ErrNoCandidateHash
	}
	matched, err := dr.FetchUsersByHashes(ctx, candidates)
	if matched == nil && err != nil {
		return nil, err
	}
	var users []types.User
	seen := make(map[uuid.UUID]struct{})
	for _, hash := range candidates {
		for _, user := range matched[hash] {
			if _, ok := seen[user.Identifier]; ok {
				continue
			}
			seen[user.Identifier] = struct{}{}
			users = append(users, user)
		}
	}
	return users, err
}

func decodeUser(entry gjson.Result) (types.User, error) {
	var user types.User
	if !entry.IsObject() {
		return user, fmt.Errorf("%w: entry is not an object", ErrMalformedDirectoryRecord)
	}
	identifier := entry.Get("identifier")
	callingCode := entry.Get("calling_code")
	phoneNumber := entry.Get("phone_number")
	region := entry.Get("region")
	if identifier.Type != gjson.String || callingCode.Type != gjson.String ||
		phoneNumber.Type != gjson.String || region.Type != gjson.String {
		return user, fmt.Errorf("%w: missing required field", ErrMalformedDirectoryRecord)
	}
	parsedID, err := uuid.Parse(identifier.Str)
	if err != nil {
		return user, fmt.Errorf("%w: invalid identifier: %w", ErrMalformedDirectoryRecord, err)
	}
	user.Identifier = parsedID
	user.CallingCode = callingCode.Str
	user.PhoneNumber = phoneNumber.Str
	user.Region = region.Str
	user.LanguageCode = entry.Get("language_code").Str
	return user, nil
}
