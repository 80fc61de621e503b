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

	"go.mau.fi/phonemeow/pkg/phonemeow/addressbook"
	"go.mau.fi/phonemeow/pkg/phonemeow/types"
)

// ConversationGate decides whether a conversation with a resolved user may
// actually be started. Self-messaging and duplicate-open-conversation rules
// live with the conversation owner, not in this engine.
type ConversationGate interface {
	CanStartConversation(ctx context.Context, user types.User) error
}

// AllowAllConversations is the gate used when no conversation rules apply.
type AllowAllConversations struct{}

func (AllowAllConversations) CanStartConversation(ctx context.Context, user types.User) error {
	return nil
}

// Client is one signed-in account's identity resolution session. It owns
// the contact cache and hash snapshots for that account and talks to the
// remote directory and the device address book through injected
// collaborators. There is no ambient static state; construct one Client per
// session and pass it around.
//
// The client performs no internal mutual exclusion around sync runs:
// callers must serialize LoadContacts for the same account, e.g. with a
// single in-flight guard. Concurrent syncs only risk duplicate cache
// writes, which the last-write-wins upsert absorbs.
type Client struct {
	Log         zerolog.Logger
	AccountID   string
	Directory   *DirectoryResolver
	AddressBook addressbook.Provider
	Cache       *ContactCache
	Snapshots   SnapshotStore
	Gate        ConversationGate

	contactsLock   sync.Mutex
	cachedContacts []types.Contact
}

// NewClient loads the persisted archive for accountID and wires the
// collaborators together. A nil gate allows every conversation.
func NewClient(ctx context.Context, accountID string, dir Directory, provider addressbook.Provider, pairs PairStore, snapshots SnapshotStore, gate ConversationGate, log zerolog.Logger) *Client {
	log = log.With().Str("account_id", accountID).Logger()
	if gate == nil {
		gate = AllowAllConversations{}
	}
	return &Client{
		Log:         log,
		AccountID:   accountID,
		Directory:   NewDirectoryResolver(dir, log),
		AddressBook: provider,
		Cache:       NewContactCache(ctx, pairs, accountID, log),
		Snapshots:   snapshots,
		Gate:        gate,
	}
}

// fetchDeviceContacts returns the memoized device contact snapshot,
// refetching when forced or not yet fetched.
func (cli *Client) fetchDeviceContacts(ctx context.Context, force bool) ([]types.Contact, error) {
	cli.contactsLock.Lock()
	defer cli.contactsLock.Unlock()
	if cli.cachedContacts != nil && !force {
		return cli.cachedContacts, nil
	}
	contacts, err := cli.AddressBook.FetchContacts(ctx)
	if err != nil {
		return nil, err
	}
	cli.cachedContacts = contacts
	return contacts, nil
}

// ClearAll wipes the contact cache and every hash snapshot for this
// account, plus the in-memory device contact memo.
func (cli *Client) ClearAll(ctx context.Context) error {
	cli.contactsLock.Lock()
	cli.cachedContacts = nil
	cli.contactsLock.Unlock()
	if err := cli.Cache.Clear(ctx); err != nil {
		return err
	}
	return cli.Snapshots.DeleteAll(ctx, cli.AccountID)
}

// LookupContact renders a local identity for a server-side user hash.
func (cli *Client) LookupContact(userHash string) *types.ContactPair {
	return cli.Cache.GetByUserHash(userHash)
}
