package phonemeow_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"go.mau.fi/phonemeow/pkg/phonemeow"
	"go.mau.fi/phonemeow/pkg/phonemeow/addressbook"
	"go.mau.fi/phonemeow/pkg/phonemeow/types"
)

type fakeDirectory struct {
	lock     sync.Mutex
	data     map[string]string
	errs     map[string]error
	getCalls map[string]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		data:     make(map[string]string),
		errs:     make(map[string]error),
		getCalls: make(map[string]int),
	}
}

func (fd *fakeDirectory) GetValues(ctx context.Context, path string) (gjson.Result, error) {
	fd.lock.Lock()
	defer fd.lock.Unlock()
	fd.getCalls[path]++
	if err := fd.errs[path]; err != nil {
		return gjson.Result{}, err
	}
	raw, ok := fd.data[path]
	if !ok {
		return gjson.Result{}, nil
	}
	return gjson.Parse(raw), nil
}

func (fd *fakeDirectory) SetValue(ctx context.Context, path string, value any) error {
	fd.lock.Lock()
	defer fd.lock.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	fd.data[path] = string(raw)
	return nil
}

func (fd *fakeDirectory) putUserHashes(hashes ...string) {
	raw, _ := json.Marshal(hashes)
	fd.lock.Lock()
	defer fd.lock.Unlock()
	fd.data["user_hashes"] = string(raw)
}

func (fd *fakeDirectory) putUsers(hash string, users ...types.User) {
	raw, _ := json.Marshal(users)
	fd.lock.Lock()
	defer fd.lock.Unlock()
	fd.data["users/"+hash] = string(raw)
}

func (fd *fakeDirectory) calls(path string) int {
	fd.lock.Lock()
	defer fd.lock.Unlock()
	return fd.getCalls[path]
}

type memoryPairStore struct {
	lock       sync.Mutex
	pairs      map[string]map[string]*types.ContactPair
	getAllErr  error
	putFailure error
}

func newMemoryPairStore() *memoryPairStore {
	return &memoryPairStore{pairs: make(map[string]map[string]*types.ContactPair)}
}

func (ps *memoryPairStore) GetAll(ctx context.Context, accountID string) ([]*types.ContactPair, error) {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	if ps.getAllErr != nil {
		return nil, ps.getAllErr
	}
	var out []*types.ContactPair
	for _, pair := range ps.pairs[accountID] {
		out = append(out, pair)
	}
	return out, nil
}

func (ps *memoryPairStore) Put(ctx context.Context, accountID string, pair *types.ContactPair) error {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	if ps.putFailure != nil {
		return ps.putFailure
	}
	if ps.pairs[accountID] == nil {
		ps.pairs[accountID] = make(map[string]*types.ContactPair)
	}
	ps.pairs[accountID][pair.Contact.ContentHash()] = pair
	return nil
}

func (ps *memoryPairStore) Delete(ctx context.Context, accountID, contactHash string) error {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	delete(ps.pairs[accountID], contactHash)
	return nil
}

func (ps *memoryPairStore) DeleteAll(ctx context.Context, accountID string) error {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	delete(ps.pairs, accountID)
	return nil
}

func (ps *memoryPairStore) count(accountID string) int {
	ps.lock.Lock()
	defer ps.lock.Unlock()
	return len(ps.pairs[accountID])
}

type memorySnapshotStore struct {
	lock      sync.Mutex
	snapshots map[string]map[string][]string
}

func newMemorySnapshotStore() *memorySnapshotStore {
	return &memorySnapshotStore{snapshots: make(map[string]map[string][]string)}
}

func (ss *memorySnapshotStore) Get(ctx context.Context, accountID, kind string) ([]string, error) {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	hashes, ok := ss.snapshots[accountID][kind]
	if !ok {
		return nil, nil
	}
	if hashes == nil {
		return []string{}, nil
	}
	return hashes, nil
}

func (ss *memorySnapshotStore) Put(ctx context.Context, accountID, kind string, hashes []string) error {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	if ss.snapshots[accountID] == nil {
		ss.snapshots[accountID] = make(map[string][]string)
	}
	if hashes == nil {
		hashes = []string{}
	}
	ss.snapshots[accountID][kind] = hashes
	return nil
}

func (ss *memorySnapshotStore) DeleteAll(ctx context.Context, accountID string) error {
	ss.lock.Lock()
	defer ss.lock.Unlock()
	delete(ss.snapshots, accountID)
	return nil
}

type fakeGate struct {
	err error
}

func (fg fakeGate) CanStartConversation(ctx context.Context, user types.User) error {
	return fg.err
}

var (
	_ phonemeow.Directory     = (*fakeDirectory)(nil)
	_ phonemeow.PairStore     = (*memoryPairStore)(nil)
	_ phonemeow.SnapshotStore = (*memorySnapshotStore)(nil)
)

type testEnv struct {
	client    *phonemeow.Client
	directory *fakeDirectory
	provider  *addressbook.StaticProvider
	pairs     *memoryPairStore
	snapshots *memorySnapshotStore
	gate      *fakeGate
}

func newTestEnv(contacts ...types.Contact) *testEnv {
	env := &testEnv{
		directory: newFakeDirectory(),
		provider:  &addressbook.StaticProvider{Contacts: contacts, Perm: addressbook.PermissionGranted},
		pairs:     newMemoryPairStore(),
		snapshots: newMemorySnapshotStore(),
		gate:      &fakeGate{},
	}
	env.client = phonemeow.NewClient(
		context.Background(), "test-account", env.directory, env.provider,
		env.pairs, env.snapshots, env.gate, zerolog.Nop(),
	)
	return env
}

func contactWithNumbers(name string, numbers ...string) types.Contact {
	contact := types.Contact{FirstName: name, LastName: "Tester"}
	for i, number := range numbers {
		contact.PhoneNumbers = append(contact.PhoneNumbers, types.PhoneNumber{
			Digits: phonemeow.Digits(number),
			Label:  fmt.Sprintf("label-%d", i),
		})
	}
	return contact
}
