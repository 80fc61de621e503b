package phonemeow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mau.fi/phonemeow/pkg/phonemeow"
	"go.mau.fi/phonemeow/pkg/phonemeow/types"
)

func TestResolve_NoMatch(t *testing.T) {
	env := newTestEnv()
	pair := &types.ContactPair{Contact: contactWithNumbers("Nobody", "2125550000")}

	result := env.client.Resolve(context.Background(), pair)
	displayErr, ok := result.(phonemeow.DisplayError)
	require.True(t, ok, "expected DisplayError, got %T", result)
	assert.ErrorIs(t, displayErr.Err, phonemeow.ErrNoMatchingUsers)
}

func TestResolve_SingleUser(t *testing.T) {
	env := newTestEnv()
	user := types.User{Identifier: uuid.New(), CallingCode: "1", PhoneNumber: "4155551212", Region: "US"}
	pair := &types.ContactPair{
		Contact:     contactWithNumbers("Alice", "4155551212"),
		NumberPairs: []*types.NumberPair{{Number: "4155551212", Users: []types.User{user}}},
	}

	result := env.client.Resolve(context.Background(), pair)
	start, ok := result.(phonemeow.StartConversation)
	require.True(t, ok, "expected StartConversation, got %T", result)
	assert.Equal(t, user.Identifier, start.User.Identifier)
	assert.Same(t, pair, start.Pair)
}

func TestResolve_GateDenies(t *testing.T) {
	env := newTestEnv()
	env.gate.err = errors.New("blocked")
	pair := &types.ContactPair{
		Contact: contactWithNumbers("Alice", "4155551212"),
		NumberPairs: []*types.NumberPair{
			{Number: "4155551212", Users: []types.User{{Identifier: uuid.New()}}},
		},
	}

	result := env.client.Resolve(context.Background(), pair)
	displayErr, ok := result.(phonemeow.DisplayError)
	require.True(t, ok, "expected DisplayError, got %T", result)
	assert.ErrorIs(t, displayErr.Err, phonemeow.ErrCannotStartConversation)
}

func TestResolve_MultipleNumbers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	home := &types.NumberPair{Number: "4155551212", Users: []types.User{{Identifier: uuid.New()}}}
	work := &types.NumberPair{Number: "2125551212", Users: []types.User{{Identifier: uuid.New()}}}
	pair := &types.ContactPair{
		Contact:     contactWithNumbers("Alice", "4155551212", "2125551212"),
		NumberPairs: []*types.NumberPair{home, work},
	}

	result := env.client.Resolve(ctx, pair)
	selectNumber, ok := result.(phonemeow.SelectNumber)
	require.True(t, ok, "expected SelectNumber, got %T", result)

	// The caller's choice re-enters the flow and terminates.
	narrowed := env.client.NarrowToNumberPair(ctx, selectNumber.Pair, work)
	start, ok := narrowed.(phonemeow.StartConversation)
	require.True(t, ok, "expected StartConversation, got %T", narrowed)
	assert.Equal(t, work.Users[0].Identifier, start.User.Identifier)
}

func TestResolve_AmbiguousCallingCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	iceland := types.User{Identifier: uuid.New(), CallingCode: "354", PhoneNumber: "5551212", Region: "IS"}
	suriname := types.User{Identifier: uuid.New(), CallingCode: "597", PhoneNumber: "5551212", Region: "SR"}
	pair := &types.ContactPair{
		Contact: contactWithNumbers("Alice", "5551212"),
		NumberPairs: []*types.NumberPair{
			{Number: "5551212", Users: []types.User{iceland, suriname}},
		},
	}

	result := env.client.Resolve(ctx, pair)
	selectCode, ok := result.(phonemeow.SelectCallingCode)
	require.True(t, ok, "expected SelectCallingCode, got %T", result)
	require.Len(t, selectCode.Pair.NumberPairs[0].Users, 2)

	narrowed := env.client.NarrowToUser(ctx, selectCode.Pair, suriname)
	start, ok := narrowed.(phonemeow.StartConversation)
	require.True(t, ok, "expected StartConversation, got %T", narrowed)
	assert.Equal(t, suriname.Identifier, start.User.Identifier)
}

func TestNarrowToUser_UnmatchedPair(t *testing.T) {
	env := newTestEnv()
	pair := &types.ContactPair{Contact: contactWithNumbers("Nobody", "2125550000")}

	result := env.client.NarrowToUser(context.Background(), pair, types.User{Identifier: uuid.New()})
	displayErr, ok := result.(phonemeow.DisplayError)
	require.True(t, ok, "expected DisplayError, got %T", result)
	assert.ErrorIs(t, displayErr.Err, phonemeow.ErrNoMatchingUsers)
}

func TestResolveNumber(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	user := types.User{Identifier: uuid.New(), CallingCode: "1", PhoneNumber: "4155551212", Region: "US"}
	env.directory.putUsers(phonemeow.HashNumber("4155551212"), user)

	result := env.client.ResolveNumber(ctx, "+1 (415) 555-1212")
	start, ok := result.(phonemeow.StartConversation)
	require.True(t, ok, "expected StartConversation, got %T", result)
	assert.Equal(t, user.Identifier, start.User.Identifier)
	// The synthetic pair carries no address book contact.
	assert.Empty(t, start.Pair.Contact.PhoneNumbers)
	assert.Equal(t, "14155551212", start.Pair.NumberPairs[0].Number)
}

func TestResolveNumber_AmbiguousCallingCode(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	// A bare 7 digit number qualifies for no calling code, so the directory
	// is asked for the single as-is hash, under which two regions registered.
	iceland := types.User{Identifier: uuid.New(), CallingCode: "354", PhoneNumber: "5551212", Region: "IS"}
	suriname := types.User{Identifier: uuid.New(), CallingCode: "597", PhoneNumber: "5551212", Region: "SR"}
	env.directory.putUsers(phonemeow.HashNumber("5551212"), iceland, suriname)

	result := env.client.ResolveNumber(ctx, "555-1212")
	selectCode, ok := result.(phonemeow.SelectCallingCode)
	require.True(t, ok, "expected SelectCallingCode, got %T", result)

	narrowed := env.client.NarrowToUser(ctx, selectCode.Pair, iceland)
	start, ok := narrowed.(phonemeow.StartConversation)
	require.True(t, ok, "expected StartConversation, got %T", narrowed)
	assert.Equal(t, iceland.Identifier, start.User.Identifier)
}

func TestResolveNumber_NoMatch(t *testing.T) {
	env := newTestEnv()
	result := env.client.ResolveNumber(context.Background(), "4155551212")
	displayErr, ok := result.(phonemeow.DisplayError)
	require.True(t, ok, "expected DisplayError, got %T", result)
	assert.ErrorIs(t, displayErr.Err, phonemeow.ErrNoMatchingUsers)
}

func TestResolveNumber_TooShort(t *testing.T) {
	env := newTestEnv()
	result := env.client.ResolveNumber(context.Background(), "911")
	displayErr, ok := result.(phonemeow.DisplayError)
	require.True(t, ok, "expected DisplayError, got %T", result)
	assert.ErrorIs(t, displayErr.Err, phonemeow.ErrNoCandidateHash)
}
