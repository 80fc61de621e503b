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

	"go.mau.fi/phonemeow/pkg/phonemeow/types"
)

// FlowResult is the closed set of states the match resolution flow can be
// in. StartConversation and DisplayError are terminal; SelectNumber and
// SelectCallingCode hand the narrowing decision to the caller's UI, which
// feeds the choice back through NarrowToNumberPair or NarrowToUser.
type FlowResult interface {
	isFlowResult()
}

// SelectNumber means the contact has multiple numbers each matching some
// registered account; the caller must choose which number to use.
type SelectNumber struct {
	Pair *types.ContactPair
}

// SelectCallingCode means one raw number matches accounts in several
// regions because the calling code could not be disambiguated. Which
// hypothesis is right is a user decision, not a heuristic.
type SelectCallingCode struct {
	Pair *types.ContactPair
}

// StartConversation is the successful terminal state: exactly one user,
// approved by the conversation gate.
type StartConversation struct {
	Pair *types.ContactPair
	User types.User
}

// DisplayError is the failing terminal state, carrying the reason.
type DisplayError struct {
	Err error
}

func (SelectNumber) isFlowResult()      {}
func (SelectCallingCode) isFlowResult() {}
func (StartConversation) isFlowResult() {}
func (DisplayError) isFlowResult()      {}

// Resolve walks the decision tree for one contact pair:
//
//   - no number pairs: no registered account matched
//   - more than one number pair: the caller picks a number
//   - one number pair with several users: the caller picks a calling code
//   - one number pair with one user: gate check, then start
//
// Narrowed pairs re-enter Resolve rather than being assumed terminal, so a
// narrowing choice is always re-validated. Narrowing strictly shrinks the
// pair, so the flow terminates within two recursive steps.
func (cli *Client) Resolve(ctx context.Context, pair *types.ContactPair) FlowResult {
	if !pair.Matched() {
		return DisplayError{Err: ErrNoMatchingUsers}
	}
	if len(pair.NumberPairs) > 1 {
		return SelectNumber{Pair: pair}
	}
	numberPair := pair.NumberPairs[0]
	if len(numberPair.Users) == 0 {
		return DisplayError{Err: ErrNoMatchingUsers}
	}
	if len(numberPair.Users) > 1 {
		return SelectCallingCode{Pair: pair}
	}
	user := numberPair.Users[0]
	if err := cli.Gate.CanStartConversation(ctx, user); err != nil {
		return DisplayError{Err: fmt.Errorf("%w: %w", ErrCannotStartConversation, err)}
	}
	return StartConversation{Pair: pair, User: user}
}

// NarrowToNumberPair applies a SelectNumber choice and recurses.
func (cli *Client) NarrowToNumberPair(ctx context.Context, pair *types.ContactPair, chosen *types.NumberPair) FlowResult {
	narrowed := &types.ContactPair{
		Contact:     pair.Contact,
		NumberPairs: []*types.NumberPair{chosen},
	}
	return cli.Resolve(ctx, narrowed)
}

// NarrowToUser applies a SelectCallingCode choice and recurses.
func (cli *Client) NarrowToUser(ctx context.Context, pair *types.ContactPair, chosen types.User) FlowResult {
	if !pair.Matched() {
		return DisplayError{Err: ErrNoMatchingUsers}
	}
	narrowed := &types.ContactPair{
		Contact: pair.Contact,
		NumberPairs: []*types.NumberPair{
			{Number: pair.NumberPairs[0].Number, Users: []types.User{chosen}},
		},
	}
	return cli.Resolve(ctx, narrowed)
}

// ResolveNumber is the alternate entry point for starting a chat from a
// typed number instead of an address book contact. The candidate users are
// resolved directly through the hash index and wrapped into a synthetic
// single-number pair around an empty contact, then fed through the same
// flow.
func (cli *Client) ResolveNumber(ctx context.Context, number string) FlowResult {
	users, err := cli.Directory.FetchUsersForNumber(ctx, number)
	if err != nil && len(users) == 0 {
		return DisplayError{Err: err}
	}
	numberPair := types.NewNumberPair(Digits(number), users)
	if numberPair == nil {
		return DisplayError{Err: ErrNoMatchingUsers}
	}
	synthetic := &types.ContactPair{
		NumberPairs: []*types.NumberPair{numberPair},
	}
	return cli.Resolve(ctx, synthetic)
}
