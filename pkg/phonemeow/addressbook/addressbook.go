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

// Package addressbook provides access to the device address book: contact
// enumeration gated by a permission check. The engine never talks to
// platform contact APIs directly, only through a Provider.
package addressbook

import (
	"context"

	"go.mau.fi/phonemeow/pkg/phonemeow/types"
)

type Permission int

const (
	PermissionUnknown Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Provider enumerates device contacts. FetchContacts delivers the full
// snapshot once, it is never streamed. Enumeration may block and should be
// called off the interactive path.
type Provider interface {
	Permission(ctx context.Context) Permission
	FetchContacts(ctx context.Context) ([]types.Contact, error)
}

// StaticProvider serves a fixed contact list. Used in tests and for
// single-shot imports.
type StaticProvider struct {
	Contacts []types.Contact
	Perm     Permission
}

var _ Provider = (*StaticProvider)(nil)

func (sp *StaticProvider) Permission(ctx context.Context) Permission {
	return sp.Perm
}

func (sp *StaticProvider) FetchContacts(ctx context.Context) ([]types.Contact, error) {
	return sp.Contacts, nil
}
