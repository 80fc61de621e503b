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
	"errors"
)

var (
	// ErrPermissionDenied means address book access is not granted. It is
	// never retried automatically; the caller should prompt for permission.
	ErrPermissionDenied = errors.New("address book access not granted")
	// ErrNoCandidateHash means a number was too short or malformed to
	// normalize. Skipped inside batches, only fatal for single lookups.
	ErrNoCandidateHash = errors.New("no candidate hash for phone number")
	// ErrNoMatchingUsers is the normal, non-reportable outcome of a contact
	// matching no registered account.
	ErrNoMatchingUsers = errors.New("no matching registered users")
	// ErrCannotStartConversation means the single matched user failed the
	// conversation gate (self-messaging or duplicate-conversation rules).
	ErrCannotStartConversation = errors.New("cannot start conversation with matched user")
	// ErrSyncFailure wraps a failed remote directory fetch. The local cache
	// is used as a degraded fallback when available.
	ErrSyncFailure = errors.New("failed to sync against remote directory")
	// ErrMismatchedBatchOutput means a batch returned a different count of
	// successes plus failures than inputs. Always surfaced, even alongside
	// partial data, since it signals a protocol-level inconsistency.
	ErrMismatchedBatchOutput = errors.New("batch output count does not match input count")
	// ErrMalformedDirectoryRecord means a directory payload failed to decode
	// into a typed user record.
	ErrMalformedDirectoryRecord = errors.New("malformed directory user record")
)
