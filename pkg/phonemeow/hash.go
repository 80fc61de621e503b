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
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/exp/slices"
)

// HashNumber returns the stable lookup key for a canonical digit string:
// a sha256 digest in lowercase hex. The raw number never leaves the device,
// only its hash does.
func HashNumber(digits string) string {
	digest := sha256.Sum256([]byte(digits))
	return hex.EncodeToString(digest[:])
}

// PossibleHashes returns the directory lookup hashes for one number. When
// the number contains a qualifying calling code, one hash per qualifying
// code is produced over the digits with that code stripped, normalizing the
// number to a bare national number. Otherwise the number is hashed as-is.
// Returns nil when the digits are too short to be a subscriber number and
// no candidate can be produced.
//
// A single physical number may legitimately hash to several values when
// more than one calling code hypothesis qualifies; equality of two numbers
// is non-empty intersection of their candidate sets, never a bijection.
func PossibleHashes(number string) []string {
	digits := Digits(number)
	if len(digits) <= maxCallingCodeLength {
		return nil
	}
	codes := MatchingCallingCodes(digits)
	if codes == nil {
		return []string{HashNumber(digits)}
	}
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hash := HashNumber(digits[len(code):])
		if !slices.Contains(hashes, hash) {
			hashes = append(hashes, hash)
		}
	}
	return hashes
}

// CandidateHashes covers the full calling-code uncertainty of a number: the
// hash of the digits themselves plus the hashes with 1, 2 and 3 leading
// characters dropped. This is a superset of PossibleHashes and is what the
// local hash snapshot and the user-hash to contact cross-reference are built
// from, so that a server-side national-number hash always lands in the set
// regardless of which hypothesis was right. Returns nil for numbers too
// short to be subscriber numbers.
func CandidateHashes(number string) []string {
	raws := CandidateRawNumbers(number)
	if raws == nil {
		return nil
	}
	hashes := make([]string, 0, len(raws))
	for _, raw := range raws {
		hashes = append(hashes, HashNumber(raw))
	}
	return hashes
}

// PossibleHashesForAll flattens the per-number candidates of a batch,
// skipping numbers that yield none and deduplicating the result.
func PossibleHashesForAll(numbers []string) []string {
	return flattenHashes(numbers, PossibleHashes)
}

// CandidateHashesForAll is PossibleHashesForAll over CandidateHashes.
func CandidateHashesForAll(numbers []string) []string {
	return flattenHashes(numbers, CandidateHashes)
}

func flattenHashes(numbers []string, hashFunc func(string) []string) []string {
	var all []string
	for _, number := range numbers {
		for _, hash := range hashFunc(number) {
			if !slices.Contains(all, hash) {
				all = append(all, hash)
			}
		}
	}
	return all
}

// HashesIntersect reports whether two candidate sets share any hash. Any
// intersection is a hit: the consumer must not require full equality.
func HashesIntersect(a, b []string) bool {
	for _, hash := range a {
		if slices.Contains(b, hash) {
			return true
		}
	}
	return false
}
