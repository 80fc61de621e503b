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
	"strings"

	"golang.org/x/exp/slices"
)

// maxCallingCodeLength is the longest calling code covered by
// CandidateRawNumbers. Numbers at most this long cannot be real subscriber
// numbers and produce no candidates at all.
const maxCallingCodeLength = 3

// Digits strips every non-digit character from a phone number string.
// Idempotent: Digits(Digits(s)) == Digits(s).
func Digits(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// CandidateRawNumbers returns every digit string the input could refer to
// when the presence of a calling code is unknown: the digits themselves plus
// the digits with the first 1, 2 and 3 characters dropped, covering calling
// codes of length 1-3 prepended without a separator. Returns nil when the
// input is too short to be a subscriber number.
func CandidateRawNumbers(s string) []string {
	digits := Digits(s)
	if len(digits) <= maxCallingCodeLength {
		return nil
	}
	candidates := make([]string, 0, maxCallingCodeLength+1)
	candidates = append(candidates, digits)
	for drop := 1; drop <= maxCallingCodeLength && drop < len(digits); drop++ {
		candidates = append(candidates, digits[drop:])
	}
	return candidates
}

// MatchingCallingCodes returns the calling codes that plausibly prefix the
// given number. A code being a literal prefix is necessary but not
// sufficient: it only qualifies if stripping it leaves exactly the national
// number length of one of the code's regions. That keeps a leading "1" that
// is part of the subscriber number from being mistaken for the NANP calling
// code. Returns nil when no code qualifies.
func MatchingCallingCodes(number string) []string {
	digits := Digits(number)
	var codes []string
	for _, region := range regionMetadata {
		if !strings.HasPrefix(digits, region.CallingCode) {
			continue
		}
		if len(digits)-len(region.CallingCode) != region.NationalLength {
			continue
		}
		if !slices.Contains(codes, region.CallingCode) {
			codes = append(codes, region.CallingCode)
		}
	}
	return codes
}

// CallingCodesByLength returns the calling codes of every region whose
// typical national number length equals the length of the given number.
// Only used as a fallback when the number is known not to already contain
// a calling code.
func CallingCodesByLength(number string) []string {
	return codesByLength[len(Digits(number))]
}

// ContainsCallingCode reports whether the number already starts with a
// qualifying calling code. MatchingCallingCodes is always tried before
// CallingCodesByLength so that a code-less national number is never
// misclassified just because its prefix digits happen to equal some
// country's code.
func ContainsCallingCode(number string) bool {
	return MatchingCallingCodes(number) != nil
}
