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

package types

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// PhoneNumber is a single raw address book entry. Digits is the canonical
// form with every non-digit character stripped. Two PhoneNumbers refer to
// the same raw entry iff their Digits are equal.
type PhoneNumber struct {
	Digits string `json:"digits"`
	Label  string `json:"label,omitempty"`
}

// Contact is a read-only snapshot of one device address book entry. It is
// recreated on every fetch and never mutated in place.
type Contact struct {
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers,omitempty"`
	ImageData    []byte        `json:"image_data,omitempty"`
}

// ContentHash identifies a contact for deduplication and archiving. It only
// covers the (digits, label) pairs of the contact's phone numbers: renaming
// a contact keeps its archive entry, adding or removing a number replaces it.
func (c *Contact) ContentHash() string {
	hasher := sha256.New()
	for _, num := range c.PhoneNumbers {
		hasher.Write([]byte(num.Digits))
		hasher.Write([]byte{0x00})
		hasher.Write([]byte(num.Label))
		hasher.Write([]byte{0x00})
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

func (c *Contact) DisplayName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" && len(c.PhoneNumbers) > 0 {
		name = c.PhoneNumbers[0].Digits
	}
	return name
}

// DigitStrings returns the canonical digit strings of all phone numbers,
// preserving order.
func (c *Contact) DigitStrings() []string {
	digits := make([]string, len(c.PhoneNumbers))
	for i, num := range c.PhoneNumbers {
		digits[i] = num.Digits
	}
	return digits
}

// User is a registered account in the remote directory. The engine only
// cares about Identifier, CallingCode, PhoneNumber and Region; everything
// else belongs to the directory service.
type User struct {
	Identifier   uuid.UUID `json:"identifier"`
	CallingCode  string    `json:"calling_code"`
	PhoneNumber  string    `json:"phone_number"`
	Region       string    `json:"region"`
	LanguageCode string    `json:"language_code,omitempty"`
}

// NumberPair binds one raw number to every registered account whose account
// number is hash-consistent with it.
type NumberPair struct {
	Number string `json:"number"`
	Users  []User `json:"users"`
}

// NewNumberPair returns nil if users is empty: empty matches are filtered
// before pairing, so a constructed pair always has at least one user.
func NewNumberPair(number string, users []User) *NumberPair {
	if len(users) == 0 {
		return nil
	}
	return &NumberPair{Number: number, Users: users}
}

// ContactPair is the reconciliation result of one local contact against the
// remote directory. A nil or empty NumberPairs means the contact has not
// matched any registered account.
type ContactPair struct {
	Contact     Contact       `json:"contact"`
	NumberPairs []*NumberPair `json:"number_pairs,omitempty"`
}

func (cp *ContactPair) Matched() bool {
	return cp != nil && len(cp.NumberPairs) > 0
}
