package addressbook

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/emersion/go-vcard"

	"go.mau.fi/phonemeow/pkg/phonemeow/types"
)

// VCardProvider reads the device address book from a vCard export file.
// Permission maps to file readability: a missing or unreadable file behaves
// like denied contact access.
type VCardProvider struct {
	Path string
}

var _ Provider = (*VCardProvider)(nil)

func NewVCardProvider(path string) *VCardProvider {
	return &VCardProvider{Path: path}
}

func (vp *VCardProvider) Permission(ctx context.Context) Permission {
	info, err := os.Stat(vp.Path)
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
		return PermissionDenied
	} else if err != nil || info.IsDir() {
		return PermissionUnknown
	}
	return PermissionGranted
}

func (vp *VCardProvider) FetchContacts(ctx context.Context) ([]types.Contact, error) {
	file, err := os.Open(vp.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open address book file: %w", err)
	}
	defer file.Close()
	return ParseContacts(file)
}

// ParseContacts decodes every card in the stream into a Contact snapshot.
func ParseContacts(r io.Reader) ([]types.Contact, error) {
	decoder := vcard.NewDecoder(r)
	var contacts []types.Contact
	for {
		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, fmt.Errorf("failed to decode vcard: %w", err)
		}
		contacts = append(contacts, cardToContact(card))
	}
	return contacts, nil
}

func cardToContact(card vcard.Card) types.Contact {
	var contact types.Contact
	if name := card.Name(); name != nil {
		contact.FirstName = name.GivenName
		contact.LastName = name.FamilyName
	} else if formatted := card.PreferredValue(vcard.FieldFormattedName); formatted != "" {
		first, last, _ := strings.Cut(formatted, " ")
		contact.FirstName = first
		contact.LastName = last
	}
	for _, field := range card[vcard.FieldTelephone] {
		contact.PhoneNumbers = append(contact.PhoneNumbers, types.PhoneNumber{
			Digits: digitsOnly(field.Value),
			Label:  strings.ToLower(field.Params.Get(vcard.ParamType)),
		})
	}
	if photo := card.Get(vcard.FieldPhoto); photo != nil {
		if strings.EqualFold(photo.Params.Get("ENCODING"), "b") {
			if data, err := base64.StdEncoding.DecodeString(photo.Value); err == nil {
				contact.ImageData = data
			}
		}
	}
	return contact
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
