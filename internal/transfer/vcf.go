package transfer

import (
	"fmt"
	"io"

	"github.com/sonroyaalmerol/webmail-contacts/pkg/vcard"
)

// ReadVCF parses every contact card in data. Group cards are skipped.
// Strict mode validates the whole payload first and fails on a card that
// has no usable name; lenient mode skips such cards.
func ReadVCF(data []byte, lenient bool) ([]Entry, error) {
	if !lenient {
		if err := vcard.ValidateVCard(data); err != nil {
			return nil, err
		}
	}
	cards, err := vcard.ParseAll(data, lenient)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(cards))
	for i, card := range cards {
		if vcard.IsGroupCard(card) {
			continue
		}
		if err := vcard.NormalizeVCard(card); err != nil {
			if lenient {
				continue
			}
			return nil, fmt.Errorf("card %d: %w", i+1, err)
		}
		c := vcard.ParseContact(card)
		out = append(out, Entry{Contact: c, Categories: vcard.Categories(card)})
	}
	return out, nil
}

// WriteVCF writes one vCard 3.0 per entry.
func WriteVCF(w io.Writer, entries []Entry) error {
	for _, e := range entries {
		b, err := vcard.Encode(vcard.NewContactCard(e.Contact, e.Categories))
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}
