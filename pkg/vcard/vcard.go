package vcard

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	govcard "github.com/emersion/go-vcard"
	"github.com/google/uuid"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

// ValidateVCard checks that raw holds at least one well-formed card and
// that every card names its VERSION.
func ValidateVCard(raw []byte) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("%w: empty vCard data", contacts.ErrInvalidVCard)
	}

	upper := strings.ToUpper(string(raw))
	if !strings.Contains(upper, "BEGIN:VCARD") {
		return fmt.Errorf("%w: missing BEGIN:VCARD", contacts.ErrInvalidVCard)
	}
	if !strings.Contains(upper, "END:VCARD") {
		return fmt.Errorf("%w: missing END:VCARD", contacts.ErrInvalidVCard)
	}

	cards, err := ParseAll(raw, false)
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		return fmt.Errorf("%w: no card found", contacts.ErrInvalidVCard)
	}
	for i, c := range cards {
		if c.Value(govcard.FieldVersion) == "" {
			return fmt.Errorf("%w: card %d missing VERSION", contacts.ErrInvalidVCard, i+1)
		}
	}
	return nil
}

// NormalizeVCard fills VERSION, FN and UID where a card lacks them. FN is
// built from N in display order, else taken from the first EMAIL.
func NormalizeVCard(c govcard.Card) error {
	if c.Value(govcard.FieldVersion) == "" {
		c.SetValue(govcard.FieldVersion, "3.0")
	}

	if strings.TrimSpace(c.Value(govcard.FieldFormattedName)) == "" {
		fn := displayName(splitStructured(c.Value(govcard.FieldName)))
		if fn == "" {
			fn = strings.TrimSpace(c.Value(govcard.FieldEmail))
		}
		if fn == "" {
			return fmt.Errorf("%w: card has no FN, N or EMAIL", contacts.ErrInvalidVCard)
		}
		c.SetValue(govcard.FieldFormattedName, fn)
	}

	if c.Value(govcard.FieldUID) == "" {
		c.SetValue(govcard.FieldUID, uuid.NewString())
	}
	return nil
}

// displayName orders N components as prefix, given, middle, family, suffix.
func displayName(n []string) string {
	at := func(i int) string {
		if i < len(n) {
			return strings.TrimSpace(n[i])
		}
		return ""
	}
	return strings.Join(nonEmpty([]string{at(3), at(1), at(2), at(0), at(4)}), " ")
}

// ParseAll decodes every card in raw. In lenient mode content lines that
// cannot be valid are dropped before decoding; otherwise the first decoder
// error is returned.
func ParseAll(raw []byte, lenient bool) ([]govcard.Card, error) {
	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if lenient {
		content = dropInvalidLines(content)
	}
	// The decoder expects CRLF line endings.
	content = strings.ReplaceAll(content, "\n", "\r\n")

	dec := govcard.NewDecoder(strings.NewReader(content))
	var out []govcard.Card
	for {
		c, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to decode vCard: %w", contacts.ErrInvalidVCard, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func dropInvalidLines(content string) string {
	lines := strings.Split(content, "\n")
	kept := lines[:0]
	for _, l := range lines {
		switch {
		case strings.TrimSpace(l) == "":
			continue
		case strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t"):
			if len(kept) == 0 {
				continue
			}
		case !strings.Contains(l, ":"):
			continue
		}
		kept = append(kept, l)
	}
	return strings.Join(kept, "\n") + "\n"
}

// Encode serialises cards back to text.
func Encode(cards ...govcard.Card) ([]byte, error) {
	var buf bytes.Buffer
	enc := govcard.NewEncoder(&buf)
	for _, c := range cards {
		if err := enc.Encode(c); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
