// Package transfer converts contacts to and from CSV and VCF files.
package transfer

import (
	"fmt"
	"strings"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

type Format string

const (
	FormatCSV Format = "csv"
	FormatVCF Format = "vcf"
)

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "vcf", "vcard", "vcs":
		return FormatVCF, nil
	}
	return "", fmt.Errorf("%w: unsupported format %q", contacts.ErrValidation, s)
}

// Result counts the contacts read from a file and the ones that were
// stored. Individual failures are only logged.
type Result struct {
	Parsed   int `json:"Parsed"`
	Imported int `json:"Imported"`
}

// Entry is one contact read from or written to a file together with the
// names of its groups.
type Entry struct {
	Contact    *contacts.Contact
	Categories []string
}
