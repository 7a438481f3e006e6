package transfer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

const delimiterSample = 4096

// DetectDelimiter picks ';' when the sample holds more semicolons than
// commas, ',' otherwise.
func DetectDelimiter(sample []byte) rune {
	if bytes.Count(sample, []byte{';'}) > bytes.Count(sample, []byte{','}) {
		return ';'
	}
	return ','
}

// CSVReader turns CSV rows into contacts. Header names are matched against
// contact field names ignoring case; unknown columns are ignored.
type CSVReader struct {
	Logger zerolog.Logger
	Now    func() time.Time
}

func (r CSVReader) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// Read parses data. Rows with fewer columns than the header are logged and
// skipped.
func (r CSVReader) Read(data []byte) ([]*contacts.Contact, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	sample := data
	if len(sample) > delimiterSample {
		sample = sample[:delimiterSample]
	}

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = DetectDelimiter(sample)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV header: %w", contacts.ErrValidation, err)
	}

	columns := make([]string, len(header))
	known := 0
	for i, h := range header {
		if name, ok := contacts.CanonicalFieldName(h); ok {
			columns[i] = name
			known++
		}
	}
	if known == 0 {
		return nil, fmt.Errorf("%w: CSV header names no contact field", contacts.ErrValidation)
	}

	year := r.now().Year()
	var out []*contacts.Contact
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, fmt.Errorf("%w: CSV line %d: %w", contacts.ErrValidation, line, err)
		}
		if len(row) < len(header) {
			r.Logger.Warn().
				Int("line", line).
				Int("columns", len(row)).
				Int("expected", len(header)).
				Msg("Skipping short CSV row")
			continue
		}

		c := &contacts.Contact{}
		empty := true
		for i, name := range columns {
			if name == "" || strings.TrimSpace(row[i]) == "" {
				continue
			}
			if err := c.SetField(name, row[i]); err != nil {
				r.Logger.Warn().Err(err).Int("line", line).Msg("Ignoring invalid CSV value")
				continue
			}
			empty = false
		}
		if empty {
			continue
		}
		normalizeImported(c, year)
		out = append(out, c)
	}
	return out, nil
}

// normalizeImported fills the derived fields an import leaves out.
func normalizeImported(c *contacts.Contact, currentYear int) {
	if strings.TrimSpace(c.FullName) == "" {
		c.FullName = strings.TrimSpace(c.FirstName + " " + c.LastName)
	}

	switch {
	case c.PersonalEmail != "":
		c.PrimaryEmail = contacts.PrimaryEmailPersonal
	case c.BusinessEmail != "":
		c.PrimaryEmail = contacts.PrimaryEmailBusiness
	case c.OtherEmail != "":
		c.PrimaryEmail = contacts.PrimaryEmailOther
	}
	c.RefreshViewEmail()

	c.BirthYear = expandYear(c.BirthYear, currentYear)
}

// expandYear turns a two-digit year into one in the current or previous
// century, whichever is not in the future.
func expandYear(y, currentYear int) int {
	if y <= 0 || y >= 100 {
		return y
	}
	century := currentYear / 100 * 100
	if y <= currentYear%100 {
		return century + y
	}
	return century - 100 + y
}

// WriteCSV writes a header of every exchangeable field followed by one row
// per contact.
func WriteCSV(w io.Writer, list []*contacts.Contact) error {
	names := contacts.FieldNames()
	cw := csv.NewWriter(w)
	if err := cw.Write(names); err != nil {
		return err
	}
	row := make([]string, len(names))
	for _, c := range list {
		for i, n := range names {
			row[i], _ = c.FieldValue(n)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
