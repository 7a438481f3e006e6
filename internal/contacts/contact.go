package contacts

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PrimaryEmail selects which email slot is authoritative.
type PrimaryEmail int

const (
	PrimaryEmailPersonal PrimaryEmail = 0
	PrimaryEmailBusiness PrimaryEmail = 1
	PrimaryEmailOther    PrimaryEmail = 2
)

// PrimaryPhone selects which phone slot is authoritative.
type PrimaryPhone int

const (
	PrimaryPhonePersonal PrimaryPhone = 0
	PrimaryPhoneBusiness PrimaryPhone = 1
	PrimaryPhoneMobile   PrimaryPhone = 2
)

// PrimaryAddress selects which address slot is authoritative.
type PrimaryAddress int

const (
	PrimaryAddressPersonal PrimaryAddress = 0
	PrimaryAddressBusiness PrimaryAddress = 1
)

// FrequencyExcluded marks a contact that never takes part in suggestions.
const FrequencyExcluded = -1

// Contact is one person in an address book. Field names double as CSV
// header names.
type Contact struct {
	ID            int64  `json:"Id"`
	UUID          string `json:"UUID"`
	UserID        int64  `json:"IdUser"`
	TenantID      int64  `json:"IdTenant"`
	Storage       string `json:"Storage"`
	AddressBookID int64  `json:"AddressBookId"`

	FullName        string `json:"FullName"`
	UseFriendlyName bool   `json:"UseFriendlyName"`
	Title           string `json:"Title"`
	FirstName       string `json:"FirstName"`
	LastName        string `json:"LastName"`
	NickName        string `json:"NickName"`
	Skype           string `json:"Skype"`
	Facebook        string `json:"Facebook"`

	PrimaryEmail  PrimaryEmail `json:"PrimaryEmail"`
	ViewEmail     string       `json:"ViewEmail"`
	PersonalEmail string       `json:"PersonalEmail"`
	BusinessEmail string       `json:"BusinessEmail"`
	OtherEmail    string       `json:"OtherEmail"`

	PrimaryPhone   PrimaryPhone `json:"PrimaryPhone"`
	PersonalPhone  string       `json:"PersonalPhone"`
	PersonalMobile string       `json:"PersonalMobile"`
	PersonalFax    string       `json:"PersonalFax"`
	BusinessPhone  string       `json:"BusinessPhone"`
	BusinessFax    string       `json:"BusinessFax"`

	PrimaryAddress  PrimaryAddress `json:"PrimaryAddress"`
	PersonalAddress string         `json:"PersonalAddress"`
	PersonalCity    string         `json:"PersonalCity"`
	PersonalState   string         `json:"PersonalState"`
	PersonalZip     string         `json:"PersonalZip"`
	PersonalCountry string         `json:"PersonalCountry"`
	PersonalWeb     string         `json:"PersonalWeb"`

	BusinessCompany    string `json:"BusinessCompany"`
	BusinessAddress    string `json:"BusinessAddress"`
	BusinessCity       string `json:"BusinessCity"`
	BusinessState      string `json:"BusinessState"`
	BusinessZip        string `json:"BusinessZip"`
	BusinessCountry    string `json:"BusinessCountry"`
	BusinessJobTitle   string `json:"BusinessJobTitle"`
	BusinessDepartment string `json:"BusinessDepartment"`
	BusinessOffice     string `json:"BusinessOffice"`
	BusinessWeb        string `json:"BusinessWeb"`

	Notes      string `json:"Notes"`
	BirthDay   int    `json:"BirthDay"`
	BirthMonth int    `json:"BirthMonth"`
	BirthYear  int    `json:"BirthYear"`

	Frequency int  `json:"Frequency"`
	Auto      bool `json:"Auto"`

	Properties Properties `json:"Properties,omitempty"`

	ETag         string    `json:"ETag"`
	DateModified time.Time `json:"DateModified"`

	GroupUUIDs []string `json:"GroupUUIDs,omitempty"`
}

// Properties holds extended key/value pairs not covered by the static fields.
type Properties map[string]json.RawMessage

// Get decodes the property k into out. It reports false when k is absent.
func (p Properties) Get(k string, out any) (bool, error) {
	raw, ok := p[k]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, out)
}

// Set encodes v as the property k.
func (p *Properties) Set(k string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if *p == nil {
		*p = Properties{}
	}
	(*p)[k] = raw
	return nil
}

// NewContact returns a personal contact with a fresh UUID.
func NewContact(userID, tenantID int64) *Contact {
	return &Contact{
		UUID:     uuid.NewString(),
		UserID:   userID,
		TenantID: tenantID,
		Storage:  string(StoragePersonal),
	}
}

// EnsureUUID assigns a UUID if the contact has none. An existing UUID is
// never replaced.
func (c *Contact) EnsureUUID() {
	if c.UUID == "" {
		c.UUID = uuid.NewString()
	}
}

// PrimaryEmailValue returns the email slot selected by PrimaryEmail.
func (c *Contact) PrimaryEmailValue() string {
	switch c.PrimaryEmail {
	case PrimaryEmailBusiness:
		return c.BusinessEmail
	case PrimaryEmailOther:
		return c.OtherEmail
	default:
		return c.PersonalEmail
	}
}

// RefreshViewEmail copies the primary email into ViewEmail.
func (c *Contact) RefreshViewEmail() {
	c.ViewEmail = c.PrimaryEmailValue()
}

// Populate normalises a contact after its fields were filled from an outside
// source: storage identifier, derived view email and address-book id.
func (c *Contact) Populate() error {
	if c.Storage == "" {
		c.Storage = string(StoragePersonal)
	}
	st, err := ParseStorage(c.Storage)
	if err != nil {
		return err
	}
	c.Storage = st.String()
	c.AddressBookID = st.AddressBookID
	c.RefreshViewEmail()
	return nil
}

// StorageID returns the parsed storage identifier. Unparseable values fall
// back to personal.
func (c *Contact) StorageID() Storage {
	st, err := ParseStorage(c.Storage)
	if err != nil {
		return Storage{Kind: StoragePersonal}
	}
	return st
}

// SetStorage moves the contact to st.
func (c *Contact) SetStorage(st Storage) {
	c.Storage = st.String()
	c.AddressBookID = st.AddressBookID
}

// DisplayName is the label shown in lists: the full name or, failing that,
// the view email.
func (c *Contact) DisplayName() string {
	if n := strings.TrimSpace(c.FullName); n != "" {
		return n
	}
	return c.ViewEmail
}

// HasPersonalAddress reports whether any personal address field is set.
func (c *Contact) HasPersonalAddress() bool {
	return c.PersonalAddress != "" || c.PersonalCity != "" || c.PersonalState != "" ||
		c.PersonalZip != "" || c.PersonalCountry != ""
}

// HasBusinessAddress reports whether any business address field is set.
func (c *Contact) HasBusinessAddress() bool {
	return c.BusinessAddress != "" || c.BusinessCity != "" || c.BusinessState != "" ||
		c.BusinessZip != "" || c.BusinessCountry != ""
}

// HasBirthDate reports whether all three birth date parts are set.
func (c *Contact) HasBirthDate() bool {
	return c.BirthDay != 0 && c.BirthMonth != 0 && c.BirthYear != 0
}

// Emails returns the non-empty email slots.
func (c *Contact) Emails() []string {
	out := make([]string, 0, 3)
	for _, e := range []string{c.PersonalEmail, c.BusinessEmail, c.OtherEmail} {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// HasEmail reports whether email matches one of the slots, case-insensitively.
func (c *Contact) HasEmail(email string) bool {
	for _, e := range c.Emails() {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c *Contact) Clone() *Contact {
	cp := *c
	if c.Properties != nil {
		cp.Properties = make(Properties, len(c.Properties))
		for k, v := range c.Properties {
			cp.Properties[k] = append(json.RawMessage(nil), v...)
		}
	}
	if c.GroupUUIDs != nil {
		cp.GroupUUIDs = append([]string{}, c.GroupUUIDs...)
	}
	return &cp
}
