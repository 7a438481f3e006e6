package sqlstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

// ContactRow is the persisted shape of a contact. The db tags serve both
// sqlx and pgx.RowToStructByName.
type ContactRow struct {
	ID            int64  `db:"id"`
	UUID          string `db:"uuid"`
	UserID        int64  `db:"user_id"`
	TenantID      int64  `db:"tenant_id"`
	Storage       string `db:"storage"`
	AddressBookID int64  `db:"address_book_id"`

	FullName        string `db:"full_name"`
	UseFriendlyName bool   `db:"use_friendly_name"`
	Title           string `db:"title"`
	FirstName       string `db:"first_name"`
	LastName        string `db:"last_name"`
	NickName        string `db:"nick_name"`
	Skype           string `db:"skype"`
	Facebook        string `db:"facebook"`

	PrimaryEmail  int    `db:"primary_email"`
	ViewEmail     string `db:"view_email"`
	PersonalEmail string `db:"personal_email"`
	BusinessEmail string `db:"business_email"`
	OtherEmail    string `db:"other_email"`

	PrimaryPhone   int    `db:"primary_phone"`
	PersonalPhone  string `db:"personal_phone"`
	PersonalMobile string `db:"personal_mobile"`
	PersonalFax    string `db:"personal_fax"`
	BusinessPhone  string `db:"business_phone"`
	BusinessFax    string `db:"business_fax"`

	PrimaryAddress  int    `db:"primary_address"`
	PersonalAddress string `db:"personal_address"`
	PersonalCity    string `db:"personal_city"`
	PersonalState   string `db:"personal_state"`
	PersonalZip     string `db:"personal_zip"`
	PersonalCountry string `db:"personal_country"`
	PersonalWeb     string `db:"personal_web"`

	BusinessCompany    string `db:"business_company"`
	BusinessAddress    string `db:"business_address"`
	BusinessCity       string `db:"business_city"`
	BusinessState      string `db:"business_state"`
	BusinessZip        string `db:"business_zip"`
	BusinessCountry    string `db:"business_country"`
	BusinessJobTitle   string `db:"business_job_title"`
	BusinessDepartment string `db:"business_department"`
	BusinessOffice     string `db:"business_office"`
	BusinessWeb        string `db:"business_web"`

	Notes      string `db:"notes"`
	BirthDay   int    `db:"birth_day"`
	BirthMonth int    `db:"birth_month"`
	BirthYear  int    `db:"birth_year"`

	Frequency int  `db:"frequency"`
	Auto      bool `db:"auto"`

	Properties   string `db:"properties"`
	ETag         string `db:"etag"`
	DateModified int64  `db:"date_modified"`
}

// ContactColumns lists the contact columns in ContactRow order.
var ContactColumns = []string{
	"id", "uuid", "user_id", "tenant_id", "storage", "address_book_id",
	"full_name", "use_friendly_name", "title", "first_name", "last_name", "nick_name", "skype", "facebook",
	"primary_email", "view_email", "personal_email", "business_email", "other_email",
	"primary_phone", "personal_phone", "personal_mobile", "personal_fax", "business_phone", "business_fax",
	"primary_address", "personal_address", "personal_city", "personal_state", "personal_zip", "personal_country", "personal_web",
	"business_company", "business_address", "business_city", "business_state", "business_zip", "business_country",
	"business_job_title", "business_department", "business_office", "business_web",
	"notes", "birth_day", "birth_month", "birth_year",
	"frequency", "auto",
	"properties", "etag", "date_modified",
}

// Values returns the column values of r, without id, in ContactColumns order.
func (r ContactRow) Values() []any {
	return []any{
		r.UUID, r.UserID, r.TenantID, r.Storage, r.AddressBookID,
		r.FullName, r.UseFriendlyName, r.Title, r.FirstName, r.LastName, r.NickName, r.Skype, r.Facebook,
		r.PrimaryEmail, r.ViewEmail, r.PersonalEmail, r.BusinessEmail, r.OtherEmail,
		r.PrimaryPhone, r.PersonalPhone, r.PersonalMobile, r.PersonalFax, r.BusinessPhone, r.BusinessFax,
		r.PrimaryAddress, r.PersonalAddress, r.PersonalCity, r.PersonalState, r.PersonalZip, r.PersonalCountry, r.PersonalWeb,
		r.BusinessCompany, r.BusinessAddress, r.BusinessCity, r.BusinessState, r.BusinessZip, r.BusinessCountry,
		r.BusinessJobTitle, r.BusinessDepartment, r.BusinessOffice, r.BusinessWeb,
		r.Notes, r.BirthDay, r.BirthMonth, r.BirthYear,
		r.Frequency, r.Auto,
		r.Properties, r.ETag, r.DateModified,
	}
}

// ToContactRow flattens c for persistence.
func ToContactRow(c *contacts.Contact) (ContactRow, error) {
	props := "{}"
	if len(c.Properties) > 0 {
		b, err := json.Marshal(c.Properties)
		if err != nil {
			return ContactRow{}, fmt.Errorf("failed to encode properties: %w", err)
		}
		props = string(b)
	}

	var modified int64
	if !c.DateModified.IsZero() {
		modified = c.DateModified.Unix()
	}

	return ContactRow{
		ID: c.ID, UUID: c.UUID, UserID: c.UserID, TenantID: c.TenantID,
		Storage: c.Storage, AddressBookID: c.AddressBookID,

		FullName: c.FullName, UseFriendlyName: c.UseFriendlyName, Title: c.Title,
		FirstName: c.FirstName, LastName: c.LastName, NickName: c.NickName,
		Skype: c.Skype, Facebook: c.Facebook,

		PrimaryEmail: int(c.PrimaryEmail), ViewEmail: c.ViewEmail,
		PersonalEmail: c.PersonalEmail, BusinessEmail: c.BusinessEmail, OtherEmail: c.OtherEmail,

		PrimaryPhone: int(c.PrimaryPhone), PersonalPhone: c.PersonalPhone, PersonalMobile: c.PersonalMobile,
		PersonalFax: c.PersonalFax, BusinessPhone: c.BusinessPhone, BusinessFax: c.BusinessFax,

		PrimaryAddress: int(c.PrimaryAddress), PersonalAddress: c.PersonalAddress, PersonalCity: c.PersonalCity,
		PersonalState: c.PersonalState, PersonalZip: c.PersonalZip, PersonalCountry: c.PersonalCountry,
		PersonalWeb: c.PersonalWeb,

		BusinessCompany: c.BusinessCompany, BusinessAddress: c.BusinessAddress, BusinessCity: c.BusinessCity,
		BusinessState: c.BusinessState, BusinessZip: c.BusinessZip, BusinessCountry: c.BusinessCountry,
		BusinessJobTitle: c.BusinessJobTitle, BusinessDepartment: c.BusinessDepartment,
		BusinessOffice: c.BusinessOffice, BusinessWeb: c.BusinessWeb,

		Notes: c.Notes, BirthDay: c.BirthDay, BirthMonth: c.BirthMonth, BirthYear: c.BirthYear,
		Frequency: c.Frequency, Auto: c.Auto,

		Properties: props, ETag: c.ETag, DateModified: modified,
	}, nil
}

// Contact rebuilds the domain contact. GroupUUIDs is left for the caller.
func (r ContactRow) Contact() (*contacts.Contact, error) {
	c := &contacts.Contact{
		ID: r.ID, UUID: r.UUID, UserID: r.UserID, TenantID: r.TenantID,
		Storage: r.Storage, AddressBookID: r.AddressBookID,

		FullName: r.FullName, UseFriendlyName: r.UseFriendlyName, Title: r.Title,
		FirstName: r.FirstName, LastName: r.LastName, NickName: r.NickName,
		Skype: r.Skype, Facebook: r.Facebook,

		PrimaryEmail: contacts.PrimaryEmail(r.PrimaryEmail), ViewEmail: r.ViewEmail,
		PersonalEmail: r.PersonalEmail, BusinessEmail: r.BusinessEmail, OtherEmail: r.OtherEmail,

		PrimaryPhone: contacts.PrimaryPhone(r.PrimaryPhone), PersonalPhone: r.PersonalPhone,
		PersonalMobile: r.PersonalMobile, PersonalFax: r.PersonalFax,
		BusinessPhone: r.BusinessPhone, BusinessFax: r.BusinessFax,

		PrimaryAddress: contacts.PrimaryAddress(r.PrimaryAddress), PersonalAddress: r.PersonalAddress,
		PersonalCity: r.PersonalCity, PersonalState: r.PersonalState, PersonalZip: r.PersonalZip,
		PersonalCountry: r.PersonalCountry, PersonalWeb: r.PersonalWeb,

		BusinessCompany: r.BusinessCompany, BusinessAddress: r.BusinessAddress, BusinessCity: r.BusinessCity,
		BusinessState: r.BusinessState, BusinessZip: r.BusinessZip, BusinessCountry: r.BusinessCountry,
		BusinessJobTitle: r.BusinessJobTitle, BusinessDepartment: r.BusinessDepartment,
		BusinessOffice: r.BusinessOffice, BusinessWeb: r.BusinessWeb,

		Notes: r.Notes, BirthDay: r.BirthDay, BirthMonth: r.BirthMonth, BirthYear: r.BirthYear,
		Frequency: r.Frequency, Auto: r.Auto,

		ETag: r.ETag,
	}
	if r.DateModified > 0 {
		c.DateModified = time.Unix(r.DateModified, 0).UTC()
	}
	if r.Properties != "" && r.Properties != "{}" {
		if err := json.Unmarshal([]byte(r.Properties), &c.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode properties of contact %s: %w", r.UUID, err)
		}
	}
	return c, nil
}

// GroupRow is the persisted shape of a group.
type GroupRow struct {
	ID             int64  `db:"id"`
	UUID           string `db:"uuid"`
	UserID         int64  `db:"user_id"`
	Name           string `db:"name"`
	IsOrganization bool   `db:"is_organization"`
	Email          string `db:"email"`
	Company        string `db:"company"`
	Street         string `db:"street"`
	City           string `db:"city"`
	State          string `db:"state"`
	Zip            string `db:"zip"`
	Country        string `db:"country"`
	Phone          string `db:"phone"`
	Fax            string `db:"fax"`
	Web            string `db:"web"`
}

// GroupColumns lists the group columns in GroupRow order.
var GroupColumns = []string{
	"id", "uuid", "user_id", "name", "is_organization",
	"email", "company", "street", "city", "state", "zip", "country", "phone", "fax", "web",
}

// Values returns the column values of r, without id, in GroupColumns order.
func (r GroupRow) Values() []any {
	return []any{
		r.UUID, r.UserID, r.Name, r.IsOrganization,
		r.Email, r.Company, r.Street, r.City, r.State, r.Zip, r.Country, r.Phone, r.Fax, r.Web,
	}
}

func ToGroupRow(g *contacts.Group) GroupRow {
	return GroupRow{
		ID: g.ID, UUID: g.UUID, UserID: g.UserID, Name: g.Name, IsOrganization: g.IsOrganization,
		Email: g.Email, Company: g.Company, Street: g.Street, City: g.City, State: g.State,
		Zip: g.Zip, Country: g.Country, Phone: g.Phone, Fax: g.Fax, Web: g.Web,
	}
}

func (r GroupRow) Group() *contacts.Group {
	return &contacts.Group{
		ID: r.ID, UUID: r.UUID, UserID: r.UserID, Name: r.Name, IsOrganization: r.IsOrganization,
		Email: r.Email, Company: r.Company, Street: r.Street, City: r.City, State: r.State,
		Zip: r.Zip, Country: r.Country, Phone: r.Phone, Fax: r.Fax, Web: r.Web,
	}
}

// AddressBookRow is the persisted shape of an address book.
type AddressBookRow struct {
	ID     int64  `db:"id"`
	UUID   string `db:"uuid"`
	UserID int64  `db:"user_id"`
	Name   string `db:"name"`
}

var AddressBookColumns = []string{"id", "uuid", "user_id", "name"}

func (r AddressBookRow) AddressBook() *contacts.AddressBook {
	return &contacts.AddressBook{ID: r.ID, UUID: r.UUID, UserID: r.UserID, Name: r.Name}
}

// MembershipRow links a contact to the UUID of one of its groups.
type MembershipRow struct {
	ContactID int64  `db:"contact_id"`
	GroupUUID string `db:"group_uuid"`
}

// GroupMemberRow links a group to the UUID of one of its contacts.
type GroupMemberRow struct {
	GroupID     int64  `db:"group_id"`
	ContactUUID string `db:"contact_uuid"`
}
