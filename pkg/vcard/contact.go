package vcard

import (
	"strconv"
	"strings"

	govcard "github.com/emersion/go-vcard"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

// ParseContact maps a card onto a new contact. The mapping is lossy: only
// the properties the contact model has slots for are read. The result is
// always classified as personal storage.
func ParseContact(card govcard.Card) *contacts.Contact {
	c := &contacts.Contact{Storage: string(contacts.StoragePersonal)}

	c.UUID = stripUUIDPrefix(card.Value(govcard.FieldUID))
	c.FullName = card.Value(govcard.FieldFormattedName)
	if n := splitStructured(card.Value(govcard.FieldName)); len(n) >= 2 {
		c.LastName = n[0]
		c.FirstName = n[1]
	}
	c.NickName = card.Value(govcard.FieldNickname)
	c.Notes = card.Value(govcard.FieldNote)

	c.BirthYear, c.BirthMonth, c.BirthDay = parseBirthday(card.Value(govcard.FieldBirthday))

	if org := splitStructured(card.Value(govcard.FieldOrganization)); len(org) >= 2 {
		c.BusinessCompany = org[0]
		c.BusinessDepartment = org[1]
	}
	c.BusinessJobTitle = card.Value(govcard.FieldTitle)

	for _, f := range card[govcard.FieldAddress] {
		p := splitStructured(f.Value)
		switch classifyAddress(f) {
		case slotWork:
			c.BusinessAddress, c.BusinessCity, c.BusinessState = part(p, 2), part(p, 3), part(p, 4)
			c.BusinessZip, c.BusinessCountry = part(p, 5), part(p, 6)
		case slotHome:
			c.PersonalAddress, c.PersonalCity, c.PersonalState = part(p, 2), part(p, 3), part(p, 4)
			c.PersonalZip, c.PersonalCountry = part(p, 5), part(p, 6)
		}
	}

	parseEmails(card, c)

	for _, f := range card[govcard.FieldURL] {
		switch classifyURL(f) {
		case slotHome:
			c.PersonalWeb = f.Value
		case slotWork:
			c.BusinessWeb = f.Value
		}
	}

	for _, f := range card[govcard.FieldTelephone] {
		switch classifyTel(f) {
		case slotHomeFax:
			c.PersonalFax = f.Value
		case slotWorkFax:
			c.BusinessFax = f.Value
		case slotCell:
			c.PersonalMobile = f.Value
		case slotHome:
			c.PersonalPhone = f.Value
		case slotWork:
			c.BusinessPhone = f.Value
		}
	}

	c.BusinessOffice = card.Value(FieldOffice)
	c.UseFriendlyName = card.Value(FieldUseFriendlyName) == "1"

	for _, f := range card[govcard.FieldIMPP] {
		switch classifyIMPP(f) {
		case slotSkype:
			c.Skype = imppValue(f)
		case slotFacebook:
			c.Facebook = imppValue(f)
		}
	}

	c.RefreshViewEmail()
	return c
}

func parseEmails(card govcard.Card, c *contacts.Contact) {
	primarySet := false
	for _, f := range card[govcard.FieldEmail] {
		types, hasType := typeSet(f)
		if !hasType {
			c.OtherEmail = f.Value
			c.PrimaryEmail = contacts.PrimaryEmailOther
			primarySet = true
			continue
		}
		pref := types[typePref]
		switch classifyEmail(card, f) {
		case slotWork:
			c.BusinessEmail = f.Value
			if pref {
				c.PrimaryEmail, primarySet = contacts.PrimaryEmailBusiness, true
			}
		case slotHome:
			c.PersonalEmail = f.Value
			if pref {
				c.PrimaryEmail, primarySet = contacts.PrimaryEmailPersonal, true
			}
		case slotOther:
			c.OtherEmail = f.Value
			if pref {
				c.PrimaryEmail, primarySet = contacts.PrimaryEmailOther, true
			}
		}
	}
	if primarySet {
		return
	}
	switch {
	case c.BusinessEmail != "":
		c.PrimaryEmail = contacts.PrimaryEmailBusiness
	case c.PersonalEmail != "":
		c.PrimaryEmail = contacts.PrimaryEmailPersonal
	case c.OtherEmail != "":
		c.PrimaryEmail = contacts.PrimaryEmailOther
	}
}

// parseBirthday splits BDAY on "T" and then "-". Anything with fewer than
// three numeric components is treated as unset. The calendar date itself is
// not validated.
func parseBirthday(v string) (year, month, day int) {
	date, _, _ := strings.Cut(strings.TrimSpace(v), "T")
	parts := strings.Split(date, "-")
	if len(parts) < 3 {
		return 0, 0, 0
	}
	nums := make([]int, 3)
	for i := 0; i < 3; i++ {
		n, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return 0, 0, 0
		}
		nums[i] = n
	}
	return nums[0], nums[1], nums[2]
}

func formatBirthday(c *contacts.Contact) string {
	return strconv.Itoa(c.BirthYear) + "-" + strconv.Itoa(c.BirthMonth) + "-" + strconv.Itoa(c.BirthDay)
}
