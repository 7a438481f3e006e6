package vcard

import (
	"strconv"
	"strings"

	govcard "github.com/emersion/go-vcard"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
)

// slot is the desired state of one classified entry of a multi-valued
// property.
type slot struct {
	kind  string
	value string
	types []string
	pref  bool
}

// reconcile brings card[key] in line with slots. For each slot the first
// existing field of that class is updated in place and any further ones are
// dropped; an empty slot drops every field of its class; a missing one is
// appended. A reused field without TYPE gets the slot's types. Fields of classes not named by any slot are left untouched.
func reconcile(card govcard.Card, key string, classify func(*govcard.Field) string, slots []slot, withPref bool) {
	want := make(map[string]slot, len(slots))
	for _, s := range slots {
		want[s.kind] = s
	}

	seen := map[string]bool{}
	var out []*govcard.Field
	for _, f := range card[key] {
		kind := classify(f)
		s, managed := want[kind]
		if !managed || kind == slotNone {
			out = append(out, f)
			continue
		}
		if s.value == "" || seen[kind] {
			continue
		}
		seen[kind] = true
		f.Value = s.value
		if _, typed := typeSet(f); !typed && len(s.types) > 0 {
			addTypes(f, s.types...)
		}
		if withPref {
			setPref(f, s.pref)
		}
		out = append(out, f)
	}

	for _, s := range slots {
		if s.value == "" || seen[s.kind] {
			continue
		}
		types := s.types
		if withPref && s.pref {
			types = append(append([]string(nil), types...), typePref)
		}
		out = append(out, newTypedField(s.value, types...))
	}

	if len(out) == 0 {
		delete(card, key)
		return
	}
	card[key] = out
}

// MergeContact writes c into card. Applying it twice yields the same card
// as applying it once. CATEGORIES is replaced by categories; pass nil to
// clear it.
func MergeContact(card govcard.Card, c *contacts.Contact, categories []string) {
	card.SetValue(govcard.FieldVersion, "3.0")
	if card.Value(govcard.FieldUID) == "" && c.UUID != "" {
		card.SetValue(govcard.FieldUID, c.UUID)
	}
	card.SetValue(govcard.FieldFormattedName, c.FullName)
	card.SetValue(govcard.FieldName, joinStructured(c.LastName, c.FirstName, "", c.Title, "", ""))
	card.SetValue(FieldOffice, c.BusinessOffice)
	if c.UseFriendlyName {
		card.SetValue(FieldUseFriendlyName, "1")
	} else {
		card.SetValue(FieldUseFriendlyName, "0")
	}
	card.SetValue(FieldFrequency, strconv.Itoa(c.Frequency))
	card.SetValue(govcard.FieldTitle, c.BusinessJobTitle)
	card.SetValue(govcard.FieldNickname, c.NickName)
	card.SetValue(govcard.FieldNote, c.Notes)
	card.SetValue(govcard.FieldOrganization, joinStructured(c.BusinessCompany, c.BusinessDepartment))

	mergeAddresses(card, c)
	mergeEmails(card, c)
	mergeURLs(card, c)
	mergePhones(card, c)

	delete(card, govcard.FieldBirthday)
	if c.HasBirthDate() {
		card.SetValue(govcard.FieldBirthday, formatBirthday(c))
	}

	mergeIMPP(card, c)

	delete(card, govcard.FieldCategories)
	for _, name := range categories {
		if name = strings.TrimSpace(name); name != "" {
			card.AddValue(govcard.FieldCategories, name)
		}
	}
}

func addressValue(street, city, state, zip, country string) string {
	return joinStructured("", "", street, city, state, zip, country)
}

func mergeAddresses(card govcard.Card, c *contacts.Contact) {
	home := slot{kind: slotHome, types: []string{typeHome}}
	if c.HasPersonalAddress() {
		home.value = addressValue(c.PersonalAddress, c.PersonalCity, c.PersonalState, c.PersonalZip, c.PersonalCountry)
	}
	work := slot{kind: slotWork, types: []string{typeWork}}
	if c.HasBusinessAddress() {
		work.value = addressValue(c.BusinessAddress, c.BusinessCity, c.BusinessState, c.BusinessZip, c.BusinessCountry)
	}
	reconcile(card, govcard.FieldAddress, classifyAddress, []slot{home, work}, false)
}

func mergeEmails(card govcard.Card, c *contacts.Contact) {
	classify := func(f *govcard.Field) string { return classifyEmail(card, f) }
	reconcile(card, govcard.FieldEmail, classify, []slot{
		{kind: slotHome, value: c.PersonalEmail, types: []string{typeHome}, pref: c.PrimaryEmail == contacts.PrimaryEmailPersonal},
		{kind: slotWork, value: c.BusinessEmail, types: []string{typeWork}, pref: c.PrimaryEmail == contacts.PrimaryEmailBusiness},
		{kind: slotOther, value: c.OtherEmail, types: []string{typeOther}, pref: c.PrimaryEmail == contacts.PrimaryEmailOther},
	}, true)
}

func mergeURLs(card govcard.Card, c *contacts.Contact) {
	reconcile(card, govcard.FieldURL, classifyURL, []slot{
		{kind: slotHome, value: c.PersonalWeb, types: []string{typeHome}},
		{kind: slotWork, value: c.BusinessWeb, types: []string{typeWork}},
	}, false)
}

func mergePhones(card govcard.Card, c *contacts.Contact) {
	reconcile(card, govcard.FieldTelephone, classifyTel, []slot{
		{kind: slotHome, value: c.PersonalPhone, types: []string{typeHome, typeVoice}},
		{kind: slotWork, value: c.BusinessPhone, types: []string{typeWork, typeVoice}},
		{kind: slotCell, value: c.PersonalMobile, types: []string{typeCell, typeVoice}},
		{kind: slotHomeFax, value: c.PersonalFax, types: []string{typeHome, typeFax}},
		{kind: slotWorkFax, value: c.BusinessFax, types: []string{typeWork, typeFax}},
	}, false)
}

func mergeIMPP(card govcard.Card, c *contacts.Contact) {
	var skype, facebook string
	if c.Skype != "" {
		skype = "skype:" + c.Skype
	}
	if c.Facebook != "" {
		facebook = "facebook:" + c.Facebook
	}
	reconcile(card, govcard.FieldIMPP, classifyIMPP, []slot{
		{kind: slotSkype, value: skype},
		{kind: slotFacebook, value: facebook},
	}, false)
}
