package vcard

import (
	"strings"

	govcard "github.com/emersion/go-vcard"
)

// Slots a multi-valued property can be mapped onto. Parsing and merging
// share these classifiers so that a merged card parses back to the same
// contact.
const (
	slotNone     = ""
	slotHome     = "home"
	slotWork     = "work"
	slotOther    = "other"
	slotCell     = "cell"
	slotHomeFax  = "home-fax"
	slotWorkFax  = "work-fax"
	slotSkype    = "skype"
	slotFacebook = "facebook"
)

func classifyAddress(f *govcard.Field) string {
	types, hasType := typeSet(f)
	switch {
	case types[typeWork]:
		return slotWork
	case types[typeHome] || !hasType:
		return slotHome
	}
	return slotNone
}

// classifyEmail follows the WORK/INTERNET, HOME, OTHER precedence. An email
// without any TYPE is OTHER.
func classifyEmail(card govcard.Card, f *govcard.Field) string {
	types, hasType := typeSet(f)
	switch {
	case !hasType:
		return slotOther
	case types[typeWork] || types[typeInternet]:
		return slotWork
	case types[typeHome]:
		return slotHome
	case types[typeOther] || isOtherLabel(labelOf(card, f)):
		return slotOther
	}
	return slotNone
}

func classifyURL(f *govcard.Field) string {
	types, hasType := typeSet(f)
	switch {
	case types[typeHome] || !hasType:
		return slotHome
	case types[typeWork]:
		return slotWork
	}
	return slotNone
}

func classifyTel(f *govcard.Field) string {
	types, hasType := typeSet(f)
	if types[typeFax] {
		switch {
		case types[typeHome]:
			return slotHomeFax
		case types[typeWork]:
			return slotWorkFax
		}
		return slotNone
	}
	switch {
	case types[typeCell]:
		return slotCell
	case types[typeHome] || !hasType:
		return slotHome
	case types[typeWork]:
		return slotWork
	}
	return slotNone
}

func classifyIMPP(f *govcard.Field) string {
	scheme, _, ok := strings.Cut(f.Value, ":")
	if !ok {
		return slotNone
	}
	switch strings.ToLower(strings.TrimSpace(scheme)) {
	case slotSkype:
		return slotSkype
	case slotFacebook:
		return slotFacebook
	}
	return slotNone
}

func imppValue(f *govcard.Field) string {
	_, v, _ := strings.Cut(f.Value, ":")
	return v
}
