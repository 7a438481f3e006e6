package vcard

import (
	"strings"

	govcard "github.com/emersion/go-vcard"
)

// Vendor extensions understood by the mapping.
const (
	FieldOffice          = "X-OFFICE"
	FieldUseFriendlyName = "X-USE-FRIENDLY-NAME"
	FieldFrequency       = "X-FREQUENCY"
	FieldABLabel         = "X-ABLABEL"
	FieldABLabelMixed    = "X-ABLabel"
	FieldIsOrganization  = "X-AFTERLOGIC-IS-ORG"
	FieldGroupKind       = "X-ADDRESSBOOKSERVER-KIND"
	FieldGroupMember     = "X-ADDRESSBOOKSERVER-MEMBER"

	uuidURNPrefix = "urn:uuid:"
	otherLabel    = "_$!<other>!$_"
)

const (
	typeHome     = "HOME"
	typeWork     = "WORK"
	typeOther    = "OTHER"
	typeInternet = "INTERNET"
	typeCell     = "CELL"
	typeFax      = "FAX"
	typeVoice    = "VOICE"
	typePref     = "PREF"
)

// Bare vCard 2.1 parameters such as "TEL;WORK:" are read as types.
var bareTypes = map[string]bool{
	typeHome: true, typeWork: true, typeOther: true, typeInternet: true,
	typeCell: true, typeFax: true, typeVoice: true, typePref: true,
}

// typeSet collects the TYPE parameter values of f, upper-cased. hasType
// reports whether f carries a TYPE parameter at all.
func typeSet(f *govcard.Field) (set map[string]bool, hasType bool) {
	set = map[string]bool{}
	for k, vals := range f.Params {
		key := strings.ToUpper(k)
		switch {
		case key == govcard.ParamType:
			hasType = true
			for _, v := range vals {
				for _, t := range strings.Split(v, ",") {
					if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
						set[t] = true
					}
				}
			}
		case key == govcard.ParamPreferred:
			set[typePref] = true
		case bareTypes[key] && (len(vals) == 0 || (len(vals) == 1 && vals[0] == "")):
			hasType = true
			set[key] = true
		}
	}
	return set, hasType
}

// setPref adds or removes the PREF marker on f.
func setPref(f *govcard.Field, pref bool) {
	if f.Params == nil {
		f.Params = govcard.Params{}
	}
	for k := range f.Params {
		if strings.EqualFold(k, govcard.ParamPreferred) {
			delete(f.Params, k)
		}
	}

	var types []string
	for k, vals := range f.Params {
		if !strings.EqualFold(k, govcard.ParamType) {
			continue
		}
		for _, v := range vals {
			for _, t := range strings.Split(v, ",") {
				t = strings.TrimSpace(t)
				if t != "" && !strings.EqualFold(t, typePref) {
					types = append(types, t)
				}
			}
		}
		delete(f.Params, k)
	}
	if pref {
		types = append(types, typePref)
	}
	if len(types) > 0 {
		f.Params[govcard.ParamType] = types
	}
}

func addTypes(f *govcard.Field, types ...string) {
	if f.Params == nil {
		f.Params = govcard.Params{}
	}
	f.Params[govcard.ParamType] = append(f.Params[govcard.ParamType], types...)
}

func newTypedField(value string, types ...string) *govcard.Field {
	f := &govcard.Field{Value: value, Params: govcard.Params{}}
	if len(types) > 0 {
		f.Params[govcard.ParamType] = append([]string(nil), types...)
	}
	return f
}

// splitStructured splits a compound value (N, ADR, ORG) on unescaped
// semicolons.
func splitStructured(v string) []string {
	var parts []string
	var cur strings.Builder
	escaped := false
	for _, r := range v {
		switch {
		case escaped:
			if r != ';' && r != ',' && r != '\\' {
				cur.WriteRune('\\')
			}
			cur.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ';':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if escaped {
		cur.WriteRune('\\')
	}
	return append(parts, cur.String())
}

func joinStructured(parts ...string) string {
	esc := make([]string, len(parts))
	for i, p := range parts {
		esc[i] = strings.ReplaceAll(p, ";", `\;`)
	}
	return strings.Join(esc, ";")
}

func part(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func stripUUIDPrefix(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= len(uuidURNPrefix) && strings.EqualFold(v[:len(uuidURNPrefix)], uuidURNPrefix) {
		return v[len(uuidURNPrefix):]
	}
	return v
}

// labelOf returns the X-ABLabel value attached to f through its property
// group, if any.
func labelOf(card govcard.Card, f *govcard.Field) string {
	if f.Group == "" {
		return ""
	}
	for _, key := range []string{FieldABLabel, FieldABLabelMixed} {
		for _, l := range card[key] {
			if strings.EqualFold(l.Group, f.Group) {
				return l.Value
			}
		}
	}
	return ""
}

// isOtherLabel accepts only the Apple marker. A free-text "Other" label is
// user content and leaves the field unclassified.
func isOtherLabel(label string) bool {
	return strings.EqualFold(label, otherLabel)
}
