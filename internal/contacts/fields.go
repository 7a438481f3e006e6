package contacts

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Fields that describe identity or bookkeeping and are never read from or
// written to exchange formats.
var internalFields = map[string]bool{
	"Id": true, "UUID": true, "IdUser": true, "IdTenant": true, "Storage": true,
	"AddressBookId": true, "ViewEmail": true, "ETag": true, "DateModified": true,
	"Properties": true, "GroupUUIDs": true, "Frequency": true, "Auto": true,
}

type fieldInfo struct {
	name  string
	index int
	kind  reflect.Kind
}

var (
	fieldList  []fieldInfo
	fieldIndex = map[string]fieldInfo{}
)

func init() {
	t := reflect.TypeOf(Contact{})
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || internalFields[name] {
			continue
		}
		switch f.Type.Kind() {
		case reflect.String, reflect.Int, reflect.Bool:
		default:
			continue
		}
		fi := fieldInfo{name: name, index: i, kind: f.Type.Kind()}
		fieldList = append(fieldList, fi)
		fieldIndex[strings.ToLower(name)] = fi
	}
}

// FieldNames lists the exchangeable contact fields in declaration order.
func FieldNames() []string {
	out := make([]string, len(fieldList))
	for i, f := range fieldList {
		out[i] = f.name
	}
	return out
}

// CanonicalFieldName resolves name case-insensitively. It reports false for
// unknown or internal fields.
func CanonicalFieldName(name string) (string, bool) {
	fi, ok := fieldIndex[strings.ToLower(strings.TrimSpace(name))]
	return fi.name, ok
}

// FieldValue renders the named field as text.
func (c *Contact) FieldValue(name string) (string, bool) {
	fi, ok := fieldIndex[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	v := reflect.ValueOf(c).Elem().Field(fi.index)
	switch fi.kind {
	case reflect.Int:
		return strconv.FormatInt(v.Int(), 10), true
	case reflect.Bool:
		if v.Bool() {
			return "1", true
		}
		return "0", true
	default:
		return v.String(), true
	}
}

// SetField assigns the named field from text. Empty numeric values reset
// the field to zero.
func (c *Contact) SetField(name, value string) error {
	fi, ok := fieldIndex[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("%w: unknown field %q", ErrValidation, name)
	}
	v := reflect.ValueOf(c).Elem().Field(fi.index)
	value = strings.TrimSpace(value)
	switch fi.kind {
	case reflect.Int:
		if value == "" {
			v.SetInt(0)
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrValidation, fi.name, err)
		}
		v.SetInt(n)
	case reflect.Bool:
		v.SetBool(value == "1" || strings.EqualFold(value, "true"))
	default:
		v.SetString(value)
	}
	return nil
}
