// Package sqlstore holds the query building and row mapping shared by the
// relational contact stores.
package sqlstore

import (
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/sonroyaalmerol/webmail-contacts/internal/contacts"
	"github.com/sonroyaalmerol/webmail-contacts/internal/storage"
)

const (
	TableContacts     = "contacts"
	TableGroups       = "contacts_groups"
	TableGroupContact = "contacts_group_contact"
	TableCTags        = "contacts_ctags"
	TableAddressBooks = "contacts_addressbooks"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Placeholder   sq.PlaceholderFormat
	CaseSensitive bool
}

var (
	SQLite   = Dialect{Placeholder: sq.Question}
	Postgres = Dialect{Placeholder: sq.Dollar, CaseSensitive: true}
)

// Builder produces the statements of one dialect.
type Builder struct {
	sb sq.StatementBuilderType
	d  Dialect
}

func NewBuilder(d Dialect) Builder {
	return Builder{sb: sq.StatementBuilder.PlaceholderFormat(d.Placeholder), d: d}
}

var searchColumns = []string{
	"full_name", "first_name", "last_name", "nick_name",
	"personal_email", "business_email", "other_email",
}

var emailColumns = []string{"personal_email", "business_email", "other_email"}

func (b Builder) like(col, pattern string) sq.Sqlizer {
	if b.d.CaseSensitive {
		return sq.ILike{col: pattern}
	}
	return sq.Like{col: pattern}
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func storageFilter(q storage.ContactQuery) sq.Sqlizer {
	var owned []string
	shared := false
	for _, st := range q.Storages {
		switch st.Kind {
		case contacts.StorageShared:
			shared = true
		case contacts.StoragePersonal, contacts.StorageCollected, contacts.StorageAddressBook:
			owned = append(owned, st.String())
		}
	}

	or := sq.Or{}
	if len(owned) > 0 {
		or = append(or, sq.And{sq.Eq{"user_id": q.UserID}, sq.Eq{"storage": owned}})
	}
	if shared {
		or = append(or, sq.And{sq.Eq{"tenant_id": q.TenantID}, sq.Eq{"storage": string(contacts.StorageShared)}})
	}
	if len(or) == 0 {
		return sq.Expr("1 = 0")
	}
	return or
}

// ContactFilter turns q into a WHERE clause.
func (b Builder) ContactFilter(q storage.ContactQuery) sq.And {
	where := sq.And{storageFilter(q)}

	if s := strings.TrimSpace(q.Search); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		or := sq.Or{}
		for _, col := range searchColumns {
			or = append(or, sq.Expr("? ESCAPE '\\'", b.like(col, pattern)))
		}
		where = append(where, or)
	}
	if q.GroupUUID != "" {
		where = append(where, sq.Expr(
			"id IN (SELECT gc.contact_id FROM "+TableGroupContact+" gc JOIN "+TableGroups+
				" g ON g.id = gc.group_id WHERE g.uuid = ?)", q.GroupUUID))
	}
	if len(q.UUIDs) > 0 {
		where = append(where, sq.Eq{"uuid": q.UUIDs})
	}
	if len(q.Emails) > 0 {
		lower := make([]string, len(q.Emails))
		for i, e := range q.Emails {
			lower[i] = strings.ToLower(strings.TrimSpace(e))
		}
		or := sq.Or{}
		for _, col := range emailColumns {
			or = append(or, sq.Eq{"LOWER(" + col + ")": lower})
		}
		where = append(where, or)
	}
	if q.ExcludeFrequencyExcluded {
		where = append(where, sq.NotEq{"frequency": contacts.FrequencyExcluded})
	}
	if q.OnlyAuto {
		where = append(where, sq.Eq{"auto": true})
	}
	return where
}

// orderColumn folds case on text columns so SQL paging agrees with
// storage.SortContacts.
func orderColumn(f storage.SortField) string {
	switch f {
	case storage.SortEmail:
		return "LOWER(view_email)"
	case storage.SortFrequency:
		return "frequency"
	case storage.SortFirstName:
		return "LOWER(first_name)"
	case storage.SortLastName:
		return "LOWER(last_name)"
	}
	return "LOWER(full_name)"
}

// SelectContacts builds the list query for q, ordered and paged.
func (b Builder) SelectContacts(q storage.ContactQuery) sq.SelectBuilder {
	dir := " DESC"
	if q.Ascending {
		dir = " ASC"
	}
	sel := b.sb.Select(ContactColumns...).
		From(TableContacts).
		Where(b.ContactFilter(q)).
		OrderBy(orderColumn(q.SortField)+dir, "id"+dir)
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		sel = sel.Offset(uint64(q.Offset))
	}
	return sel
}

func (b Builder) CountContacts(q storage.ContactQuery) sq.SelectBuilder {
	return b.sb.Select("COUNT(*)").From(TableContacts).Where(b.ContactFilter(q))
}

// SelectContact selects contacts matching an arbitrary predicate.
func (b Builder) SelectContact(pred any, args ...any) sq.SelectBuilder {
	return b.sb.Select(ContactColumns...).From(TableContacts).Where(pred, args...)
}

// SelectContactByEmail prefers the personal copy, then the oldest row.
func (b Builder) SelectContactByEmail(userID int64, email string) sq.SelectBuilder {
	lower := strings.ToLower(strings.TrimSpace(email))
	or := sq.Or{}
	for _, col := range emailColumns {
		or = append(or, sq.Eq{"LOWER(" + col + ")": lower})
	}
	return b.sb.Select(ContactColumns...).
		From(TableContacts).
		Where(sq.Eq{"user_id": userID}).
		Where(or).
		OrderBy("CASE WHEN storage = 'personal' THEN 0 ELSE 1 END", "id").
		Limit(1)
}

func (b Builder) InsertContact(r ContactRow) sq.InsertBuilder {
	return b.sb.Insert(TableContacts).
		Columns(ContactColumns[1:]...).
		Values(r.Values()...).
		Suffix("RETURNING id")
}

// UpdateContact rewrites every column of the row identified by r.UUID. With
// a non-empty ifMatch the row is only touched when its ETag still matches.
func (b Builder) UpdateContact(r ContactRow, ifMatch string) sq.UpdateBuilder {
	up := b.sb.Update(TableContacts)
	vals := r.Values()
	for i, col := range ContactColumns[1:] {
		if col == "uuid" {
			continue
		}
		up = up.Set(col, vals[i])
	}
	up = up.Where(sq.Eq{"uuid": r.UUID})
	if ifMatch != "" {
		up = up.Where(sq.Eq{"etag": ifMatch})
	}
	return up
}

func (b Builder) DeleteContacts(uuids []string) sq.DeleteBuilder {
	return b.sb.Delete(TableContacts).Where(sq.Eq{"uuid": uuids})
}

// SelectContactETag reads the stored ETag, used to tell a precondition
// failure from a missing row.
func (b Builder) SelectContactETag(uuid string) sq.SelectBuilder {
	return b.sb.Select("etag").From(TableContacts).Where(sq.Eq{"uuid": uuid})
}

func (b Builder) SelectContactID(uuid string) sq.SelectBuilder {
	return b.sb.Select("id").From(TableContacts).Where(sq.Eq{"uuid": uuid})
}

// SelectMemberships lists the group UUIDs of the given contacts.
func (b Builder) SelectMemberships(contactIDs []int64) sq.SelectBuilder {
	return b.sb.Select("gc.contact_id AS contact_id", "g.uuid AS group_uuid").
		From(TableGroupContact+" gc").
		Join(TableGroups+" g ON g.id = gc.group_id").
		Where(sq.Eq{"gc.contact_id": contactIDs}).
		OrderBy("g.name", "g.id")
}

// SelectGroupMembers lists the contact UUIDs of the given groups.
func (b Builder) SelectGroupMembers(groupIDs []int64) sq.SelectBuilder {
	return b.sb.Select("gc.group_id AS group_id", "c.uuid AS contact_uuid").
		From(TableGroupContact + " gc").
		Join(TableContacts + " c ON c.id = gc.contact_id").
		Where(sq.Eq{"gc.group_id": groupIDs}).
		OrderBy("c.id")
}

// InsertMembership links every group matching groupPred to every contact
// matching contactPred. Existing links are kept.
func (b Builder) InsertMembership(groupPred, contactPred sq.Sqlizer) sq.InsertBuilder {
	sel := sq.Select("g.id", "c.id").
		From(TableGroups + " g").
		CrossJoin(TableContacts + " c").
		Where(groupPred).
		Where(contactPred)
	return b.sb.Insert(TableGroupContact).
		Columns("group_id", "contact_id").
		Select(sel).
		Suffix("ON CONFLICT (group_id, contact_id) DO NOTHING")
}

// DeleteMembership unlinks contacts from a group. A nil contactUUIDs drops
// every member.
func (b Builder) DeleteMembership(groupUUID string, contactUUIDs []string) sq.DeleteBuilder {
	del := b.sb.Delete(TableGroupContact).
		Where(sq.Expr("group_id IN (SELECT id FROM "+TableGroups+" WHERE uuid = ?)", groupUUID))
	if contactUUIDs != nil {
		sub, args, _ := sq.Select("id").From(TableContacts).Where(sq.Eq{"uuid": contactUUIDs}).ToSql()
		del = del.Where(sq.Expr("contact_id IN ("+sub+")", args...))
	}
	return del
}

// DeleteContactMemberships unlinks a contact from all of its groups.
func (b Builder) DeleteContactMemberships(contactID int64) sq.DeleteBuilder {
	return b.sb.Delete(TableGroupContact).Where(sq.Eq{"contact_id": contactID})
}

func (b Builder) SelectGroups(q storage.GroupQuery) sq.SelectBuilder {
	sel := b.sb.Select(GroupColumns...).From(TableGroups).Where(sq.Eq{"user_id": q.UserID})
	if s := strings.TrimSpace(q.Search); s != "" {
		sel = sel.Where(sq.Expr("? ESCAPE '\\'", b.like("name", "%"+escapeLike(s)+"%")))
	}
	if len(q.UUIDs) > 0 {
		sel = sel.Where(sq.Eq{"uuid": q.UUIDs})
	}
	sel = sel.OrderBy("name", "id")
	if q.Limit > 0 {
		sel = sel.Limit(uint64(q.Limit))
	}
	if q.Offset > 0 {
		sel = sel.Offset(uint64(q.Offset))
	}
	return sel
}

func (b Builder) SelectGroup(uuid string) sq.SelectBuilder {
	return b.sb.Select(GroupColumns...).From(TableGroups).Where(sq.Eq{"uuid": uuid})
}

func (b Builder) InsertGroup(r GroupRow) sq.InsertBuilder {
	return b.sb.Insert(TableGroups).
		Columns(GroupColumns[1:]...).
		Values(r.Values()...).
		Suffix("RETURNING id")
}

func (b Builder) UpdateGroup(r GroupRow) sq.UpdateBuilder {
	up := b.sb.Update(TableGroups)
	vals := r.Values()
	for i, col := range GroupColumns[1:] {
		if col == "uuid" || col == "user_id" {
			continue
		}
		up = up.Set(col, vals[i])
	}
	return up.Where(sq.Eq{"uuid": r.UUID})
}

func (b Builder) DeleteGroups(userID int64, uuids []string) sq.DeleteBuilder {
	return b.sb.Delete(TableGroups).Where(sq.Eq{"user_id": userID, "uuid": uuids})
}

func (b Builder) SelectCTag(owner int64, storage string) sq.SelectBuilder {
	return b.sb.Select("ctag").From(TableCTags).Where(sq.Eq{"user_id": owner}).Where(sq.Eq{"storage": storage})
}

// BumpCTag inserts the counter at 1 or increments it, returning the result.
func (b Builder) BumpCTag(owner int64, storage string) sq.InsertBuilder {
	return b.sb.Insert(TableCTags).
		Columns("user_id", "storage", "ctag").
		Values(owner, storage, 1).
		Suffix("ON CONFLICT (user_id, storage) DO UPDATE SET ctag = " + TableCTags + ".ctag + 1 RETURNING ctag")
}

func (b Builder) InsertAddressBook(ab *contacts.AddressBook) sq.InsertBuilder {
	return b.sb.Insert(TableAddressBooks).
		Columns("uuid", "user_id", "name").
		Values(ab.UUID, ab.UserID, ab.Name).
		Suffix("RETURNING id")
}

func (b Builder) SelectAddressBook(id int64) sq.SelectBuilder {
	return b.sb.Select(AddressBookColumns...).From(TableAddressBooks).Where(sq.Eq{"id": id})
}

func (b Builder) SelectAddressBooks(userID int64) sq.SelectBuilder {
	return b.sb.Select(AddressBookColumns...).From(TableAddressBooks).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("name", "id")
}

func (b Builder) UpdateAddressBook(ab *contacts.AddressBook) sq.UpdateBuilder {
	return b.sb.Update(TableAddressBooks).Set("name", ab.Name).Where(sq.Eq{"id": ab.ID})
}

func (b Builder) DeleteAddressBook(id int64) sq.DeleteBuilder {
	return b.sb.Delete(TableAddressBooks).Where(sq.Eq{"id": id})
}
