package store

import (
	"time"

	"github.com/compozy/quizbank/engine/core"
)

const (
	ColumnID        = "id"
	ColumnCreatedAt = "created_at"
	ColumnCreatedBy = "created_by"
	ColumnUpdatedAt = "updated_at"
	ColumnUpdatedBy = "updated_by"
	ColumnDeletedAt = "deleted_at"
)

// AuditColumns lists the audit columns in the order Audit.Fields emits them.
var AuditColumns = []string{
	ColumnCreatedAt,
	ColumnCreatedBy,
	ColumnUpdatedAt,
	ColumnUpdatedBy,
	ColumnDeletedAt,
}

// Entity is the capability set the Accessor needs: an identity and a full
// record that can overwrite whatever is stored under that identity.
type Entity interface {
	EntityID() core.ID
	// Fields returns every persisted column with its value, id first.
	Fields() []Field
}

// Field is a single column/value pair of an entity record.
type Field struct {
	Column string
	Value  any
}

// Audit carries the bookkeeping columns shared by all tables. Embed it in an
// entity struct; scany flattens embedded structs when scanning.
type Audit struct {
	CreatedAt time.Time  `db:"created_at"`
	CreatedBy *core.ID   `db:"created_by"`
	UpdatedAt *time.Time `db:"updated_at"`
	UpdatedBy *core.ID   `db:"updated_by"`
	DeletedAt *time.Time `db:"deleted_at"`
}

func (a *Audit) Fields() []Field {
	return []Field{
		{Column: ColumnCreatedAt, Value: a.CreatedAt},
		{Column: ColumnCreatedBy, Value: a.CreatedBy},
		{Column: ColumnUpdatedAt, Value: a.UpdatedAt},
		{Column: ColumnUpdatedBy, Value: a.UpdatedBy},
		{Column: ColumnDeletedAt, Value: a.DeletedAt},
	}
}

// Touch records an update by actor at the given time.
func (a *Audit) Touch(at time.Time, actor *core.ID) {
	a.UpdatedAt = &at
	a.UpdatedBy = actor
}

// IsDeleted reports whether the record has been soft deleted.
func (a *Audit) IsDeleted() bool {
	return a.DeletedAt != nil
}

// Schema tells an Accessor where an entity type lives.
type Schema struct {
	Table string
	// Columns is the select list; it must name every column Fields emits.
	Columns []string
	// SoftDelete marks tables carrying a deleted_at column.
	SoftDelete bool
	// OrderBy is the read order. Empty means by id.
	OrderBy []string
}

func (s Schema) order() []string {
	if len(s.OrderBy) == 0 {
		return []string{ColumnID}
	}
	return s.OrderBy
}

// CreationOrder orders records by creation time, with id breaking ties.
var CreationOrder = []string{ColumnCreatedAt, ColumnID}

// WithAudit appends the audit columns to the given data columns.
func WithAudit(columns ...string) []string {
	out := make([]string, 0, len(columns)+len(AuditColumns))
	out = append(out, columns...)
	return append(out, AuditColumns...)
}

// Now returns the current UTC time truncated to microseconds, the finest
// precision every supported driver round-trips.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
