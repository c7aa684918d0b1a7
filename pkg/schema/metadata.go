package schema

import "reflect"

// TableMetadata describes how a Go struct maps onto a database table.
type TableMetadata struct {
	Name          string
	GoType        reflect.Type
	Columns       []ColumnMetadata
	PrimaryKey    *PrimaryKeyMetadata
	ForeignKeys   []ForeignKeyMetadata
	Relationships []RelationshipMetadata
}

// ColumnMetadata describes a single mapped column.
type ColumnMetadata struct {
	Name     string
	GoField  string
	GoType   reflect.Type
	SQLType  string
	Position int

	Nullable bool
	Default  *string
	Unique   bool

	// Length is the varchar bound, 0 when unbounded.
	Length int
	// EnumValues is the closed set of accepted values, nil when unrestricted.
	EnumValues []string

	Identity *IdentityColumn
	// Generator names an application-side key generator ("uuid").
	Generator string

	// AutoCreateTime columns are stamped on insert and never updated.
	AutoCreateTime bool
	// AutoUpdateTime columns are stamped on insert and on every update.
	AutoUpdateTime bool
}

// Updatable reports whether the column may appear in an UPDATE SET list.
func (c *ColumnMetadata) Updatable() bool {
	return !c.AutoCreateTime && c.Identity == nil
}

// IdentityGeneration is the GENERATED ... AS IDENTITY flavour.
type IdentityGeneration string

const (
	IdentityAlways    IdentityGeneration = "ALWAYS"
	IdentityByDefault IdentityGeneration = "BY DEFAULT"
)

// IdentityColumn marks a database-generated key.
type IdentityColumn struct {
	Generation IdentityGeneration
}

// PrimaryKeyMetadata lists the primary key columns in declaration order.
type PrimaryKeyMetadata struct {
	Name    string
	Columns []string
}

// ReferenceAction is an ON DELETE / ON UPDATE action.
type ReferenceAction string

const (
	NoAction   ReferenceAction = "NO ACTION"
	Restrict   ReferenceAction = "RESTRICT"
	Cascade    ReferenceAction = "CASCADE"
	SetNull    ReferenceAction = "SET NULL"
	SetDefault ReferenceAction = "SET DEFAULT"
)

// ForeignKeyMetadata describes a FOREIGN KEY constraint.
type ForeignKeyMetadata struct {
	Name              string
	Columns           []string
	ReferencedTable   string
	ReferencedColumns []string
	OnDelete          ReferenceAction
	OnUpdate          ReferenceAction
}

// RelationType is the kind of association between two tables.
type RelationType string

const (
	BelongsTo RelationType = "belongsTo"
	HasOne    RelationType = "hasOne"
	HasMany   RelationType = "hasMany"
)

// RelationshipMetadata describes an association declared on a struct field.
//
// For BelongsTo the ForeignKey column lives on the source table and References
// names the target's key. For HasOne/HasMany the ForeignKey lives on the target
// table and References names the source's key.
type RelationshipMetadata struct {
	Type        RelationType
	SourceTable string
	SourceField string
	TargetType  reflect.Type
	TargetTable string
	ForeignKey  string
	References  string
	// CascadeDelete removes the targets before the source row is deleted.
	CascadeDelete bool
}

// GetColumnByName returns the column with the given database name.
func (t *TableMetadata) GetColumnByName(name string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// GetColumnByField returns the column mapped to the given Go field name.
func (t *TableMetadata) GetColumnByField(field string) *ColumnMetadata {
	for i := range t.Columns {
		if t.Columns[i].GoField == field {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsPrimaryKey reports whether the column is part of the primary key.
func (t *TableMetadata) IsPrimaryKey(column string) bool {
	if t.PrimaryKey == nil {
		return false
	}
	for _, c := range t.PrimaryKey.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// PrimaryKeyColumn returns the single primary key column, or nil for tables
// without one or with a composite key.
func (t *TableMetadata) PrimaryKeyColumn() *ColumnMetadata {
	if t.PrimaryKey == nil || len(t.PrimaryKey.Columns) != 1 {
		return nil
	}
	return t.GetColumnByName(t.PrimaryKey.Columns[0])
}

// GetRelationship returns a relationship by source field name.
func (t *TableMetadata) GetRelationship(fieldName string) *RelationshipMetadata {
	for i := range t.Relationships {
		if t.Relationships[i].SourceField == fieldName {
			return &t.Relationships[i]
		}
	}
	return nil
}

// GetRelationshipsByType returns all relationships of a specific type.
func (t *TableMetadata) GetRelationshipsByType(relType RelationType) []RelationshipMetadata {
	var result []RelationshipMetadata
	for _, rel := range t.Relationships {
		if rel.Type == relType {
			result = append(result, rel)
		}
	}
	return result
}

// HasRelationships checks if the table has any relationships.
func (t *TableMetadata) HasRelationships() bool {
	return len(t.Relationships) > 0
}
