package schema

import (
	"fmt"
	"reflect"
)

// ParseRelationships extracts relationship metadata from struct fields.
//
// Tag format: `po:"-,hasMany,foreignKey(user_id),references(user_id),cascade"`.
func (p *Parser) ParseRelationships(modelType reflect.Type, table *TableMetadata) error {
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return fmt.Errorf("model must be a struct")
	}

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagValue := field.Tag.Get(StructTagKey)
		if tagValue == "" {
			continue
		}
		tagOpts, err := p.parseTag(tagValue)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		if !p.isRelationshipTag(tagOpts) {
			continue
		}

		rel, err := p.parseRelationship(field, tagOpts, table)
		if err != nil {
			return fmt.Errorf("failed to parse relationship for field %s: %w", field.Name, err)
		}
		table.Relationships = append(table.Relationships, *rel)
	}
	return nil
}

// parseRelationship parses a relationship from a struct field.
func (p *Parser) parseRelationship(field reflect.StructField, opts *TagOptions, sourceTable *TableMetadata) (*RelationshipMetadata, error) {
	rel := &RelationshipMetadata{
		SourceTable: sourceTable.Name,
		SourceField: field.Name,
		ForeignKey:  opts.Get("foreignKey"),
		References:  opts.Get("references"),
	}

	fieldType := field.Type
	switch {
	case opts.Has("belongsTo"):
		rel.Type = BelongsTo
	case opts.Has("hasOne"):
		rel.Type = HasOne
	case opts.Has("hasMany"):
		rel.Type = HasMany
		if fieldType.Kind() != reflect.Slice {
			return nil, fmt.Errorf("hasMany field must be a slice, got %s", fieldType)
		}
		fieldType = fieldType.Elem()
	}
	for fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}
	if fieldType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("relationship target must be a struct, got %s", fieldType)
	}
	rel.TargetType = fieldType
	rel.TargetTable = TableNameOf(fieldType)

	if opts.Has("cascade") {
		if rel.Type == BelongsTo {
			return nil, fmt.Errorf("cascade is only valid on hasOne/hasMany")
		}
		rel.CascadeDelete = true
	}

	if rel.ForeignKey == "" {
		switch rel.Type {
		case BelongsTo:
			rel.ForeignKey = toSnakeCase(fieldType.Name()) + "_id"
		case HasOne, HasMany:
			rel.ForeignKey = toSnakeCase(sourceTable.GoType.Name()) + "_id"
		}
	}
	if rel.References == "" {
		rel.References = "id"
		if rel.Type != BelongsTo && sourceTable.PrimaryKey != nil {
			rel.References = sourceTable.PrimaryKey.Columns[0]
		}
	}
	return rel, nil
}
