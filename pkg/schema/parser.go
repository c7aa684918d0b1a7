package schema

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const (
	// StructTagKey is the key used in struct tags (e.g., `po:"..."`).
	StructTagKey = "po"
)

// TableNamer is implemented by entities that map to an explicitly named table.
type TableNamer interface {
	TableName() string
}

// Parser parses struct definitions to extract table metadata.
// A Parser is not safe for concurrent use; the registry serialises access.
type Parser struct {
	typeMapper *TypeMapper
	cache      map[reflect.Type]*TableMetadata
}

// NewParser creates a new Parser instance.
func NewParser() *Parser {
	return &Parser{
		typeMapper: DefaultTypeMapper,
		cache:      make(map[reflect.Type]*TableMetadata),
	}
}

// customTableNames maps struct names to table names for types that cannot
// carry a TableName method.
var customTableNames = make(map[string]string)

// RegisterTableName registers a custom table name for a struct type.
func RegisterTableName(structName, tableName string) {
	customTableNames[structName] = tableName
}

// Parse extracts TableMetadata from a Go struct type.
func (p *Parser) Parse(modelType reflect.Type) (*TableMetadata, error) {
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}
	if cached, ok := p.cache[modelType]; ok {
		return cached, nil
	}

	table := &TableMetadata{
		Name:        TableNameOf(modelType),
		GoType:      modelType,
		Columns:     make([]ColumnMetadata, 0, modelType.NumField()),
		ForeignKeys: make([]ForeignKeyMetadata, 0),
	}

	for i := 0; i < modelType.NumField(); i++ {
		field := modelType.Field(i)
		if !field.IsExported() {
			continue
		}
		tagValue := field.Tag.Get(StructTagKey)
		if tagValue == "" {
			// Untagged fields are transient.
			continue
		}
		tagOpts, err := p.parseTag(tagValue)
		if err != nil {
			return nil, fmt.Errorf("failed to parse tag for field %s: %w", field.Name, err)
		}
		if p.isRelationshipTag(tagOpts) {
			continue
		}
		if tagOpts.Name == "-" {
			continue
		}

		column, err := p.createColumnMetadata(field, tagOpts, i)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		if tagOpts.Has("primaryKey") {
			if table.PrimaryKey == nil {
				table.PrimaryKey = &PrimaryKeyMetadata{
					Columns: []string{column.Name},
					Name:    table.Name + "_pkey",
				}
			} else {
				table.PrimaryKey.Columns = append(table.PrimaryKey.Columns, column.Name)
			}
		}
		if fk := tagOpts.Get("fk"); fk != "" {
			refTable, refColumn, ok := parseReference(fk)
			if !ok {
				return nil, fmt.Errorf("field %s: invalid fk reference %q", field.Name, fk)
			}
			table.ForeignKeys = append(table.ForeignKeys, ForeignKeyMetadata{
				Name:              fmt.Sprintf("fk_%s_%s", table.Name, column.Name),
				Columns:           []string{column.Name},
				ReferencedTable:   refTable,
				ReferencedColumns: []string{refColumn},
				OnDelete:          parseReferenceAction(tagOpts.Get("onDelete")),
				OnUpdate:          parseReferenceAction(tagOpts.Get("onUpdate")),
			})
		}
		table.Columns = append(table.Columns, column)
	}

	if err := p.ParseRelationships(modelType, table); err != nil {
		return nil, fmt.Errorf("failed to parse relationships: %w", err)
	}

	p.cache[modelType] = table
	return table, nil
}

// TableNameOf resolves the table name for a struct type.
// Priority order:
// 1. TableName() method on the type or its pointer
// 2. RegisterTableName registry
// 3. snake_case conversion of the struct name
func TableNameOf(modelType reflect.Type) string {
	for modelType.Kind() == reflect.Ptr {
		modelType = modelType.Elem()
	}
	if namer, ok := reflect.New(modelType).Interface().(TableNamer); ok {
		if name := namer.TableName(); name != "" {
			return name
		}
	}
	if tableName, ok := customTableNames[modelType.Name()]; ok {
		return tableName
	}
	return toSnakeCase(modelType.Name())
}

// createColumnMetadata creates a ColumnMetadata from a struct field.
func (p *Parser) createColumnMetadata(field reflect.StructField, opts *TagOptions, position int) (ColumnMetadata, error) {
	column := ColumnMetadata{
		Name:     opts.Name,
		GoField:  field.Name,
		GoType:   field.Type,
		Position: position,
	}
	if column.Name == "" {
		column.Name = toSnakeCase(field.Name)
	}

	if sqlType := opts.GetSQLType(); sqlType != "" {
		column.SQLType = sqlType
	} else {
		column.SQLType = p.typeMapper.GoTypeToPostgreSQL(field.Type)
	}
	if column.SQLType == "" {
		return column, fmt.Errorf("cannot map Go type %s to a column type", field.Type)
	}
	if n := opts.Get("varchar"); n != "" {
		length, err := strconv.Atoi(n)
		if err != nil || length <= 0 {
			return column, fmt.Errorf("invalid varchar length %q", n)
		}
		column.Length = length
	}

	column.Nullable = !opts.Has("notNull") && !opts.Has("primaryKey")
	if IsNullable(field.Type) && !opts.Has("primaryKey") {
		column.Nullable = true
	}

	if defaultVal := opts.Get("default"); defaultVal != "" {
		column.Default = &defaultVal
	}
	column.Unique = opts.Has("unique")

	if opts.Has("identity") || opts.Has("identityAlways") {
		column.Identity = &IdentityColumn{Generation: IdentityAlways}
	} else if opts.Has("identityByDefault") {
		column.Identity = &IdentityColumn{Generation: IdentityByDefault}
	}
	column.Generator = opts.Get("generator")
	if column.Generator != "" && column.Generator != "uuid" {
		return column, fmt.Errorf("unknown generator %q", column.Generator)
	}

	if values := opts.Get("enum"); values != "" {
		column.EnumValues = strings.Split(values, "|")
	}
	column.AutoCreateTime = opts.Has("autoCreateTime")
	column.AutoUpdateTime = opts.Has("autoUpdateTime")

	return column, nil
}

// isRelationshipTag checks if tag options indicate a relationship field.
func (p *Parser) isRelationshipTag(opts *TagOptions) bool {
	return opts.Has("belongsTo") || opts.Has("hasOne") || opts.Has("hasMany")
}

// TagOptions represents parsed tag options.
type TagOptions struct {
	Name    string            // Column name (first element)
	Options map[string]string // Other options
}

// parseTag parses a struct tag value into TagOptions.
// Format: "column_name,option1,option2(value),option3"
func (p *Parser) parseTag(tag string) (*TagOptions, error) {
	parts := splitTag(tag)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty tag value")
	}
	opts := &TagOptions{
		Name:    parts[0],
		Options: make(map[string]string),
	}
	for i := 1; i < len(parts); i++ {
		opt := parts[i]
		if idx := strings.Index(opt, "("); idx != -1 {
			if !strings.HasSuffix(opt, ")") {
				return nil, fmt.Errorf("invalid option format: %s", opt)
			}
			opts.Options[opt[:idx]] = opt[idx+1 : len(opt)-1]
		} else if idx := strings.Index(opt, ":"); idx != -1 {
			opts.Options[opt[:idx]] = opt[idx+1:]
		} else {
			opts.Options[opt] = ""
		}
	}
	return opts, nil
}

// Has checks if an option exists.
func (t *TagOptions) Has(key string) bool {
	_, ok := t.Options[key]
	return ok
}

// Get returns the value of an option.
func (t *TagOptions) Get(key string) string {
	return t.Options[key]
}

var sqlTypeOptions = []string{
	"uuid", "varchar", "text", "char",
	"smallint", "integer", "bigint",
	"numeric", "real", "double precision",
	"boolean",
	"date", "timestamp", "timestamptz",
}

// GetSQLType returns the SQL type from tag options, e.g. varchar(30) or bigint.
func (t *TagOptions) GetSQLType() string {
	for _, pgType := range sqlTypeOptions {
		if t.Has(pgType) {
			if value := t.Get(pgType); value != "" {
				return fmt.Sprintf("%s(%s)", pgType, value)
			}
			return pgType
		}
	}
	return ""
}

// splitTag splits a tag value by commas, handling nested parentheses.
func splitTag(tag string) []string {
	var parts []string
	var current strings.Builder
	depth := 0
	for _, ch := range tag {
		switch ch {
		case '(':
			depth++
			current.WriteRune(ch)
		case ')':
			depth--
			current.WriteRune(ch)
		case ',':
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(current.String()))
				current.Reset()
			} else {
				current.WriteRune(ch)
			}
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, strings.TrimSpace(current.String()))
	}
	return parts
}

// toSnakeCase converts PascalCase to snake_case, keeping initialisms together
// (GroupID -> group_id).
func toSnakeCase(s string) string {
	runes := []rune(s)
	var result strings.Builder
	for i, ch := range runes {
		if i > 0 && ch >= 'A' && ch <= 'Z' {
			prevLower := runes[i-1] >= 'a' && runes[i-1] <= 'z'
			nextLower := i+1 < len(runes) && runes[i+1] >= 'a' && runes[i+1] <= 'z'
			if prevLower || (nextLower && runes[i-1] >= 'A' && runes[i-1] <= 'Z') {
				result.WriteRune('_')
			}
		}
		result.WriteRune(ch)
	}
	return strings.ToLower(result.String())
}

// parseReference splits "table.column" or "table(column)".
func parseReference(ref string) (string, string, bool) {
	if table, column, ok := strings.Cut(ref, "."); ok {
		return table, column, table != "" && column != ""
	}
	if idx := strings.Index(ref, "("); idx > 0 && strings.HasSuffix(ref, ")") {
		return ref[:idx], ref[idx+1 : len(ref)-1], true
	}
	return "", "", false
}

// parseReferenceAction converts a string to ReferenceAction.
func parseReferenceAction(action string) ReferenceAction {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case "CASCADE":
		return Cascade
	case "RESTRICT":
		return Restrict
	case "SETNULL", "SET NULL":
		return SetNull
	case "SETDEFAULT", "SET DEFAULT":
		return SetDefault
	default:
		return NoAction
	}
}
