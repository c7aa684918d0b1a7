package migration

import (
	"fmt"
	"slices"
	"strings"

	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// PlannerOptions configures DDL generation.
type PlannerOptions struct {
	// IfNotExists adds IF NOT EXISTS to CREATE TABLE statements.
	IfNotExists bool
}

// Planner generates CREATE and DROP statements from table metadata.
type Planner struct {
	options PlannerOptions
}

// NewPlanner creates a new planner with IF NOT EXISTS enabled.
func NewPlanner() *Planner {
	return &Planner{options: PlannerOptions{IfNotExists: true}}
}

// NewPlannerWithOptions creates a new planner with custom options.
func NewPlannerWithOptions(opts PlannerOptions) *Planner {
	return &Planner{options: opts}
}

// Plan builds a migration that creates tables in foreign-key order and
// whose down script drops them in reverse.
func (p *Planner) Plan(name string, tables []*schema.TableMetadata) (Migration, error) {
	ordered, err := SortTables(tables)
	if err != nil {
		return Migration{}, err
	}
	up := p.CreateTables(ordered)
	down := p.DropTables(ordered)
	upSQL := strings.Join(up, "\n\n") + "\n"
	return Migration{
		Version: Version(upSQL),
		Name:    name,
		UpSQL:   upSQL,
		DownSQL: strings.Join(down, "\n") + "\n",
	}, nil
}

// CreateTables returns one CREATE TABLE per table, in the given order.
func (p *Planner) CreateTables(tables []*schema.TableMetadata) []string {
	stmts := make([]string, 0, len(tables))
	for _, t := range tables {
		stmts = append(stmts, p.CreateTable(t))
	}
	return stmts
}

// DropTables returns DROP TABLE statements in the reverse of the given
// order, so children go before their parents.
func (p *Planner) DropTables(tables []*schema.TableMetadata) []string {
	stmts := make([]string, 0, len(tables))
	for i := len(tables) - 1; i >= 0; i-- {
		stmts = append(stmts, p.DropTable(tables[i].Name))
	}
	return stmts
}

// CreateTable generates a CREATE TABLE statement.
func (p *Planner) CreateTable(table *schema.TableMetadata) string {
	var parts []string

	var singlePK string
	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) == 1 {
		singlePK = table.PrimaryKey.Columns[0]
	}
	for _, col := range table.Columns {
		def := p.columnDefinition(col)
		if col.Name == singlePK {
			def += " PRIMARY KEY"
		}
		parts = append(parts, "    "+def)
	}
	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) > 1 {
		parts = append(parts, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)",
			table.PrimaryKey.Name, strings.Join(table.PrimaryKey.Columns, ", ")))
	}
	for _, col := range table.Columns {
		if check := enumCheck(table.Name, col); check != "" {
			parts = append(parts, "    "+check)
		}
	}
	for _, fk := range table.ForeignKeys {
		parts = append(parts, "    "+p.foreignKeyDefinition(fk))
	}

	create := "CREATE TABLE"
	if p.options.IfNotExists {
		create = "CREATE TABLE IF NOT EXISTS"
	}
	return fmt.Sprintf("%s %s (\n%s\n);", create, table.Name, strings.Join(parts, ",\n"))
}

// columnDefinition generates a column definition.
func (p *Planner) columnDefinition(col schema.ColumnMetadata) string {
	parts := []string{col.Name, col.SQLType}

	// Identity columns are implicitly NOT NULL.
	if col.Identity != nil {
		parts = append(parts, fmt.Sprintf("GENERATED %s AS IDENTITY", col.Identity.Generation))
		return strings.Join(parts, " ")
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Default != nil {
		parts = append(parts, "DEFAULT", *col.Default)
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	return strings.Join(parts, " ")
}

func enumCheck(table string, col schema.ColumnMetadata) string {
	if len(col.EnumValues) == 0 {
		return ""
	}
	quoted := make([]string, len(col.EnumValues))
	for i, v := range col.EnumValues {
		quoted[i] = "'" + strings.ReplaceAll(v, "'", "''") + "'"
	}
	return fmt.Sprintf("CONSTRAINT chk_%s_%s CHECK (%s IN (%s))",
		table, col.Name, col.Name, strings.Join(quoted, ", "))
}

// foreignKeyDefinition generates a foreign key constraint.
func (p *Planner) foreignKeyDefinition(fk schema.ForeignKeyMetadata) string {
	parts := []string{
		fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s)", fk.Name, strings.Join(fk.Columns, ", ")),
		fmt.Sprintf("REFERENCES %s (%s)", fk.ReferencedTable, strings.Join(fk.ReferencedColumns, ", ")),
	}
	if fk.OnDelete != schema.NoAction && fk.OnDelete != "" {
		parts = append(parts, "ON DELETE "+string(fk.OnDelete))
	}
	if fk.OnUpdate != schema.NoAction && fk.OnUpdate != "" {
		parts = append(parts, "ON UPDATE "+string(fk.OnUpdate))
	}
	return strings.Join(parts, " ")
}

// DropTable generates a DROP TABLE statement.
func (p *Planner) DropTable(tableName string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", tableName)
}

// SortTables orders tables so every table follows the tables its foreign
// keys reference. Ties keep name order. References to tables outside the
// set are ignored; self references are allowed.
func SortTables(tables []*schema.TableMetadata) ([]*schema.TableMetadata, error) {
	byName := make(map[string]*schema.TableMetadata, len(tables))
	for _, t := range tables {
		byName[t.Name] = t
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	slices.Sort(names)

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(names))
	ordered := make([]*schema.TableMetadata, 0, len(names))

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("foreign key cycle: %s -> %s", strings.Join(path, " -> "), name)
		}
		state[name] = visiting
		t := byName[name]
		refs := make([]string, 0, len(t.ForeignKeys))
		for _, fk := range t.ForeignKeys {
			if fk.ReferencedTable != name && byName[fk.ReferencedTable] != nil {
				refs = append(refs, fk.ReferencedTable)
			}
		}
		slices.Sort(refs)
		for _, ref := range refs {
			if err := visit(ref, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		ordered = append(ordered, t)
		return nil
	}

	for _, name := range names {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
