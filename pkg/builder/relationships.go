package builder

import (
	"context"
	"fmt"
	"reflect"

	"github.com/samber/lo"

	"github.com/marshallshelly/pebble-study/pkg/registry"
	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// loadRelationships loads all preloaded relationships for a set of results.
func (q *SelectQuery[T]) loadRelationships(ctx context.Context, results []T) error {
	resultsVal := reflect.ValueOf(results)
	for _, fieldName := range q.preloads {
		rel := q.table.GetRelationship(fieldName)
		if rel == nil {
			return fmt.Errorf("relationship %s not found on %s", fieldName, q.table.Name)
		}
		if err := loadRelationship(ctx, q.db, q.table, resultsVal, rel); err != nil {
			return fmt.Errorf("failed to load relationship %s: %w", fieldName, err)
		}
	}
	return nil
}

// loadRelationship loads one relationship for every element of results, a
// slice of source structs.
func loadRelationship(ctx context.Context, db *DB, source *schema.TableMetadata, results reflect.Value, rel *schema.RelationshipMetadata) error {
	target, err := registry.Get(rel.TargetType)
	if err != nil {
		return fmt.Errorf("target table %s not registered: %w", rel.TargetTable, err)
	}

	// keyColumn lives on the source rows, matchColumn on the target rows.
	keyColumn, matchColumn := rel.References, rel.ForeignKey
	if rel.Type == schema.BelongsTo {
		keyColumn, matchColumn = rel.ForeignKey, rel.References
	}
	keyCol := source.GetColumnByName(keyColumn)
	if keyCol == nil {
		return fmt.Errorf("%s has no column %s", source.Name, keyColumn)
	}
	matchCol := target.GetColumnByName(matchColumn)
	if matchCol == nil {
		return fmt.Errorf("%s has no column %s", target.Name, matchColumn)
	}

	// Map key value -> indices of source rows carrying it.
	owners := make(map[any][]int)
	for i := 0; i < results.Len(); i++ {
		key, ok := keyOf(results.Index(i).FieldByName(keyCol.GoField))
		if !ok {
			continue
		}
		owners[key] = append(owners[key], i)
	}
	if len(owners) == 0 {
		return nil
	}
	keys := lo.Keys(owners)

	sql := fmt.Sprintf("SELECT * FROM %s WHERE %s = ANY($1)", target.Name, matchCol.Name)
	if pk := target.PrimaryKeyColumn(); pk != nil {
		sql += " ORDER BY " + pk.Name
	}
	rows, err := db.exec.Query(ctx, sql, keys)
	if err != nil {
		return fmt.Errorf("failed to query related records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		related := reflect.New(target.GoType)
		if err := scanIntoStruct(rows, related.Interface(), target); err != nil {
			return fmt.Errorf("failed to scan related record: %w", err)
		}
		key, ok := keyOf(related.Elem().FieldByName(matchCol.GoField))
		if !ok {
			continue
		}
		for _, idx := range owners[key] {
			assignRelated(results.Index(idx).FieldByName(rel.SourceField), related)
		}
	}
	return rows.Err()
}

// assignRelated stores related (a pointer to a target struct) into a
// relationship field of type *Target, Target or []Target.
func assignRelated(field reflect.Value, related reflect.Value) {
	if !field.IsValid() || !field.CanSet() {
		return
	}
	switch field.Kind() {
	case reflect.Ptr:
		field.Set(related)
	case reflect.Slice:
		elem := related
		if field.Type().Elem().Kind() != reflect.Ptr {
			elem = related.Elem()
		}
		field.Set(reflect.Append(field, elem))
	default:
		field.Set(related.Elem())
	}
}

// keyOf returns a comparable key for a field, dereferencing pointers.
// Zero and nil keys are skipped.
func keyOf(field reflect.Value) (any, bool) {
	if !field.IsValid() {
		return nil, false
	}
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return nil, false
		}
		field = field.Elem()
	}
	if field.IsZero() {
		return nil, false
	}
	return field.Interface(), true
}
