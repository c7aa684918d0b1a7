// Package registry provides a central schema registry for table metadata.
package registry

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"sync"

	"github.com/marshallshelly/pebble-study/pkg/schema"
)

// Registry is a thread-safe registry for table metadata.
type Registry struct {
	mu     sync.RWMutex
	parser *schema.Parser
	tables map[reflect.Type]*schema.TableMetadata
	names  map[string]*schema.TableMetadata
}

// NewRegistry creates a new Registry instance.
func NewRegistry() *Registry {
	return &Registry{
		parser: schema.NewParser(),
		tables: make(map[reflect.Type]*schema.TableMetadata),
		names:  make(map[string]*schema.TableMetadata),
	}
}

// Register registers a model type and extracts its metadata. Types reachable
// through relationships are registered too, so cascades can be resolved.
func (r *Registry) Register(model any) error {
	modelType, err := structType(model)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err = r.registerLocked(modelType)
	return err
}

func (r *Registry) registerLocked(modelType reflect.Type) (*schema.TableMetadata, error) {
	if table, ok := r.tables[modelType]; ok {
		return table, nil
	}

	table, err := r.parser.Parse(modelType)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", modelType.Name(), err)
	}
	if existing, ok := r.names[table.Name]; ok && existing.GoType != modelType {
		return nil, fmt.Errorf("table %s already registered for %s", table.Name, existing.GoType)
	}
	r.tables[modelType] = table
	r.names[table.Name] = table

	for _, rel := range table.Relationships {
		if _, err := r.registerLocked(rel.TargetType); err != nil {
			return nil, fmt.Errorf("relationship %s.%s: %w", modelType.Name(), rel.SourceField, err)
		}
	}
	return table, nil
}

// Get retrieves TableMetadata by Go type.
func (r *Registry) Get(modelType reflect.Type) (*schema.TableMetadata, error) {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("model type %s not registered", modelType.Name())
	}
	return table, nil
}

// GetByName retrieves TableMetadata by table name.
func (r *Registry) GetByName(tableName string) (*schema.TableMetadata, error) {
	r.mu.RLock()
	table, ok := r.names[tableName]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("table %s not registered", tableName)
	}
	return table, nil
}

// GetOrRegister retrieves TableMetadata or registers it if not found.
func (r *Registry) GetOrRegister(model any) (*schema.TableMetadata, error) {
	modelType, err := structType(model)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	table, ok := r.tables[modelType]
	r.mu.RUnlock()
	if ok {
		return table, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(modelType)
}

// Dependent is a child table removed ahead of its parent.
type Dependent struct {
	Relationship schema.RelationshipMetadata
	Table        *schema.TableMetadata
}

// Dependents returns the cascade-delete children of a table, in declaration
// order.
func (r *Registry) Dependents(table *schema.TableMetadata) ([]Dependent, error) {
	var deps []Dependent
	for _, rel := range table.Relationships {
		if !rel.CascadeDelete {
			continue
		}
		child, err := r.Get(rel.TargetType)
		if err != nil {
			return nil, err
		}
		deps = append(deps, Dependent{Relationship: rel, Table: child})
	}
	return deps, nil
}

// All returns all registered table metadata sorted by table name.
func (r *Registry) All() []*schema.TableMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := slices.Collect(maps.Values(r.names))
	slices.SortFunc(tables, func(a, b *schema.TableMetadata) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return tables
}

// AllNames returns all registered table names, sorted.
func (r *Registry) AllNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.names))
}

// Clear removes all registered models.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.parser = schema.NewParser()
	r.tables = make(map[reflect.Type]*schema.TableMetadata)
	r.names = make(map[string]*schema.TableMetadata)
}

// Has checks if a model type is registered.
func (r *Registry) Has(modelType reflect.Type) bool {
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}

	r.mu.RLock()
	_, ok := r.tables[modelType]
	r.mu.RUnlock()
	return ok
}

// HasTable checks if a table name is registered.
func (r *Registry) HasTable(tableName string) bool {
	r.mu.RLock()
	_, ok := r.names[tableName]
	r.mu.RUnlock()
	return ok
}

func structType(model any) (reflect.Type, error) {
	if model == nil {
		return nil, fmt.Errorf("model must be a struct, got nil")
	}
	modelType := reflect.TypeOf(model)
	for modelType.Kind() == reflect.Pointer {
		modelType = modelType.Elem()
	}
	if modelType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("model must be a struct, got %s", modelType.Kind())
	}
	return modelType, nil
}

// globalRegistry is the default global registry instance.
var globalRegistry = NewRegistry()

// Default returns the global registry.
func Default() *Registry {
	return globalRegistry
}

// Register registers a model in the global registry.
func Register(model any) error {
	return globalRegistry.Register(model)
}

// Get retrieves TableMetadata from the global registry.
func Get(modelType reflect.Type) (*schema.TableMetadata, error) {
	return globalRegistry.Get(modelType)
}

// GetByName retrieves TableMetadata by name from the global registry.
func GetByName(tableName string) (*schema.TableMetadata, error) {
	return globalRegistry.GetByName(tableName)
}

// GetOrRegister retrieves or registers a model in the global registry.
func GetOrRegister(model any) (*schema.TableMetadata, error) {
	return globalRegistry.GetOrRegister(model)
}

// Dependents returns cascade children from the global registry.
func Dependents(table *schema.TableMetadata) ([]Dependent, error) {
	return globalRegistry.Dependents(table)
}

// All returns all registered tables from the global registry.
func All() []*schema.TableMetadata {
	return globalRegistry.All()
}

// Clear clears the global registry.
func Clear() {
	globalRegistry.Clear()
}
