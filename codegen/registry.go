package codegen

import (
	"sync"

	"github.com/querywire/querywire-go/schema"
)

// TypeRegistry caches table definitions for code generation.
type TypeRegistry struct {
	tables map[string]*schema.TableDefinition
	mu     sync.RWMutex
}

// NewTypeRegistry creates a new type registry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		tables: make(map[string]*schema.TableDefinition),
	}
}

// Register adds a table definition to the registry.
func (r *TypeRegistry) Register(table *schema.TableDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table.Name] = table
}

// Get retrieves a table definition by name.
func (r *TypeRegistry) Get(name string) (*schema.TableDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, exists := r.tables[name]
	return table, exists
}

// GetAll returns all registered table definitions.
func (r *TypeRegistry) GetAll() []*schema.TableDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tables := make([]*schema.TableDefinition, 0, len(r.tables))
	for _, table := range r.tables {
		tables = append(tables, table)
	}
	return tables
}

// Clear removes all entries from the registry.
func (r *TypeRegistry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = make(map[string]*schema.TableDefinition)
}

// LoadFromSchema populates the registry from a schema definition.
// Introspected and file-loaded schemas both feed the generators through
// this.
func (r *TypeRegistry) LoadFromSchema(schemaDef *schema.SchemaDefinition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range schemaDef.Tables {
		r.tables[schemaDef.Tables[i].Name] = &schemaDef.Tables[i]
	}
}

// Count returns the number of registered tables.
func (r *TypeRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

// Has checks if a table is registered.
func (r *TypeRegistry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tables[name]
	return exists
}
