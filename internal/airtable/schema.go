package airtable

import "sort"

// SchemaField describes one column of a table.
type SchemaField struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Schema is the read-only field layout of the synced table.
type Schema struct {
	TableID string
	Name    string
	types   map[string]string
}

// NewSchema builds a schema from its fields.
func NewSchema(tableID, name string, fields []SchemaField) *Schema {
	types := make(map[string]string, len(fields))
	for _, f := range fields {
		types[f.Name] = f.Type
	}
	return &Schema{TableID: tableID, Name: name, types: types}
}

// Has reports whether the table has a field called name.
func (s *Schema) Has(name string) bool {
	_, ok := s.types[name]
	return ok
}

// Type returns the Airtable type of a field ("singleLineText", "date", ...).
func (s *Schema) Type(name string) string {
	return s.types[name]
}

// Names returns every field name, sorted.
func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.types))
	for name := range s.types {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing returns the given names the schema lacks, in input order.
func (s *Schema) Missing(names ...string) []string {
	var missing []string
	for _, name := range names {
		if !s.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}
