package metadata

import "fmt"

// IDField is the mandatory identifier every record carries.
const IDField = "Id"

type Entity struct {
	Name         string   `json:"name" mapstructure:"name"`
	Table        string   `json:"table" mapstructure:"table"`
	ListFields   []string `json:"list_fields" mapstructure:"list_fields"`
	FormFields   []string `json:"form_fields" mapstructure:"form_fields"`
	SearchFields []string `json:"search_fields,omitempty" mapstructure:"search_fields"`
	SoftDelete   bool     `json:"soft_delete,omitempty" mapstructure:"soft_delete"`
	Fields       []Field  `json:"fields" mapstructure:"fields"`
	Rules        []Rule   `json:"rules,omitempty" mapstructure:"rules"`
}

// GetField returns a pointer to the field with the given name, or nil.
func (e *Entity) GetField(name string) *Field {
	for i := range e.Fields {
		if e.Fields[i].Name == name {
			return &e.Fields[i]
		}
	}
	return nil
}

// HasField returns true if the entity has a field with the given name.
// The implicit Id field always exists.
func (e *Entity) HasField(name string) bool {
	return name == IDField || e.GetField(name) != nil
}

// FieldNames returns all declared field names, Id first.
func (e *Entity) FieldNames() []string {
	names := make([]string, 0, len(e.Fields)+1)
	names = append(names, IDField)
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	return names
}

// SearchColumns returns the fields matched by a search string. Defaults to
// the list fields when none are configured.
func (e *Entity) SearchColumns() []string {
	if len(e.SearchFields) > 0 {
		return e.SearchFields
	}
	return e.ListFields
}

// Info projects the entity onto the field lists the browser needs.
func (e *Entity) Info() FieldsInfo {
	return FieldsInfo{
		ListFields: append([]string(nil), e.ListFields...),
		FormFields: append([]string(nil), e.FormFields...),
	}
}

// Validate checks the definition is self-consistent.
func (e *Entity) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("entity name is required")
	}
	if e.Table == "" {
		return fmt.Errorf("table name is required")
	}
	if len(e.Fields) == 0 {
		return fmt.Errorf("entity must have at least one field")
	}
	seen := make(map[string]bool, len(e.Fields))
	for _, f := range e.Fields {
		if f.Name == "" {
			return fmt.Errorf("field name is required")
		}
		if f.Name == IDField {
			return fmt.Errorf("field %s is implicit and must not be declared", IDField)
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate field %s", f.Name)
		}
		seen[f.Name] = true
	}
	if len(e.ListFields) == 0 {
		return fmt.Errorf("entity must list at least one field")
	}
	for _, group := range [][]string{e.ListFields, e.FormFields, e.SearchFields} {
		for _, name := range group {
			if !e.HasField(name) {
				return fmt.Errorf("unknown field %s", name)
			}
		}
	}
	for i, r := range e.Rules {
		if err := r.Validate(e); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}
	return nil
}
