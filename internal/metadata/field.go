package metadata

type Field struct {
	Name      string   `json:"name" mapstructure:"name"`
	Type      string   `json:"type" mapstructure:"type"` // string, text, int, bigint, decimal, boolean, date, timestamp
	Required  bool     `json:"required,omitempty" mapstructure:"required"`
	Unique    bool     `json:"unique,omitempty" mapstructure:"unique"`
	Default   any      `json:"default,omitempty" mapstructure:"default"`
	Enum      []string `json:"enum,omitempty" mapstructure:"enum"`
	Precision int      `json:"precision,omitempty" mapstructure:"precision"`
}

// IsNumeric reports whether values of the field are stored as numbers.
func (f Field) IsNumeric() bool {
	switch f.Type {
	case "int", "integer", "bigint", "decimal", "float":
		return true
	}
	return false
}

// AllowsValue checks enum membership. Fields without an enum accept anything.
func (f Field) AllowsValue(v string) bool {
	if len(f.Enum) == 0 {
		return true
	}
	for _, e := range f.Enum {
		if e == v {
			return true
		}
	}
	return false
}
