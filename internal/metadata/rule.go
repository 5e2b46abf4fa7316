package metadata

import "fmt"

// Rule is a write-time validation attached to an entity definition.
type Rule struct {
	Type       string `json:"type" mapstructure:"type"` // "field" or "expression"
	Field      string `json:"field,omitempty" mapstructure:"field"`
	Operator   string `json:"operator,omitempty" mapstructure:"operator"`
	Value      any    `json:"value,omitempty" mapstructure:"value"`
	Expression string `json:"expression,omitempty" mapstructure:"expression"`
	Message    string `json:"message,omitempty" mapstructure:"message"`
	StopOnFail bool   `json:"stop_on_fail,omitempty" mapstructure:"stop_on_fail"`
}

func (r Rule) Validate(e *Entity) error {
	switch r.Type {
	case "field":
		if !e.HasField(r.Field) {
			return fmt.Errorf("unknown field %s", r.Field)
		}
		switch r.Operator {
		case "min", "max", "min_length", "max_length", "pattern":
		default:
			return fmt.Errorf("unknown operator %s", r.Operator)
		}
	case "expression":
		if r.Expression == "" {
			return fmt.Errorf("expression is required")
		}
	default:
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
	return nil
}
