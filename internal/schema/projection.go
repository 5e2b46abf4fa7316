// Package schema derives table columns and form fields from entity field
// metadata. Everything here is a pure function of its inputs.
package schema

import (
	"orgs-sync/internal/gateway"
	"orgs-sync/internal/metadata"
)

type ColumnType string

const (
	ColumnText   ColumnType = "text"
	ColumnButton ColumnType = "button"
	ColumnAction ColumnType = "action"
)

// Row actions exposed by the trailing action column.
const (
	ActionDelete = "delete"
	ActionEdit   = "edit"
	ActionView   = "view"
)

type RowAction struct {
	Label string `json:"label"`
	Name  string `json:"name"`
}

type ColumnDescriptor struct {
	Label      string      `json:"label,omitempty"`
	FieldName  string      `json:"fieldName,omitempty"`
	Type       ColumnType  `json:"type"`
	Action     string      `json:"action,omitempty"` // button columns only
	RowActions []RowAction `json:"rowActions,omitempty"`
}

type FieldDescriptor struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Value  any    `json:"value"`
	Hidden bool   `json:"hidden"`
}

// ProjectColumns returns one column per list field followed by the row action
// column. The first list column opens the record for editing.
func ProjectColumns(info metadata.FieldsInfo) []ColumnDescriptor {
	columns := make([]ColumnDescriptor, 0, len(info.ListFields)+1)
	for i, name := range info.ListFields {
		col := ColumnDescriptor{Label: name, FieldName: name, Type: ColumnText}
		if i == 0 {
			col.Type = ColumnButton
			col.Action = ActionEdit
		}
		columns = append(columns, col)
	}

	columns = append(columns, ColumnDescriptor{
		Type: ColumnAction,
		RowActions: []RowAction{
			{Label: "Delete", Name: ActionDelete},
			{Label: "Edit", Name: ActionEdit},
			{Label: "View", Name: ActionView},
		},
	})
	return columns
}

// ProjectFormFields returns one descriptor per form field plus a hidden Id
// descriptor. Values are read from draft only in edit and view mode.
func ProjectFormFields(info metadata.FieldsInfo, draft gateway.Record, mode Mode) []FieldDescriptor {
	populate := draft != nil && mode.ShowsRecord()

	fields := make([]FieldDescriptor, 0, len(info.FormFields)+1)
	for _, name := range info.FormFields {
		if name == metadata.IDField {
			continue
		}
		fd := FieldDescriptor{Name: name, Label: name}
		if populate {
			fd.Value = draft[name]
		}
		fields = append(fields, fd)
	}

	id := FieldDescriptor{Name: metadata.IDField, Label: metadata.IDField, Hidden: true}
	if populate {
		id.Value = draft[metadata.IDField]
	}
	return append(fields, id)
}

// QueryFields is the deduplicated union of form and list fields, form fields
// first, so one list fetch serves both the table and the form.
func QueryFields(info metadata.FieldsInfo) []string {
	seen := make(map[string]bool, len(info.FormFields)+len(info.ListFields))
	out := make([]string, 0, len(info.FormFields)+len(info.ListFields))
	for _, group := range [][]string{info.FormFields, info.ListFields} {
		for _, name := range group {
			if seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
