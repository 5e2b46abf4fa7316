package browser

import (
	"orgs-sync/internal/gateway"
	"orgs-sync/internal/schema"
)

// FormView is what the form renderer receives.
type FormView struct {
	EntityLabel string                   `json:"entityLabel"`
	Fields      []schema.FieldDescriptor `json:"fields"`
	Mode        schema.Mode              `json:"mode"`
	ViewMode    bool                     `json:"viewMode"`
	ShowSave    bool                     `json:"showSave"`
	Visible     bool                     `json:"visible"`
}

// View is a point-in-time copy of the controller state for rendering.
type View struct {
	State           State                     `json:"state"`
	EntityCatalog   []string                  `json:"entityCatalog"`
	EntityType      string                    `json:"entityType"`
	ConnectionAlias string                    `json:"connectionAlias"`
	Columns         []schema.ColumnDescriptor `json:"columns"`
	Records         []gateway.Record          `json:"records"`
	Page            PageState                 `json:"page"`
	DisablePrevious bool                      `json:"disablePrevious"`
	DisableNext     bool                      `json:"disableNext"`
	Loading         bool                      `json:"loading"`
	ShowTable       bool                      `json:"showTable"`
	Form            FormView                  `json:"form"`
}

// View snapshots the controller. Columns and form fields are projected fresh
// on every call; records are copied.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State:           c.state,
		EntityCatalog:   []string{},
		EntityType:      c.active,
		Columns:         []schema.ColumnDescriptor{},
		Records:         make([]gateway.Record, 0, len(c.records)),
		Page:            c.page,
		DisablePrevious: c.page.DisablePrevious(),
		DisableNext:     len(c.records) < c.page.Limit,
		Loading:         c.loading > 0,
		ShowTable:       len(c.records) > 0,
		Form: FormView{
			EntityLabel: c.active,
			Fields:      []schema.FieldDescriptor{},
			Mode:        c.modal.Mode,
			ViewMode:    c.modal.Mode == schema.ModeView,
			ShowSave:    c.modal.ShowSave(),
			Visible:     c.modal.Visible,
		},
	}
	for _, r := range c.records {
		v.Records = append(v.Records, cloneRecord(r))
	}

	if c.bootstrap == nil {
		return v
	}
	v.EntityCatalog = append(v.EntityCatalog, c.bootstrap.EntityCatalog...)
	v.ConnectionAlias = c.bootstrap.ConnectionAlias
	if c.active != "" {
		info := c.infoLocked()
		v.Columns = schema.ProjectColumns(info)
		if c.modal.Visible {
			v.Form.Fields = schema.ProjectFormFields(info, c.modal.Draft, c.modal.Mode)
		}
	}
	return v
}

func cloneRecord(r gateway.Record) gateway.Record {
	out := make(gateway.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
