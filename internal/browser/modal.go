package browser

import (
	"orgs-sync/internal/gateway"
	"orgs-sync/internal/schema"
)

// Modal is the record form state. Only none to {create,edit,view} and
// {create,edit,view} to none are legal. Draft is set iff mode is edit or view and
// is shared with the cache, never written through. gen changes on every open
// and close, so a save can tell whether its form is still the open one.
type Modal struct {
	Mode    schema.Mode
	Draft   gateway.Record
	Visible bool
	gen     uint64
}

func NewModal() Modal {
	return Modal{Mode: schema.ModeNone}
}

func (m *Modal) open(mode schema.Mode, draft gateway.Record) error {
	if m.Mode != schema.ModeNone && m.Mode != "" {
		return ErrIllegalTransition
	}
	m.Mode = mode
	m.Draft = draft
	m.Visible = true
	m.gen++
	return nil
}

func (m *Modal) OpenCreate() error {
	return m.open(schema.ModeCreate, nil)
}

func (m *Modal) OpenEdit(record gateway.Record) error {
	return m.open(schema.ModeEdit, record)
}

func (m *Modal) OpenView(record gateway.Record) error {
	return m.open(schema.ModeView, record)
}

// Close is legal from every state.
func (m *Modal) Close() {
	m.Mode = schema.ModeNone
	m.Draft = nil
	m.Visible = false
	m.gen++
}

// ShowSave is false in view mode.
func (m Modal) ShowSave() bool {
	return m.Mode == schema.ModeCreate || m.Mode == schema.ModeEdit
}

// VerbFor maps the modal mode to the gateway method used on save.
func VerbFor(mode schema.Mode) gateway.Method {
	if mode == schema.ModeEdit {
		return gateway.MethodPatch
	}
	return gateway.MethodPost
}
