package schema

// Mode is the modal form mode a projection is computed for.
type Mode string

const (
	ModeNone   Mode = "none"
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
	ModeView   Mode = "view"
)

// ShowsRecord reports whether the mode displays an existing record.
func (m Mode) ShowsRecord() bool {
	return m == ModeEdit || m == ModeView
}
