package browser

import "errors"

var (
	ErrNotReady           = errors.New("browser is not initialized")
	ErrAlreadyInitialized = errors.New("browser is already initialized")
	ErrFirstPage          = errors.New("already on the first page")
	ErrLastPage           = errors.New("already on the last page")
	ErrIllegalTransition  = errors.New("illegal modal transition")
	ErrNotEditable        = errors.New("no editable form is open")
	ErrRecordNotCached    = errors.New("record not found locally")
	ErrUnknownEntityType  = errors.New("unknown entity type")
	ErrUnhandledAction    = errors.New("unhandled row action")

	// ErrStaleResponse is returned to the caller of a list whose response was
	// superseded. It is never notified.
	ErrStaleResponse = errors.New("stale list response discarded")
)
