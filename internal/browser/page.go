package browser

import "strings"

// DefaultPageLimit is used when a controller is built without a limit.
const DefaultPageLimit = 5

// PageState is the offset/limit/search triple sent with every list request.
// Offset is always a non-negative multiple of Limit.
type PageState struct {
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
	Search string `json:"searchString"`
}

func NewPageState(limit int) PageState {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	return PageState{Limit: limit}
}

// SetSearch stores the trimmed search string. It does not fetch.
func (p *PageState) SetSearch(s string) {
	p.Search = strings.TrimSpace(s)
}

// Reset returns to the first page keeping the search string.
func (p *PageState) Reset() {
	p.Offset = 0
}

// Clear returns to the first page and drops the search string.
func (p *PageState) Clear() {
	p.Offset = 0
	p.Search = ""
}

func (p *PageState) Advance() {
	p.Offset += p.Limit
}

func (p *PageState) Retreat() error {
	if p.Offset == 0 {
		return ErrFirstPage
	}
	p.Offset -= p.Limit
	if p.Offset < 0 {
		p.Offset = 0
	}
	return nil
}

func (p PageState) DisablePrevious() bool {
	return p.Offset == 0
}
