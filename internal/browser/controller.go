// Package browser implements the entity browser: paging through the records
// of one entity type at a time and creating, editing and deleting them
// through a modal form, all via a remote gateway.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"orgs-sync/internal/gateway"
	"orgs-sync/internal/metadata"
	"orgs-sync/internal/schema"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateDegraded      State = "degraded"
)

type Options struct {
	Limit int
	// KeepModalOnFailure leaves the form open with its draft after a
	// rejected save. By default the modal closes whatever the outcome.
	KeepModalOnFailure bool
}

// Controller owns the page state, record cache and modal of one browser
// session. The mutex is never held across a gateway call; list responses are
// fenced by sequence number so a superseded response is never applied.
type Controller struct {
	provider metadata.Provider
	gw       gateway.Gateway
	notifier Notifier
	opts     Options

	mu         sync.Mutex
	state      State
	bootstrap  *metadata.Bootstrap
	active     string
	page       PageState
	modal      Modal
	records    []gateway.Record
	loading    int
	seq        uint64
	appliedSeq uint64
}

func NewController(provider metadata.Provider, gw gateway.Gateway, notifier Notifier, opts Options) *Controller {
	if notifier == nil {
		notifier = &Recorder{}
	}
	return &Controller{
		provider: provider,
		gw:       gw,
		notifier: notifier,
		opts:     opts,
		state:    StateUninitialized,
		page:     NewPageState(opts.Limit),
		modal:    NewModal(),
		records:  []gateway.Record{},
	}
}

// Initialize loads the metadata once, selects the first entity type and
// lists it. A failed load leaves the controller degraded; Initialize may be
// called again from there.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateReady {
		c.mu.Unlock()
		return c.fail(gateway.PreconditionError(ErrAlreadyInitialized, "Browser is already initialized"))
	}
	c.loading++
	c.mu.Unlock()

	b, err := c.provider.Load(ctx)
	if err == nil && b == nil {
		err = fmt.Errorf("metadata provider returned no payload")
	}
	if err == nil {
		err = b.Validate()
	}

	c.mu.Lock()
	c.loading--
	if err != nil {
		c.state = StateDegraded
		c.bootstrap = nil
		c.active = ""
		c.records = []gateway.Record{}
		c.mu.Unlock()
		return c.fail(gateway.BootstrapError(err))
	}

	c.bootstrap = b
	c.state = StateReady
	c.active = ""
	if len(b.EntityCatalog) > 0 {
		c.active = b.EntityCatalog[0]
	}
	c.page.Clear()
	c.modal.Close()
	active := c.active
	c.mu.Unlock()

	if active == "" {
		return nil
	}
	return c.List(ctx)
}

// List fetches the current page of the active entity type. A success
// replaces the cache; a failure empties it and leaves the page untouched.
func (c *Controller) List(ctx context.Context) error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	c.seq++
	seq := c.seq
	req := gateway.Request{
		Method:          gateway.MethodGet,
		ConnectionAlias: c.bootstrap.ConnectionAlias,
		Params: map[string]any{
			gateway.ParamEntity:       c.active,
			gateway.ParamOffset:       c.page.Offset,
			gateway.ParamLimit:        c.page.Limit,
			gateway.ParamSearchString: c.page.Search,
			gateway.ParamFields:       strings.Join(schema.QueryFields(c.infoLocked()), ","),
		},
	}
	c.loading++
	c.mu.Unlock()

	var records []gateway.Record
	resp, err := c.gw.Call(ctx, req)
	switch {
	case err != nil:
		err = gateway.TransportError(err)
	case !resp.OK():
		err = gateway.FromResponse(resp)
	default:
		records, err = gateway.DecodeRecords(resp.Body)
	}

	c.mu.Lock()
	c.loading--
	if seq <= c.appliedSeq {
		c.mu.Unlock()
		return ErrStaleResponse
	}
	c.appliedSeq = seq
	if err != nil {
		c.records = []gateway.Record{}
		c.mu.Unlock()
		return c.fail(err)
	}
	// the cache never holds more than one page
	if len(records) > c.page.Limit {
		records = records[:c.page.Limit]
	}
	c.records = records
	c.mu.Unlock()
	return nil
}

// Refresh re-lists the current page.
func (c *Controller) Refresh(ctx context.Context) error {
	return c.List(ctx)
}

// Delete removes a cached record on the gateway and splices it out of the
// cache on success. Ids that are not cached are refused without a call.
func (c *Controller) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	if c.indexLocked(id) < 0 {
		c.mu.Unlock()
		return c.fail(gateway.PreconditionError(ErrRecordNotCached, "Record %s not found locally", id))
	}
	req := gateway.Request{
		Method:          gateway.MethodDelete,
		ConnectionAlias: c.bootstrap.ConnectionAlias,
		Params: map[string]any{
			gateway.ParamEntity: c.active,
			gateway.ParamID:     id,
		},
	}
	c.loading++
	c.mu.Unlock()

	resp, err := c.gw.Call(ctx, req)
	if err != nil {
		err = gateway.TransportError(err)
	} else if !resp.OK() {
		err = gateway.FromResponse(resp)
	}

	c.mu.Lock()
	c.loading--
	if err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	if i := c.indexLocked(id); i >= 0 {
		next := make([]gateway.Record, 0, len(c.records)-1)
		next = append(next, c.records[:i]...)
		c.records = append(next, c.records[i+1:]...)
	}
	c.mu.Unlock()

	c.notifier.Notify(Notification{Title: "Record was deleted", Variant: VariantSuccess, Message: string(resp.Body)})
	return nil
}

// Submit saves the open create or edit form and refetches the page. A
// response that returns after the form or entity type changed leaves the new
// form and cache alone.
func (c *Controller) Submit(ctx context.Context, fields map[string]any) error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	mode := c.modal.Mode
	if mode != schema.ModeCreate && mode != schema.ModeEdit {
		c.mu.Unlock()
		return c.fail(gateway.PreconditionError(ErrNotEditable, "No editable form is open"))
	}
	payload := schema.BuildPayload(c.infoLocked(), c.modal.Draft, mode, fields)
	body, err := gateway.EncodeBody(payload)
	if err != nil {
		c.modal.Close()
		c.mu.Unlock()
		return c.fail(gateway.TransportError(err))
	}
	entity, gen := c.active, c.modal.gen
	req := gateway.Request{
		Method:          VerbFor(mode),
		ConnectionAlias: c.bootstrap.ConnectionAlias,
		Params:          map[string]any{gateway.ParamEntity: entity},
		Body:            body,
	}
	c.loading++
	c.mu.Unlock()

	var created []gateway.Record
	resp, err := c.gw.Call(ctx, req)
	switch {
	case err != nil:
		err = gateway.TransportError(err)
	case !resp.OK():
		err = gateway.FromResponse(resp)
	case mode == schema.ModeCreate:
		created, err = gateway.DecodeRecords(resp.Body)
	}

	c.mu.Lock()
	c.loading--
	// Only the form this save was made from is closed, and only the cache
	// of the entity type it was made for is touched.
	current := c.active == entity
	if current && c.modal.gen == gen && (err == nil || !c.opts.KeepModalOnFailure) {
		c.modal.Close()
	}
	if err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	if current && len(created) > 0 {
		next := make([]gateway.Record, 0, len(c.records)+len(created))
		next = append(next, c.records...)
		c.records = append(next, created...)
	}
	c.mu.Unlock()

	title := "Record was created"
	if mode == schema.ModeEdit {
		title = "Record was updated"
	}
	c.notifier.Notify(Notification{Title: title, Variant: VariantSuccess, Message: string(resp.Body)})

	// the entity change already listed the new type
	if !current {
		return nil
	}
	if err := c.List(ctx); err != nil && !errors.Is(err, ErrStaleResponse) {
		return err
	}
	return nil
}

// ChangeEntityType switches the active entity type, clears page and search,
// empties the cache, closes the modal and lists once.
func (c *Controller) ChangeEntityType(ctx context.Context, name string) error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	if !c.knownLocked(name) {
		c.mu.Unlock()
		return c.fail(gateway.PreconditionError(ErrUnknownEntityType, "Unknown entity type: %s", name))
	}
	c.active = name
	c.page.Clear()
	c.records = []gateway.Record{}
	c.modal.Close()
	c.invalidateLocked()
	c.mu.Unlock()

	return c.List(ctx)
}

// SetSearch stores the search string for the next list. It does not fetch.
func (c *Controller) SetSearch(s string) {
	c.mu.Lock()
	c.page.SetSearch(s)
	c.mu.Unlock()
}

// ResetAndSearch goes back to the first page and lists with the current
// search string.
func (c *Controller) ResetAndSearch(ctx context.Context) error {
	return c.movePage(ctx, func() error {
		c.page.Reset()
		return nil
	})
}

// Next moves one page forward. Refused when the last list returned a short
// page.
func (c *Controller) Next(ctx context.Context) error {
	return c.movePage(ctx, func() error {
		if len(c.records) < c.page.Limit {
			return gateway.PreconditionError(ErrLastPage, "Already on the last page")
		}
		c.page.Advance()
		return nil
	})
}

// Previous moves one page back. Refused on the first page.
func (c *Controller) Previous(ctx context.Context) error {
	return c.movePage(ctx, func() error {
		if err := c.page.Retreat(); err != nil {
			return gateway.PreconditionError(err, "Already on the first page")
		}
		return nil
	})
}

func (c *Controller) movePage(ctx context.Context, move func() error) error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	if err := move(); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	c.invalidateLocked()
	c.mu.Unlock()
	return c.List(ctx)
}

func (c *Controller) OpenCreate() error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	err := c.modal.OpenCreate()
	c.mu.Unlock()
	if err != nil {
		return c.fail(gateway.PreconditionError(err, "Cannot open create form while another form is open"))
	}
	return nil
}

func (c *Controller) OpenEdit(id string) error {
	return c.openRecord(id, schema.ModeEdit)
}

func (c *Controller) OpenView(id string) error {
	return c.openRecord(id, schema.ModeView)
}

func (c *Controller) openRecord(id string, mode schema.Mode) error {
	c.mu.Lock()
	if err := c.readyLocked(); err != nil {
		c.mu.Unlock()
		return c.fail(err)
	}
	i := c.indexLocked(id)
	if i < 0 {
		c.mu.Unlock()
		return c.fail(gateway.PreconditionError(ErrRecordNotCached, "Record %s not found locally", id))
	}
	var err error
	if mode == schema.ModeEdit {
		err = c.modal.OpenEdit(c.records[i])
	} else {
		err = c.modal.OpenView(c.records[i])
	}
	c.mu.Unlock()
	if err != nil {
		return c.fail(gateway.PreconditionError(err, "Cannot open %s form while another form is open", mode))
	}
	return nil
}

// CloseModal is always legal.
func (c *Controller) CloseModal() {
	c.mu.Lock()
	c.modal.Close()
	c.mu.Unlock()
}

// HandleRowAction dispatches a table row action by name.
func (c *Controller) HandleRowAction(ctx context.Context, action, id string) error {
	switch action {
	case schema.ActionDelete:
		return c.Delete(ctx, id)
	case schema.ActionEdit:
		return c.OpenEdit(id)
	case schema.ActionView:
		return c.OpenView(id)
	default:
		return c.fail(gateway.PreconditionError(ErrUnhandledAction, "Unhandled action: %s", action))
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Loading reports whether any gateway or provider call is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading > 0
}

// DisableNext is true when the last list returned fewer rows than the limit.
func (c *Controller) DisableNext() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records) < c.page.Limit
}

// fail notifies err once and returns it. Called without the lock held.
func (c *Controller) fail(err error) error {
	c.notifier.Notify(Notification{Title: errorTitle, Variant: VariantError, Message: gateway.MessageOf(err)})
	return err
}

func (c *Controller) readyLocked() error {
	if c.state != StateReady {
		return gateway.PreconditionError(ErrNotReady, "Browser is not initialized")
	}
	if c.active == "" {
		return gateway.PreconditionError(ErrUnknownEntityType, "No entity type selected")
	}
	return nil
}

// invalidateLocked marks every list in flight as stale.
func (c *Controller) invalidateLocked() {
	c.appliedSeq = c.seq
}

func (c *Controller) infoLocked() metadata.FieldsInfo {
	return c.bootstrap.FieldsInfo[c.active]
}

func (c *Controller) knownLocked(name string) bool {
	for _, n := range c.bootstrap.EntityCatalog {
		if n == name {
			return true
		}
	}
	return false
}

func (c *Controller) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i, r := range c.records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
