package metadata

import (
	"context"
	"fmt"
)

// FieldsInfo is the per-entity field metadata the browser works from.
type FieldsInfo struct {
	ListFields []string `json:"listFields"`
	FormFields []string `json:"formFields"`
}

// Bootstrap is the one-shot payload returned by a Provider.
type Bootstrap struct {
	EntityCatalog   []string              `json:"entityCatalog"`
	FieldsInfo      map[string]FieldsInfo `json:"fieldsInfo"`
	ConnectionAlias string                `json:"connectionAlias"`
}

// Provider loads the entity catalog and field metadata for a browser session.
type Provider interface {
	Load(ctx context.Context) (*Bootstrap, error)
}

// Validate rejects payloads the browser cannot work with.
func (b *Bootstrap) Validate() error {
	if b.ConnectionAlias == "" {
		return fmt.Errorf("connection alias is empty")
	}
	seen := make(map[string]bool, len(b.EntityCatalog))
	for _, name := range b.EntityCatalog {
		if seen[name] {
			return fmt.Errorf("duplicate entity type %s", name)
		}
		seen[name] = true
		if _, ok := b.FieldsInfo[name]; !ok {
			return fmt.Errorf("no field info for entity type %s", name)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can't mutate a shared payload.
func (b *Bootstrap) Clone() *Bootstrap {
	out := &Bootstrap{
		EntityCatalog:   append([]string(nil), b.EntityCatalog...),
		FieldsInfo:      make(map[string]FieldsInfo, len(b.FieldsInfo)),
		ConnectionAlias: b.ConnectionAlias,
	}
	for name, info := range b.FieldsInfo {
		out.FieldsInfo[name] = FieldsInfo{
			ListFields: append([]string(nil), info.ListFields...),
			FormFields: append([]string(nil), info.FormFields...),
		}
	}
	return out
}

// BootstrapFromEntities builds a payload preserving entity order.
func BootstrapFromEntities(entities []*Entity, alias string) *Bootstrap {
	b := &Bootstrap{
		EntityCatalog:   make([]string, 0, len(entities)),
		FieldsInfo:      make(map[string]FieldsInfo, len(entities)),
		ConnectionAlias: alias,
	}
	for _, e := range entities {
		b.EntityCatalog = append(b.EntityCatalog, e.Name)
		b.FieldsInfo[e.Name] = e.Info()
	}
	return b
}

// StaticProvider serves a fixed payload, typically read from an entities file.
type StaticProvider struct {
	bootstrap *Bootstrap
}

func NewStaticProvider(b *Bootstrap) *StaticProvider {
	return &StaticProvider{bootstrap: b}
}

func (p *StaticProvider) Load(ctx context.Context) (*Bootstrap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.bootstrap == nil {
		return nil, fmt.Errorf("no metadata configured")
	}
	return p.bootstrap.Clone(), nil
}
