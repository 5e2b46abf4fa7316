package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"orgs-sync/internal/metadata"
)

// MetadataProvider loads the browser bootstrap from a gateway's /api/_meta
// endpoint through a named connection.
type MetadataProvider struct {
	gw    *HTTPGateway
	alias string
}

func NewMetadataProvider(gw *HTTPGateway, alias string) *MetadataProvider {
	return &MetadataProvider{gw: gw, alias: alias}
}

func (p *MetadataProvider) Load(ctx context.Context) (*metadata.Bootstrap, error) {
	conn, err := p.gw.connection(p.alias)
	if err != nil {
		return nil, TransportError(err)
	}

	resp, err := p.gw.do(ctx, conn, p.alias, "GET", conn.BaseURL+"/api/_meta", nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, FromResponse(resp)
	}

	var b metadata.Bootstrap
	if err := json.Unmarshal(resp.Body, &b); err != nil {
		return nil, TransportError(fmt.Errorf("decode metadata: %w", err))
	}
	if b.ConnectionAlias == "" {
		b.ConnectionAlias = p.alias
	}
	return &b, nil
}
