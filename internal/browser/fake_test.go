package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"orgs-sync/internal/gateway"
	"orgs-sync/internal/metadata"
)

type fakeGateway struct {
	mu      sync.Mutex
	calls   []gateway.Request
	handler func(req gateway.Request) (*gateway.Response, error)
}

func (f *fakeGateway) Call(ctx context.Context, req gateway.Request) (*gateway.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	h := f.handler
	f.mu.Unlock()
	if h == nil {
		return ok(`[]`), nil
	}
	return h(req)
}

func (f *fakeGateway) handle(h func(req gateway.Request) (*gateway.Response, error)) {
	f.mu.Lock()
	f.handler = h
	f.mu.Unlock()
}

func (f *fakeGateway) callsFor(method gateway.Method) []gateway.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []gateway.Request
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeGateway) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func ok(body string) *gateway.Response {
	return &gateway.Response{Status: gateway.StatusOK, Body: []byte(body)}
}

func failed(status, message string) *gateway.Response {
	return &gateway.Response{Status: status, Body: []byte(fmt.Sprintf(`[{"message":%q}]`, message))}
}

func records(recs ...gateway.Record) *gateway.Response {
	b, _ := json.Marshal(recs)
	return ok(string(b))
}

// page builds n records with ids prefix-0..prefix-(n-1).
func page(prefix string, n int) []gateway.Record {
	out := make([]gateway.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, gateway.Record{"Id": fmt.Sprintf("%s-%d", prefix, i), "Name": fmt.Sprintf("%s %d", prefix, i)})
	}
	return out
}

type providerFunc func(ctx context.Context) (*metadata.Bootstrap, error)

func (f providerFunc) Load(ctx context.Context) (*metadata.Bootstrap, error) {
	return f(ctx)
}

func testBootstrap() *metadata.Bootstrap {
	return &metadata.Bootstrap{
		EntityCatalog: []string{"Account", "Contact"},
		FieldsInfo: map[string]metadata.FieldsInfo{
			"Account": {ListFields: []string{"Name"}, FormFields: []string{"Name", "Rating"}},
			"Contact": {ListFields: []string{"LastName", "Email"}, FormFields: []string{"LastName", "Email"}},
		},
		ConnectionAlias: "local",
	}
}
