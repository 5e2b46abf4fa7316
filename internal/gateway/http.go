package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"orgs-sync/internal/auth"
)

const maxResponseBytes = 8 << 20

// Connection is what a connection alias resolves to.
type Connection struct {
	BaseURL string
	Secret  string
	Timeout time.Duration
}

// HTTPGateway executes requests against the record API of the gateway a
// connection alias points at.
type HTTPGateway struct {
	conns  map[string]Connection
	client *http.Client
}

// NewHTTPGateway builds a gateway over the given connections. Alias lookup is
// case-insensitive.
func NewHTTPGateway(conns map[string]Connection) *HTTPGateway {
	normalized := make(map[string]Connection, len(conns))
	for alias, c := range conns {
		c.BaseURL = strings.TrimRight(c.BaseURL, "/")
		normalized[strings.ToLower(alias)] = c
	}
	return &HTTPGateway{conns: normalized, client: &http.Client{}}
}

func (g *HTTPGateway) connection(alias string) (Connection, error) {
	c, ok := g.conns[strings.ToLower(alias)]
	if !ok {
		return Connection{}, fmt.Errorf("unknown connection alias %q", alias)
	}
	return c, nil
}

// Call implements Gateway. A transport failure is returned as an error; any
// HTTP answer, successful or not, is returned as a Response.
func (g *HTTPGateway) Call(ctx context.Context, req Request) (*Response, error) {
	conn, err := g.connection(req.ConnectionAlias)
	if err != nil {
		return nil, TransportError(err)
	}
	entity, _ := req.Params[ParamEntity].(string)
	if entity == "" {
		return nil, TransportError(fmt.Errorf("request has no entity"))
	}

	target := conn.BaseURL + "/api/records/" + url.PathEscape(entity)
	var body io.Reader
	switch req.Method {
	case MethodGet, MethodDelete:
		if q := encodeQuery(req.Params); q != "" {
			target += "?" + q
		}
	case MethodPost, MethodPatch:
		body = strings.NewReader(req.Body)
	default:
		return nil, TransportError(fmt.Errorf("unsupported method %s", req.Method))
	}

	return g.do(ctx, conn, req.ConnectionAlias, string(req.Method), target, body)
}

func (g *HTTPGateway) do(ctx context.Context, conn Connection, alias, method, target string, body io.Reader) (*Response, error) {
	if conn.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, conn.Timeout)
		defer cancel()
	}

	token, err := auth.GenerateGatewayToken(alias, conn.Secret)
	if err != nil {
		return nil, TransportError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, TransportError(fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, TransportError(fmt.Errorf("http call: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, TransportError(fmt.Errorf("read response: %w", err))
	}

	return &Response{Status: strconv.Itoa(resp.StatusCode), Body: respBody}, nil
}

// encodeQuery renders every param except the entity, which travels in the path.
func encodeQuery(params map[string]any) string {
	values := url.Values{}
	for k, v := range params {
		if k == ParamEntity || v == nil {
			continue
		}
		switch tv := v.(type) {
		case []string:
			values.Set(k, strings.Join(tv, ","))
		default:
			values.Set(k, fmt.Sprint(tv))
		}
	}
	return values.Encode()
}
