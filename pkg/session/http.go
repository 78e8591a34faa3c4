package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// HTTPClient implements Client over the ArangoDB HTTP API
type HTTPClient struct {
	rest   *resty.Client
	logger *zap.Logger
}

// DialHTTP is the default Dialer.
func DialHTTP(_ context.Context, cfg *Config) (Client, error) {
	return NewHTTPClient(cfg, nil)
}

// NewHTTPClient creates a client for the database addressed by cfg. No
// request is made until the first call.
func NewHTTPClient(cfg *Config, logger *zap.Logger) (*HTTPClient, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	base, username, password, err := cfg.Endpoint()
	if err != nil {
		return nil, err
	}

	rest := resty.New().
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetLogger(logger.Sugar()).
		SetDebug(cfg.Debug)
	if cfg.Timeout > 0 {
		rest.SetTimeout(cfg.Timeout)
	}
	if cfg.MaxRetries > 0 {
		rest.SetRetryCount(cfg.MaxRetries)
	}
	if username != "" {
		rest.SetBasicAuth(username, password)
	}

	return &HTTPClient{rest: rest, logger: logger}, nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() {
	c.rest.GetClient().CloseIdleConnections()
}

// do executes a request and decodes a successful JSON body into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, build func(*resty.Request), out any) error {
	req := c.rest.R().SetContext(ctx)
	if build != nil {
		build(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	if resp.IsError() {
		if se := parseStorageError(resp.StatusCode(), resp.Body()); se != nil {
			return se
		}
		return &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode(), Body: resp.Body()}
	}

	if out != nil && len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return &TransportError{Method: method, Path: path, StatusCode: resp.StatusCode(), Body: resp.Body(),
				Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

// Info returns the current database descriptor
func (c *HTTPClient) Info(ctx context.Context) (map[string]any, error) {
	var out struct {
		Result map[string]any `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/_api/database/current", nil, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

type cursorRequest struct {
	Query     string         `json:"query"`
	BindVars  map[string]any `json:"bindVars,omitempty"`
	Count     bool           `json:"count,omitempty"`
	BatchSize int            `json:"batchSize,omitempty"`
}

type cursorResponse struct {
	ID      string           `json:"id"`
	Result  []map[string]any `json:"result"`
	HasMore bool             `json:"hasMore"`
	Count   *int64           `json:"count"`
}

// Query creates a server-side cursor
func (c *HTTPClient) Query(ctx context.Context, aql string, bindVars map[string]any, opts *QueryOptions) (Cursor, error) {
	body := cursorRequest{Query: aql, BindVars: bindVars}
	if opts != nil {
		body.Count = opts.Count
		body.BatchSize = opts.BatchSize
	}

	c.logger.Debug("query", zap.String("aql", aql), zap.Any("bindVars", bindVars))

	var out cursorResponse
	err := c.do(ctx, http.MethodPost, "/_api/cursor", func(r *resty.Request) {
		r.SetBody(body)
	}, &out)
	if err != nil {
		return nil, err
	}
	return newHTTPCursor(c, out), nil
}

// Collection returns a collection handle
func (c *HTTPClient) Collection(name, kind string) Collection {
	if kind == "" {
		kind = DocumentCollection
	}
	return &httpCollection{client: c, name: name, kind: kind}
}

type httpCursor struct {
	client  *HTTPClient
	id      string
	batch   []map[string]any
	hasMore bool
	count   int64
}

func newHTTPCursor(c *HTTPClient, r cursorResponse) *httpCursor {
	cur := &httpCursor{client: c, id: r.ID, batch: r.Result, hasMore: r.HasMore, count: -1}
	if r.Count != nil {
		cur.count = *r.Count
	}
	return cur
}

func (cur *httpCursor) All(ctx context.Context) ([]map[string]any, error) {
	rows := cur.batch
	cur.batch = nil
	for cur.hasMore {
		var out cursorResponse
		err := cur.client.do(ctx, http.MethodPut, "/_api/cursor/{id}", func(r *resty.Request) {
			r.SetPathParam("id", cur.id)
		}, &out)
		if err != nil {
			return rows, err
		}
		rows = append(rows, out.Result...)
		cur.hasMore = out.HasMore
	}
	if rows == nil {
		rows = []map[string]any{}
	}
	return rows, nil
}

func (cur *httpCursor) Count() int64 {
	return cur.count
}

func (cur *httpCursor) Close(ctx context.Context) error {
	if !cur.hasMore || cur.id == "" {
		return nil
	}
	cur.hasMore = false
	err := cur.client.do(ctx, http.MethodDelete, "/_api/cursor/{id}", func(r *resty.Request) {
		r.SetPathParam("id", cur.id)
	}, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

type httpCollection struct {
	client *HTTPClient
	name   string
	kind   string
}

func (col *httpCollection) Name() string {
	return col.name
}

func writeParams(r *resty.Request, opts *WriteOptions) {
	if opts == nil {
		return
	}
	if opts.WaitForSync {
		r.SetQueryParam("waitForSync", "true")
	}
	if opts.ReturnNew {
		r.SetQueryParam("returnNew", "true")
	}
	if opts.Silent {
		r.SetQueryParam("silent", "true")
	}
	if opts.Policy != "" {
		r.SetQueryParam("overwriteMode", opts.Policy)
	}
}

// saved returns the new document when the server included it, else the
// document metadata.
func saved(out map[string]any) map[string]any {
	if doc, ok := out["new"].(map[string]any); ok {
		return doc
	}
	return out
}

func (col *httpCollection) Save(ctx context.Context, doc map[string]any, opts *WriteOptions) (map[string]any, error) {
	out := map[string]any{}
	err := col.client.do(ctx, http.MethodPost, "/_api/document/{collection}", func(r *resty.Request) {
		r.SetPathParam("collection", col.name).SetBody(doc)
		writeParams(r, opts)
	}, &out)
	if err != nil {
		return nil, err
	}
	return saved(out), nil
}

func (col *httpCollection) Replace(ctx context.Context, key string, doc map[string]any, opts *WriteOptions) (map[string]any, error) {
	out := map[string]any{}
	err := col.client.do(ctx, http.MethodPut, "/_api/document/{collection}/{key}", func(r *resty.Request) {
		r.SetPathParams(map[string]string{"collection": col.name, "key": key}).SetBody(doc)
		writeParams(r, opts)
		r.SetQueryParam("returnNew", "true")
		if opts != nil && opts.Rev != "" {
			r.SetHeader("If-Match", opts.Rev)
			r.SetQueryParam("ignoreRevs", "false")
		}
	}, &out)
	if err != nil {
		return nil, err
	}
	return saved(out), nil
}

func (col *httpCollection) RemoveByKeys(ctx context.Context, keys []string, opts *WriteOptions) (int, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	var out []map[string]any
	err := col.client.do(ctx, http.MethodDelete, "/_api/document/{collection}", func(r *resty.Request) {
		r.SetPathParam("collection", col.name).SetBody(keys)
		if opts != nil && opts.WaitForSync {
			r.SetQueryParam("waitForSync", "true")
		}
	}, &out)
	if err != nil {
		return 0, err
	}

	removed := 0
	var first *StorageError
	for _, res := range out {
		if failed, _ := res["error"].(bool); failed {
			if first == nil {
				body, _ := json.Marshal(res)
				first = parseStorageError(http.StatusOK, body)
			}
			continue
		}
		removed++
	}
	if first != nil && removed == 0 {
		return 0, first
	}
	return removed, nil
}

func (col *httpCollection) Truncate(ctx context.Context) error {
	return col.client.do(ctx, http.MethodPut, "/_api/collection/{collection}/truncate", func(r *resty.Request) {
		r.SetPathParam("collection", col.name)
	}, nil)
}

func (col *httpCollection) Count(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	err := col.client.do(ctx, http.MethodGet, "/_api/collection/{collection}/count", func(r *resty.Request) {
		r.SetPathParam("collection", col.name)
	}, &out)
	return out.Count, err
}

func (col *httpCollection) CreateIndex(ctx context.Context, idx IndexOptions) error {
	return col.client.do(ctx, http.MethodPost, "/_api/index", func(r *resty.Request) {
		r.SetQueryParam("collection", col.name).SetBody(idx)
	}, nil)
}

func (col *httpCollection) Create(ctx context.Context) error {
	kind := 2
	if col.kind == EdgeCollection {
		kind = 3
	}
	return col.client.do(ctx, http.MethodPost, "/_api/collection", func(r *resty.Request) {
		r.SetBody(map[string]any{"name": col.name, "type": kind})
	}, nil)
}

func (col *httpCollection) Drop(ctx context.Context) error {
	return col.client.do(ctx, http.MethodDelete, "/_api/collection/{collection}", func(r *resty.Request) {
		r.SetPathParam("collection", col.name)
	}, nil)
}

func (col *httpCollection) Load(ctx context.Context) error {
	return col.client.do(ctx, http.MethodPut, "/_api/collection/{collection}/load", func(r *resty.Request) {
		r.SetPathParam("collection", col.name)
	}, nil)
}
