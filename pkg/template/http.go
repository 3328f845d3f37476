package template

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/PaesslerAG/jsonpath"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-tmplschema/pkg/schema"
)

// ForwardResult is the response of the httpForward endpoint.
type ForwardResult struct {
	StatusCode int
	Body       []byte
}

// FetchHTTP loads every definition with a `url` and returns the values keyed
// by definition name. A `pathQuery` selects part of a JSON response; a value
// the query does not match is left out.
func (t *Template) FetchHTTP(ctx context.Context) (map[string]any, error) {
	var (
		mu   sync.Mutex
		view = map[string]any{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.parallelism)
	for _, def := range t.defs.All() {
		if def.Fetch == nil {
			continue
		}
		g.Go(func() error {
			value, ok, err := t.fetch(gctx, def.Fetch)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			mu.Lock()
			view[def.Name] = value
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return view, nil
}

func (t *Template) fetch(ctx context.Context, f *schema.Fetch) (any, bool, error) {
	target := f.Endpoint.String()
	fail := func(err error) (any, bool, error) {
		return nil, false, &NetworkError{Op: "fetch", URL: target, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fail(err)
	}
	if user, pass, ok := f.Endpoint.BasicAuth(); ok {
		req.SetBasicAuth(user, pass)
	}
	resp, err := t.cfg.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		value = string(body)
	}
	t.cfg.logger.Debug().Str("url", target).Int("status", resp.StatusCode).Msg("fetched definition")

	if f.PathQuery == "" {
		return value, true, nil
	}
	return queryPath(f.PathQuery, value, target)
}

// queryPath evaluates a JSONPath query. Wildcard and filter queries yield
// their first match.
func queryPath(query string, value any, target string) (any, bool, error) {
	eval, err := jsonpath.New(query)
	if err != nil {
		return nil, false, &NetworkError{Op: "fetch", URL: target, Err: fmt.Errorf("invalid pathQuery %q: %w", query, err)}
	}
	result, err := eval(context.Background(), value)
	if err != nil {
		return nil, false, nil
	}
	if list, ok := result.([]any); ok && isMultiMatch(query) {
		if len(list) == 0 {
			return nil, false, nil
		}
		return list[0], true, nil
	}
	return result, true, nil
}

func isMultiMatch(query string) bool {
	return strings.ContainsAny(query, "*?,:") || strings.Contains(query, "..")
}

// FetchAndRender renders the template with fetched values overlaid on
// params.
func (t *Template) FetchAndRender(ctx context.Context, params map[string]any) (string, error) {
	fetched, err := t.FetchHTTP(ctx)
	if err != nil {
		return "", err
	}
	merged := make(map[string]any, len(params)+len(fetched))
	for k, v := range params {
		merged[k] = v
	}
	for k, v := range fetched {
		merged[k] = v
	}
	return t.Render(merged)
}

// ForwardHTTP renders the template and POSTs the result to the httpForward
// url with the template's content type.
func (t *Template) ForwardHTTP(ctx context.Context, params map[string]any) (*ForwardResult, error) {
	if t.HTTPForward == nil {
		return nil, ErrNoHTTPForward
	}
	endpoint, err := schema.ParseEndpoint(t.HTTPForward["url"])
	if err != nil {
		return nil, fmt.Errorf("template: httpForward: %w", err)
	}
	target := endpoint.String()

	output, err := t.FetchAndRender(ctx, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(output))
	if err != nil {
		return nil, &NetworkError{Op: "forward", URL: target, Err: err}
	}
	req.Header.Set("Content-Type", t.ContentType)
	if user, pass, ok := endpoint.BasicAuth(); ok {
		req.SetBasicAuth(user, pass)
	}
	resp, err := t.cfg.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "forward", URL: target, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "forward", URL: target, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{Op: "forward", URL: target, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	t.cfg.logger.Debug().Str("url", target).Int("status", resp.StatusCode).Msg("forwarded rendered template")
	return &ForwardResult{StatusCode: resp.StatusCode, Body: body}, nil
}
