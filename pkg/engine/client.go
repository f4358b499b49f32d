package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-go-golems/studioctl/pkg/protocol"
	"github.com/pkg/errors"
)

// Client is the console's view of the execution engine.
type Client interface {
	GetRunState(ctx context.Context, runID string) (protocol.RunStateResponse, error)
	ListArtifactGroups(ctx context.Context, project string) ([]protocol.ArtifactGroupSummary, error)
	ListRuns(ctx context.Context, project string) ([]protocol.RunSummary, error)
	StartRun(ctx context.Context, req protocol.StartRunRequest) (protocol.StartRunResponse, error)
	ConfirmAction(ctx context.Context, endpoint string, payload map[string]any) (protocol.ConfirmActionResult, error)
	StreamChat(ctx context.Context, req protocol.ChatRequest) (<-chan protocol.ChatEvent, error)
}

type Options struct {
	BaseURL string
	// Timeout bounds request/response calls. Chat streams are bounded by ctx.
	Timeout    time.Duration
	HTTPClient *http.Client
}

type HTTPClient struct {
	base    *url.URL
	timeout time.Duration
	hc      *http.Client
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(opts Options) (*HTTPClient, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("missing engine base URL")
	}
	u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse engine URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("engine URL must be http(s), got %q", opts.BaseURL)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &HTTPClient{base: u, timeout: opts.Timeout, hc: hc}, nil
}

func (c *HTTPClient) GetRunState(ctx context.Context, runID string) (protocol.RunStateResponse, error) {
	var out protocol.RunStateResponse
	err := c.do(ctx, http.MethodGet, "/api/runs/"+url.PathEscape(runID), nil, &out)
	return out, err
}

func (c *HTTPClient) ListArtifactGroups(ctx context.Context, project string) ([]protocol.ArtifactGroupSummary, error) {
	out := []protocol.ArtifactGroupSummary{}
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(project)+"/artifacts", nil, &out)
	return out, err
}

func (c *HTTPClient) ListRuns(ctx context.Context, project string) ([]protocol.RunSummary, error) {
	out := []protocol.RunSummary{}
	err := c.do(ctx, http.MethodGet, "/api/projects/"+url.PathEscape(project)+"/runs", nil, &out)
	return out, err
}

func (c *HTTPClient) StartRun(ctx context.Context, req protocol.StartRunRequest) (protocol.StartRunResponse, error) {
	var out protocol.StartRunResponse
	if req.ProjectID == "" {
		return out, errors.New("start run: missing project id")
	}
	if err := c.do(ctx, http.MethodPost, "/api/projects/"+url.PathEscape(req.ProjectID)+"/runs", req, &out); err != nil {
		return out, err
	}
	if out.RunID == "" {
		return out, errors.Errorf("%s: start run returned no run_id", protocol.ErrMalformedPayload)
	}
	return out, nil
}

// ConfirmAction POSTs payload to an endpoint named by a proposed action. The
// endpoint is resolved against the base URL and must stay on the same host.
func (c *HTTPClient) ConfirmAction(ctx context.Context, endpoint string, payload map[string]any) (protocol.ConfirmActionResult, error) {
	var out protocol.ConfirmActionResult
	if payload == nil {
		payload = map[string]any{}
	}
	err := c.do(ctx, http.MethodPost, endpoint, payload, &out)
	return out, err
}

func (c *HTTPClient) resolve(path string) (string, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return "", errors.Wrapf(err, "parse endpoint %q", path)
	}
	u := c.base.ResolveReference(ref)
	if ref.IsAbs() || ref.Host != "" {
		if u.Host != c.base.Host {
			return "", errors.Errorf("endpoint %q is not on the engine host", path)
		}
	} else if strings.HasPrefix(path, "/") && c.base.Path != "" {
		u.Path = c.base.Path + ref.Path
	}
	return u.String(), nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "marshal request")
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, r)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s: %s %s", protocol.ErrTransport, method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "%s: read %s %s", protocol.ErrTransport, method, path)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, out); err != nil {
		return errors.Wrapf(err, "%s: decode %s %s", protocol.ErrMalformedPayload, method, path)
	}
	return nil
}
