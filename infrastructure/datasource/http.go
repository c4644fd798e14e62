package datasource

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/reglet-dev/reglet-oracle/domain/entities"
	domainerrors "github.com/reglet-dev/reglet-oracle/domain/errors"
	"github.com/reglet-dev/reglet-oracle/hostfuncs"
)

// IDPlaceholder is replaced by the decimal data id in an HTTPSource URL template.
const IDPlaceholder = "{id}"

// HTTPSource fetches off-chain values with GET requests.
// The current data id is the highest id fetched so far unless one is fixed
// with WithCurrentDataID.
type HTTPSource struct {
	client      *http.Client
	selector    Selector
	logger      *slog.Logger
	headers     map[string]string
	fixedID     *entities.DataID
	urlTemplate string
	maxBodySize int

	mu        sync.Mutex
	highestID entities.DataID
	seen      bool
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*httpConfig)

type httpConfig struct {
	client       *http.Client
	logger       *slog.Logger
	headers      map[string]string
	fixedID      *entities.DataID
	selector     string
	egress       []EgressOption
	timeout      time.Duration
	maxBodySize  int
	egressGuard  bool
	maxRedirects int
}

func defaultHTTPConfig() httpConfig {
	return httpConfig{
		timeout:      10 * time.Second,
		maxBodySize:  hostfuncs.DefaultMaxSourceResponseSize,
		maxRedirects: 5,
		headers:      map[string]string{"Accept": "application/json"},
	}
}

// WithSelector sets the value selector expression (see ParseSelector).
func WithSelector(expr string) HTTPOption {
	return func(c *httpConfig) {
		c.selector = expr
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *httpConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodySize sets the maximum response size; larger responses fail.
func WithMaxBodySize(n int) HTTPOption {
	return func(c *httpConfig) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithHeader adds a request header.
func WithHeader(key, value string) HTTPOption {
	return func(c *httpConfig) {
		c.headers[key] = value
	}
}

// WithEgressGuard checks every request target with ValidateAddress and pins
// the connection to the validated IP.
func WithEgressGuard(opts ...EgressOption) HTTPOption {
	return func(c *httpConfig) {
		c.egressGuard = true
		c.egress = opts
	}
}

// WithHTTPClient replaces the HTTP client. The egress guard and timeout
// options are ignored when a client is given.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(c *httpConfig) {
		c.client = client
	}
}

// WithCurrentDataID fixes the id reported by CurrentDataID.
func WithCurrentDataID(id entities.DataID) HTTPOption {
	return func(c *httpConfig) {
		c.fixedID = &id
	}
}

// WithHTTPLogger sets the logger.
func WithHTTPLogger(l *slog.Logger) HTTPOption {
	return func(c *httpConfig) {
		c.logger = l
	}
}

// NewHTTPSource creates an HTTPSource for urlTemplate, which must contain
// IDPlaceholder.
func NewHTTPSource(urlTemplate string, opts ...HTTPOption) (*HTTPSource, error) {
	cfg := defaultHTTPConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if !strings.Contains(urlTemplate, IDPlaceholder) {
		return nil, fmt.Errorf("url template %q has no %s placeholder", urlTemplate, IDPlaceholder)
	}
	if !strings.HasPrefix(urlTemplate, "http://") && !strings.HasPrefix(urlTemplate, "https://") {
		return nil, fmt.Errorf("url template %q must be http or https", urlTemplate)
	}

	sel, err := ParseSelector(cfg.selector)
	if err != nil {
		return nil, err
	}

	client := cfg.client
	if client == nil {
		client = newHTTPClient(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPSource{
		client:      client,
		selector:    sel,
		logger:      logger,
		headers:     cfg.headers,
		fixedID:     cfg.fixedID,
		urlTemplate: urlTemplate,
		maxBodySize: cfg.maxBodySize,
	}, nil
}

// Name implements the source label used in errors and metrics.
func (s *HTTPSource) Name() string { return "http" }

// URL returns the request URL for id.
func (s *HTTPSource) URL(id entities.DataID) string {
	return strings.ReplaceAll(s.urlTemplate, IDPlaceholder, strconv.FormatUint(id, 10))
}

// Fetch performs one GET request for id and returns the selected value.
func (s *HTTPSource) Fetch(ctx context.Context, id entities.DataID) ([]byte, error) {
	s.observe(id)

	url := s.URL(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, s.fail(id, err)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.fail(id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	s.logger.DebugContext(ctx, "datasource: http response",
		"url", url, "status", resp.StatusCode, "latency", time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return nil, s.fail(id, domainerrors.ErrDataNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, s.fail(id, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body := hostfuncs.NewBoundedBuffer(s.maxBodySize)
	if _, err := io.Copy(body, resp.Body); err != nil {
		return nil, s.fail(id, fmt.Errorf("read body: %w", err))
	}
	if body.Truncated {
		return nil, s.fail(id, fmt.Errorf("response exceeds %d bytes", s.maxBodySize))
	}

	value, err := s.selector(body.Bytes())
	if err != nil {
		return nil, s.fail(id, err)
	}
	return value, nil
}

// CurrentDataID returns the fixed id, or the highest id fetched so far.
func (s *HTTPSource) CurrentDataID(context.Context) (entities.DataID, error) {
	if s.fixedID != nil {
		return *s.fixedID, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seen {
		return 0, &domainerrors.SourceError{Err: domainerrors.ErrDataNotFound, Source: s.Name()}
	}
	return s.highestID, nil
}

func (s *HTTPSource) observe(id entities.DataID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seen || id > s.highestID {
		s.highestID = id
		s.seen = true
	}
}

func (s *HTTPSource) fail(id entities.DataID, err error) error {
	return &domainerrors.SourceError{Err: err, Source: s.Name(), DataID: id}
}

func newHTTPClient(cfg httpConfig) *http.Client {
	transport := &http.Transport{
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	var rt http.RoundTripper = transport
	if cfg.egressGuard {
		rt = &pinningTransport{base: transport, egress: cfg.egress}
	}

	maxRedirects := cfg.maxRedirects
	return &http.Client{
		Timeout:   cfg.timeout,
		Transport: rt,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// ErrEgressBlocked is returned when the egress guard rejects a request target.
var ErrEgressBlocked = errors.New("egress blocked")

// pinningTransport validates each request target and dials the validated IP,
// so a second DNS answer cannot redirect the connection. One transport is kept
// per scheme, host, IP and port so connections to the same target are reused.
type pinningTransport struct {
	base   *http.Transport
	egress []EgressOption

	mu     sync.Mutex
	pinned map[string]*http.Transport
}

func (t *pinningTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	hostname := req.URL.Hostname()

	decision := ValidateAddress(hostname, t.egress...)
	if !decision.Allowed {
		return nil, fmt.Errorf("%w: %s: %s", ErrEgressBlocked, hostname, decision.Reason)
	}

	resolvedIP := decision.ResolvedIP
	if resolvedIP == "" {
		resolvedIP = hostname
	}

	port := req.URL.Port()
	if port == "" {
		port = "80"
		if req.URL.Scheme == "https" {
			port = "443"
		}
	}

	return t.transportFor(req.URL.Scheme, hostname, resolvedIP, port).RoundTrip(req)
}

func (t *pinningTransport) transportFor(scheme, hostname, ip, port string) *http.Transport {
	key := scheme + "://" + hostname + "@" + net.JoinHostPort(ip, port)

	t.mu.Lock()
	defer t.mu.Unlock()
	if pinned, ok := t.pinned[key]; ok {
		return pinned
	}

	pinned := t.base.Clone()
	addr := net.JoinHostPort(ip, port)
	pinned.DialContext = func(ctx context.Context, network, _ string) (net.Conn, error) {
		return (&net.Dialer{}).DialContext(ctx, network, addr)
	}
	if scheme == "https" {
		if pinned.TLSClientConfig == nil {
			pinned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		pinned.TLSClientConfig.ServerName = hostname
	}

	if t.pinned == nil {
		t.pinned = make(map[string]*http.Transport)
	}
	t.pinned[key] = pinned
	return pinned
}

// CloseIdleConnections closes idle connections of every pinned transport.
func (t *pinningTransport) CloseIdleConnections() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, pinned := range t.pinned {
		pinned.CloseIdleConnections()
	}
}
