package uplink

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tphakala/proxnode/internal/errors"
	"github.com/tphakala/proxnode/internal/httpclient"
	"github.com/tphakala/proxnode/internal/logger"
	"github.com/tphakala/proxnode/internal/observability/metrics"
	"github.com/tphakala/proxnode/internal/report"
)

// DefaultPath is the aggregator's ingestion route.
const DefaultPath = "/api/anchor_data"

// maxLoggedBody caps how much of a response body is logged.
const maxLoggedBody = 512

// HTTPConfig configures the HTTP transport.
type HTTPConfig struct {
	// Endpoint is the aggregator URL. A URL without a path gets DefaultPath.
	Endpoint string
	Timeout  time.Duration
	// Token, when set, is sent as a bearer token.
	Token string
}

// HTTP posts reports to the aggregator.
type HTTP struct {
	endpoint string
	timeout  time.Duration
	token    string
	client   *httpclient.Client
	enc      report.Encoder
	metrics  *metrics.HTTPMetrics
	log      logger.Logger
}

// roundTrip carries what the client hooks saw back to Send.
type roundTrip struct {
	latency time.Duration
}

type roundTripKey struct{}

// NewHTTP validates cfg and installs the request hooks on client. m may be
// nil.
func NewHTTP(cfg HTTPConfig, client *httpclient.Client, enc report.Encoder, m *metrics.HTTPMetrics) (*HTTP, error) {
	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, errors.New(err).
			Component("uplink").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	h := &HTTP{
		endpoint: endpoint,
		timeout:  cfg.Timeout,
		token:    cfg.Token,
		client:   client,
		enc:      enc,
		metrics:  m,
		log:      GetLogger().Module("http").With(logger.String("endpoint", logger.RedactSensitiveData(endpoint))),
	}
	client.SetBeforeRequestHook(h.authorize)
	client.SetAfterResponseHook(h.observe)
	return h, nil
}

func (h *HTTP) authorize(req *http.Request) {
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
}

func (h *HTTP) observe(req *http.Request, resp *http.Response, _ error, took time.Duration) {
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	h.metrics.ObserveRequest(status, took)
	if rt, ok := req.Context().Value(roundTripKey{}).(*roundTrip); ok {
		rt.latency = took
	}
}

func normalizeEndpoint(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("uplink endpoint is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid uplink endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("uplink endpoint %q must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("uplink endpoint %q has no host", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultPath
	}
	return u.String(), nil
}

func (h *HTTP) Name() string { return TypeHTTP }

// Send posts r. Transport errors, timeouts and non-2xx answers are
// ErrUplinkFailure.
func (h *HTTP) Send(ctx context.Context, r *report.Report) (Result, error) {
	data, err := h.enc.Encode(r)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	rt := &roundTrip{}
	ctx = context.WithValue(ctx, roundTripKey{}, rt)

	resp, err := h.client.Post(ctx, h.endpoint, h.enc.ContentType(), data)
	if err != nil {
		return Result{Latency: rt.latency}, failure(err, TypeHTTP).
			NetworkContext(logger.RedactSensitiveData(h.endpoint), h.timeout).
			Timing("http_post", rt.latency).
			Build()
	}
	defer resp.Body.Close()

	res := Result{Bytes: len(data), StatusCode: resp.StatusCode, Latency: rt.latency}
	body, _ := httpclient.ReadLimited(resp, maxLoggedBody)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		h.log.Debug("aggregator rejected report",
			logger.Int("status", resp.StatusCode),
			logger.String("body", logger.RedactSensitiveData(string(body))))
		return res, failure(fmt.Errorf("aggregator answered %s", resp.Status), TypeHTTP).
			Context("status_code", resp.StatusCode).
			Timing("http_post", rt.latency).
			Build()
	}

	h.log.Debug("report delivered",
		logger.Uint64("sequence", r.Sequence),
		logger.Int("devices", len(r.Measurements)),
		logger.Int("status", resp.StatusCode),
		logger.Duration("latency", rt.latency),
		logger.String("body", logger.RedactSensitiveData(string(body))))
	return res, nil
}

func (h *HTTP) Close() error {
	h.client.Close()
	return nil
}
