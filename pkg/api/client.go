package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"faucetui/pkg/config"
	"faucetui/pkg/metrics"
	"faucetui/pkg/models"

	"github.com/cockroachdb/errors"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrTransport marks failures where no usable response came back from the
// service (DNS, refused connection, timeout, unreadable body).
var ErrTransport = errors.New("faucet service unreachable")

const requestIDHeader = "X-Request-ID"

// Client talks to the remote faucet service.
type Client struct {
	http      *resty.Client
	endpoints map[models.Chain]config.EndpointConfig
	log       *zap.Logger
}

// NewClient creates a client for the service at global.APIURL. Each chain
// contributes its endpoint paths.
func NewClient(global config.GlobalConfig, chains []config.ChainConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	endpoints := make(map[models.Chain]config.EndpointConfig, len(chains))
	for _, c := range chains {
		endpoints[c.Chain] = c.Endpoints
	}
	log = log.Named("api")
	httpClient := resty.New().
		SetLogger(log.Sugar()).
		SetBaseURL(global.APIURL).
		SetTimeout(global.Timeout()).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: httpClient, endpoints: endpoints, log: log}
}

// RequestAirdrop submits a token request. A nil error means the service
// answered; the envelope status says whether it granted the request.
func (c *Client) RequestAirdrop(ctx context.Context, chain models.Chain, payload models.AirdropPayload) (models.Envelope[models.AirdropResult], error) {
	var env models.Envelope[models.AirdropResult]
	ep, err := c.endpoint(chain)
	if err != nil {
		return env, err
	}
	req := c.request(ctx).SetBody(payload)
	err = c.do(req, http.MethodPost, ep.Airdrop, "airdrop", chain, &env)
	if err == nil {
		c.log.Debug("airdrop request sent",
			zap.String("chain", string(chain)),
			zap.String("address", payload.Address),
			zap.Float64("amount", payload.Amount),
			zap.String("network", string(payload.Network)),
			zap.String("status", string(env.Status)))
	}
	return env, err
}

// RecentRequests lists the latest requests for chain and network.
func (c *Client) RecentRequests(ctx context.Context, chain models.Chain, network models.Network) (models.Envelope[[]models.AirdropRequest], error) {
	var env models.Envelope[[]models.AirdropRequest]
	ep, err := c.endpoint(chain)
	if err != nil {
		return env, err
	}
	req := c.request(ctx).SetQueryParams(queryParams(chain, network))
	return env, c.do(req, http.MethodGet, ep.RecentRequests, "recent_requests", chain, &env)
}

// Analytics fetches the distribution statistics for chain and network.
func (c *Client) Analytics(ctx context.Context, chain models.Chain, network models.Network) (models.Envelope[models.Analytics], error) {
	var env models.Envelope[models.Analytics]
	ep, err := c.endpoint(chain)
	if err != nil {
		return env, err
	}
	req := c.request(ctx).SetQueryParams(queryParams(chain, network))
	return env, c.do(req, http.MethodGet, ep.Analytics, "analytics", chain, &env)
}

func (c *Client) endpoint(chain models.Chain) (config.EndpointConfig, error) {
	ep, ok := c.endpoints[chain]
	if !ok {
		return ep, errors.Newf("no endpoints configured for chain %q", chain)
	}
	return ep, nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().
		SetContext(ctx).
		SetHeader(requestIDHeader, uuid.NewString())
}

// do executes req and decodes the envelope. Every HTTP status in [200, 600)
// is a normal response whose body carries the outcome.
func (c *Client) do(req *resty.Request, method, path, op string, chain models.Chain, out any) error {
	start := time.Now()
	resp, err := req.Execute(method, path)
	metrics.APIRequestLatency.WithLabelValues(op, string(chain)).Observe(time.Since(start).Seconds())

	outcome := "ok"
	defer func() {
		metrics.APIRequestsTotal.WithLabelValues(op, string(chain), outcome).Inc()
	}()

	if err != nil {
		outcome = "transport_error"
		c.log.Warn("faucet service call failed",
			zap.String("op", op),
			zap.String("chain", string(chain)),
			zap.String("request_id", req.Header.Get(requestIDHeader)),
			zap.Error(err))
		return errors.Mark(errors.Wrapf(err, "%s %s", method, path), ErrTransport)
	}

	code := resp.StatusCode()
	if code < 200 || code >= 600 {
		outcome = "bad_status"
		return errors.Mark(errors.Newf("%s %s: unexpected HTTP status %d", method, path, code), ErrTransport)
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		outcome = "decode_error"
		c.log.Warn("undecodable faucet response",
			zap.String("op", op),
			zap.Int("status", code),
			zap.Error(err))
		return errors.Mark(errors.Wrapf(err, "%s %s: decode response (HTTP %d)", method, path, code), ErrTransport)
	}
	if code >= 400 {
		outcome = "http_error"
	}
	return nil
}

func queryParams(chain models.Chain, network models.Network) map[string]string {
	params := map[string]string{"chain": string(chain)}
	if network != "" {
		params["network"] = string(network)
	}
	return params
}
