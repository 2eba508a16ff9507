package jvsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultCallBudget   = 20 * time.Second
	defaultRetryBackoff = 1 * time.Second
)

// Gateway is the single choke point for server traffic. It owns the bearer
// token, the per-call time budget, and the retry-once policy.
type Gateway struct {
	BaseURL string
	HTTP    *http.Client
	Budget  time.Duration
	Backoff time.Duration

	// TokenFunc reads the live session token; the gateway never caches it.
	TokenFunc func() string

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

func NewGateway(baseURL string) *Gateway {
	return &Gateway{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
		Budget:  defaultCallBudget,
		Backoff: defaultRetryBackoff,
		sleep:   time.Sleep,
	}
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Send issues one API call. Auth failures surface immediately; every other
// failure gets exactly one retry after a fixed backoff.
func (g *Gateway) Send(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	data, err := g.attempt(ctx, method, path, query, body)
	if err == nil {
		return data, nil
	}
	if !g.retryable(err) {
		return nil, err
	}
	if g.sleep != nil {
		g.sleep(g.backoff())
	} else {
		time.Sleep(g.backoff())
	}
	if ctx.Err() != nil {
		return nil, classifyTransport(ctx.Err())
	}
	return g.attempt(ctx, method, path, query, body)
}

func (g *Gateway) attempt(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	budget := g.Budget
	if budget <= 0 {
		budget = defaultCallBudget
	}
	callCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	target := g.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, &ValidationError{Message: "encode request: " + err.Error()}
		}
	}
	req, err := http.NewRequestWithContext(callCtx, method, target, &buf)
	if err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if g.TokenFunc != nil {
		if token := g.TokenFunc(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	client := g.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, &Timeout{Err: callCtx.Err()}
		}
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransport(err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return payload, nil
	}
	return nil, classifyStatus(resp.StatusCode, serverMessage(payload))
}

// retryable excludes only auth failures. Everything else, transport errors
// included, gets the one retry.
func (g *Gateway) retryable(err error) bool {
	switch e := err.(type) {
	case *AuthenticationError:
		return false
	case *ServerError:
		return !isAuthFailure(e.Status, e.Message)
	default:
		return !isAuthFailure(0, err.Error())
	}
}

func (g *Gateway) backoff() time.Duration {
	if g.Backoff > 0 {
		return g.Backoff
	}
	return defaultRetryBackoff
}

// serverMessage extracts the message from the API error envelope, falling
// back to the raw body.
func serverMessage(payload []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(payload, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return strings.TrimSpace(string(payload))
}
