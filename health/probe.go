package health

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/agentfleet/controlplane/types"
)

// probe issues up to cfg.Retries attempts against agentID's health
// endpoint, stopping at the first attempt that completes without a
// transport or HTTP-status failure. The reported result is always the
// last attempt made.
func (c *Checker) probe(ctx context.Context, agentID types.AgentID, endpoint string, cfg Config) Result {
	probeCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	attempts := cfg.Retries
	if attempts < 1 {
		attempts = 1
	}

	var last Result
	for attempt := 0; attempt < attempts; attempt++ {
		last = c.attempt(probeCtx, endpoint, agentID, cfg)
		if last.Error == "" {
			break
		}
		if probeCtx.Err() != nil {
			break
		}
	}
	return last
}

func (c *Checker) attempt(ctx context.Context, endpoint string, agentID types.AgentID, cfg Config) Result {
	start := time.Now()

	var (
		req *http.Request
		err error
	)
	if len(cfg.CustomBody) > 0 {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(cfg.CustomBody))
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}
	if err != nil {
		return Result{AgentID: agentID, Status: types.HealthUnhealthy, Timestamp: time.Now(), Error: err.Error()}
	}
	for k, v := range cfg.CustomHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	responseTime := time.Since(start)
	if err != nil {
		return Result{
			AgentID: agentID, Status: types.HealthUnhealthy,
			ResponseTime: responseTime, Timestamp: time.Now(),
			Error: err.Error(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{
			AgentID: agentID, Status: types.HealthUnhealthy,
			ResponseTime: responseTime, Timestamp: time.Now(),
			Details: Details{HTTPStatus: resp.StatusCode},
			Error:   fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	bodyBytes, _ := io.ReadAll(resp.Body)
	var parsed map[string]any
	_ = json.Unmarshal(bodyBytes, &parsed)

	size := resp.ContentLength
	if size < 0 {
		size = int64(len(bodyBytes))
	}

	status, explicit := statusFromBody(parsed)
	if !explicit {
		status = classifyByLatency(responseTime)
	}

	return Result{
		AgentID: agentID, Status: status,
		ResponseTime: responseTime, Timestamp: time.Now(),
		Details: Details{HTTPStatus: resp.StatusCode, ResponseSize: size, Body: parsed},
	}
}
