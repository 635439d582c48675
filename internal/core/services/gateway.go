package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/deepcode-labs/deepcode/internal/core/domain"
	"github.com/deepcode-labs/deepcode/internal/core/ports/driven"
	"github.com/deepcode-labs/deepcode/internal/logger"
)

// Gateway invokes agents with timeout, retry and classification of failures.
// It is safe for concurrent use; each Invoke blocks only its caller.
type Gateway struct {
	agents        driven.AgentRegistry
	invocations   driven.InvocationLogger
	metrics       driven.Metrics
	limiter       *rate.Limiter
	maxRetries    int
	retryInterval time.Duration
	now           func() time.Time
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithInvocationLogger records every invocation.
func WithInvocationLogger(l driven.InvocationLogger) GatewayOption {
	return func(g *Gateway) {
		g.invocations = l
	}
}

// WithMetrics records call metrics.
func WithMetrics(m driven.Metrics) GatewayOption {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithRateLimit caps calls per second across all agents. Zero disables it.
func WithRateLimit(perSecond float64) GatewayOption {
	return func(g *Gateway) {
		if perSecond > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithRetry sets the retry budget for transport failures and the initial
// backoff interval.
func WithRetry(maxRetries int, interval time.Duration) GatewayOption {
	return func(g *Gateway) {
		if maxRetries >= 0 {
			g.maxRetries = maxRetries
		}
		if interval > 0 {
			g.retryInterval = interval
		}
	}
}

// NewGateway creates a gateway resolving agents through the registry.
func NewGateway(agents driven.AgentRegistry, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		agents:        agents,
		maxRetries:    domain.DefaultMaxRetries,
		retryInterval: domain.DefaultRetryInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Invoke sends the request to the agent and waits for its result.
// The timeout covers every attempt. Failures are returned inside the result,
// never as a panic or a bare error.
func (g *Gateway) Invoke(ctx context.Context, agentID string, req *domain.AgentRequest, timeout time.Duration) *domain.AgentResult {
	start := g.now()
	result := &domain.AgentResult{
		AgentID:        agentID,
		Stage:          req.Stage,
		SegmentOrdinal: req.Segment.Ordinal,
	}

	if g.metrics != nil {
		g.metrics.InFlight(1)
		defer g.metrics.InFlight(-1)
	}

	agent, err := g.agents.Get(agentID)
	if err != nil {
		result.Failure = domain.NewAgentFailure(domain.FailureUnavailable, err)
		g.finish(req, result, start)
		return result
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	var payload *domain.AgentPayload
	op := func() error {
		if g.limiter != nil {
			if err := g.limiter.Wait(callCtx); err != nil {
				return backoff.Permanent(domain.NewAgentFailure(domain.FailureTimeout, err))
			}
		}
		result.Attempts++
		p, err := call(callCtx, agent, req)
		if err == nil {
			if p == nil {
				p = &domain.AgentPayload{}
			}
			payload = p
			return nil
		}
		if callCtx.Err() != nil {
			return backoff.Permanent(err)
		}
		failure := classify(err)
		if !failure.Kind.Retryable() {
			return backoff.Permanent(failure)
		}
		return failure
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.retryInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(g.maxRetries)), callCtx)

	notify := func(err error, wait time.Duration) {
		logger.Debug("agent %s %s segment %d: retrying in %s after %v",
			agentID, req.Stage, req.Segment.Ordinal, wait, err)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		result.Failure = g.finalFailure(ctx, callCtx, err, result.Attempts)
	} else {
		result.Payload = payload
	}

	g.finish(req, result, start)
	return result
}

// finalFailure maps the last error to the failure kind reported to callers.
func (g *Gateway) finalFailure(parent, call context.Context, err error, attempts int) *domain.AgentFailure {
	switch {
	case parent.Err() != nil:
		return domain.NewAgentFailure(domain.FailureCancelled, parent.Err())
	case errors.Is(call.Err(), context.DeadlineExceeded):
		return domain.NewAgentFailure(domain.FailureTimeout, err)
	}

	failure := classify(err)
	if failure.Kind == domain.FailureTransport {
		return &domain.AgentFailure{
			Kind:    domain.FailureUnavailable,
			Message: fmt.Sprintf("gave up after %d attempts: %s", attempts, failure.Message),
			Err:     failure,
		}
	}
	return failure
}

func (g *Gateway) finish(req *domain.AgentRequest, result *domain.AgentResult, start time.Time) {
	result.CompletedAt = g.now()
	result.Latency = result.CompletedAt.Sub(start)

	outcome := "success"
	errText := ""
	if result.Failure != nil {
		outcome = string(result.Failure.Kind)
		errText = result.Failure.Error()
	}

	if g.invocations != nil {
		g.invocations.Log(domain.Invocation{
			RunID:          req.RunID,
			AgentID:        result.AgentID,
			Stage:          result.Stage,
			SegmentOrdinal: result.SegmentOrdinal,
			Attempts:       result.Attempts,
			Latency:        result.Latency,
			Outcome:        outcome,
			Error:          errText,
			At:             result.CompletedAt,
		})
	}
	if g.metrics != nil {
		g.metrics.AgentCall(result.AgentID, result.Stage, outcome, result.Attempts, result.Latency)
	}
}

// call runs the agent call so that an agent ignoring its context cannot
// hold the caller past the deadline.
func call(ctx context.Context, agent driven.Agent, req *domain.AgentRequest) (*domain.AgentPayload, error) {
	type reply struct {
		payload *domain.AgentPayload
		err     error
	}
	done := make(chan reply, 1)
	go func() {
		p, err := agent.Call(ctx, req)
		done <- reply{p, err}
	}()
	select {
	case r := <-done:
		return r.payload, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// classify turns an agent error into a typed failure. Untyped errors are
// treated as transport failures.
func classify(err error) *domain.AgentFailure {
	if f, ok := domain.AsAgentFailure(err); ok {
		return f
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.NewAgentFailure(domain.FailureTimeout, err)
	case errors.Is(err, context.Canceled):
		return domain.NewAgentFailure(domain.FailureCancelled, err)
	}
	return domain.NewAgentFailure(domain.FailureTransport, err)
}
