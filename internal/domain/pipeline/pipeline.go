package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Microck/bansho/internal/domain/audit"
	"github.com/Microck/bansho/internal/domain/ratelimit"
	"github.com/Microck/bansho/internal/port/outbound"
)

// Recorder receives the pipeline's metrics observations. It is satisfied by
// internal/telemetry.Metrics; pipeline stays free of any Prometheus import.
type Recorder interface {
	ObserveRequest(method, status string, durationSeconds float64)
	ObserveRateLimitRejection(scope string)
	ObserveAuditWriteFailure()
}

type noopRecorder struct{}

func (noopRecorder) ObserveRequest(string, string, float64) {}
func (noopRecorder) ObserveRateLimitRejection(string)        {}
func (noopRecorder) ObserveAuditWriteFailure()               {}

// reason strings recorded on the audit decision trace, per spec §3/§4.8.
const (
	reasonUnauthorized    = "unauthorized"
	reasonTooManyRequests = "too_many_requests"
	reasonOK              = "ok"
	reasonInternal        = "internal_error"
)

// ToolCallRequest is everything C8 needs to run one tools/call through the
// pipeline: the credential source, the tool name, and its raw arguments.
type ToolCallRequest struct {
	Source    CredentialSource
	ToolName  string
	Arguments json.RawMessage
	Meta      json.RawMessage
}

// ToolCallResult is the pipeline's outcome: either Result is populated (200)
// or Err describes the client-visible failure. Both are accompanied by the
// AuditEvent that was (attempted to be) written regardless of outcome.
type ToolCallResult struct {
	Result json.RawMessage
	Err    *Error
	Event  audit.Event
}

// Pipeline implements C8: the per-request state machine
// AUTHENTICATE -> AUTHORIZE -> RATE -> UPSTREAM -> AUDIT.
type Pipeline struct {
	authenticator *Authenticator
	authorizer    *Authorizer
	limiter       *ratelimit.Limiter
	upstream      outbound.UpstreamClient
	audit         audit.Writer
	logger        *slog.Logger
	recorder      Recorder
	tracer        trace.Tracer
}

// New creates a Pipeline wiring together its collaborators. logger is used
// only for the audit-write swallow-and-log diagnostic (spec §4.6/§7); if nil,
// slog.Default() is used. recorder and tracer may be nil, in which case
// metrics are dropped and spans are no-ops.
func New(authenticator *Authenticator, authorizer *Authorizer, limiter *ratelimit.Limiter, upstream outbound.UpstreamClient, writer audit.Writer, logger *slog.Logger, recorder Recorder, tracer trace.Tracer) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = noopRecorder{}
	}
	if tracer == nil {
		tracer = otel.Tracer("banshogate/pipeline")
	}
	return &Pipeline{
		authenticator: authenticator,
		authorizer:    authorizer,
		limiter:       limiter,
		upstream:      upstream,
		audit:         writer,
		logger:        logger,
		recorder:      recorder,
		tracer:        tracer,
	}
}

// CallTool runs the full state machine for one tools/call.
func (p *Pipeline) CallTool(ctx context.Context, req ToolCallRequest) ToolCallResult {
	start := time.Now()

	ctx, rootSpan := p.tracer.Start(ctx, "tools/call")
	defer rootSpan.End()

	ev := audit.Event{
		ID:       uuid.NewString(),
		Method:   "TOOLS/CALL",
		ToolName: req.ToolName,
		Role:     "unknown",
		Decision: audit.Decision{
			Authz: audit.AuthzDecision{Reason: audit.NotEvaluated},
			Rate:  audit.RateDecision{Reason: audit.NotEvaluated},
		},
	}
	reqJSON, _ := audit.SanitizeToJSON(decodeArguments(req.Arguments))
	ev.RequestJSON = reqJSON

	finish := func(statusCode int, result json.RawMessage, pipelineErr *Error) ToolCallResult {
		ev.StatusCode = statusCode
		ev.Timestamp = start
		ev.LatencyMillis = latencyMillis(start)

		if result != nil {
			respJSON, _ := audit.SanitizeToJSON(decodeArguments(result))
			ev.ResponseJSON = respJSON
		} else if pipelineErr != nil {
			respJSON, _ := audit.SanitizeToJSON(map[string]interface{}{
				"error": map[string]interface{}{
					"code":    pipelineErr.Code,
					"message": pipelineErr.Message,
					"type":    errorType(pipelineErr),
				},
			})
			ev.ResponseJSON = respJSON
		}

		p.recorder.ObserveRequest("tools/call", fmt.Sprintf("%d", statusCode), time.Since(start).Seconds())
		p.writeAudit(ctx, ev)
		return ToolCallResult{Result: result, Err: pipelineErr, Event: ev}
	}

	// AUTHENTICATE
	authenticateCtx, authenticateSpan := p.tracer.Start(ctx, "AUTHENTICATE")
	authCtx, authErr := p.authenticator.Authenticate(authenticateCtx, req.Source)
	authenticateSpan.End()
	if authErr != nil {
		ev.Decision.Auth = audit.AuthDecision{Allowed: false, Reason: reasonUnauthorized}
		return finish(authErr.Code, nil, authErr)
	}
	apiKeyID := authCtx.ApiKeyID
	ev.ApiKeyID = &apiKeyID
	ev.Role = string(authCtx.Role)
	ev.Decision.Auth = audit.AuthDecision{Allowed: true, Reason: reasonOK}

	// AUTHORIZE
	_, authzSpan := p.tracer.Start(ctx, "AUTHORIZE")
	authz := p.authorizer.Authorize(authCtx.Role, req.ToolName)
	authzSpan.End()
	ev.Decision.Authz = audit.AuthzDecision{
		Allowed:     authz.Allowed,
		Reason:      authz.Reason,
		MatchedRule: authz.MatchedRule,
	}
	if !authz.Allowed {
		return finish(Forbidden().Code, nil, Forbidden())
	}

	// RATE
	rateCtx, rateSpan := p.tracer.Start(ctx, "RATE")
	now := time.Now().Unix()
	keyLimit := p.authorizer.PerAPIKeyLimit()
	keyResult, err := p.limiter.CheckAPIKeyLimit(rateCtx, apiKeyID, keyLimit.Requests, keyLimit.WindowSeconds, now)
	if err != nil {
		rateSpan.End()
		ev.Decision.Rate = audit.RateDecision{Reason: reasonInternal}
		return finish(Internal(err).Code, nil, Internal(err))
	}
	toolLimit := p.authorizer.LimitFor(req.ToolName)
	toolResult, err := p.limiter.CheckToolLimit(rateCtx, apiKeyID, req.ToolName, toolLimit.Requests, toolLimit.WindowSeconds, now)
	rateSpan.End()
	if err != nil {
		ev.Decision.Rate = audit.RateDecision{Reason: reasonInternal}
		return finish(Internal(err).Code, nil, Internal(err))
	}
	if !keyResult.Allowed || !toolResult.Allowed {
		ev.Decision.Rate = audit.RateDecision{Allowed: false, Reason: reasonTooManyRequests}
		if !keyResult.Allowed {
			p.recorder.ObserveRateLimitRejection("api_key")
		}
		if !toolResult.Allowed {
			p.recorder.ObserveRateLimitRejection("tool")
		}
		return finish(TooManyRequests().Code, nil, TooManyRequests())
	}
	ev.Decision.Rate = audit.RateDecision{Allowed: true, Reason: reasonOK}

	// UPSTREAM
	upstreamCtx, upstreamSpan := p.tracer.Start(ctx, "UPSTREAM")
	result, rpcErr, err := p.upstream.CallTool(upstreamCtx, req.ToolName, req.Arguments, req.Meta)
	upstreamSpan.End()
	if err != nil {
		// Cancellation/deadline during the upstream call is treated as an
		// internal failure, not an upstream one: the client gave up on us,
		// the upstream didn't refuse anything.
		var pe *Error
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			pe = Internal(err)
		} else {
			pe = UpstreamFailure(err)
		}
		return finish(pe.Code, nil, pe)
	}
	if rpcErr != nil {
		code := rpcErr.Code
		if code == 0 {
			code = 500
		}
		pe := &Error{Code: code, Message: rpcErr.Message, Cause: rpcErr}
		return finish(code, nil, pe)
	}

	return finish(200, result, nil)
}

// Upstream exposes the underlying upstream client for C9's passthrough
// methods (resources/prompts), which bypass the pipeline entirely.
func (p *Pipeline) Upstream() outbound.UpstreamClient {
	return p.upstream
}

// ToolsList runs the simplified tools/list handler (spec §4.8): authenticate,
// call upstream, filter by the authorizer's allow list. No audit row.
func (p *Pipeline) ToolsList(ctx context.Context, src CredentialSource) ([]outbound.ToolInfo, *Error) {
	authCtx, authErr := p.authenticator.Authenticate(ctx, src)
	if authErr != nil {
		return nil, authErr
	}

	tools, err := p.upstream.ListTools(ctx)
	if err != nil {
		return nil, UpstreamFailure(err)
	}

	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	allowed := p.authorizer.FilterTools(authCtx.Role, names)
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, n := range allowed {
		allowedSet[n] = struct{}{}
	}

	out := make([]outbound.ToolInfo, 0, len(allowed))
	for _, t := range tools {
		if _, ok := allowedSet[t.Name]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (p *Pipeline) writeAudit(ctx context.Context, ev audit.Event) {
	if p.audit == nil {
		return
	}
	if err := p.audit.Write(ctx, ev); err != nil {
		p.recorder.ObserveAuditWriteFailure()
		p.logger.Error("audit write failed", "error", err, "event_id", ev.ID, "tool_name", ev.ToolName)
	}
}

// latencyMillis implements spec §4.8's latency formula using a monotonic
// clock: max(round((t_end - t_start) * 1000), 0).
func latencyMillis(start time.Time) int64 {
	elapsed := time.Since(start).Seconds()
	ms := int64(math.Round(elapsed * 1000))
	if ms < 0 {
		return 0
	}
	return ms
}

func errorType(e *Error) string {
	if e.Cause != nil {
		return fmt.Sprintf("%T", e.Cause)
	}
	return fmt.Sprintf("%T", e)
}

func decodeArguments(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
