// Package stdio implements C9's reference inbound transport: an MCP server
// loop over the process's own stdin/stdout, routing each JSON-RPC request
// to the pipeline by method name.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"

	"github.com/Microck/bansho/internal/domain/pipeline"
	"github.com/Microck/bansho/internal/port/outbound"
	banshomcp "github.com/Microck/bansho/pkg/mcp"
)

const (
	methodInitialize     = "initialize"
	methodToolsList      = "tools/list"
	methodToolsCall      = "tools/call"
	methodResourcesList  = "resources/list"
	methodResourcesRead  = "resources/read"
	methodPromptsList    = "prompts/list"
	methodPromptsGet     = "prompts/get"
	scannerInitialBuffer = 256 * 1024
	scannerMaxBuffer     = 4 * 1024 * 1024
)

// Listener serves MCP requests read from in and writes responses to out,
// dispatching tools/call and tools/list through the pipeline and forwarding
// everything else (resources/prompts) directly upstream, exempt from
// authorization and audit per spec §9.
type Listener struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

// New creates a Listener backed by p.
func New(p *pipeline.Pipeline, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{pipeline: p, logger: logger}
}

// Serve reads newline-delimited JSON-RPC messages from in until EOF or ctx
// is cancelled, writing one response per request to out. Notifications
// (requests with no ID) are ignored and never answered.
func (l *Listener) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, scannerInitialBuffer)
	scanner.Buffer(buf, scannerMaxBuffer)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		raw := append([]byte(nil), scanner.Bytes()...)
		if len(raw) == 0 {
			continue
		}

		msg := banshomcp.WrapMessage(raw, banshomcp.ClientToServer)
		if !msg.IsRequest() {
			if msg.Decoded == nil {
				l.logger.Warn("discarding unparseable message")
			}
			continue
		}

		resp := l.handle(ctx, msg)
		if resp == nil {
			continue // notification: no response expected
		}
		if err := writeResponse(out, resp); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (l *Listener) handle(ctx context.Context, msg *banshomcp.Message) *jsonrpc.Response {
	req := msg.Request()
	if req == nil || !req.ID.IsValid() {
		return nil
	}

	switch msg.Method() {
	case methodInitialize:
		return l.handleInitialize(ctx, req)
	case methodToolsCall:
		return l.handleToolsCall(ctx, msg)
	case methodToolsList:
		return l.handleToolsList(ctx, msg)
	case methodResourcesList, methodResourcesRead, methodPromptsList, methodPromptsGet:
		return l.handlePassthrough(ctx, req)
	default:
		return errorResponse(req.ID, 500, "Internal Server Error")
	}
}

// handleInitialize re-advertises the upstream's own initialize response, so
// a client sees the real upstream's serverInfo/capabilities (spec §4.9)
// rather than anything banshogate fabricates.
func (l *Listener) handleInitialize(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	info, caps, err := l.pipeline.Upstream().Initialize(ctx)
	if err != nil {
		return errorResponse(req.ID, 502, "Upstream request failed")
	}
	resultJSON, marshalErr := json.Marshal(map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"serverInfo":      info,
		"capabilities":    caps,
	})
	if marshalErr != nil {
		return errorResponse(req.ID, 500, "Internal Server Error")
	}
	return &jsonrpc.Response{ID: req.ID, Result: resultJSON}
}

func (l *Listener) handleToolsCall(ctx context.Context, msg *banshomcp.Message) *jsonrpc.Response {
	req := msg.Request()

	result := l.pipeline.CallTool(ctx, pipeline.ToolCallRequest{
		Source:    pipeline.CredentialSource{Meta: msg.MetaFromParams()},
		ToolName:  msg.ToolCallName(),
		Arguments: msg.ToolCallArguments(),
		Meta:      msg.RawMeta(),
	})
	if result.Err != nil {
		return errorResponse(req.ID, result.Err.Code, result.Err.Message)
	}
	return &jsonrpc.Response{ID: req.ID, Result: result.Result}
}

func (l *Listener) handleToolsList(ctx context.Context, msg *banshomcp.Message) *jsonrpc.Response {
	req := msg.Request()

	tools, err := l.pipeline.ToolsList(ctx, pipeline.CredentialSource{Meta: msg.MetaFromParams()})
	if err != nil {
		return errorResponse(req.ID, err.Code, err.Message)
	}
	resultJSON, marshalErr := json.Marshal(map[string]interface{}{"tools": tools})
	if marshalErr != nil {
		return errorResponse(req.ID, 500, "Internal Server Error")
	}
	return &jsonrpc.Response{ID: req.ID, Result: resultJSON}
}

// handlePassthrough forwards resources/prompts methods straight to the
// upstream client, bypassing authentication, authorization, rate limiting
// and audit, per spec §9's resolved open question.
func (l *Listener) handlePassthrough(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	var result json.RawMessage
	var rpcErr *outbound.RPCError
	var err error

	switch req.Method {
	case methodResourcesList:
		result, rpcErr, err = l.pipeline.Upstream().ListResources(ctx, req.Params)
	case methodResourcesRead:
		result, rpcErr, err = l.pipeline.Upstream().ReadResource(ctx, req.Params)
	case methodPromptsList:
		result, rpcErr, err = l.pipeline.Upstream().ListPrompts(ctx, req.Params)
	case methodPromptsGet:
		result, rpcErr, err = l.pipeline.Upstream().GetPrompt(ctx, req.Params)
	default:
		return errorResponse(req.ID, 500, "Internal Server Error")
	}

	if err != nil {
		return errorResponse(req.ID, 502, "Upstream request failed")
	}
	if rpcErr != nil {
		return &jsonrpc.Response{ID: req.ID, Error: &jsonrpc.Error{Code: -32000, Message: rpcErr.Error()}}
	}
	return &jsonrpc.Response{ID: req.ID, Result: result}
}

func errorResponse(id jsonrpc.ID, code int, message string) *jsonrpc.Response {
	return &jsonrpc.Response{ID: id, Error: &jsonrpc.Error{Code: code, Message: message}}
}

func writeResponse(out io.Writer, resp *jsonrpc.Response) error {
	raw, err := jsonrpc.EncodeMessage(resp)
	if err != nil {
		return err
	}
	_, err = out.Write(append(raw, '\n'))
	return err
}
