package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/morikuni/failure/v2"
	"github.com/stylusport/handbook-mcp/log"
	"github.com/stylusport/handbook-mcp/registry"
)

// Dispatcher routes methods to the session and tracks the session phase.
// It is safe for concurrent use.
type Dispatcher struct {
	session    *Session
	phase      atomic.Int32
	negotiated atomic.Pointer[string]
}

// NewDispatcher returns an uninitialized dispatcher for s.
func NewDispatcher(s *Session) *Dispatcher {
	return &Dispatcher{session: s}
}

// Phase returns the current lifecycle phase.
func (d *Dispatcher) Phase() Phase {
	return Phase(d.phase.Load())
}

// Shutdown moves the dispatcher to PhaseShutdown. Every later call fails
// with ShuttingDown.
func (d *Dispatcher) Shutdown() {
	d.phase.Store(int32(PhaseShutdown))
}

// ProtocolVersion returns the version agreed by the last initialize.
func (d *Dispatcher) ProtocolVersion() string {
	if v := d.negotiated.Load(); v != nil {
		return *v
	}
	return ""
}

type listChanged struct {
	ListChanged bool `json:"listChanged"`
}

type serverCapabilities struct {
	Tools     listChanged `json:"tools"`
	Resources listChanged `json:"resources"`
	Prompts   listChanged `json:"prompts"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
	Instructions    string             `json:"instructions,omitempty"`
}

// Dispatch serves one method call and returns its JSON-encodable result.
func (d *Dispatcher) Dispatch(ctx context.Context, method string, params json.RawMessage) (any, error) {
	m := ParseMethod(method)
	if d.Phase() == PhaseShutdown {
		return nil, failure.New(ShuttingDown,
			failure.Message("server is shutting down"),
			failure.Context{"method": method},
		)
	}
	if m.requiresReady() && d.Phase() != PhaseReady {
		return nil, failure.New(NotInitialized,
			failure.Message("server is not initialized"),
			failure.Context{"method": method},
		)
	}
	if m == MethodUnknown {
		return nil, failure.New(MethodNotFound,
			failure.Message("method not found: "+method),
			failure.Context{"method": method},
		)
	}

	s := d.session
	switch m {
	case MethodInitialize:
		return d.initialize(ctx, params)
	case MethodInitialized, MethodCancelled:
		return nil, nil
	case MethodPing:
		return struct{}{}, nil
	case MethodResourcesList:
		return mcp.ListResourcesResult{Resources: s.resources.List()}, nil
	case MethodResourceTemplatesList:
		return mcp.ListResourceTemplatesResult{ResourceTemplates: []mcp.ResourceTemplate{}}, nil
	case MethodResourcesRead:
		return d.readResource(ctx, params)
	case MethodToolsList:
		return mcp.ListToolsResult{Tools: s.tools.List()}, nil
	case MethodToolsCall:
		return d.callTool(ctx, params)
	case MethodPromptsList:
		return mcp.ListPromptsResult{Prompts: s.prompts.List()}, nil
	case MethodPromptsGet:
		return d.getPrompt(ctx, params)
	}
	return nil, failure.New(MethodNotFound, failure.Message("method not found: "+method))
}

func (d *Dispatcher) initialize(ctx context.Context, params json.RawMessage) (any, error) {
	type InitializeParams struct {
		ProtocolVersion string `json:"protocolVersion" validate:"required"`
		ClientInfo      struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"clientInfo"`
	}
	var p InitializeParams
	if err := decodeParams(ctx, params, &p); err != nil {
		return nil, err
	}

	s := d.session
	if !slices.Contains(s.versions, p.ProtocolVersion) {
		return nil, failure.Wrap(&versionError{requested: p.ProtocolVersion, supported: s.versions},
			failure.WithCode(UnsupportedVersion),
			failure.Message("unsupported protocol version "+p.ProtocolVersion+
				", latest supported is "+s.versions[0]+" (supported: "+strings.Join(s.versions, ", ")+")"),
		)
	}

	for {
		cur := d.phase.Load()
		if Phase(cur) == PhaseShutdown {
			return nil, failure.New(ShuttingDown, failure.Message("server is shutting down"))
		}
		if d.phase.CompareAndSwap(cur, int32(PhaseReady)) {
			break
		}
	}
	version := p.ProtocolVersion
	d.negotiated.Store(&version)
	log.Info("Session initialized",
		"protocol_version", version,
		"client", p.ClientInfo.Name,
		"client_version", p.ClientInfo.Version,
	)

	return initializeResult{
		ProtocolVersion: version,
		ServerInfo:      s.info,
		Instructions:    instructions,
	}, nil
}

func (d *Dispatcher) readResource(ctx context.Context, params json.RawMessage) (any, error) {
	type ReadParams struct {
		URI string `json:"uri" validate:"required"`
	}
	var p ReadParams
	if err := decodeParams(ctx, params, &p); err != nil {
		return nil, err
	}
	if _, ok := d.session.resources.Lookup(p.URI); !ok {
		return nil, failure.New(ResourceNotFound,
			failure.Message("resource URI not found: "+p.URI),
			failure.Context{"uri": p.URI},
		)
	}
	return d.session.resources.Invoke(ctx, p.URI, nil)
}

func (d *Dispatcher) callTool(ctx context.Context, params json.RawMessage) (any, error) {
	type CallParams struct {
		Name      string         `json:"name" validate:"required"`
		Arguments map[string]any `json:"arguments"`
	}
	var p CallParams
	if err := decodeParams(ctx, params, &p); err != nil {
		return nil, err
	}
	return d.session.tools.Invoke(ctx, p.Name, p.Arguments)
}

func (d *Dispatcher) getPrompt(ctx context.Context, params json.RawMessage) (any, error) {
	type GetParams struct {
		Name      string         `json:"name" validate:"required"`
		Arguments map[string]any `json:"arguments"`
	}
	var p GetParams
	if err := decodeParams(ctx, params, &p); err != nil {
		return nil, err
	}
	return d.session.prompts.Invoke(ctx, p.Name, p.Arguments)
}

// decodeParams decodes a params object into out. Absent params decode
// as an empty object.
func decodeParams(ctx context.Context, params json.RawMessage, out any) error {
	args := map[string]any{}
	if p := bytes.TrimSpace(params); len(p) > 0 && !bytes.Equal(p, []byte("null")) {
		if err := json.Unmarshal(p, &args); err != nil {
			return failure.Wrap(err,
				failure.WithCode(InvalidParams),
				failure.Message("params must be an object"),
			)
		}
	}
	return registry.Decode(ctx, args, out)
}
