package mcp

import (
	"errors"

	"github.com/morikuni/failure/v2"
	"github.com/stylusport/handbook-mcp/corpus"
	"github.com/stylusport/handbook-mcp/registry"
	"github.com/stylusport/handbook-mcp/scaffold"
	"github.com/stylusport/handbook-mcp/search"
)

// ErrorCode defines error types for protocol handling
type ErrorCode string

const (
	ProtocolError      ErrorCode = "ProtocolError"
	UnsupportedVersion ErrorCode = "UnsupportedVersion"
	MethodNotFound     ErrorCode = "MethodNotFound"
	NotInitialized     ErrorCode = "NotInitialized"
	ShuttingDown       ErrorCode = "ShuttingDown"
	ResourceNotFound   ErrorCode = "ResourceNotFound"
	InvalidParams      ErrorCode = "InvalidParams"
	EmptyQuery         ErrorCode = "EmptyQuery"
	TransportFailure   ErrorCode = "TransportFailure"
	Internal           ErrorCode = "Internal"
)

func (c ErrorCode) ErrorCode() string {
	return string(c)
}

type codeType interface {
	~string
	ErrorCode() string
}

// codeIn returns the first of codes carried by err.
func codeIn[C codeType](err error, codes ...C) (string, bool) {
	for _, c := range codes {
		if failure.Is(err, c) {
			return c.ErrorCode(), true
		}
	}
	return "", false
}

// handlerCode returns the domain code of a failure raised by a tool,
// resource or prompt handler.
func handlerCode(err error) (string, bool) {
	if c, ok := codeIn(err, EmptyQuery); ok {
		return c, true
	}
	if c, ok := codeIn(err, scaffold.InvalidManifest, scaffold.UnknownProgramKind, scaffold.InvalidPackageName); ok {
		return c, true
	}
	if c, ok := codeIn(err, corpus.EmptyCorpus, corpus.DuplicateDocument, corpus.InvalidDocument, corpus.ReadFailure); ok {
		return c, true
	}
	return codeIn(err, search.DuplicateDocument, search.UnknownField, search.InvalidParams)
}

// versionError carries the negotiation details of a rejected initialize.
type versionError struct {
	requested string
	supported []string
}

func (e *versionError) Error() string {
	return "unsupported protocol version " + e.requested
}

// toRPCError maps a dispatch failure onto a JSON-RPC error object.
func toRPCError(err error) *RPCError {
	message := string(failure.MessageOf(err))
	if message == "" {
		message = err.Error()
	}
	rpcErr := func(code int, kind string) *RPCError {
		return &RPCError{Code: code, Message: message, Data: map[string]any{"error": kind}}
	}

	switch {
	case failure.Is(err, MethodNotFound):
		return rpcErr(codeMethodNotFound, string(MethodNotFound))
	case failure.Is(err, NotInitialized):
		return rpcErr(codeNotInitialized, string(NotInitialized))
	case failure.Is(err, ShuttingDown):
		return rpcErr(codeShuttingDown, string(ShuttingDown))
	case failure.Is(err, ResourceNotFound):
		return rpcErr(codeResourceNotFound, string(ResourceNotFound))
	case failure.Is(err, registry.NotFound):
		return rpcErr(codeNotFound, string(registry.NotFound))
	case failure.Is(err, ProtocolError):
		return rpcErr(codeInvalidRequest, string(ProtocolError))
	case failure.Is(err, UnsupportedVersion):
		e := rpcErr(codeInvalidParams, string(ProtocolError))
		var ve *versionError
		if errors.As(err, &ve) {
			e.Data["requested"] = ve.requested
			e.Data["supported"] = ve.supported
			e.Data["latest"] = ve.supported[0]
		}
		return e
	case failure.Is(err, registry.InvalidParams), failure.Is(err, InvalidParams):
		e := rpcErr(codeInvalidParams, string(InvalidParams))
		var pe *registry.ParamError
		if errors.As(err, &pe) && pe.Field != "" {
			e.Data["field"] = pe.Field
		}
		return e
	}

	if code, ok := handlerCode(err); ok {
		e := rpcErr(codeHandlerError, "HandlerError")
		e.Data["code"] = code
		return e
	}
	return &RPCError{Code: codeInternalError, Message: "internal error", Data: map[string]any{"error": string(Internal)}}
}
