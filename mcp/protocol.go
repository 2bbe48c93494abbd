package mcp

import (
	"bytes"
	"encoding/json"
	"regexp"
)

const jsonrpcVersion = "2.0"

// JSON-RPC 2.0 error codes.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603

	codeNotInitialized   = -32001
	codeResourceNotFound = -32002
	codeShuttingDown     = -32003
	codeNotFound         = -32004
	codeHandlerError     = -32010
)

type messageKind int

const (
	kindRequest messageKind = iota
	kindNotification
	kindResponse
)

// message is one decoded JSON-RPC envelope.
type message struct {
	kind   messageKind
	id     json.RawMessage // nil for notifications
	method string
	params json.RawMessage
}

// RPCError is the error member of a response.
type RPCError struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// envelopeError is a decode failure that is answered instead of dispatched.
type envelopeError struct {
	id    json.RawMessage
	err   *RPCError
	fatal bool
}

func (e *envelopeError) Error() string {
	return e.err.Message
}

func invalidRequest(id json.RawMessage, msg string) *envelopeError {
	return &envelopeError{id: id, err: &RPCError{
		Code:    codeInvalidRequest,
		Message: msg,
		Data:    map[string]any{"error": string(ProtocolError)},
	}}
}

func parseError(id json.RawMessage, msg string) *envelopeError {
	return &envelopeError{id: id, fatal: id == nil, err: &RPCError{
		Code:    codeParseError,
		Message: msg,
		Data:    map[string]any{"error": string(ProtocolError)},
	}}
}

// decodeFrame splits a frame into its envelopes. A JSON array is a batch
// and yields one entry per element. Entries that fail to decode are
// returned as *envelopeError values alongside the good ones.
func decodeFrame(frame []byte) ([]message, []*envelopeError) {
	frame = bytes.TrimSpace(frame)
	if len(frame) > 0 && frame[0] == '[' {
		var elems []json.RawMessage
		if err := json.Unmarshal(frame, &elems); err != nil {
			return nil, []*envelopeError{parseError(nil, "batch is not valid JSON")}
		}
		if len(elems) == 0 {
			return nil, []*envelopeError{invalidRequest(nil, "empty batch")}
		}
		var msgs []message
		var errs []*envelopeError
		for _, elem := range elems {
			msg, err := decodeEnvelope(elem)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			msgs = append(msgs, msg)
		}
		return msgs, errs
	}

	msg, err := decodeEnvelope(frame)
	if err != nil {
		return nil, []*envelopeError{err}
	}
	return []message{msg}, nil
}

func decodeEnvelope(raw []byte) (message, *envelopeError) {
	if !json.Valid(raw) {
		return message{}, parseError(recoverID(raw), "message is not valid JSON")
	}

	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return message{}, invalidRequest(nil, "message must be a JSON object")
	}

	rawID, hasID := object["id"]
	id, ok := normalizeID(rawID)
	if hasID && !ok {
		return message{}, invalidRequest(nil, "id must be a string, number or null")
	}

	var version string
	if err := json.Unmarshal(object["jsonrpc"], &version); err != nil || version != jsonrpcVersion {
		return message{}, invalidRequest(id, `jsonrpc must be "2.0"`)
	}

	rawMethod, hasMethod := object["method"]
	if !hasMethod {
		_, hasResult := object["result"]
		_, hasError := object["error"]
		if hasResult || hasError {
			return message{kind: kindResponse, id: id}, nil
		}
		return message{}, invalidRequest(id, "message has neither method nor result")
	}

	var method string
	if err := json.Unmarshal(rawMethod, &method); err != nil || method == "" {
		return message{}, invalidRequest(id, "method must be a non-empty string")
	}

	params := object["params"]
	if p := bytes.TrimSpace(params); len(p) > 0 && p[0] != '{' && p[0] != '[' && !bytes.Equal(p, []byte("null")) {
		return message{}, invalidRequest(id, "params must be an object or array")
	}

	msg := message{kind: kindNotification, method: method, params: params}
	if hasID {
		if id == nil {
			return message{}, invalidRequest(nil, "request id must not be null")
		}
		msg.kind = kindRequest
		msg.id = id
	}
	return msg, nil
}

// normalizeID returns the compact id, nil for an absent or null id, and
// false for ids that are not strings or numbers.
func normalizeID(raw json.RawMessage) (json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case string, float64:
		return raw, true
	}
	return nil, false
}

var idPattern = regexp.MustCompile(`"id"\s*:\s*("(?:[^"\\]|\\.)*"|-?\d+(?:\.\d+)?(?:[eE][+-]?\d+)?)`)

// recoverID extracts the id from a message that failed to parse.
func recoverID(raw []byte) json.RawMessage {
	m := idPattern.FindSubmatch(raw)
	if m == nil {
		return nil
	}
	id, ok := normalizeID(m[1])
	if !ok {
		return nil
	}
	return id
}

func encodeResponse(r response) []byte {
	r.JSONRPC = jsonrpcVersion
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(response{
			JSONRPC: jsonrpcVersion,
			ID:      r.ID,
			Error:   &RPCError{Code: codeInternalError, Message: "failed to encode response"},
		})
	}
	return b
}
