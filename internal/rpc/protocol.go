package rpc

import "encoding/json"

/*
LEARNING: JSON-RPC 2.0 ENVELOPE

Request:       {"jsonrpc":"2.0","id":7,"method":"playback_tick","params":{...}}
Response:      {"jsonrpc":"2.0","id":7,"result":{...}}
               {"jsonrpc":"2.0","id":7,"error":{"code":-32000,"message":"..."}}
Notification:  {"jsonrpc":"2.0","method":"filters_changed","params":{...}}   (no id)

The id is opaque: whatever the client sent (number, string or null) is echoed
back byte for byte, so it is kept as json.RawMessage and never interpreted.
*/

const Version = "2.0"

// Error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeOperation      = -32000
)

// Request is an incoming call
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response answers exactly one Request
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is the error member of a failed Response
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Notification is a server-initiated message that expects no reply
type Notification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// Success builds a result response
func Success(id json.RawMessage, result interface{}) *Response {
	return &Response{JSONRPC: Version, ID: normalizeID(id), Result: result}
}

// Failure builds an error response
func Failure(id json.RawMessage, code int, message string) *Response {
	return &Response{JSONRPC: Version, ID: normalizeID(id), Error: &Error{Code: code, Message: message}}
}

// NewNotification builds a notification
func NewNotification(method string, params interface{}) *Notification {
	return &Notification{JSONRPC: Version, Method: method, Params: params}
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 {
		return json.RawMessage("null")
	}
	return id
}
