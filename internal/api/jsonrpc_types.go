package api

import "encoding/json"

// JSON-RPC 2.0 request structure
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSON-RPC 2.0 response structure
type JSONRPCResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      any           `json:"id"`
	Result  any           `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
}

// JSON-RPC 2.0 error structure
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// StoreParams addresses a store
type StoreParams struct {
	Store string `json:"store"`
}

// DocParams addresses or writes a document. Value and TTL are only read by
// the write methods.
type DocParams struct {
	Store string          `json:"store"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value,omitempty"`
	TTL   *int64          `json:"ttl,omitempty"`
}

// QueryParams selects documents of a store
type QueryParams struct {
	Store   string `json:"store"`
	Pattern string `json:"pattern"`
}

// CacheErrorData carries the cache port status of a failed call
type CacheErrorData struct {
	Status int    `json:"status"`
	Kind   string `json:"kind"`
}

// JSON-RPC error codes (following standard)
const (
	JSONRPCParseError     = -32700
	JSONRPCInvalidRequest = -32600
	JSONRPCMethodNotFound = -32601
	JSONRPCInvalidParams  = -32602
	JSONRPCInternalError  = -32603

	// JSONRPCCacheError is returned for every failure reported by the cache
	JSONRPCCacheError = -32000
)
