package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/leafsii/cache-redis/internal/cache"
)

type rpcMethod func(ctx context.Context, params json.RawMessage) (any, error)

func (h *Handler) rpcMethods() map[string]rpcMethod {
	return map[string]rpcMethod{
		"cache.createStore": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var p StoreParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			return cache.OK(), h.cache.CreateStore(ctx, p.Store)
		},
		"cache.destroyStore": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var p StoreParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			return cache.OK(), h.cache.DestroyStore(ctx, p.Store)
		},
		"cache.createDoc": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var p DocParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			if len(p.Value) == 0 {
				return nil, badRequest("value is required", nil)
			}
			doc, err := h.cache.CreateDoc(ctx, cache.DocInput{Store: p.Store, Key: p.Key, Value: p.Value, TTL: p.TTL})
			return cache.OKDoc(doc), err
		},
		"cache.getDoc": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var p DocParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			doc, err := h.cache.GetDoc(ctx, cache.DocRef{Store: p.Store, Key: p.Key})
			return cache.OKDoc(doc), err
		},
		"cache.updateDoc": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var p DocParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			if len(p.Value) == 0 {
				return nil, badRequest("value is required", nil)
			}
			return cache.OK(), h.cache.UpdateDoc(ctx, cache.DocInput{Store: p.Store, Key: p.Key, Value: p.Value, TTL: p.TTL})
		},
		"cache.deleteDoc": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var p DocParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			return cache.OK(), h.cache.DeleteDoc(ctx, cache.DocRef{Store: p.Store, Key: p.Key})
		},
		"cache.listDocs": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var p QueryParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			docs, err := h.cache.ListDocs(ctx, cache.Query{Store: p.Store, Pattern: p.Pattern})
			return cache.OKDocs(docs), err
		},
		"cache.index": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var p StoreParams
			if err := decodeParams(raw, &p); err != nil {
				return nil, err
			}
			return nil, h.cache.IndexDocs(ctx, p.Store)
		},
	}
}

// HandleJSONRPC handles JSON-RPC 2.0 requests
func (h *Handler) HandleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req JSONRPCRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.sendJSONRPCError(w, nil, JSONRPCParseError, "Parse error", err.Error())
		return
	}

	if req.JSONRPC != "2.0" {
		h.sendJSONRPCError(w, req.ID, JSONRPCInvalidRequest, "Invalid Request", "jsonrpc must be '2.0'")
		return
	}

	method, ok := h.rpcMethods()[req.Method]
	if !ok {
		h.sendJSONRPCError(w, req.ID, JSONRPCMethodNotFound, "Method not found", fmt.Sprintf("Method '%s' not found", req.Method))
		return
	}

	result, err := method(r.Context(), req.Params)
	if err != nil {
		var pe paramsError
		if errors.As(err, &pe) {
			h.sendJSONRPCError(w, req.ID, JSONRPCInvalidParams, "Invalid params", pe.Error())
			return
		}
		e := cache.Classify(err)
		if e.Kind == cache.KindBackend {
			h.logger.Errorw("JSON-RPC call failed", "method", req.Method, "error", err)
		}
		h.sendJSONRPCError(w, req.ID, JSONRPCCacheError, e.Error(), CacheErrorData{Status: e.Status, Kind: string(e.Kind)})
		return
	}

	writeJSON(w, http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	})
}

// paramsError marks a request whose params could not be decoded
type paramsError struct {
	msg string
}

func (e paramsError) Error() string {
	return e.msg
}

func decodeParams(raw json.RawMessage, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return paramsError{msg: "params are required"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return paramsError{msg: err.Error()}
	}
	return nil
}

func (h *Handler) sendJSONRPCError(w http.ResponseWriter, id any, code int, message string, data any) {
	// JSON-RPC errors are sent with HTTP 200
	writeJSON(w, http.StatusOK, JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	})
}
