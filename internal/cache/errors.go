package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/leafsii/cache-redis/pkg/kv"
)

// Kind identifies a class of cache failure
type Kind string

const (
	KindStoreNotFound    Kind = "StoreNotFound"
	KindDocumentConflict Kind = "DocumentConflict"
	KindDocumentNotFound Kind = "DocumentNotFound"
	KindNotImplemented   Kind = "NotImplemented"
	KindBadRequest       Kind = "BadRequest"
	KindBackend          Kind = "BackendError"
)

// Error is the uniform failure shape of every adapter operation. Status is the
// HTTP-style status code the cache port reports for it.
type Error struct {
	Kind   Kind
	Status int
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Kind so errors.Is(err, ErrBadRequest) holds for any bad request
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrStoreNotFound    = &Error{Kind: KindStoreNotFound, Status: http.StatusBadRequest, Msg: "Store does not exist"}
	ErrDocumentConflict = &Error{Kind: KindDocumentConflict, Status: http.StatusConflict, Msg: "Document Conflict"}
	ErrDocumentNotFound = &Error{Kind: KindDocumentNotFound, Status: http.StatusNotFound, Msg: "document not found"}
	ErrNotImplemented   = &Error{Kind: KindNotImplemented, Status: http.StatusNotImplemented, Msg: "Not Implemented"}
	ErrBadRequest       = &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Msg: "bad request"}
	ErrBackend          = &Error{Kind: KindBackend, Status: http.StatusInternalServerError, Msg: "backend error"}
)

func badRequest(msg string, err error) *Error {
	return &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Msg: msg, Err: err}
}

// Classify maps any error returned while serving an operation onto *Error.
// Backend failures are passed through as the wrapped cause. An operation that
// ran out of its deadline reports 504, an unreachable backend 503.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, kv.ErrBackendUnavailable):
		status = http.StatusServiceUnavailable
	}
	return &Error{Kind: KindBackend, Status: status, Msg: "backend error", Err: err}
}

// Doc is one entry of a listDocs result
type Doc struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Result is the response envelope of the cache port
type Result struct {
	OK     bool            `json:"ok"`
	Doc    json.RawMessage `json:"doc,omitempty"`
	Status int             `json:"status,omitempty"`
	Msg    string          `json:"msg,omitempty"`
}

// DocsResult is the envelope of a listDocs call. Docs is always present,
// empty when nothing matched.
type DocsResult struct {
	OK   bool  `json:"ok"`
	Docs []Doc `json:"docs"`
}

func OK() Result {
	return Result{OK: true}
}

func OKDoc(doc json.RawMessage) Result {
	return Result{OK: true, Doc: doc}
}

func OKDocs(docs []Doc) DocsResult {
	if docs == nil {
		docs = []Doc{}
	}
	return DocsResult{OK: true, Docs: docs}
}

// Failure builds the {ok:false,status,msg} envelope for err
func Failure(err error) Result {
	e := Classify(err)
	return Result{OK: false, Status: e.Status, Msg: e.Error()}
}
