package api

import "encoding/json"

// CreateDocRequest is the body of POST /cache/{store}
type CreateDocRequest struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
	TTL   *int64          `json:"ttl,omitempty"` // milliseconds
}

// QueryRequest is the optional body of POST /cache/{store}/_query
type QueryRequest struct {
	Pattern string `json:"pattern"`
}

type ReadyDTO struct {
	Status   string `json:"status"`
	HashSlot bool   `json:"hashSlot"`
	PageSize int64  `json:"pageSize"`
}
