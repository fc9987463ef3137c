package rpc

import (
	"net/http"

	"nftstake/crypto"
	"nftstake/storage/eventindex"
)

// EventsParams filters stake_getEvents. Holder and asset, when present, must
// be valid addresses.
type EventsParams struct {
	Holder string `json:"holder,omitempty"`
	Asset  string `json:"asset,omitempty"`
	Type   string `json:"type,omitempty"`
	After  uint64 `json:"after,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// IndexedEventResult is one row of the event index.
type IndexedEventResult struct {
	ID         uint64            `json:"id"`
	TxHash     string            `json:"txHash"`
	TxType     string            `json:"txType"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Timestamp  int64             `json:"timestamp"`
}

// EventsResult is a page of indexed events. Next is the cursor for the
// following page and is zero once the page came back short.
type EventsResult struct {
	Events []IndexedEventResult `json:"events"`
	Next   uint64               `json:"next,omitempty"`
}

// SetEventIndex enables stake_getEvents.
func (s *Server) SetEventIndex(index *eventindex.Index) {
	s.eventIndex = index
}

func (s *Server) handleGetEvents(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if s.eventIndex == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeServerError, "event index not configured", nil)
		return
	}
	var params EventsParams
	if rpcErr := decodeParams(req, &params); rpcErr != nil {
		writeParamError(w, req.ID, rpcErr)
		return
	}
	filter := eventindex.Filter{Type: params.Type, After: params.After, Limit: params.Limit}
	if params.Holder != "" {
		addr, err := parseAddress("holder", params.Holder)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		filter.Holder = crypto.Render(addr)
	}
	if params.Asset != "" {
		addr, err := parseAddress("asset", params.Asset)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
			return
		}
		filter.Asset = crypto.Render(addr)
	}
	rows, err := s.eventIndex.Query(r.Context(), filter)
	if err != nil {
		s.logger.Error("event index query failed", "error", err)
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "event index query failed", nil)
		return
	}
	result := EventsResult{Events: make([]IndexedEventResult, 0, len(rows))}
	for _, row := range rows {
		attrs, err := row.Attrs()
		if err != nil {
			writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
			return
		}
		result.Events = append(result.Events, IndexedEventResult{
			ID:         row.ID,
			TxHash:     row.TxHash,
			TxType:     row.TxType,
			Type:       row.Type,
			Attributes: attrs,
			Timestamp:  row.Timestamp,
		})
	}
	limit := params.Limit
	if limit <= 0 {
		limit = eventindex.DefaultQueryLimit
	}
	if limit > eventindex.MaxQueryLimit {
		limit = eventindex.MaxQueryLimit
	}
	if len(rows) == limit {
		result.Next = rows[len(rows)-1].ID
	}
	writeResult(w, req.ID, result)
}
