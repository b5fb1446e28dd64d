package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/piske-alex/mongoexpr/internal/expression"
	"github.com/piske-alex/mongoexpr/internal/history"
	"github.com/piske-alex/mongoexpr/internal/sse"
)

// Handler manages the HTTP API handlers
type Handler struct {
	Store     history.Store
	SSEServer *sse.Server
}

// NewHandler creates a new API handler
func NewHandler(store history.Store, sseServer *sse.Server) *Handler {
	return &Handler{
		Store:     store,
		SSEServer: sseServer,
	}
}

// AnalyzeRequest is the body of POST /expressions/analyze. Expression is
// decoded as any JSON value; only strings can be recognized.
type AnalyzeRequest struct {
	Expression any  `json:"expression"`
	Record     bool `json:"record"`
}

// AnalyzeResponse reports the extracted segments; absent segments are null
type AnalyzeResponse struct {
	Recognized bool            `json:"recognized"`
	Collection *string         `json:"collection"`
	Method     *string         `json:"method"`
	Kind       expression.Kind `json:"kind,omitempty"`
	View       expression.View `json:"view,omitempty"`
	EntryID    string          `json:"entryId,omitempty"`
}

// HandleAnalyze extracts collection and method from an expression and
// optionally records it in the history
func (h *Handler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid_body", "Invalid JSON body: "+err.Error())
		return
	}
	if expr, ok := req.Expression.(string); ok {
		req.Expression = strings.TrimSpace(expr)
	}

	var resp AnalyzeResponse
	if collection, ok := expression.CollectionName(req.Expression); ok {
		resp.Collection = &collection
	}
	if method, ok := expression.MongoMethodName(req.Expression); ok {
		kind := expression.KindOf(method)
		resp.Recognized = true
		resp.Method = &method
		resp.Kind = kind
		resp.View = expression.ViewFor(kind)
	}
	recordAnalysis(resp.Recognized, resp.Kind)

	if expr, ok := req.Expression.(string); ok && req.Record {
		entry, err := h.Store.Add(r.Context(), history.NewEntry(expr))
		if err != nil {
			log.Printf("Error recording expression: %v", err)
			sendJSONError(w, http.StatusInternalServerError, "store_error", "Error recording expression")
			return
		}
		historyEntriesRecordedTotal.Inc()
		h.SSEServer.BroadcastEntry(entry)
		resp.EntryID = entry.ID
	}

	sendJSON(w, http.StatusOK, resp)
}

// HandleHistoryList lists history entries, newest first
func (h *Handler) HandleHistoryList(w http.ResponseWriter, r *http.Request) {
	opts, err := parseListOptions(r)
	if err != nil {
		sendJSONError(w, http.StatusBadRequest, "invalid_query", err.Error())
		return
	}

	entries, err := h.Store.List(r.Context(), opts)
	if err != nil {
		log.Printf("Error listing history: %v", err)
		sendJSONError(w, http.StatusInternalServerError, "store_error", "Error listing history")
		return
	}

	sendJSON(w, http.StatusOK, entries)
}

// HandleHistoryGet returns one history entry
func (h *Handler) HandleHistoryGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		sendStoreError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, entry)
}

// HandleHistoryDelete removes one history entry
func (h *Handler) HandleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		sendStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleHistoryClear removes every history entry
func (h *Handler) HandleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Clear(r.Context()); err != nil {
		sendStoreError(w, err)
		return
	}

	h.SSEServer.Broadcast(sse.EventCleared, map[string]int64{"time": time.Now().UnixMilli()})
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvents handles SSE connections
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	var filters []string
	if filterParam := r.URL.Query().Get("filter"); filterParam != "" {
		filters = strings.Split(filterParam, ",")
	}

	client, err := h.SSEServer.AddClient(w, r, filters)
	if err != nil {
		switch {
		case errors.Is(err, sse.ErrTooManyClients):
			sendJSONError(w, http.StatusServiceUnavailable, "too_many_clients", err.Error())
		default:
			sendJSONError(w, http.StatusInternalServerError, "stream_error", err.Error())
		}
		return
	}

	defer h.SSEServer.RemoveClient(client.ID)

	// Stream on this goroutine; the response must not be written after we return
	client.Run(r.Context())
}

// HandleStats returns server statistics
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	count, err := h.Store.Count(r.Context())
	if err != nil {
		log.Printf("Error counting history: %v", err)
		count = -1
	}

	sendJSON(w, http.StatusOK, map[string]any{
		"clients": h.SSEServer.ClientCount(),
		"history": count,
		"time":    time.Now().UnixMilli(),
	})
}

// HandleHealth reports whether the history store is reachable
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Store.Count(r.Context()); err != nil {
		sendJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}

	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseListOptions(r *http.Request) (history.ListOptions, error) {
	q := r.URL.Query()
	opts := history.ListOptions{
		Collection: q.Get("collection"),
		Method:     q.Get("method"),
	}

	var err error
	if opts.From, err = parseTime(q.Get("from")); err != nil {
		return opts, errors.New("from must be an RFC3339 timestamp")
	}
	if opts.To, err = parseTime(q.Get("to")); err != nil {
		return opts, errors.New("to must be an RFC3339 timestamp")
	}
	if opts.Skip, err = parseCount(q.Get("skip")); err != nil {
		return opts, errors.New("skip must be a non-negative integer")
	}
	if opts.Limit, err = parseCount(q.Get("limit")); err != nil {
		return opts, errors.New("limit must be a non-negative integer")
	}
	return opts, nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

func parseCount(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("negative")
	}
	return n, nil
}

func sendStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, history.ErrInvalidID):
		sendJSONError(w, http.StatusBadRequest, "invalid_id", err.Error())
	case errors.Is(err, history.ErrEntryNotFound):
		sendJSONError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		log.Printf("History store error: %v", err)
		sendJSONError(w, http.StatusInternalServerError, "store_error", "History store error")
	}
}

func sendJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func sendJSONError(w http.ResponseWriter, status int, code, message string) {
	sendJSON(w, status, map[string]string{
		"error":   code,
		"message": message,
	})
}
