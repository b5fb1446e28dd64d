package api_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piske-alex/mongoexpr/internal/api"
	"github.com/piske-alex/mongoexpr/internal/history"
	"github.com/piske-alex/mongoexpr/internal/sse"
)

func newTestRouter(t *testing.T) (http.Handler, *history.MemoryStore) {
	store := history.NewMemoryStore(0)
	sseServer := sse.NewServer(sse.Options{})
	t.Cleanup(sseServer.Shutdown)

	return api.SetupRouter(api.NewHandler(store, sseServer)), store
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeAnalyze(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleAnalyze(t *testing.T) {
	router, _ := newTestRouter(t)

	tests := []struct {
		name       string
		expression any
		recognized bool
		collection any
		method     any
		view       any
	}{
		{name: "dot notation", expression: "db.Cars.find({name:'x'})", recognized: true, collection: "Cars", method: "find", view: "list"},
		{name: "bracket notation", expression: `db.Cars["deleteOne"]({})`, recognized: true, collection: "Cars", method: "deleteOne", view: "keyValue"},
		{name: "collection only", expression: "db.Cars", collection: "Cars"},
		{name: "surrounding whitespace", expression: " \tdb.Cars.find()\n", recognized: true, collection: "Cars", method: "find", view: "list"},
		{name: "not db", expression: "foooobar"},
		{name: "number", expression: 123},
		{name: "object", expression: map[string]any{}},
		{name: "null", expression: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := decodeAnalyze(t, doJSON(t, router, http.MethodPost, "/expressions/analyze", map[string]any{
				"expression": tt.expression,
			}))

			assert.Equal(t, tt.recognized, resp["recognized"])
			assert.Equal(t, tt.collection, resp["collection"])
			assert.Equal(t, tt.method, resp["method"])
			assert.Equal(t, tt.view, resp["view"])
			assert.NotContains(t, resp, "entryId")
		})
	}
}

func TestHandleAnalyze_InvalidBody(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/expressions/analyze", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_body")
}

func TestHistoryLifecycle(t *testing.T) {
	router, store := newTestRouter(t)

	resp := decodeAnalyze(t, doJSON(t, router, http.MethodPost, "/expressions/analyze", map[string]any{
		"expression": "  db.Cars['insertOne']({})  ",
		"record":     true,
	}))
	id, ok := resp["entryId"].(string)
	require.True(t, ok)

	// non-string expressions are never recorded
	doJSON(t, router, http.MethodPost, "/expressions/analyze", map[string]any{"expression": 1, "record": true})

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	w := doJSON(t, router, http.MethodGet, "/history/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entry history.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
	assert.Equal(t, "insertOne", entry.Method)
	assert.Equal(t, "db.Cars['insertOne']({})", entry.Expression)

	w = doJSON(t, router, http.MethodGet, "/history?collection=Cars&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].ID)

	w = doJSON(t, router, http.MethodDelete, "/history/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/history/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/history/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/history", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHandleHistoryList_InvalidQuery(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, query := range []string{"from=yesterday", "to=1", "skip=-1", "limit=ten"} {
		w := doJSON(t, router, http.MethodGet, "/history?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestHealthStatsMetrics(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"clients":0`)

	doJSON(t, router, http.MethodPost, "/expressions/analyze", map[string]any{"expression": "db.a.find()"})
	w = doJSON(t, router, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "mongoexpr_api_expressions_analyzed_total")

	w = doJSON(t, router, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleEvents_ReceivesRecordedExpressions(t *testing.T) {
	router, _ := newTestRouter(t)
	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events?filter=Cars.find", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := make(chan string, 10)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if line := scanner.Text(); strings.HasPrefix(line, "event: ") {
				events <- strings.TrimPrefix(line, "event: ")
			}
		}
		close(events)
	}()

	require.Equal(t, "connected", <-events)

	for _, expr := range []string{"db.Boats.find()", "db.Cars.find()"} {
		body, _ := json.Marshal(map[string]any{"expression": expr, "record": true})
		post, err := http.Post(srv.URL+"/expressions/analyze", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		post.Body.Close()
	}

	select {
	case event := <-events:
		assert.Equal(t, "expression", event)
	case <-ctx.Done():
		t.Fatal("no expression event received")
	}
}

func TestHandleEvents_ReconnectWhileBroadcasting(t *testing.T) {
	store := history.NewMemoryStore(0)
	sseServer := sse.NewServer(sse.Options{})
	t.Cleanup(sseServer.Shutdown)

	srv := httptest.NewServer(api.SetupRouter(api.NewHandler(store, sseServer)))
	defer srv.Close()

	stop := make(chan struct{})
	broadcasting := make(chan struct{})
	go func() {
		defer close(broadcasting)
		entry := history.NewEntry("db.Cars.find()")
		for {
			select {
			case <-stop:
				return
			default:
				sseServer.BroadcastEntry(entry)
			}
		}
	}()

	for i := 0; i < 100; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
		require.NoError(t, err)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if scanner.Text() == "event: connected" {
				break
			}
		}

		cancel()
		resp.Body.Close()
	}

	close(stop)
	<-broadcasting

	assert.Eventually(t, func() bool {
		return sseServer.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
