package sse_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/piske-alex/mongoexpr/internal/history"
	"github.com/piske-alex/mongoexpr/internal/sse"
)

func BenchmarkServer_BroadcastEntry(b *testing.B) {
	for _, clientCount := range []int{10, 100, 1000} {
		b.Run(fmt.Sprintf("clients-%d", clientCount), func(b *testing.B) {
			benchmarkBroadcastWithClients(b, clientCount)
		})
	}
}

func benchmarkBroadcastWithClients(b *testing.B, clientCount int) {
	server := sse.NewServer(sse.Options{})
	defer server.Shutdown()

	r := httptest.NewRequest(http.MethodGet, "/events", nil)

	// Each client follows its own collection, so one broadcast reaches one client
	for i := 0; i < clientCount; i++ {
		filter := fmt.Sprintf("coll%d.*", i)
		client, err := server.AddClient(newStreamRecorder(), r, []string{filter})
		if err != nil {
			b.Fatalf("Failed to add client %d: %v", i, err)
		}
		go client.Run(r.Context())
	}

	entries := make([]history.Entry, clientCount)
	for i := range entries {
		entries[i] = history.NewEntry(fmt.Sprintf("db.coll%d.find()", i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		server.BroadcastEntry(entries[i%clientCount])
	}
}
