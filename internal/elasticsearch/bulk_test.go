package elasticsearch

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfenderov/docsync/pkg/models"
)

// fakeES answers _bulk requests with the canned items response and records
// the request body lines.
type fakeES struct {
	mu     sync.Mutex
	lines  []string
	status int
	items  string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if !strings.HasSuffix(r.URL.Path, "/_bulk") {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, `{}`)
		return
	}

	f.mu.Lock()
	sc := bufio.NewScanner(r.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		f.lines = append(f.lines, sc.Text())
	}
	f.mu.Unlock()

	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	io.WriteString(w, f.items)
}

func newFakeClient(t *testing.T, fake *fakeES) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	client, err := New(Config{Addresses: []string{srv.URL}, Index: "grants"})
	require.NoError(t, err)
	return client
}

func record(id string) models.IndexedRecord {
	return models.IndexedRecord{ID: id, ParentID: "p", Text: "text " + id, Title: "T", SchemeName: "S"}
}

func TestUpload_ReturnsAcknowledgedIDs(t *testing.T) {
	fake := &fakeES{items: `{"errors":true,"items":[
		{"index":{"_id":"a","status":201}},
		{"index":{"_id":"b","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad"}}},
		{"index":{"_id":"c","status":200}}
	]}`}
	client := newFakeClient(t, fake)

	ids, err := client.Upload(context.Background(), record("a"), record("b"), record("c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids)

	require.Len(t, fake.lines, 6)
	var meta map[string]bulkAction
	require.NoError(t, json.Unmarshal([]byte(fake.lines[0]), &meta))
	assert.Equal(t, bulkAction{Index: "grants", ID: "a"}, meta["index"])

	var doc models.IndexedRecord
	require.NoError(t, json.Unmarshal([]byte(fake.lines[1]), &doc))
	assert.Equal(t, "text a", doc.Text)
	assert.NotContains(t, fake.lines[1], "content_vector")
}

func TestUpload_Empty(t *testing.T) {
	client := newFakeClient(t, &fakeES{})

	ids, err := client.Upload(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestUpload_BulkRequestFails(t *testing.T) {
	fake := &fakeES{status: http.StatusInternalServerError, items: `{"error":"boom"}`}
	client := newFakeClient(t, fake)

	_, err := client.Upload(context.Background(), record("a"))
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name  string
		keys  []string
		items string
		want  bool
	}{
		{
			name: "all deleted",
			keys: []string{"a", "b"},
			items: `{"items":[
				{"delete":{"_id":"a","status":200}},
				{"delete":{"_id":"b","status":200}}]}`,
			want: true,
		},
		{
			name: "missing key counts as deleted",
			keys: []string{"a", "gone"},
			items: `{"items":[
				{"delete":{"_id":"a","status":200}},
				{"delete":{"_id":"gone","status":404}}]}`,
			want: true,
		},
		{
			name: "one failure",
			keys: []string{"a", "b"},
			items: `{"errors":true,"items":[
				{"delete":{"_id":"a","status":200}},
				{"delete":{"_id":"b","status":503,"error":{"type":"unavailable_shards_exception","reason":"x"}}}]}`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeES{items: tt.items}
			client := newFakeClient(t, fake)

			got, err := client.Delete(context.Background(), tt.keys)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Len(t, fake.lines, len(tt.keys))
		})
	}
}

func TestDelete_EmptyKeys(t *testing.T) {
	fake := &fakeES{}
	client := newFakeClient(t, fake)

	ok, err := client.Delete(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, fake.lines)
}
