package search

import (
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

	"github.com/oksasatya/go-notes-api/internal/domain/entity"
	"github.com/oksasatya/go-notes-api/internal/infrastructure/memory"
)

type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   map[string]string
	hits     []string
	searches int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	key := r.Method + " " + r.URL.Path
	f.requests = append(f.requests, key)
	f.bodies[key] = string(body)
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_ = json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": f.page(body)}})
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	default:
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}
}

// page serves f.hits in order, honouring size and a search_after of [score, note_id].
func (f *fakeES) page(body []byte) []map[string]any {
	var req struct {
		Size        int   `json:"size"`
		SearchAfter []any `json:"search_after"`
	}
	_ = json.Unmarshal(body, &req)
	f.mu.Lock()
	f.searches++
	f.mu.Unlock()

	start := 0
	if len(req.SearchAfter) == 2 {
		last, _ := req.SearchAfter[1].(string)
		for i, id := range f.hits {
			if id == last {
				start = i + 1
			}
		}
	}
	hits := []map[string]any{}
	for i := start; i < len(f.hits) && len(hits) < req.Size; i++ {
		hits = append(hits, map[string]any{"_id": f.hits[i], "sort": []any{1.0, f.hits[i]}})
	}
	return hits
}

func (f *fakeES) bodyFor(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, v := range f.bodies {
		if strings.HasSuffix(k, " "+path) {
			return v
		}
	}
	return ""
}

func newIndex(t *testing.T, fake *fakeES) (*NoteIndex, *memory.Notes) {
	t.Helper()
	fake.bodies = map[string]string{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := NewClient([]string{srv.URL}, "", "")
	require.NoError(t, err)
	notes := memory.New().Notes()
	return NewNoteIndex(es, "notes", notes), notes
}

func TestNoteIndex_IndexAndRemove(t *testing.T) {
	fake := &fakeES{}
	idx, _ := newIndex(t, fake)
	ctx := context.Background()

	n := &entity.Note{ID: "n-1", Title: "Groceries", Description: "milk", UserID: "u1"}
	require.NoError(t, idx.Index(ctx, n))
	// a missing document is not an error
	require.NoError(t, idx.Remove(ctx, "n-1"))

	assert.Equal(t, []string{"PUT /notes/_doc/n-1", "DELETE /notes/_doc/n-1"}, fake.requests)
	var doc noteDoc
	require.NoError(t, json.Unmarshal([]byte(fake.bodies["PUT /notes/_doc/n-1"]), &doc))
	assert.Equal(t, "u1", doc.UserID)
	assert.Equal(t, "Groceries", doc.Title)
	assert.Equal(t, "n-1", doc.NoteID)
}

func TestNoteIndex_SearchRehydratesOwnNotesOnly(t *testing.T) {
	fake := &fakeES{}
	idx, notes := newIndex(t, fake)
	ctx := context.Background()

	mine := &entity.Note{Title: "milk", Description: "mine", UserID: "u1"}
	theirs := &entity.Note{Title: "milk", Description: "theirs", UserID: "u2"}
	require.NoError(t, notes.Create(ctx, mine))
	require.NoError(t, notes.Create(ctx, theirs))
	fake.hits = []string{theirs.ID, mine.ID}

	res, err := idx.Search(ctx, "u1", "milk")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, mine.ID, res[0].ID)

	body := fake.bodyFor("/notes/_search")
	assert.Contains(t, body, `"user_id":"u1"`)
	assert.Contains(t, body, `"operator":"or"`)
}

func TestNoteIndex_SearchReadsEveryPage(t *testing.T) {
	fake := &fakeES{}
	idx, notes := newIndex(t, fake)
	ctx := context.Background()

	total := 2*pageSize + 17
	for i := 0; i < total; i++ {
		n := &entity.Note{Title: "milk", Description: "note", UserID: "u1"}
		require.NoError(t, notes.Create(ctx, n))
		fake.hits = append(fake.hits, n.ID)
	}

	res, err := idx.Search(ctx, "u1", "milk")
	require.NoError(t, err)
	require.Len(t, res, total)
	assert.Equal(t, fake.hits[0], res[0].ID)
	assert.Equal(t, fake.hits[total-1], res[total-1].ID)
	assert.Equal(t, 3, fake.searches)
	assert.Contains(t, fake.bodyFor("/notes/_search"), `"search_after"`)
}

func TestNoteIndex_EnsureIndexOnExistingIndexAddsNoteID(t *testing.T) {
	fake := &fakeES{}
	idx, _ := newIndex(t, fake)

	require.NoError(t, idx.EnsureIndex(context.Background()))
	assert.Equal(t, []string{"HEAD /notes", "PUT /notes/_mapping"}, fake.requests)
	assert.Contains(t, fake.bodies["PUT /notes/_mapping"], `"note_id"`)
}

func TestNoteIndex_SearchNoHits(t *testing.T) {
	fake := &fakeES{}
	idx, _ := newIndex(t, fake)

	res, err := idx.Search(context.Background(), "u1", "nothing")
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}
