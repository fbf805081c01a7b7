// Package search keeps notes in an Elasticsearch index and answers text queries from it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-notes-api/internal/domain/entity"
	"github.com/oksasatya/go-notes-api/internal/domain/repository"
)

const notesMapping = `{
  "mappings": {
    "properties": {
      "title":       {"type": "text"},
      "description": {"type": "text"},
      "note_id":     {"type": "keyword"},
      "user_id":     {"type": "keyword"},
      "pinned":      {"type": "boolean"},
      "created_on":  {"type": "date"}
    }
  }
}`

// noteIDMapping is added to indexes created before note_id became the sort tiebreaker.
const noteIDMapping = `{"properties": {"note_id": {"type": "keyword"}}}`

// pageSize is the number of hits fetched per request; Search pages until all hits are read.
const pageSize = 100

type noteDoc struct {
	NoteID      string `json:"note_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	UserID      string `json:"user_id"`
	Pinned      bool   `json:"pinned"`
	CreatedOn   string `json:"created_on"`
}

// NoteIndex mirrors notes into Elasticsearch. Search only takes ids from the index and
// loads the notes through the owner-scoped repository, so a stale or wrong index entry
// can never surface another user's note.
type NoteIndex struct {
	es    *elasticsearch.Client
	index string
	notes repository.NoteRepository
}

func NewNoteIndex(es *elasticsearch.Client, index string, notes repository.NoteRepository) *NoteIndex {
	return &NoteIndex{es: es, index: index, notes: notes}
}

var (
	_ repository.NoteIndexer  = (*NoteIndex)(nil)
	_ repository.NoteSearcher = (*NoteIndex)(nil)
)

// EnsureIndex creates the index with its mapping, or adds the note_id field to an
// existing one.
func (x *NoteIndex) EnsureIndex(ctx context.Context) error {
	res, err := x.es.Indices.Exists([]string{x.index}, x.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	drain(res)
	if res.StatusCode == http.StatusOK {
		res, err = x.es.Indices.PutMapping([]string{x.index}, strings.NewReader(noteIDMapping),
			x.es.Indices.PutMapping.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("update mapping: %w", err)
		}
		defer drain(res)
		if res.IsError() {
			return fmt.Errorf("update mapping: %s", res.Status())
		}
		return nil
	}
	res, err = x.es.Indices.Create(x.index,
		x.es.Indices.Create.WithContext(ctx),
		x.es.Indices.Create.WithBody(strings.NewReader(notesMapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("create index: %s", res.Status())
	}
	return nil
}

func (x *NoteIndex) Index(ctx context.Context, n *entity.Note) error {
	body, err := json.Marshal(noteDoc{
		NoteID:      n.ID,
		Title:       n.Title,
		Description: n.Description,
		UserID:      n.UserID,
		Pinned:      n.Pinned,
		CreatedOn:   n.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	})
	if err != nil {
		return err
	}
	res, err := x.es.Index(x.index, bytes.NewReader(body),
		x.es.Index.WithContext(ctx),
		x.es.Index.WithDocumentID(n.ID),
		x.es.Index.WithRefresh("wait_for"),
	)
	if err != nil {
		return fmt.Errorf("index note: %w", err)
	}
	defer drain(res)
	if res.IsError() {
		return fmt.Errorf("index note: %s", res.Status())
	}
	return nil
}

func (x *NoteIndex) Remove(ctx context.Context, noteID string) error {
	res, err := x.es.Delete(x.index, noteID, x.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("remove note: %w", err)
	}
	defer drain(res)
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("remove note: %s", res.Status())
	}
	return nil
}

// Search finds ids matching any word of query among the user's documents, then loads
// the notes in ranking order. It pages with search_after until the hits run out.
func (x *NoteIndex) Search(ctx context.Context, userID, query string) ([]entity.Note, error) {
	ids := []string{}
	var after []any
	for {
		page, err := x.searchPage(ctx, userID, query, after)
		if err != nil {
			return nil, err
		}
		for _, h := range page {
			ids = append(ids, h.ID)
		}
		if len(page) < pageSize {
			break
		}
		after = page[len(page)-1].Sort
	}
	if len(ids) == 0 {
		return []entity.Note{}, nil
	}
	return x.notes.ListByIDs(ctx, userID, ids)
}

type hit struct {
	ID   string `json:"_id"`
	Sort []any  `json:"sort"`
}

func (x *NoteIndex) searchPage(ctx context.Context, userID, query string, after []any) ([]hit, error) {
	q := map[string]any{
		"size":    pageSize,
		"_source": false,
		"sort": []any{
			map[string]any{"_score": "desc"},
			map[string]any{"note_id": "asc"},
		},
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"user_id": userID}},
				},
				"must": []any{
					map[string]any{"multi_match": map[string]any{
						"query":    query,
						"fields":   []string{"title", "description"},
						"operator": "or",
					}},
				},
			},
		},
	}
	if after != nil {
		q["search_after"] = after
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, err
	}

	res, err := x.es.Search(
		x.es.Search.WithContext(ctx),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search notes: %w", err)
	}
	defer drain(res)
	if res.IsError() {
		return nil, fmt.Errorf("search notes: %s", res.Status())
	}

	var out struct {
		Hits struct {
			Hits []hit `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return out.Hits.Hits, nil
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
