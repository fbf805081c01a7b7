// Package memory implements in-memory repositories for development and testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/oksasatya/go-notes-api/internal/domain/entity"
	"github.com/oksasatya/go-notes-api/internal/domain/repository"
)

// Store keeps users and notes in maps guarded by a single mutex.
type Store struct {
	mu      sync.Mutex
	users   map[string]entity.User
	byEmail map[string]string
	notes   map[string]entity.Note
	seq     map[string]int64
	nextSeq int64
	now     func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		users:   make(map[string]entity.User),
		byEmail: make(map[string]string),
		notes:   make(map[string]entity.Note),
		seq:     make(map[string]int64),
		now:     time.Now,
	}
}

// Ensure interfaces are met.
var _ repository.UserRepository = (*Store)(nil)
var _ repository.NoteRepository = (*Notes)(nil)
var _ repository.NoteSearcher = (*Notes)(nil)

// --- UserRepository ---

func (s *Store) Create(_ context.Context, u *entity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return repository.ErrDuplicate
	}
	u.ID = uuid.NewString()
	u.CreatedAt = s.now().UTC()
	s.users[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := s.users[id]
	return &u, nil
}

// --- NoteRepository ---

// Notes exposes the note side of the store. Its methods share the store's lock.
type Notes struct{ s *Store }

// Notes returns the note repository view of the store.
func (s *Store) Notes() *Notes { return &Notes{s: s} }

func (r *Notes) Create(_ context.Context, n *entity.Note) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	n.ID = uuid.NewString()
	n.CreatedAt = s.now().UTC()
	s.nextSeq++
	s.notes[n.ID] = *n
	s.seq[n.ID] = s.nextSeq
	return nil
}

func (r *Notes) ListByUser(_ context.Context, userID string) ([]entity.Note, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []entity.Note{}
	for _, n := range s.notes {
		if n.OwnedBy(userID) {
			out = append(out, n)
		}
	}
	s.sortLocked(out)
	return out, nil
}

// ListByIDs returns the user's notes among ids, in the order of ids.
func (r *Notes) ListByIDs(_ context.Context, userID string, ids []string) ([]entity.Note, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]entity.Note, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.notes[id]; ok && n.OwnedBy(userID) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *Notes) UpdateContent(_ context.Context, userID, noteID, title, description string) (*entity.Note, error) {
	return r.mutate(userID, noteID, func(n *entity.Note) {
		n.Title = title
		n.Description = description
	})
}

func (r *Notes) SetPinned(_ context.Context, userID, noteID string, pinned bool) (*entity.Note, error) {
	return r.mutate(userID, noteID, func(n *entity.Note) { n.Pinned = pinned })
}

func (r *Notes) Delete(_ context.Context, userID, noteID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[noteID]
	if !ok || !n.OwnedBy(userID) {
		return repository.ErrNotFound
	}
	delete(s.notes, noteID)
	delete(s.seq, noteID)
	return nil
}

// Search matches notes whose title or description contains any word of query as a
// whole word, ignoring case.
func (r *Notes) Search(_ context.Context, userID, query string) ([]entity.Note, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	terms := words(query)
	out := []entity.Note{}
	if len(terms) == 0 {
		return out, nil
	}
	for _, n := range s.notes {
		if !n.OwnedBy(userID) {
			continue
		}
		text := make(map[string]struct{})
		for _, w := range words(n.Title + " " + n.Description) {
			text[w] = struct{}{}
		}
		for _, t := range terms {
			if _, ok := text[t]; ok {
				out = append(out, n)
				break
			}
		}
	}
	s.sortLocked(out)
	return out, nil
}

// words splits s into lowercase runs of letters and digits.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func (r *Notes) mutate(userID, noteID string, fn func(*entity.Note)) (*entity.Note, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[noteID]
	if !ok || !n.OwnedBy(userID) {
		return nil, repository.ErrNotFound
	}
	fn(&n)
	s.notes[noteID] = n
	return &n, nil
}

// sortLocked orders pinned notes first, then newest first.
func (s *Store) sortLocked(notes []entity.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.Pinned != b.Pinned {
			return a.Pinned
		}
		return s.seq[a.ID] > s.seq[b.ID]
	})
}
