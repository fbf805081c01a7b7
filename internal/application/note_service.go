package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-notes-api/internal/domain/entity"
	repo "github.com/oksasatya/go-notes-api/internal/domain/repository"
)

// Exporter stores an export object and returns where it can be fetched.
type Exporter interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// SearchPolicy holds product choices about search results, separate from matching.
type SearchPolicy struct {
	// EmptyAsNotFound reports an empty result set as ErrNoNotesFound instead of an empty list.
	EmptyAsNotFound bool
}

// NoteService implements the note operations. Every method takes the authenticated
// user id and passes it down to the repository as the owner filter.
type NoteService struct {
	Repo     repo.NoteRepository
	Searcher repo.NoteSearcher
	Indexer  repo.NoteIndexer // optional
	Exporter Exporter         // optional
	Policy   SearchPolicy
	Logger   *logrus.Logger
	now      func() time.Time
}

func NewNoteService(notes repo.NoteRepository, searcher repo.NoteSearcher, policy SearchPolicy, logger *logrus.Logger) *NoteService {
	return &NoteService{
		Repo:     notes,
		Searcher: searcher,
		Policy:   policy,
		Logger:   logger,
		now:      time.Now,
	}
}

func (s *NoteService) WithIndexer(idx repo.NoteIndexer) *NoteService {
	s.Indexer = idx
	return s
}

func (s *NoteService) WithExporter(e Exporter) *NoteService {
	s.Exporter = e
	return s
}

type NoteInput struct {
	Title       string
	Description string
}

func (in NoteInput) validate() error {
	if in.Title == "" {
		return MissingField("title")
	}
	if in.Description == "" {
		return MissingField("description")
	}
	return nil
}

// validNoteID rejects ids that cannot exist so they read as not found rather than as
// storage errors.
func validNoteID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *NoteService) Create(ctx context.Context, userID string, in NoteInput) (*entity.Note, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	n := &entity.Note{
		Title:       in.Title,
		Description: in.Description,
		UserID:      userID,
		Pinned:      false,
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		return nil, Internal("create note", err)
	}
	s.index(ctx, n)
	return n, nil
}

func (s *NoteService) List(ctx context.Context, userID string) ([]entity.Note, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	notes, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, Internal("list notes", err)
	}
	if notes == nil {
		notes = []entity.Note{}
	}
	return notes, nil
}

// Update changes title and description of a note the user owns.
func (s *NoteService) Update(ctx context.Context, userID, noteID string, in NoteInput) (*entity.Note, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if !validNoteID(noteID) {
		return nil, ErrNoteNotFound
	}
	n, err := s.Repo.UpdateContent(ctx, userID, noteID, in.Title, in.Description)
	if err != nil {
		return nil, s.notFoundOr("update note", err)
	}
	s.index(ctx, n)
	return n, nil
}

func (s *NoteService) Delete(ctx context.Context, userID, noteID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}
	if !validNoteID(noteID) {
		return ErrNoteNotFound
	}
	if err := s.Repo.Delete(ctx, userID, noteID); err != nil {
		return s.notFoundOr("delete note", err)
	}
	if s.Indexer != nil {
		if err := s.Indexer.Remove(ctx, noteID); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("note_id", noteID).Warn("remove note from index failed")
		}
	}
	return nil
}

// Pin sets the pinned flag.
func (s *NoteService) Pin(ctx context.Context, userID, noteID string) (*entity.Note, error) {
	return s.setPinned(ctx, userID, noteID, true)
}

// Unpin clears the pinned flag.
func (s *NoteService) Unpin(ctx context.Context, userID, noteID string) (*entity.Note, error) {
	return s.setPinned(ctx, userID, noteID, false)
}

func (s *NoteService) setPinned(ctx context.Context, userID, noteID string, pinned bool) (*entity.Note, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if !validNoteID(noteID) {
		return nil, ErrNoteNotFound
	}
	n, err := s.Repo.SetPinned(ctx, userID, noteID, pinned)
	if err != nil {
		return nil, s.notFoundOr("pin note", err)
	}
	s.index(ctx, n)
	return n, nil
}

// Search runs a text search over the user's own notes.
func (s *NoteService) Search(ctx context.Context, userID, query string) ([]entity.Note, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if query == "" {
		return nil, ErrInvalidQuery
	}
	// A query of only spaces is valid but has no words to match.
	notes := []entity.Note{}
	if q := strings.TrimSpace(query); q != "" {
		var err error
		if notes, err = s.Searcher.Search(ctx, userID, q); err != nil {
			return nil, Internal("search notes", err)
		}
	}
	if len(notes) == 0 {
		if s.Policy.EmptyAsNotFound {
			return nil, ErrNoNotesFound
		}
		return []entity.Note{}, nil
	}
	return notes, nil
}

// ExportResult describes an uploaded export.
type ExportResult struct {
	URL        string    `json:"url"`
	Count      int       `json:"count"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Export uploads a JSON snapshot of the user's notes.
func (s *NoteService) Export(ctx context.Context, userID string) (*ExportResult, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if s.Exporter == nil {
		return nil, ErrExportUnavailable
	}
	notes, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	at := s.now().UTC()
	b, err := json.Marshal(map[string]any{"user": userID, "exportedAt": at, "notes": notes})
	if err != nil {
		return nil, Internal("encode export", err)
	}
	objectPath := path.Join("exports", userID, uuid.NewString()+".json")
	url, err := s.Exporter.Upload(ctx, objectPath, "application/json", bytes.NewReader(b))
	if err != nil {
		return nil, Internal("upload export", err)
	}
	return &ExportResult{URL: url, Count: len(notes), ExportedAt: at}, nil
}

func (s *NoteService) notFoundOr(op string, err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNoteNotFound
	}
	return Internal(op, err)
}

func (s *NoteService) index(ctx context.Context, n *entity.Note) {
	if s.Indexer == nil || n == nil {
		return
	}
	if err := s.Indexer.Index(ctx, n); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("note_id", n.ID).Warn("index note failed")
	}
}
