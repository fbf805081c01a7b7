package repository

import (
	"context"

	"github.com/oksasatya/go-notes-api/internal/domain/entity"
)

// NoteRepository persists notes. Every read and write is scoped by the owning user id;
// a note owned by someone else behaves exactly like a missing one (ErrNotFound).
type NoteRepository interface {
	// Create inserts n and fills ID and CreatedAt. n.UserID must be set.
	Create(ctx context.Context, n *entity.Note) error
	ListByUser(ctx context.Context, userID string) ([]entity.Note, error)
	ListByIDs(ctx context.Context, userID string, ids []string) ([]entity.Note, error)
	// UpdateContent changes title and description only.
	UpdateContent(ctx context.Context, userID, noteID, title, description string) (*entity.Note, error)
	SetPinned(ctx context.Context, userID, noteID string, pinned bool) (*entity.Note, error)
	Delete(ctx context.Context, userID, noteID string) error
}

// NoteSearcher runs a text search restricted to one user's notes.
type NoteSearcher interface {
	Search(ctx context.Context, userID, query string) ([]entity.Note, error)
}

// NoteIndexer keeps an external search index in sync. Implementations are best-effort.
type NoteIndexer interface {
	Index(ctx context.Context, n *entity.Note) error
	Remove(ctx context.Context, noteID string) error
}
