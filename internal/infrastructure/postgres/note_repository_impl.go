package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/oksasatya/go-notes-api/internal/domain/entity"
	"github.com/oksasatya/go-notes-api/internal/domain/repository"
)

// NoteRepository stores notes in Postgres. Every statement filters on user_id, so a
// note owned by another user is indistinguishable from a missing one.
type NoteRepository struct {
	db DBTX
}

func NewNoteRepository(db DBTX) *NoteRepository {
	return &NoteRepository{db: db}
}

const (
	noteColumns = `id::text, title, description, user_id::text, pinned, created_at`
	noteOrder   = `ORDER BY pinned DESC, created_at DESC, id DESC`
)

func (r *NoteRepository) Create(ctx context.Context, n *entity.Note) error {
	row := r.db.QueryRow(ctx, `
		INSERT INTO notes (title, description, user_id, pinned)
		VALUES ($1, $2, $3, $4)
		RETURNING id::text, created_at
	`, n.Title, n.Description, n.UserID, n.Pinned)

	return mapError(row.Scan(&n.ID, &n.CreatedAt), "insert note")
}

func (r *NoteRepository) ListByUser(ctx context.Context, userID string) ([]entity.Note, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		WHERE user_id = $1
		`+noteOrder, userID)
	if err != nil {
		return nil, mapError(err, "list notes")
	}
	return collectNotes(rows, "list notes")
}

// ListByIDs loads the user's notes among ids and returns them in the order of ids.
// Ids that are missing or owned by someone else are skipped.
func (r *NoteRepository) ListByIDs(ctx context.Context, userID string, ids []string) ([]entity.Note, error) {
	if len(ids) == 0 {
		return []entity.Note{}, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		WHERE user_id = $1 AND id::text = ANY($2)
	`, userID, ids)
	if err != nil {
		return nil, mapError(err, "list notes by ids")
	}
	found, err := collectNotes(rows, "list notes by ids")
	if err != nil {
		return nil, err
	}

	byID := make(map[string]entity.Note, len(found))
	for _, n := range found {
		byID[n.ID] = n
	}
	out := make([]entity.Note, 0, len(found))
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *NoteRepository) UpdateContent(ctx context.Context, userID, noteID, title, description string) (*entity.Note, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE notes
		SET title = $3, description = $4
		WHERE id = $1 AND user_id = $2
		RETURNING `+noteColumns, noteID, userID, title, description)

	return scanNote(row, "update note")
}

func (r *NoteRepository) SetPinned(ctx context.Context, userID, noteID string, pinned bool) (*entity.Note, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE notes
		SET pinned = $3
		WHERE id = $1 AND user_id = $2
		RETURNING `+noteColumns, noteID, userID, pinned)

	return scanNote(row, "set pinned")
}

func (r *NoteRepository) Delete(ctx context.Context, userID, noteID string) error {
	res, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id = $1 AND user_id = $2`, noteID, userID)
	if err != nil {
		return mapError(err, "delete note")
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// anyWordQuery parses $2 like plainto_tsquery and turns its AND of words into an OR.
const anyWordQuery = `replace(plainto_tsquery('simple', $2)::text, ' & ', ' | ')::tsquery`

// Search matches notes whose title or description contains any word of query.
func (r *NoteRepository) Search(ctx context.Context, userID, query string) ([]entity.Note, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+noteColumns+`
		FROM notes
		WHERE user_id = $1
		  AND to_tsvector('simple', title || ' ' || description) @@ `+anyWordQuery+`
		`+noteOrder, userID, query)
	if err != nil {
		return nil, mapError(err, "search notes")
	}
	return collectNotes(rows, "search notes")
}

func scanNote(row pgx.Row, op string) (*entity.Note, error) {
	n := &entity.Note{}
	if err := row.Scan(&n.ID, &n.Title, &n.Description, &n.UserID, &n.Pinned, &n.CreatedAt); err != nil {
		return nil, mapError(err, op)
	}
	return n, nil
}

func collectNotes(rows pgx.Rows, op string) ([]entity.Note, error) {
	defer rows.Close()
	out := []entity.Note{}
	for rows.Next() {
		var n entity.Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &n.UserID, &n.Pinned, &n.CreatedAt); err != nil {
			return nil, mapError(err, op)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, op)
	}
	return out, nil
}

var (
	_ repository.NoteRepository = (*NoteRepository)(nil)
	_ repository.NoteSearcher   = (*NoteRepository)(nil)
)
