package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/konohovalex/MachineNotesServer/internal/core/domain"
)

// ErrInvalidPageRequest indicates a non-positive page size or page number.
var ErrInvalidPageRequest = errors.New("page size and page number must be positive")

const seededNoteCount = 42

// NotesService serves note listings from an in-memory dataset. Real note
// persistence is not implemented yet; the dataset stands in for it so
// clients can build against the final API shape.
type NotesService struct {
	mu    sync.RWMutex
	notes []domain.Note
	log   *zap.Logger
}

// NewNotesService constructs a NotesService pre-seeded with sample notes.
func NewNotesService() *NotesService {
	return &NotesService{
		notes: seedNotes(seededNoteCount),
		log:   zap.NewNop(),
	}
}

// WithLogger attaches a structured logger.
func (s *NotesService) WithLogger(log *zap.Logger) *NotesService {
	if log != nil {
		s.log = log
	}
	return s
}

// List returns the requested page of notes. Pages are one-based; a page past
// the end of the dataset is empty, not an error.
func (s *NotesService) List(ctx context.Context, req domain.PageRequest) ([]domain.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.PageSize <= 0 || req.Page <= 0 {
		return nil, ErrInvalidPageRequest
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := (req.Page - 1) * req.PageSize
	if start >= len(s.notes) {
		return []domain.Note{}, nil
	}

	end := start + req.PageSize
	if end > len(s.notes) {
		end = len(s.notes)
	}

	page := make([]domain.Note, end-start)
	copy(page, s.notes[start:end])
	return page, nil
}

// DeleteAll drops every note in the dataset.
func (s *NotesService) DeleteAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	removed := len(s.notes)
	s.notes = s.notes[:0]
	s.mu.Unlock()

	s.log.Info("all notes deleted", zap.Int("count", removed))
	return nil
}

func seedNotes(count int) []domain.Note {
	base := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

	notes := make([]domain.Note, 0, count)
	for i := 0; i < count; i++ {
		created := base.Add(time.Duration(i) * time.Hour)
		note := domain.Note{
			ID:                 uuid.NewString(),
			DateTimeCreated:    created,
			DateTimeLastEdited: created.Add(30 * time.Minute),
			Content: []domain.NoteContent{
				{
					ID:      uuid.NewString(),
					Kind:    domain.NoteContentText,
					Content: fmt.Sprintf("Sample note %d", i+1),
				},
			},
		}

		// Every third note carries an image attachment so clients see
		// mixed content kinds.
		if i%3 == 0 {
			note.Content = append(note.Content, domain.NoteContent{
				ID:         uuid.NewString(),
				Kind:       domain.NoteContentImage,
				ContentURL: fmt.Sprintf("https://picsum.photos/id/%d/400/300", i+1),
			})
		}

		notes = append(notes, note)
	}

	return notes
}
