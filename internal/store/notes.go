package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hireloop/collab/internal/domain"
)

func (g *Gateway) ReadNote(ctx context.Context, noteID string) (domain.Note, error) {
	var row Note
	err := g.db.WithContext(ctx).Where("note_id = ?", noteID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Note{}, fmt.Errorf("%w: %s", ErrNoteNotFound, noteID)
	}
	if err != nil {
		return domain.Note{}, fmt.Errorf("store: read note %s: %w", noteID, err)
	}
	return domain.Note{
		NoteID:    row.NoteID,
		Title:     row.Title,
		Content:   row.Content,
		UpdatedAt: time.Unix(row.UpdatedAtSeconds, 0).UTC(),
	}, nil
}

func (g *Gateway) WriteNote(ctx context.Context, note domain.Note) error {
	updatedAt := note.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = g.clock().UTC()
	}
	row := Note{
		NoteID:           note.NoteID,
		Title:            note.Title,
		Content:          note.Content,
		UpdatedAtSeconds: updatedAt.Unix(),
	}
	err := g.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return fmt.Errorf("store: write note %s: %w", note.NoteID, err)
	}
	return nil
}

func (g *Gateway) AppendEdit(ctx context.Context, record domain.NoteEditRecord) error {
	editID := record.EditID
	if editID == "" {
		editID = uuid.NewString()
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = g.clock().UTC()
	}
	row := NoteEdit{
		EditID:           editID,
		NoteID:           record.NoteID,
		UserID:           string(record.UserID),
		Content:          record.Content,
		CreatedAtSeconds: createdAt.Unix(),
	}
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("store: append edit for note %s: %w", record.NoteID, err)
	}
	return nil
}

func (g *Gateway) ListEdits(ctx context.Context, noteID string) ([]domain.NoteEditRecord, error) {
	var rows []NoteEdit
	err := g.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("created_at_s ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: list edits for note %s: %w", noteID, err)
	}
	records := make([]domain.NoteEditRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.NoteEditRecord{
			EditID:    row.EditID,
			NoteID:    row.NoteID,
			UserID:    domain.UserID(row.UserID),
			Content:   row.Content,
			CreatedAt: time.Unix(row.CreatedAtSeconds, 0).UTC(),
		})
	}
	return records, nil
}
