package store

// Note is the durable row for a shared interview note.
type Note struct {
	NoteID           string `gorm:"column:note_id;primaryKey;size:190"`
	Title            string `gorm:"column:title"`
	Content          string `gorm:"column:content"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName overrides the gorm default.
func (Note) TableName() string {
	return "notes"
}

// NoteEdit is append-only: rows are written on committed saves and
// never updated or deleted.
type NoteEdit struct {
	EditID           string `gorm:"column:edit_id;primaryKey;size:64"`
	NoteID           string `gorm:"column:note_id;size:190;not null;index"`
	UserID           string `gorm:"column:user_id;size:190;not null"`
	Content          string `gorm:"column:content"`
	CreatedAtSeconds int64  `gorm:"column:created_at_s;not null"`
}

// TableName overrides the gorm default.
func (NoteEdit) TableName() string {
	return "note_edits"
}
