package domain

import "time"

// NoteContentKind enumerates the supported note content block types.
type NoteContentKind string

const (
	NoteContentText  NoteContentKind = "text"
	NoteContentImage NoteContentKind = "image"
	NoteContentAudio NoteContentKind = "audio"
)

// NoteContent is a single content block within a note. Text blocks carry
// inline content, image and audio blocks reference external URLs.
type NoteContent struct {
	ID         string
	Kind       NoteContentKind
	Content    string
	ContentURL string
}

// Note is a mock note entry served by the notes listing endpoint.
type Note struct {
	ID                 string
	DateTimeCreated    time.Time
	DateTimeLastEdited time.Time
	Content            []NoteContent
}

// PageRequest describes client-driven pagination of the notes listing.
type PageRequest struct {
	PageSize int
	Page     int
}
