package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/konohovalex/MachineNotesServer/internal/core/domain"
	"github.com/konohovalex/MachineNotesServer/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with the request ID for debugging.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// NewErrorResponse creates an error response carrying the request ID header value.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: c.Writer.Header().Get(middleware.RequestIDHeader),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// CredentialsRequest carries the user name and plaintext password of a
// sign-up or sign-in attempt. The whole object may be absent, which requests
// a guest identity instead.
type CredentialsRequest struct {
	UserName string `json:"userName" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthTokenResponse is the access/refresh pair returned on every successful
// lifecycle operation.
type AuthTokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// ProfileResponse describes the identity a caller holds after a lifecycle
// operation. UserName is null for guest accounts.
type ProfileResponse struct {
	UserID    string            `json:"userId"`
	UserName  *string           `json:"userName"`
	AuthToken AuthTokenResponse `json:"authToken"`
}

func newProfileResponse(profile *domain.Profile) ProfileResponse {
	return ProfileResponse{
		UserID:   profile.UserID,
		UserName: profile.UserName,
		AuthToken: AuthTokenResponse{
			AccessToken:  profile.Token.AccessToken,
			RefreshToken: profile.Token.RefreshToken,
		},
	}
}

// NoteContentResponse serializes one content block as an externally tagged
// union: exactly one of the kind fields is present.
type NoteContentResponse struct {
	Text  *TextContentResponse  `json:"text,omitempty"`
	Image *MediaContentResponse `json:"image,omitempty"`
	Audio *MediaContentResponse `json:"audio,omitempty"`
}

// TextContentResponse is an inline text block.
type TextContentResponse struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// MediaContentResponse is an image or audio block referencing external media.
type MediaContentResponse struct {
	ID         string `json:"id"`
	ContentURL string `json:"contentUrl"`
}

// NoteResponse is a single note in a listing page.
type NoteResponse struct {
	ID                 string                `json:"id"`
	DateTimeCreated    time.Time             `json:"dateTimeCreated"`
	DateTimeLastEdited time.Time             `json:"dateTimeLastEdited"`
	NoteContent        []NoteContentResponse `json:"noteContent"`
}

func newNoteResponse(note domain.Note) NoteResponse {
	contents := make([]NoteContentResponse, 0, len(note.Content))
	for _, block := range note.Content {
		contents = append(contents, newNoteContentResponse(block))
	}

	return NoteResponse{
		ID:                 note.ID,
		DateTimeCreated:    note.DateTimeCreated,
		DateTimeLastEdited: note.DateTimeLastEdited,
		NoteContent:        contents,
	}
}

func newNoteContentResponse(block domain.NoteContent) NoteContentResponse {
	switch block.Kind {
	case domain.NoteContentText:
		return NoteContentResponse{Text: &TextContentResponse{
			ID:      block.ID,
			Content: block.Content,
		}}
	case domain.NoteContentAudio:
		return NoteContentResponse{Audio: &MediaContentResponse{
			ID:         block.ID,
			ContentURL: block.ContentURL,
		}}
	default:
		return NoteContentResponse{Image: &MediaContentResponse{
			ID:         block.ID,
			ContentURL: block.ContentURL,
		}}
	}
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}
