package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/konohovalex/MachineNotesServer/internal/core/domain"
	"github.com/konohovalex/MachineNotesServer/internal/usecase"
)

// NotesHandler exposes the notes listing endpoints.
type NotesHandler struct {
	notes *usecase.NotesService
}

// NewNotesHandler constructs NotesHandler.
func NewNotesHandler(notes *usecase.NotesService) *NotesHandler {
	return &NotesHandler{notes: notes}
}

// RegisterRoutes binds the notes routes. All of them sit behind the auth gate.
func (h *NotesHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.list)
	r.DELETE("", h.deleteAll)
}

func (h *NotesHandler) list(c *gin.Context) {
	pageSize, err := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "pageSize must be an integer"))
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "page must be an integer"))
		return
	}

	notes, err := h.notes.List(c.Request.Context(), domain.PageRequest{
		PageSize: pageSize,
		Page:     page,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidPageRequest) {
			c.JSON(http.StatusBadRequest, NewErrorResponse(c, "pageSize and page must be positive"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
		return
	}

	resp := make([]NoteResponse, 0, len(notes))
	for _, note := range notes {
		resp = append(resp, newNoteResponse(note))
	}

	c.JSON(http.StatusOK, resp)
}

func (h *NotesHandler) deleteAll(c *gin.Context) {
	if err := h.notes.DeleteAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "internal server error"))
		return
	}

	c.Status(http.StatusOK)
}
