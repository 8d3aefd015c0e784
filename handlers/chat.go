package handlers

import (
	"errors"
	"io"
	"net/http"

	"corvex/middleware"
	"corvex/services/conversation"
	"corvex/utils"

	"github.com/gin-gonic/gin"
)

// ChatHandler adapts the conversation service to the widget's JSON API.
type ChatHandler struct {
	Svc conversation.ConversationService
}

func NewChatHandler(svc conversation.ConversationService) *ChatHandler {
	return &ChatHandler{Svc: svc}
}

// OpenHandler opens or restores a chat session. The widget sends whatever
// session id it still holds; the response carries the id it should keep.
func (h *ChatHandler) OpenHandler(c *gin.Context) {
	var input struct {
		SessionID string `json:"sessionId"`
	}
	// Body is optional on first open.
	if err := c.ShouldBindJSON(&input); err != nil && !errors.Is(err, io.EOF) {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	state, err := h.Svc.Open(c.Request.Context(), input.SessionID, middleware.DeviceFrom(c))
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to open chat", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": state})
}

// MessageHandler runs one user turn.
func (h *ChatHandler) MessageHandler(c *gin.Context) {
	var input struct {
		SessionID string `json:"sessionId" binding:"required"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	state, err := h.Svc.Send(c.Request.Context(), input.SessionID, input.Message, middleware.DeviceFrom(c))
	switch {
	case errors.Is(err, conversation.ErrBusy):
		utils.JSONError(c, http.StatusConflict, "a message is already being processed", "")
		return
	case errors.Is(err, conversation.ErrNoSession):
		utils.JSONError(c, http.StatusNotFound, "unknown session", input.SessionID)
		return
	case err != nil:
		utils.JSONError(c, http.StatusInternalServerError, "failed to process message", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "session": state})
}

// HistoryHandler returns the transcript for a session.
func (h *ChatHandler) HistoryHandler(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		utils.JSONError(c, http.StatusBadRequest, "sessionId is required", "")
		return
	}

	msgs, err := h.Svc.History(c.Request.Context(), sessionID)
	if errors.Is(err, conversation.ErrNoSession) {
		utils.JSONError(c, http.StatusNotFound, "unknown session", sessionID)
		return
	}
	if err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to load history", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": msgs})
}

// ClearHandler wipes a session entirely.
func (h *ChatHandler) ClearHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")
	if err := h.Svc.Clear(c.Request.Context(), sessionID); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "failed to clear session", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
