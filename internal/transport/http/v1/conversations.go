package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/waegarcia/conversational-assistant/internal/domain"
)

// ProcessMessage runs one conversational turn.
// POST /api/conversations
func (h *Handler) ProcessMessage(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.TurnRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	res, err := h.service.ProcessMessage(ctx, req)
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

// GetHistory returns the full transcript of a conversation.
// GET /api/conversations/:session_id
func (h *Handler) GetHistory(c echo.Context) error {
	hist, err := h.service.GetHistory(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, hist)
}

// EndConversation marks a conversation completed.
// DELETE /api/conversations/:session_id
func (h *Handler) EndConversation(c echo.Context) error {
	if err := h.service.EndConversation(c.Request().Context(), c.Param("session_id")); err != nil {
		return h.writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
