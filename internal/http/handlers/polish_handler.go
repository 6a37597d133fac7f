package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/promptpolish-backend/internal/http/middleware"
	"github.com/tbourn/promptpolish-backend/internal/services"
)

// PolishPromptRequest is the JSON payload of polish-prompt.
type PolishPromptRequest struct {
	OriginalPrompt string `json:"originalPrompt" example:"write a poem about the sea"`
	Platform       string `json:"platform" example:"ChatGPT"`
	Goal           string `json:"goal" example:"Creative/Storytelling"`
}

// PolishPromptResponse carries the enhanced prompt.
type PolishPromptResponse struct {
	PolishedPrompt string `json:"polishedPrompt"`
}

// PolishPrompt godoc
// @ID          polishPrompt
// @Summary     Enhance a prompt
// @Description Rewrites the prompt for the chosen platform and goal.
// @Tags        Prompts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.PolishPromptRequest  true  "Prompt, platform and goal"
//
// @Success     200  {object}  handlers.PolishPromptResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid prompt"
// @Failure     401  {object}  handlers.ErrorResponse  "Authentication required"
// @Failure     429  {object}  handlers.ErrorResponse  "Rate limited"
// @Failure     500  {object}  handlers.ErrorResponse  "Completion provider failed or is not configured"
// @Router      /polish-prompt [post]
func (h *Handlers) PolishPrompt(c *gin.Context) {
	userID, email := identity(c)
	if userID == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, middleware.MsgAuthRequired)
		return
	}
	if email == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, middleware.MsgAuthInvalid)
		return
	}

	var req PolishPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	out, err := h.polishSvc.Polish(c.Request.Context(), services.PolishInput{
		Prompt:   req.OriginalPrompt,
		Platform: req.Platform,
		Goal:     req.Goal,
	})
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, PolishPromptResponse{PolishedPrompt: out})
}
