package handler

import (
	"student-registry/internal/middleware"
	"student-registry/internal/service"
	"student-registry/pkg/utils"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

type PostMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// Recent returns the latest chat messages, oldest first
func (h *ChatHandler) Recent(c *gin.Context) {
	messages, err := h.chatService.Recent(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

func (h *ChatHandler) Post(c *gin.Context) {
	var req PostMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg, err := h.chatService.Post(c.Request.Context(), middleware.CurrentUser(c), req.Text)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, msg)
}
