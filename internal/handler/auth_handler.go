package handler

import (
	"net/http"

	"student-registry/internal/apperr"
	"student-registry/internal/middleware"
	"student-registry/internal/service"
	"student-registry/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	userService *service.UserService
}

func NewAuthHandler(userService *service.UserService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
	}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Username string `json:"username" binding:"required,username"`
	Password string `json:"password" binding:"required,min=6"`
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.userService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, response)
}

// Register creates a Guest account and returns its token
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.userService.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, response)
}

// Logout revokes the caller's token
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.userService.Logout(c.Request.Context(), middleware.CurrentUser(c)); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.MessageResponse(c, "Logged out successfully")
}

// Me returns the caller's profile
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		utils.AppErrorResponse(c, apperr.ErrUnauthenticated)
		return
	}
	utils.SuccessResponse(c, user.Summary())
}

func badRequest(c *gin.Context, message string) {
	utils.ErrorResponse(c, http.StatusBadRequest, apperr.Kind(apperr.ErrInvalid), message)
}
