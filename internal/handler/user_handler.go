package handler

import (
	"fmt"

	"student-registry/internal/middleware"
	"student-registry/internal/service"
	"student-registry/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

type ChangeRoleRequest struct {
	NewRole string `json:"new_role" form:"new_role" binding:"required,role"`
}

// List returns every account
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"users": users,
		"count": len(users),
	})
}

// Delete removes an account
func (h *UserHandler) Delete(c *gin.Context) {
	username := c.Param("username")
	if err := h.userService.Delete(c.Request.Context(), middleware.CurrentUser(c), username); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.MessageResponse(c, fmt.Sprintf("User %s deleted", service.NormalizeUsername(username)))
}

func (h *UserHandler) Suspend(c *gin.Context) {
	summary, err := h.userService.Suspend(c.Request.Context(), middleware.CurrentUser(c), c.Param("username"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, summary)
}

func (h *UserHandler) Unsuspend(c *gin.Context) {
	summary, err := h.userService.Unsuspend(c.Request.Context(), middleware.CurrentUser(c), c.Param("username"))
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, summary)
}

// ChangeRole reads new_role from a JSON body, or from the query string otherwise
func (h *UserHandler) ChangeRole(c *gin.Context) {
	var req ChangeRoleRequest
	var err error
	if c.ContentType() == binding.MIMEJSON {
		err = c.ShouldBindJSON(&req)
	} else {
		err = c.ShouldBindQuery(&req)
	}
	if err != nil {
		badRequest(c, bindingMessage(err))
		return
	}

	summary, err := h.userService.ChangeRole(c.Request.Context(), middleware.CurrentUser(c), c.Param("username"), req.NewRole)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}
	utils.SuccessResponse(c, summary)
}
