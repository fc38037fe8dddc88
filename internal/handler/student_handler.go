package handler

import (
	"fmt"
	"strconv"

	"student-registry/internal/apperr"
	"student-registry/internal/middleware"
	"student-registry/internal/models"
	"student-registry/internal/service"
	"student-registry/pkg/utils"

	"github.com/gin-gonic/gin"
)

type StudentHandler struct {
	studentService *service.StudentService
}

func NewStudentHandler(studentService *service.StudentService) *StudentHandler {
	return &StudentHandler{
		studentService: studentService,
	}
}

type CreateStudentRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Age   *int   `json:"age" binding:"required,min=0,max=150"`
	Major string `json:"major" binding:"required,max=100"`
}

// UpdateStudentRequest carries only the fields to change
type UpdateStudentRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=1,max=100"`
	Age   *int    `json:"age" binding:"omitempty,min=0,max=150"`
	Major *string `json:"major" binding:"omitempty,min=1,max=100"`
}

// List returns students, optionally filtered by ?major= and ?age=
func (h *StudentHandler) List(c *gin.Context) {
	var filter models.StudentFilter
	if major, ok := c.GetQuery("major"); ok {
		filter.Major = &major
	}
	if ageStr, ok := c.GetQuery("age"); ok {
		age, err := strconv.Atoi(ageStr)
		if err != nil {
			badRequest(c, "Invalid age filter")
			return
		}
		filter.Age = &age
	}

	students, err := h.studentService.List(c.Request.Context(), middleware.CurrentUser(c), filter)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"students": students,
		"count":    len(students),
	})
}

// Create registers a new student
func (h *StudentHandler) Create(c *gin.Context) {
	var req CreateStudentRequest
	if !bindJSON(c, &req) {
		return
	}

	student, err := h.studentService.Create(c.Request.Context(), middleware.CurrentUser(c), service.StudentInput{
		Name:  req.Name,
		Age:   *req.Age,
		Major: req.Major,
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, student)
}

// Get retrieves a student by ID
func (h *StudentHandler) Get(c *gin.Context) {
	id, ok := parseStudentID(c)
	if !ok {
		return
	}

	student, err := h.studentService.Get(c.Request.Context(), middleware.CurrentUser(c), id)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, student)
}

// Update applies a partial update to a student
func (h *StudentHandler) Update(c *gin.Context) {
	id, ok := parseStudentID(c)
	if !ok {
		return
	}

	var req UpdateStudentRequest
	if !bindJSON(c, &req) {
		return
	}

	student, err := h.studentService.Update(c.Request.Context(), middleware.CurrentUser(c), id, models.StudentPatch{
		Name:  req.Name,
		Age:   req.Age,
		Major: req.Major,
	})
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, student)
}

// Delete removes a student
func (h *StudentHandler) Delete(c *gin.Context) {
	id, ok := parseStudentID(c)
	if !ok {
		return
	}

	if err := h.studentService.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.MessageResponse(c, fmt.Sprintf("Student %d deleted", id))
}

// parseStudentID rejects non-numeric ids; 0 is well-formed but never assigned
func parseStudentID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		badRequest(c, "Invalid student ID")
		return 0, false
	}
	if id == 0 {
		utils.AppErrorResponse(c, fmt.Errorf("student 0: %w", apperr.ErrNotFound))
		return 0, false
	}
	return uint(id), true
}
