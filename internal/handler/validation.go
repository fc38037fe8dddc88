package handler

import (
	"errors"
	"fmt"
	"strings"

	"student-registry/internal/models"
	"student-registry/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the registry's custom tags to gin's validator:
// "username" accepts names that are valid after normalization and
// "role" accepts any known role name.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	if err := v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return service.ValidUsername(service.NormalizeUsername(fl.Field().String()))
	}); err != nil {
		return err
	}
	return v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseRole(fl.Field().String())
		return ok
	})
}

// bindingMessage turns a bind error into a client-facing message
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		case "username":
			msgs = append(msgs, "username must be 3-50 characters of a-z, 0-9, '_', '.', '-'")
		case "role":
			msgs = append(msgs, fmt.Sprintf("unknown role %q", fe.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		badRequest(c, bindingMessage(err))
		return false
	}
	return true
}
