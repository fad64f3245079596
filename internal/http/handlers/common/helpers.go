package common

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/username-extractor/internal/dto"
	"github.com/ignatzorin/username-extractor/internal/pkg/apperror"
)

// ParseUUIDParam parses UUID from URL parameter
func ParseUUIDParam(c *gin.Context, paramName string) (uuid.UUID, error) {
	param := c.Param(paramName)
	if param == "" {
		return uuid.Nil, apperror.New(apperror.ErrCodeValidation, fmt.Sprintf("parameter %s is required", paramName))
	}

	parsed, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, apperror.Wrap(err, apperror.ErrCodeValidation, fmt.Sprintf("parameter %s must be a valid UUID", paramName))
	}

	return parsed, nil
}

// BindAndValidate binds JSON request and returns a validation AppError
func BindAndValidate(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, "invalid request body")
	}
	return nil
}

// Fail передаёт ошибку в ErrorHandler и прерывает обработку
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// RespondError sends a standardized error response
func RespondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, dto.ErrorResponse{Error: message})
}

// RespondJSON sends a JSON response with the given status code and data
func RespondJSON(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// RespondNoContent sends an empty 204 response
func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
