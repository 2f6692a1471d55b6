package helper

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmanager/internal/core/domain"
	"taskmanager/internal/core/model/response"
	ct "taskmanager/pkg/context"
	"taskmanager/pkg/logger"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeBadRequest = "BAD_REQUEST"
	CodeNotFound   = "NOT_FOUND"
	CodeConflict   = "CONFLICT"
	CodeInternal   = "INTERNAL_ERROR"
)

func SendError(c *gin.Context, statusCode int, code string, errors []response.ValidationError, details ...any) {
	if errors == nil {
		errors = []response.ValidationError{}
	}

	errorResponse := response.ErrorResponse{
		Error: response.ResponseError{
			Code:   code,
			Errors: errors,
		},
	}

	if len(details) > 0 {
		errorResponse.Error.Details = details[0]
	}

	c.AbortWithStatusJSON(statusCode, errorResponse)
}

func SendValidationError(c *gin.Context, verr *domain.ValidationError) {
	errs := make([]response.ValidationError, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		errs = append(errs, response.ValidationError{Field: f.Field, Message: f.Message})
	}
	SendError(c, http.StatusBadRequest, CodeValidation, errs)
}

func SendBadRequestError(c *gin.Context, field string, message string) {
	SendError(c, http.StatusBadRequest, CodeBadRequest, []response.ValidationError{
		{Field: field, Message: message},
	})
}

func SendNotFoundError(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, CodeNotFound, []response.ValidationError{
		{Field: "resource", Message: message},
	})
}

func SendConflictError(c *gin.Context, message string) {
	SendError(c, http.StatusConflict, CodeConflict, []response.ValidationError{
		{Field: "resource", Message: message},
	})
}

// SendInternalError never exposes err to the client; it is logged with the request id.
func SendInternalError(c *gin.Context, log *logger.Logger, err error) {
	if log != nil {
		log.ErrorWithTrace(c.Request.Context(), "Request failed",
			zap.Error(err),
			zap.String("request_id", ct.RequestID(c.Request.Context())),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
	}

	SendError(c, http.StatusInternalServerError, CodeInternal, []response.ValidationError{
		{Field: "server", Message: "an unexpected error occurred"},
	})
}

// SendDomainError maps core errors onto the HTTP error envelope.
func SendDomainError(c *gin.Context, log *logger.Logger, err error) {
	var verr *domain.ValidationError

	switch {
	case errors.As(err, &verr):
		SendValidationError(c, verr)
	case errors.Is(err, domain.ErrNotFound):
		SendNotFoundError(c, domain.ErrNotFound.Error())
	case errors.Is(err, domain.ErrConflict):
		SendConflictError(c, domain.ErrConflict.Error())
	default:
		SendInternalError(c, log, err)
	}
}
