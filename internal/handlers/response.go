package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"shop_backend/internal/logging"
	"shop_backend/internal/pagination"
	"shop_backend/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type response struct {
	StatusCode int                `json:"statusCode"`
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Meta       *services.PageMeta `json:"meta,omitempty"`
	Data       any                `json:"data"`
}

type errorResponse struct {
	StatusCode    int            `json:"statusCode"`
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	ErrorMessages []errorMessage `json:"errorMessages"`
}

type errorMessage struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func init() {
	// report validation failures by their JSON names
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return field.Name
			}
			return name
		})
	}
}

func respond(c *gin.Context, status int, message string, data any) {
	c.JSON(status, response{StatusCode: status, Success: true, Message: message, Data: data})
}

func respondPage(c *gin.Context, message string, meta services.PageMeta, data any) {
	c.JSON(http.StatusOK, response{StatusCode: http.StatusOK, Success: true, Message: message, Meta: &meta, Data: data})
}

func respondFailure(c *gin.Context, status int, message string, details ...errorMessage) {
	if details == nil {
		details = []errorMessage{{Path: "", Message: message}}
	}
	c.AbortWithStatusJSON(status, errorResponse{
		StatusCode:    status,
		Success:       false,
		Message:       message,
		ErrorMessages: details,
	})
}

// respondError maps service errors to HTTP responses.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	_ = c.Error(err)

	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		respondFailure(c, http.StatusNotFound, "Order not found")
	case errors.Is(err, services.ErrOrderInvalidState):
		respondFailure(c, http.StatusConflict, "Order status cannot be changed", errorMessage{Path: "status", Message: errorDetail(err)})
	case errors.Is(err, services.ErrOrderConflict):
		respondFailure(c, http.StatusConflict, "Order was modified concurrently, retry the request")
	case errors.Is(err, services.ErrInvalidOrderStatus):
		respondFailure(c, http.StatusBadRequest, "Invalid order status", errorMessage{Path: "status", Message: errorDetail(err)})
	case errors.Is(err, pagination.ErrInvalidPage):
		respondFailure(c, http.StatusBadRequest, "Invalid pagination", errorMessage{Path: "page", Message: errorDetail(err)})
	case errors.Is(err, pagination.ErrInvalidLimit):
		respondFailure(c, http.StatusBadRequest, "Invalid pagination", errorMessage{Path: "limit", Message: errorDetail(err)})
	case errors.Is(err, pagination.ErrInvalidSortField):
		respondFailure(c, http.StatusBadRequest, "Invalid pagination", errorMessage{Path: "sortBy", Message: errorDetail(err)})
	case errors.Is(err, pagination.ErrInvalidSortOrder):
		respondFailure(c, http.StatusBadRequest, "Invalid pagination", errorMessage{Path: "sortOrder", Message: errorDetail(err)})
	case errors.Is(err, services.ErrOrderInvalidInput):
		respondFailure(c, http.StatusBadRequest, "Validation error", errorMessage{Path: "", Message: errorDetail(err)})
	case errors.Is(err, services.ErrOrderCreateFailed):
		respondFailure(c, http.StatusBadRequest, "Failed to create order")
	case errors.Is(err, services.ErrOrderDeleteFailed):
		respondFailure(c, http.StatusBadRequest, "Failed to delete order")
	default:
		logging.FromContext(c, logger).Error("request failed", zap.Error(err))
		respondFailure(c, http.StatusInternalServerError, "Something went wrong")
	}
}

// respondBindingError reports request decoding failures, one entry per invalid field.
func respondBindingError(c *gin.Context, err error) {
	_ = c.Error(err).SetType(gin.ErrorTypeBind)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondFailure(c, http.StatusBadRequest, "Invalid request body", errorMessage{Path: "", Message: err.Error()})
		return
	}

	details := make([]errorMessage, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, errorMessage{Path: fieldPath(fe), Message: validationMessage(fe)})
	}
	respondFailure(c, http.StatusBadRequest, "Validation error", details...)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		if fe.Param() == "0" {
			return field + " cannot be negative"
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}

func errorDetail(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 && i+2 < len(msg) {
		return msg[i+2:]
	}
	return msg
}
