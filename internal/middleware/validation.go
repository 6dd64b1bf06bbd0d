package middleware

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/seokjun4321/ReValue-sub000/internal/validation"
)

const (
	maxFeedLimit = 100
	maxIDLength  = 128
)

// ValidationMiddleware checks request bodies against JSON schemas and
// path and query parameters against simple rules.
type ValidationMiddleware struct {
	validator *validation.SchemaValidator
}

func NewValidationMiddleware(validator *validation.SchemaValidator) *ValidationMiddleware {
	return &ValidationMiddleware{
		validator: validator,
	}
}

func (vm *ValidationMiddleware) ValidatePreferencesUpdate() gin.HandlerFunc {
	return vm.validateRequestBody(validation.SchemaPreferencesUpdate)
}

func (vm *ValidationMiddleware) ValidateTrackRequest() gin.HandlerFunc {
	return vm.validateRequestBody(validation.SchemaTrackRequest)
}

func (vm *ValidationMiddleware) ValidateAuthToken() gin.HandlerFunc {
	return vm.validateRequestBody(validation.SchemaAuthToken)
}

// validateRequestBody rejects bodies that do not match schemaName. The body
// is restored so handlers can bind it again.
func (vm *ValidationMiddleware) validateRequestBody(schemaName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		bodyBytes, err := io.ReadAll(c.Request.Body)
		if err != nil {
			vm.sendValidationError(c, "BODY_READ_ERROR", "Failed to read request body")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(bodyBytes))

		if len(bodyBytes) == 0 {
			vm.sendValidationError(c, "EMPTY_BODY", "Request body is required")
			return
		}

		result := vm.validator.Validate(schemaName, bodyBytes)
		if !result.Valid {
			vm.sendResult(c, result)
			return
		}

		c.Next()
	}
}

// ValidateParams checks the userId and id path parameters and the limit
// query parameter when present.
func (vm *ValidationMiddleware) ValidateParams() gin.HandlerFunc {
	return func(c *gin.Context) {
		errs := make([]validation.ValidationError, 0)

		if limit := c.Query("limit"); limit != "" {
			if n, err := strconv.Atoi(limit); err != nil || n < 1 || n > maxFeedLimit {
				errs = append(errs, validation.ValidationError{
					Field:   "limit",
					Message: "Limit must be an integer between 1 and " + strconv.Itoa(maxFeedLimit),
					Code:    "INVALID_QUERY_PARAM",
					Value:   limit,
				})
			}
		}

		if userID, ok := c.Params.Get("userId"); ok && !isValidUserID(userID) {
			errs = append(errs, validation.ValidationError{
				Field:   "userId",
				Message: "User ID must be 1-128 characters of letters, digits, '-', '_' or ':'",
				Code:    "INVALID_PATH_PARAM",
				Value:   userID,
			})
		}

		if id, ok := c.Params.Get("id"); ok {
			if _, err := uuid.Parse(id); err != nil {
				errs = append(errs, validation.ValidationError{
					Field:   "id",
					Message: "Recommendation ID must be a valid UUID",
					Code:    "INVALID_PATH_PARAM",
					Value:   id,
				})
			}
		}

		if len(errs) > 0 {
			vm.sendResult(c, &validation.ValidationResult{Valid: false, Errors: errs})
			return
		}

		c.Next()
	}
}

// User ids are opaque strings issued by the auth provider.
func isValidUserID(value string) bool {
	if len(value) == 0 || len(value) > maxIDLength {
		return false
	}
	for _, char := range value {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '-' || char == '_' || char == ':') {
			return false
		}
	}
	return true
}

func (vm *ValidationMiddleware) sendResult(c *gin.Context, result *validation.ValidationResult) {
	apiError := result.ToAPIError()
	if errorObj, ok := apiError["error"].(map[string]interface{}); ok {
		vm.decorate(c, errorObj)
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, apiError)
}

func (vm *ValidationMiddleware) sendValidationError(c *gin.Context, code, message string) {
	errorObj := map[string]interface{}{
		"code":    code,
		"message": message,
	}
	vm.decorate(c, errorObj)
	c.AbortWithStatusJSON(http.StatusBadRequest, map[string]interface{}{"error": errorObj})
}

func (vm *ValidationMiddleware) decorate(c *gin.Context, errorObj map[string]interface{}) {
	errorObj["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	errorObj["requestId"] = c.GetString("request_id")
	errorObj["path"] = c.Request.URL.Path
	errorObj["method"] = c.Request.Method
}
