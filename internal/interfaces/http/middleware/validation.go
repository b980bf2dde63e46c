package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/printbridge/backend/internal/infrastructure/tempfile"
	"github.com/printbridge/backend/internal/interfaces/http/dto"
)

// MaxPrinterNameLength bounds printer names accepted from clients
const MaxPrinterNameLength = 255

// SetupValidator installs the printbridge tags on gin's validator
func SetupValidator() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterValidations(v)
	}
}

// RegisterValidations reports fields by their json name and adds the
// safefilename and printername tags
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("safefilename", func(fl validator.FieldLevel) bool {
		return tempfile.ValidateFilename(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("printername", func(fl validator.FieldLevel) bool {
		name := fl.Field().String()
		return utf8.RuneCountInString(name) <= MaxPrinterNameLength &&
			strings.IndexFunc(name, unicode.IsControl) < 0
	})
}

// validationMessages are printf formats taking the field name and the tag parameter
var validationMessages = map[string]string{
	"required":     "%s is required",
	"oneof":        "%s must be one of: %s",
	"gt":           "%s must be greater than %s",
	"gte":          "%s must be at least %s",
	"base64":       "%s must be base64 encoded",
	"safefilename": "%s must be a plain file name without path separators",
	"printername":  "%s is not a valid printer name",
}

func validationMessage(e validator.FieldError) string {
	field := e.Field()
	switch tag := e.Tag(); {
	case (tag == "min" || tag == "max") && e.Kind() == reflect.String:
		bound := map[string]string{"min": "at least", "max": "at most"}[tag]
		return fmt.Sprintf("%s must be %s %s characters", field, bound, e.Param())
	case validationMessages[tag] != "":
		msg := validationMessages[tag]
		if strings.Count(msg, "%s") == 2 {
			return fmt.Sprintf(msg, field, e.Param())
		}
		return fmt.Sprintf(msg, field)
	default:
		return field + " is invalid"
	}
}

// HandleValidationError replies to a failed ShouldBind. Field errors become
// ERR_VALIDATION with one detail per field, an exceeded body limit becomes
// ERR_PAYLOAD_TOO_LARGE and anything else ERR_INVALID_JSON.
func HandleValidationError(c *gin.Context, err error) {
	requestID := RequestIDFrom(c)

	var fieldErrs validator.ValidationErrors
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &fieldErrs):
		details := make([]dto.ValidationDetail, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, dto.ValidationDetail{
				Field:   fe.Field(),
				Message: validationMessage(fe),
				Tag:     fe.Tag(),
			})
		}
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", requestID, details))
	case errors.As(err, &maxErr):
		c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
			dto.ErrCodePayloadTooLarge, fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit), requestID))
	default:
		c.JSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInvalidJSON, "Request body is not valid JSON", requestID))
	}
}
