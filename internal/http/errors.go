package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"brgykonek/internal/domain"
)

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(fieldName)
	}
}

// fieldName usa el nombre json (o form) en los mensajes de validacion.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// statusFor traduce el Kind del error a status HTTP.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidCredentials, domain.KindTokenInvalid, domain.KindTokenExpired:
		return http.StatusUnauthorized
	case domain.KindDuplicateEmail, domain.KindValidationFailed, domain.KindWrongPassword,
		domain.KindInvalidOTP, domain.KindOTPExpired, domain.KindOTPAlreadyUsed:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindEmailUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeError responde con {message[, errors]}; los errores internos nunca exponen detalle.
func writeError(c *gin.Context, logger *zap.Logger, op string, err error) {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		logger.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}

	status := statusFor(derr.Kind)
	if status == http.StatusInternalServerError {
		logger.Error(op+" failed", zap.Error(err))
		c.JSON(status, gin.H{"message": "Server error"})
		return
	}
	body := gin.H{"message": derr.Message}
	if len(derr.Fields) > 0 {
		body["errors"] = derr.Fields
	}
	c.JSON(status, body)
}

// bindError convierte errores de binding en ValidationFailed con un item por campo.
func bindError(c *gin.Context, logger *zap.Logger, op string, err error) {
	logger.Warn("invalid "+op+" request", zap.Error(err))

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, fieldMessage(fe))
		}
		writeError(c, logger, op, domain.Validation(fields...))
		return
	}
	writeError(c, logger, op, domain.Validation(requestProblem(err)))
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email address"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", name, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", name, fe.Param())
	case "numeric":
		return name + " must contain only digits"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", name, strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return name + " is invalid"
}

func requestProblem(err error) string {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "json: unknown field"):
		return strings.TrimPrefix(msg, "json: ")
	case msg == "EOF":
		return "request body is required"
	}
	return "request body is malformed"
}
