package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"warehouse-api/internal/logger"
	"warehouse-api/internal/order"
	"warehouse-api/internal/product"
	"warehouse-api/internal/utils"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, class, message string) {
	utils.WriteJSONError(w, status, class, message)
}

// decodeJSON decodes a single JSON object into dst and validates it. It
// writes a 400 and returns false on any failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body: "+err.Error())
		return false
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json body: extra data after json")
		return false
	}

	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", validationMessage(err))
		return false
	}

	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item", field, fe.Param())
		}
		return fmt.Sprintf("%s must not be empty", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// writeServiceError maps domain errors onto status codes and messages.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, product.ErrProductNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Product not found")
	case errors.Is(err, order.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "not_found", "Order not found")
	case errors.Is(err, order.ErrInsufficientStock):
		writeError(w, http.StatusBadRequest, "insufficient_stock", "Not enough stock for product")
	case errors.Is(err, product.ErrInvalidProduct), errors.Is(err, order.ErrInvalidOrder):
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, product.ErrProductInUse):
		writeError(w, http.StatusConflict, "conflict", "Product is referenced by existing orders")
	case errors.Is(err, context.DeadlineExceeded):
		logger.FromCtx(r.Context()).Warn("request timed out", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, "timeout", "Request timed out")
	default:
		logger.FromCtx(r.Context()).Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
