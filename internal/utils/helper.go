package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

var ErrInvalidID = errors.New("invalid id")

// ParseID parses an integer path id. Zero and negative ids parse fine; no
// record carries them, so callers report them as not found.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrInvalidID
	}
	return id, nil
}

type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSONError(w http.ResponseWriter, code int, class, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ErrorBody{Error: class, Message: message})
}
