package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectContext(t *testing.T) {
	t.Run("WithSubject and SubjectFrom", func(t *testing.T) {
		ctx := WithSubject(context.Background(), "ops")

		s, ok := SubjectFrom(ctx)
		assert.True(t, ok)
		assert.Equal(t, "ops", s)
	})

	t.Run("Empty context", func(t *testing.T) {
		_, ok := SubjectFrom(context.Background())
		assert.False(t, ok)
	})

	t.Run("Empty subject", func(t *testing.T) {
		_, ok := SubjectFrom(WithSubject(context.Background(), ""))
		assert.False(t, ok)
	})
}

func TestParseID(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"9223372036854775807", 9223372036854775807, false},
		{"0", 0, false},
		{"-4", -4, false},
		{"9223372036854775808", 0, true},
		{"abc", 0, true},
		{"1.5", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseID(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteJSONError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSONError(w, http.StatusNotFound, "not_found", "Product not found")

	resp := w.Result()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var body ErrorBody
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "not_found", body.Error)
	assert.Equal(t, "Product not found", body.Message)
}
