package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		body   string
	}{
		{"created", func(w http.ResponseWriter) { Created(w, map[string]int{"size": 3}) }, http.StatusCreated, `{"size":3}`},
		{"unauthorized", Unauthorized, http.StatusUnauthorized, `{"error":"Unauthorized"}`},
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "Empty data") }, http.StatusBadRequest, `{"error":"Empty data"}`},
		{"too large", TooLarge, http.StatusRequestEntityTooLarge, `{"error":"Payload too large"}`},
		{"internal", InternalError, http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}
