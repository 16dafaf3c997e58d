package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "collisio/internal/errors"
	"collisio/internal/infrastructure"
	"collisio/internal/shared/testutil"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "generated when absent"},
		{name: "client id is kept", header: "client-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen, chiSeen, traceSeen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
				chiSeen = chimw.GetReqID(r.Context())
				traceSeen = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			require.NotEmpty(t, seen)
			if tt.header != "" {
				assert.Equal(t, tt.header, seen)
			}
			assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
			assert.Equal(t, seen, chiSeen)
			assert.Equal(t, seen, traceSeen)
		})
	}
}

func TestRecoverer(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	errHandler := apierrors.NewErrorHandler(logger, false)

	h := RequestID(Recoverer(errHandler)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/reports", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apierrors.TypeInternal, body["type"])
	assert.Equal(t, rec.Header().Get(RequestIDHeader), body["trace_id"])
	assert.True(t, handler.ContainsMessage("panic recovered"))
}

func TestStructuredLogger(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.True(t, handler.ContainsMessage("request completed"))
	assert.True(t, handler.ContainsAttr("status", int64(http.StatusTeapot)))
	assert.True(t, handler.ContainsAttr("path", "/healthz"))
}

func TestMaxBodySize(t *testing.T) {
	var readErr error
	h := MaxBodySize(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))

	var tooLarge *http.MaxBytesError
	assert.ErrorAs(t, readErr, &tooLarge)
}

func TestContentTypeValidator(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	errHandler := apierrors.NewErrorHandler(logger, false)
	h := ContentTypeValidator(errHandler, "multipart/form-data")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	tests := []struct {
		name        string
		method      string
		contentType string
		wantStatus  int
	}{
		{"multipart accepted", http.MethodPost, "multipart/form-data; boundary=x", http.StatusAccepted},
		{"json rejected", http.MethodPost, "application/json", http.StatusUnsupportedMediaType},
		{"missing rejected", http.MethodPost, "", http.StatusUnsupportedMediaType},
		{"get skipped", http.MethodGet, "", http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/reports", nil)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestValidator(t *testing.T) {
	type form struct {
		Style   string   `form:"style" validate:"omitempty,oneof=basic enhanced advanced"`
		Formats []string `form:"formats" validate:"min=1,dive,oneof=docx html pdf"`
		RunID   string   `json:"run_id" validate:"omitempty,runid"`
	}
	v := NewValidator()

	require.NoError(t, v.ValidateStruct(form{Style: "basic", Formats: []string{"docx"}}))

	err := v.ValidateStruct(form{Style: "flowery", Formats: []string{"odt"}, RunID: "../etc"})
	require.Error(t, err)

	apiErr, ok := err.(*apierrors.APIError)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

	fields, ok := apiErr.Details.([]apierrors.ValidationError)
	require.True(t, ok)
	require.Len(t, fields, 3)
	assert.Equal(t, "style", fields[0].Field)
	assert.Equal(t, "style must be one of: basic, enhanced, advanced", fields[0].Message)
	assert.Equal(t, "formats[0]", fields[1].Field)
	assert.Equal(t, "run_id", fields[2].Field)
	assert.Contains(t, fields[2].Message, "dashes")

	require.NoError(t, v.ValidateStruct(form{Formats: []string{"pdf"}, RunID: "3f2a-upload-7"}))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestOTelMiddleware_RecordsStatus(t *testing.T) {
	m := NewOTelMiddleware(nil, nil)
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
