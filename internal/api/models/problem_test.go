package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkokki/kkokki/internal/api/models"
)

func TestProblem_Builders(t *testing.T) {
	p := models.NewProblem(models.KindValidation, "req_test123", "arrival must be HH:MM").
		At("/v1/monitor/start").
		WithErrors([]models.FieldError{{Field: "arrival", Message: "must be HH:MM", Code: "INVALID_FORMAT"}})

	assert.Equal(t, "arrival must be HH:MM", p.Detail)
	assert.Equal(t, "/v1/monitor/start", p.Instance)
	assert.Equal(t, "Validation error", p.Title)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "arrival", p.Errors[0].Field)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewProblem(models.KindValidation, "req_abc", "invalid body").At("/v1/routes:compute")

	rec := httptest.NewRecorder()
	p.Write(rec)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req_abc", rec.Header().Get("X-Request-Id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, models.KindValidation.TypeURI(), body["type"])
	assert.Equal(t, "req_abc", body["traceId"])
	assert.Equal(t, "/v1/routes:compute", body["instance"])
	assert.NotContains(t, body, "errors")
}

func TestKind_Catalogue(t *testing.T) {
	tests := []struct {
		kind   models.Kind
		slug   string
		status int
	}{
		{models.KindValidation, "validation-error", http.StatusBadRequest},
		{models.KindNotFound, "not-found", http.StatusNotFound},
		{models.KindUnsupportedMediaType, "unsupported-media-type", http.StatusUnsupportedMediaType},
		{models.KindTooManyRequests, "too-many-requests", http.StatusTooManyRequests},
		{models.KindInternal, "internal-error", http.StatusInternalServerError},
		{models.KindUpstream, "upstream-error", http.StatusBadGateway},
		{models.KindUnavailable, "service-unavailable", http.StatusServiceUnavailable},
		{models.KindTLSRequired, "tls-required", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			p := models.NewProblem(tt.kind, "r", "d")
			assert.True(t, strings.HasSuffix(p.Type, "/problems/"+tt.slug), p.Type)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, tt.status, tt.kind.Status())
			assert.NotEmpty(t, p.Title)
		})
	}
}
