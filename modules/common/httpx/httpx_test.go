package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"persona-studio-server/modules/common/apperr"
)

type sampleRequest struct {
	Topic string `json:"topic" validate:"required"`
	Count int    `json:"count" validate:"gte=0,lte=3"`
}

func TestDecodeValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"count": 5}`))

	var body sampleRequest
	err := Decode(req, "test", &body)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.Validation)
	assert.Contains(t, err.Error(), "Topic")
	assert.Contains(t, err.Error(), "Count")
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))

	var body sampleRequest
	assert.ErrorIs(t, Decode(req, "test", &body), apperr.Validation)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, apperr.NotFoundf("content.Get", "content not found: x"))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "not_found", resp.Kind)
}
