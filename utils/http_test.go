package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	err := WriteJSON(rec, http.StatusOK, map[string]string{"answer": "42"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "42", decodeBody(t, rec)["answer"])
}

func TestWriteJSON_NilBody(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteJSON(rec, http.StatusAccepted, nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestWriteOK(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteOK(rec, map[string]string{"filename": "notes.pdf"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "notes.pdf", data["filename"])
}

func TestWriteCreated(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteCreated(rec, map[string]string{"id": "abc"}))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteNoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}

func TestWriteBadRequest(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteBadRequest(rec, "Validation failed", map[string]interface{}{
		"question": "question is required",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "bad_request", body["error"])
	assert.Equal(t, "Validation failed", body["message"])
	details := body["details"].(map[string]interface{})
	assert.Equal(t, "question is required", details["question"])
}

func TestWriteUnauthorized_DefaultMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteUnauthorized(rec, ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "unauthorized", body["error"])
	assert.Equal(t, "Authentication required", body["message"])
}

func TestWriteForbidden(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteForbidden(rec, "not your thread"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "not your thread", decodeBody(t, rec)["message"])
}

func TestWriteNotFound_DefaultMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteNotFound(rec, ""))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Resource not found", decodeBody(t, rec)["message"])
}

func TestWriteConflict(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteConflict(rec, "username already taken", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", decodeBody(t, rec)["error"])
}

func TestWriteBadGateway_DefaultMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteBadGateway(rec, ""))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "bad_gateway", body["error"])
	assert.Equal(t, "Upstream model backend unavailable", body["message"])
}

func TestWriteInternalServerError(t *testing.T) {
	rec := httptest.NewRecorder()

	require.NoError(t, WriteInternalServerError(rec, ""))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_error", decodeBody(t, rec)["error"])
}
