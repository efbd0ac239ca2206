package httpx

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeFlattensData(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, 200, map[string]any{"patients": []string{"a"}, "totalCount": 1})

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, true, body["success"])
	require.Equal(t, float64(1), body["totalCount"])
	require.NotContains(t, body, "error")
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()
	Fail(rec, 404, "resource not found")

	require.Equal(t, 404, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, false, body["success"])
	require.Equal(t, "resource not found", body["error"])
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{ErrNotFound, 404},
		{ErrDuplicate, 409},
		{ErrValidation, 400},
		{ErrForbidden, 403},
		{ErrUnauthorized, 401},
		{fmt.Errorf("wrapped: %w", ErrValidation), 400},
		{fmt.Errorf("something unexpected"), 500},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.code, rec.Code, "error %v", tc.err)
	}
}
