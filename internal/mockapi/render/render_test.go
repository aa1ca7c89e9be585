package render

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doRequest(t *testing.T, h http.HandlerFunc, body string) (*http.Response, string) {
	t.Helper()

	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/test", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestRender_JSON(t *testing.T) {
	resp, body := doRequest(t, func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, map[string]any{"key1": 1, "key2": "222"})
	}, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"key1":1,"key2":"222"}`, body)
}

func TestRender_Success(t *testing.T) {
	resp, body := doRequest(t, func(w http.ResponseWriter, _ *http.Request) {
		Success(w)
	}, "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, body)
}

func TestRender_ServiceError(t *testing.T) {
	t.Run("generic", func(t *testing.T) {
		resp, body := doRequest(t, func(w http.ResponseWriter, _ *http.Request) {
			ServiceError(w, "something terrible happened", http.StatusForbidden)
		}, "")

		require.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.JSONEq(t, `{"error":"service_error","description":"something terrible happened"}`, body)
	})

	t.Run("unauthorized", func(t *testing.T) {
		resp, body := doRequest(t, func(w http.ResponseWriter, _ *http.Request) {
			ServiceError(w, "Invalid token", http.StatusUnauthorized)
		}, "")

		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.JSONEq(t, `{"error":"unauthorized","description":"Invalid token"}`, body)
	})
}

func TestRender_BindAndValidate(t *testing.T) {
	type request struct {
		InitData string `json:"initData" validate:"required"`
		Count    int    `json:"count"`
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		data, err := BindAndValidate[request](w, r)
		if err != nil {
			return
		}
		JSON(w, data)
	}

	tests := []struct {
		name         string
		requestBody  string
		expectedCode int
		expected     string
	}{
		{
			name:         "valid",
			requestBody:  `{"initData":"query_id=1","count":2}`,
			expectedCode: http.StatusOK,
			expected:     `{"initData":"query_id=1","count":2}`,
		},
		{
			name:         "json parsing error",
			requestBody:  `invalid-json`,
			expectedCode: http.StatusBadRequest,
			expected: `{
				"error":"decoding_failed",
				"description": "Failed to parse JSON: invalid character 'i' looking for beginning of value"
			}`,
		},
		{
			name:         "wrong type",
			requestBody:  `{"initData":"x","count":"two"}`,
			expectedCode: http.StatusBadRequest,
			expected:     `{"error":"decoding_failed","description":"Invalid data type for field 'count'"}`,
		},
		{
			name:         "required field",
			requestBody:  `{"count":1}`,
			expectedCode: http.StatusBadRequest,
			expected: `{
				"error":"validation_failed",
				"description":"Request validation failed",
				"errors":{"initData":["This field is required"]}
			}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, handler, tt.requestBody)

			require.Equal(t, tt.expectedCode, resp.StatusCode)
			assert.JSONEq(t, tt.expected, body)
		})
	}
}
