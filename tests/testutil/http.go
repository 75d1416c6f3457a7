package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/storefront/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HTTPTestCase is one request against a single handler.
type HTTPTestCase struct {
	Name           string
	Method         string
	Path           string
	Body           any
	Headers        map[string]string
	ExpectedStatus int
	// ExpectedCode is the error code of a failed response.
	ExpectedCode string
	Setup        func(t *testing.T, tc *TestContext)
	Validate     func(t *testing.T, tc *TestContext)
}

// RunHTTPTestCases runs each case as a subtest.
func RunHTTPTestCases(t *testing.T, handler gin.HandlerFunc, cases []HTTPTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			RunHTTPTestCase(t, handler, tc)
		})
	}
}

// RunHTTPTestCase calls handler directly with the case's request.
func RunHTTPTestCase(t *testing.T, handler gin.HandlerFunc, tc HTTPTestCase) {
	t.Helper()

	method := tc.Method
	if method == "" {
		method = http.MethodGet
	}
	path := tc.Path
	if path == "" {
		path = "/"
	}

	var body io.Reader
	if tc.Body != nil {
		body = ToJSONReader(t, tc.Body)
	}
	req := httptest.NewRequest(method, path, body)
	if tc.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range tc.Headers {
		req.Header.Set(k, v)
	}

	testCtx := NewTestContextWithRequest(t, req)
	if tc.Setup != nil {
		tc.Setup(t, testCtx)
	}

	handler(testCtx.Context)

	if tc.ExpectedStatus != 0 {
		assert.Equal(t, tc.ExpectedStatus, testCtx.ResponseCode(), testCtx.Recorder.Body.String())
	}
	if tc.ExpectedCode != "" {
		AssertErrorResponse(t, testCtx, tc.ExpectedCode)
	}
	if tc.Validate != nil {
		tc.Validate(t, testCtx)
	}
}

// DecodeResponse parses the standard response envelope.
func DecodeResponse(t *testing.T, tc *TestContext) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(tc.ResponseBody(), &resp), "Failed to parse JSON response")
	return resp
}

// DecodeData parses the envelope and decodes its data field into T.
func DecodeData[T any](t *testing.T, body []byte) T {
	t.Helper()
	var envelope struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope), "Failed to parse JSON response")
	require.True(t, envelope.Success, "Expected a successful response: %s", string(body))
	return envelope.Data
}

// AssertSuccessResponse asserts the envelope reports success without an error.
func AssertSuccessResponse(t *testing.T, tc *TestContext) {
	t.Helper()
	resp := DecodeResponse(t, tc)
	assert.True(t, resp.Success, "Expected success to be true")
	assert.Nil(t, resp.Error, "Expected no error")
}

// AssertErrorResponse asserts the envelope carries expectedCode.
func AssertErrorResponse(t *testing.T, tc *TestContext, expectedCode string) {
	t.Helper()
	resp := DecodeResponse(t, tc)
	assert.False(t, resp.Success, "Expected success to be false")
	require.NotNil(t, resp.Error, "Expected error object in response")
	assert.Equal(t, expectedCode, resp.Error.Code, "Unexpected error code")
}

// ToJSONReader converts a value to a JSON io.Reader.
func ToJSONReader(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err, "Failed to marshal to JSON")
	return bytes.NewReader(data)
}
