package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
)

func getPatterns(t *testing.T, router http.Handler) patterns.Set {
	t.Helper()
	rr := serve(router, httptest.NewRequest(http.MethodGet, "/api/patterns", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var set patterns.Set
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &set))
	return set
}

func postPatterns(router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/patterns", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return serve(router, req)
}

func TestGetPatterns_Defaults(t *testing.T) {
	router, _ := setupTestServer(t, nil)

	set := getPatterns(t, router)
	assert.Equal(t, patterns.DefaultSet, set)
}

func TestSavePatterns(t *testing.T) {
	router, _ := setupTestServer(t, nil)

	rr := postPatterns(router, `{
		"model_patterns": ["\\bFS-\\d+\\b", {"pattern": "\\bKM-\\d+\\b", "normalize": ["trim", "upper"]}],
		"qa_patterns": ["\\bDOC-\\d+\\b"]
	}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	set := getPatterns(t, router)
	require.Len(t, set.Model, 2)
	assert.Equal(t, `\bFS-\d+\b`, set.Model[0].Pattern)
	assert.Equal(t, []patterns.Directive{patterns.Trim, patterns.Upper}, set.Model[1].Normalize)
	require.Len(t, set.QA, 1)
	assert.Equal(t, `\bDOC-\d+\b`, set.QA[0].Pattern)
}

func TestSavePatterns_InvalidLeavesStoreIntact(t *testing.T) {
	router, _ := setupTestServer(t, nil)

	rr := postPatterns(router, `{"model_patterns": ["\\bFS-\\d+\\b"], "qa_patterns": ["QA-(\\d+"]}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "qa pattern 1")

	assert.Equal(t, patterns.DefaultSet, getPatterns(t, router))

	rr = postPatterns(router, `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSavePatterns_BareStringsRoundTrip(t *testing.T) {
	router, _ := setupTestServer(t, nil)

	body := `{"model_patterns": ["\\bFS-\\d+\\b", "\\bKM-\\d+\\b"], "qa_patterns": ["\\bQA-\\d+\\b"]}`
	rr := postPatterns(router, body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(router, httptest.NewRequest(http.MethodGet, "/api/patterns", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, body, rr.Body.String())

	var raw struct {
		Model []string `json:"model_patterns"`
		QA    []string `json:"qa_patterns"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	assert.Equal(t, []string{`\bFS-\d+\b`, `\bKM-\d+\b`}, raw.Model)
	assert.Equal(t, []string{`\bQA-\d+\b`}, raw.QA)
}
