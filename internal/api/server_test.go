package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vrsandeep/qa-harvest/internal/api"
	"github.com/vrsandeep/qa-harvest/internal/config"
	"github.com/vrsandeep/qa-harvest/internal/core"
	"github.com/vrsandeep/qa-harvest/internal/extract"
	"github.com/vrsandeep/qa-harvest/internal/testutil"
)

// setupTestServer builds the full app on an in-memory database with the fake
// PDF opener and OCR engine.
func setupTestServer(t *testing.T, opener extract.Opener) (http.Handler, *core.App) {
	t.Helper()
	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)
	if opener == nil {
		opener = testutil.FakeOpener{}
	}
	app := core.Assemble(cfg, testutil.SetupTestDB(t), opener, &testutil.PixelOCR{})
	return api.NewServer(app).Router(), app
}

type upload struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, uploads ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, u := range uploads {
		w, err := mw.CreateFormFile(u.field, u.name)
		require.NoError(t, err)
		_, err = w.Write(u.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/process", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func waitForJob(t *testing.T, app *core.App) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.Jobs.Wait(ctx), "job did not finish in time")
}

func TestHealth(t *testing.T) {
	router, _ := setupTestServer(t, nil)

	rr := serve(router, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestStatus_EmptyIsArray(t *testing.T) {
	router, _ := setupTestServer(t, nil)

	rr := serve(router, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = serve(router, httptest.NewRequest(http.MethodGet, "/api/job", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestProcess_EndToEnd(t *testing.T) {
	router, app := setupTestServer(t, nil)

	req := multipartRequest(t,
		upload{"excel", "template.xlsx", testutil.BuildTemplate(t, "File Name", "Meta", "QA Numbers", "Status")},
		upload{"pdfs[]", "one.pdf", testutil.FakePDF("Service bulletin for ECOSYS M2540dn, QA-1001")},
		upload{"pdfs[]", "two.pdf", testutil.FakeProtectedPDF()},
	)
	rr := serve(router, req)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var started struct {
		JobID string `json:"job_id"`
		Total int    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &started))
	assert.NotEmpty(t, started.JobID)
	assert.Equal(t, 2, started.Total)

	waitForJob(t, app)

	rr = serve(router, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var msgs []map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &msgs))
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, "finish", last["type"])
	assert.Equal(t, "Complete", last["status"])

	var review map[string]interface{}
	for _, m := range msgs {
		if m["type"] == "review_item" {
			review = m["data"].(map[string]interface{})
		}
	}
	require.NotNil(t, review)
	assert.Equal(t, "two.pdf", review["filename"])

	rr = serve(router, httptest.NewRequest(http.MethodGet, "/api/job", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var job map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &job))
	assert.Equal(t, started.JobID, job["id"])
	assert.Equal(t, "complete", job["state"])
	assert.Equal(t, float64(2), job["current"])

	rr = serve(router, httptest.NewRequest(http.MethodGet, "/api/get-result?job_id="+started.JobID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "QA_Report_")

	rows := testutil.ReadReport(t, rr.Body.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, "ECOSYS M2540dn", rows[1][1])
	assert.Equal(t, "Protected", rows[2][3])
}

func TestProcess_Validation(t *testing.T) {
	router, _ := setupTestServer(t, nil)
	template := testutil.BuildTemplate(t, "File Name")

	testCases := []struct {
		name    string
		uploads []upload
	}{
		{"missing template", []upload{{"pdfs[]", "a.pdf", testutil.FakePDF("x")}}},
		{"missing documents", []upload{{"excel", "t.xlsx", template}}},
		{"unreadable template", []upload{{"excel", "t.xlsx", []byte("nope")}, {"pdfs[]", "a.pdf", testutil.FakePDF("x")}}},
		{"no pdf in upload", []upload{{"excel", "t.xlsx", template}, {"pdfs[]", "notes.txt", []byte("text")}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := serve(router, multipartRequest(t, tc.uploads...))
			assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
		})
	}

	rr := serve(router, httptest.NewRequest(http.MethodPost, "/api/process", bytes.NewBufferString("{}")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProcess_RejectsSecondJob(t *testing.T) {
	release := make(chan struct{})
	blocking := testutil.OpenerFunc(func(data []byte) (extract.Document, error) {
		<-release
		return testutil.FakeOpener{}.Open(data)
	})
	router, app := setupTestServer(t, blocking)

	newRequest := func() *http.Request {
		return multipartRequest(t,
			upload{"excel", "t.xlsx", testutil.BuildTemplate(t, "File Name")},
			upload{"pdfs[]", "a.pdf", testutil.FakePDF("FS-1020 QA-1 plus enough text to skip OCR")},
		)
	}

	rr := serve(router, newRequest())
	require.Equal(t, http.StatusAccepted, rr.Code)

	rr = serve(router, newRequest())
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = serve(router, httptest.NewRequest(http.MethodGet, "/api/get-result", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	close(release)
	waitForJob(t, app)

	rr = serve(router, httptest.NewRequest(http.MethodGet, "/api/get-result", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetResult_UnknownJob(t *testing.T) {
	router, _ := setupTestServer(t, nil)

	rr := serve(router, httptest.NewRequest(http.MethodGet, "/api/get-result?job_id=missing", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
