package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crashtest-analyzer/models"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	cfg := testConfig()
	cfg.Server.BaseDir = t.TempDir()
	return NewServer(cfg, NewSpeedBiasController(cfg), NewFrameController(cfg)), cfg.Server.BaseDir
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServer_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)
	w := do(t, srv.Handler(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestServer_SpeedAndDownload(t *testing.T) {
	srv, base := newTestServer(t)
	writeExport(t, base, 2000, 2600, 5000, 5700)

	w := do(t, srv.Handler(), http.MethodPost, "/api/speed", models.SpeedRequest{File: "run.csv"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res models.AnalysisResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 0, res.ErrorFlag)
	assert.Equal(t, "TB11-7", res.TestID)
	assert.Equal(t, "run_OFFSET.csv", res.OutputCSV)
	require.NotNil(t, res.RollBias)
	assert.Equal(t, 5.0, *res.RollBias)

	w = do(t, srv.Handler(), http.MethodGet, "/api/speed/csv?file=run.csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "run_OFFSET.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "Headers"))
}

func TestServer_RejectsBadInput(t *testing.T) {
	srv, base := newTestServer(t)
	h := srv.Handler()

	cases := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"speed escapes base", http.MethodPost, "/api/speed", models.SpeedRequest{File: "../run.csv"}, http.StatusBadRequest},
		{"speed absolute", http.MethodPost, "/api/speed", models.SpeedRequest{File: filepath.Join(base, "run.csv")}, http.StatusBadRequest},
		{"speed missing file field", http.MethodPost, "/api/speed", map[string]string{"start": "7"}, http.StatusBadRequest},
		{"speed unknown file", http.MethodPost, "/api/speed", models.SpeedRequest{File: "nope.csv"}, http.StatusNotFound},
		{"csv not produced", http.MethodGet, "/api/speed/csv?file=nope.csv", nil, http.StatusNotFound},
		{"frames missing fields", http.MethodPost, "/api/frames", map[string]string{"x": "x.csv"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, tc.method, tc.target, tc.body)
			assert.Equal(t, tc.want, w.Code, w.Body.String())
		})
	}
}

func TestServer_Frames(t *testing.T) {
	srv, base := newTestServer(t)
	frameRequest(t, base, 200, false)

	body := models.FrameRequest{
		XFile: "x.csv", YFile: "y.csv", ZFile: "z.csv", RPYFile: "rpy.csv",
		OIV: "0.005", FinalTime: "0.01", CameraRate: "1000",
	}
	w := do(t, srv.Handler(), http.MethodPost, "/api/frames", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res models.FrameSequenceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.OK)
	assert.Equal(t, "generated_images", res.Dir)
	assert.Equal(t, 20, res.Frames)

	body.CameraRate = "never"
	w = do(t, srv.Handler(), http.MethodPost, "/api/frames", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
