package controller

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crashtest-analyzer/models"
)

func TestSpeedBias_Success(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeExport(t, dir, 2000, 2600, 5000, 5700)

	res := NewSpeedBiasController(testConfig()).Process(models.SpeedRequest{File: path})
	require.Equal(t, 0, res.ErrorFlag, res.Error)
	assert.Equal(t, models.KindNone, res.ErrorKind)
	assert.Equal(t, "TB11-7", res.TestID)
	assert.Equal(t, 4, res.PeakCount)

	require.NotNil(t, res.SpeedKmh)
	require.NotNil(t, res.SpeedFalling)
	require.NotNil(t, res.Offset)
	assert.InEpsilon(t, 3.6/(3000*exportDt), *res.SpeedKmh, 1e-3)
	assert.InEpsilon(t, 3.6/(3100*exportDt), *res.SpeedFalling, 1e-3)
	assert.InEpsilon(t, 3.6 / *res.SpeedKmh, *res.Offset, 1e-9)

	require.NotNil(t, res.RollBias)
	assert.Equal(t, 5.0, *res.RollBias)
	assert.Equal(t, 2.0, *res.PitchBias)
	assert.Equal(t, -3.0, *res.YawBias)
	assert.Equal(t, models.DefaultBiasWindow(), res.Window)

	assert.Equal(t, filepath.Join(dir, "run_OFFSET.csv"), res.OutputCSV)
	data, err := os.ReadFile(res.OutputCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	assert.Equal(t, "Headers,,,,,,,", lines[0])
	assert.Equal(t, "Time,Speed,LongAccel,LatAccel,VertAccel,Roll,Pitch,Yaw", lines[22])
	assert.Len(t, lines, 23+exportRows)
	// t = 8 s lies in the window: every angle is corrected to exactly zero.
	assert.True(t, strings.HasPrefix(lines[23+8000], "8,"), lines[23+8000])
	assert.True(t, strings.HasSuffix(lines[23+8000], ",0,0,0"), lines[23+8000])

	img, err := png.Decode(bytes.NewReader(res.Diagnostic))
	require.NoError(t, err)
	assert.Equal(t, 3*160, img.Bounds().Dy())
}

func TestSpeedBias_SignalQualityFailureStillCorrects(t *testing.T) {
	t.Parallel()
	path := writeExport(t, t.TempDir(), 2000, 2600, 5000)

	res := NewSpeedBiasController(testConfig()).Process(models.SpeedRequest{File: path, Start: "7", End: "9.8"})
	assert.Equal(t, 1, res.ErrorFlag)
	assert.Equal(t, models.KindSignalQuality, res.ErrorKind)
	assert.Equal(t, 3, res.PeakCount)
	assert.Nil(t, res.SpeedKmh)
	assert.Nil(t, res.SpeedFalling)
	assert.Nil(t, res.Offset)

	require.NotNil(t, res.RollBias)
	assert.Equal(t, 5.0, *res.RollBias)
	assert.FileExists(t, res.OutputCSV)

	img, err := png.Decode(bytes.NewReader(res.Diagnostic))
	require.NoError(t, err)
	assert.Equal(t, 2*160, img.Bounds().Dy(), "raw-only figure")
}

func TestSpeedBias_HardFailures(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	good := writeExport(t, dir, 2000, 2600, 5000, 5700)
	broken := filepath.Join(dir, "broken.csv")
	require.NoError(t, os.WriteFile(broken, []byte("just,one,line\n"), 0o644))

	cases := []struct {
		name string
		req  models.SpeedRequest
		kind models.ErrorKind
	}{
		{"missing file", models.SpeedRequest{File: filepath.Join(dir, "nope.csv")}, models.KindIO},
		{"not an export", models.SpeedRequest{File: broken}, models.KindStructural},
		{"empty window", models.SpeedRequest{File: good, Start: "0.0001", End: "0.0009"}, models.KindBiasWindow},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			res := NewSpeedBiasController(testConfig()).Process(tc.req)
			assert.Equal(t, 1, res.ErrorFlag)
			assert.Equal(t, tc.kind, res.ErrorKind)
			assert.NotEmpty(t, res.Error)
			assert.Nil(t, res.SpeedKmh)
			assert.Nil(t, res.RollBias)
			assert.Empty(t, res.OutputCSV)
			assert.Nil(t, res.Diagnostic)
		})
	}
	assert.NoFileExists(t, filepath.Join(dir, "run_OFFSET.csv"), "no partial csv on a hard failure")
}

func TestSpeedBias_BadWindowFallsBackToDefaults(t *testing.T) {
	t.Parallel()
	path := writeExport(t, t.TempDir(), 2000, 2600, 5000, 5700)
	res := NewSpeedBiasController(testConfig()).Process(models.SpeedRequest{File: path, Start: "soon", End: "42"})
	require.Equal(t, 0, res.ErrorFlag, res.Error)
	assert.Equal(t, models.DefaultBiasWindow(), res.Window)
	assert.Equal(t, 5.0, *res.RollBias)
}
