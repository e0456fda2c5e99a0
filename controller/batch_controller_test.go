package controller

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crashtest-analyzer/models"
)

// batchInputs writes a clean export, a three-dip export and a broken file
// into dir, plus a previous corrected output that must be ignored.
func batchInputs(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.Rename(writeExport(t, dir, 2000, 2600, 5000, 5700), filepath.Join(dir, "a.csv")))
	require.NoError(t, os.Rename(writeExport(t, dir, 2000, 2600, 5000), filepath.Join(dir, "c.csv")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("not an export\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_OFFSET.csv"), []byte("old"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("#"), 0o644))
}

func TestBatch_FindExports(t *testing.T) {
	dir := t.TempDir()
	batchInputs(t, dir)

	b := NewBatchController(testConfig(), nil)
	got, err := b.FindExports(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "c.csv"),
	}, got)

	_, err = b.FindExports(filepath.Join(dir, "missing"))
	var ie *models.IOError
	assert.ErrorAs(t, err, &ie)
}

func TestBatch_Run(t *testing.T) {
	dir := t.TempDir()
	batchInputs(t, dir)
	cfg := testConfig()
	b := NewBatchController(cfg, NewSpeedBiasController(cfg))

	inputs, err := b.FindExports(dir)
	require.NoError(t, err)
	out := t.TempDir()
	sum, err := b.Run(context.Background(), inputs, BatchOptions{OutDir: out, SavePNG: true})
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Files)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, out, filepath.Dir(sum.SessionDir))

	f, err := os.Open(sum.SummaryCSV)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, models.BatchEntry{}.CSVHeader(), rows[0])

	body := rows[1:]
	sort.Slice(body, func(i, j int) bool { return body[i][0] < body[j][0] })
	byName := map[string][]string{}
	for _, r := range body {
		byName[r[0]] = r
	}

	a := byName["a.csv"]
	require.NotNil(t, a)
	assert.Equal(t, "TB11-7", a[1])
	assert.NotEmpty(t, a[2], "speed present")
	assert.Equal(t, "5.000000", a[5])
	assert.Equal(t, "a_OFFSET.csv", a[11])
	assert.Equal(t, "0", a[12])

	c := byName["c.csv"]
	require.NotNil(t, c)
	assert.Empty(t, c[2], "no speed with three peaks")
	assert.Equal(t, "3", c[10])
	assert.Equal(t, "1", c[12])
	assert.Equal(t, string(models.KindSignalQuality), c[13])

	bad := byName["b.txt"]
	require.NotNil(t, bad)
	assert.Equal(t, string(models.KindStructural), bad[13])

	assert.FileExists(t, filepath.Join(sum.SessionDir, "a.png"))
	assert.FileExists(t, filepath.Join(sum.SessionDir, "c.png"))
	assert.NoFileExists(t, filepath.Join(sum.SessionDir, "b.png"))
}

func TestBatch_CancelledBeforeStart(t *testing.T) {
	cfg := testConfig()
	b := NewBatchController(cfg, NewSpeedBiasController(cfg))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sum, err := b.Run(ctx, []string{"x.csv", "y.csv"}, BatchOptions{OutDir: t.TempDir()})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, sum)
	assert.LessOrEqual(t, sum.Files, 2)
	assert.FileExists(t, sum.SummaryCSV)
}
