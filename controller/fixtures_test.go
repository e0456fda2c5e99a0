package controller

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"crashtest-analyzer/models"
	"crashtest-analyzer/utils"
)

// ---------------------------------------------------------------------------
// Synthetic crash-test export
// ---------------------------------------------------------------------------

const (
	exportDt   = 1e-3
	exportRows = 10001 // 0 .. 10 s
)

var angleBias = map[models.Role]float64{models.RoleRoll: 5.0, models.RolePitch: 2.0, models.RoleYaw: -3.0}

// exportValue is the sample of role at time t. Speed sits at 0 with
// single-sample dips to -100 at the given indices.
func exportValue(role models.Role, i int, t float64, dips map[int]bool) float64 {
	switch role {
	case models.RoleSpeed:
		if dips[i] {
			return -100
		}
		return 0
	case models.RoleRoll, models.RolePitch, models.RoleYaw:
		if models.DefaultBiasWindow().Contains(t) {
			return angleBias[role]
		}
		return 10 * math.Sin(t+float64(role))
	}
	return float64(role) + 0.1*math.Cos(t)
}

// writeExport writes a 7-channel export with channels stored in reverse
// role order, returning its path.
func writeExport(t *testing.T, dir string, dips ...int) string {
	t.Helper()
	dipSet := map[int]bool{}
	for _, d := range dips {
		dipSet[d] = true
	}
	roles := models.Roles()
	order := make([]models.Role, len(roles))
	for i, r := range roles {
		order[len(roles)-1-i] = r
	}
	descs := map[models.Role]string{
		models.RoleSpeed: "Speed trap", models.RoleLongAccel: "Long Accel", models.RoleLatAccel: "Lat Accel",
		models.RoleVertAccel: "Vert Accel", models.RoleRoll: "Roll Angle", models.RolePitch: "Pitch Angle", models.RoleYaw: "Yaw Angle",
	}

	var b strings.Builder
	row := func(first string, cells []string) {
		b.WriteString(first)
		for _, c := range cells {
			b.WriteString(",")
			b.WriteString(c)
		}
		b.WriteString("\n")
	}
	blank := make([]string, 7)
	for i := 0; i < 22; i++ {
		switch i {
		case 3:
			row("Test ID", append([]string{"TB11-7"}, blank[1:]...))
		case 5:
			row("Sample Rate", append([]string{"1000"}, blank[1:]...))
		case 9:
			cells := make([]string, 7)
			for c, r := range order {
				cells[c] = descs[r]
			}
			row("Description", cells)
		default:
			row(fmt.Sprintf("meta %d", i), blank)
		}
	}
	names := make([]string, 7)
	for c, r := range order {
		names[c] = r.String()
	}
	row("Time", names)
	for i := 0; i < exportRows; i++ {
		tt := float64(i) * exportDt
		cells := make([]string, 7)
		for c, r := range order {
			cells[c] = fmt.Sprint(exportValue(r, i, tt, dipSet))
		}
		row(fmt.Sprint(tt), cells)
	}

	path := filepath.Join(dir, "run.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

// ---------------------------------------------------------------------------
// Synthetic frame channel files
// ---------------------------------------------------------------------------

const frameDt = 1e-4

func writeChannel(t *testing.T, dir, name string, rows int, header []string, f func(i int, t float64) []float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("Sensor," + name + "\nSerial,1\nCal,none\n")
	b.WriteString(strings.Join(header, ",") + "\n")
	b.WriteString("s" + strings.Repeat(",unit", len(header)-1) + "\n")
	for i := 0; i < rows; i++ {
		tt := float64(i) * frameDt
		cells := []string{fmt.Sprint(tt)}
		for _, v := range f(i, tt) {
			cells = append(cells, fmt.Sprint(v))
		}
		b.WriteString(strings.Join(cells, ",") + "\n")
	}
	path := filepath.Join(dir, name+".csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func frameRequest(t *testing.T, dir string, rows int, extended bool) models.FrameRequest {
	t.Helper()
	accel := func(k float64) func(int, float64) []float64 {
		return func(_ int, tt float64) []float64 { return []float64{k * math.Sin(2000*tt)} }
	}
	req := models.FrameRequest{
		XFile:   writeChannel(t, dir, "x", rows, []string{"Time", "Raw"}, accel(1)),
		YFile:   writeChannel(t, dir, "y", rows, []string{"Time", "Raw"}, accel(2)),
		ZFile:   writeChannel(t, dir, "z", rows, []string{"Time", "Raw"}, accel(3)),
		RPYFile: writeChannel(t, dir, "rpy", rows, []string{"Time", "Roll Angle", "Pitch Angle", "Yaw Angle"},
			func(_ int, tt float64) []float64 { return []float64{tt, -tt, 2 * tt} }),
		OIV:        "0.005",
		FinalTime:  "0.01",
		CameraRate: "1000",
		Mode:       "MASH",
	}
	if extended {
		req.Mode = "EN1317"
		req.ASIFile = writeChannel(t, dir, "asi", rows, []string{"Time", "ASI"},
			func(_ int, tt float64) []float64 { return []float64{50 * tt} })
	}
	return req
}

// testConfig shrinks rendering so tests stay fast.
func testConfig() *utils.Config {
	cfg := utils.DefaultConfig()
	cfg.Render.PanelWidth, cfg.Render.PanelHeight = 320, 160
	cfg.Frames.PanelWidth, cfg.Frames.PanelHeight = 240, 140
	cfg.Frames.Workers = 3
	return cfg
}
