package analysis

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"crashtest-analyzer/models"
	"crashtest-analyzer/utils"
)

// BiasCorrector removes the constant offset of the angle channels measured
// over a calm window.
type BiasCorrector struct {
	cfg utils.BiasConfig
}

func NewBiasCorrector(cfg utils.BiasConfig) *BiasCorrector {
	return &BiasCorrector{cfg: cfg}
}

// Window coerces the raw window bounds. Each bound is parsed under its own
// policy and must lie within [min_time, max_time]; an inverted window falls
// back to the defaults. Only a required bound can produce an error.
func (b *BiasCorrector) Window(startRaw, endRaw string) (models.BiasWindow, error) {
	start, err := b.bound("start", startRaw, b.cfg.Start)
	if err != nil {
		return models.BiasWindow{}, err
	}
	end, err := b.bound("end", endRaw, b.cfg.End)
	if err != nil {
		return models.BiasWindow{}, err
	}
	w := models.BiasWindow{Start: start, End: end}
	if !(w.Start < w.End) {
		def := models.BiasWindow{Start: b.cfg.Start.Default, End: b.cfg.End.Default}
		if b.cfg.Start.Policy == models.PolicyRequired || b.cfg.End.Policy == models.PolicyRequired {
			return models.BiasWindow{}, &models.ParameterCoercionError{Field: "window", Value: w.String()}
		}
		utils.L().Warn("bias window %s is inverted, using %s", w, def)
		return def, nil
	}
	return w, nil
}

func (b *BiasCorrector) bound(field, raw string, spec models.ParamSpec) (float64, error) {
	v, defaulted, err := models.CoerceFloat(field, raw, spec)
	if err != nil {
		return 0, err
	}
	if defaulted && raw != "" {
		utils.L().Warn("bias %s %q is not a number, using %g", field, raw, v)
	}
	if v < b.cfg.MinTime || v > b.cfg.MaxTime {
		if spec.Policy == models.PolicyRequired {
			return 0, &models.ParameterCoercionError{Field: field, Value: raw}
		}
		utils.L().Warn("bias %s %g outside [%g, %g], using %g", field, v, b.cfg.MinTime, b.cfg.MaxTime, spec.Default)
		return spec.Default, nil
	}
	return v, nil
}

// Correct averages Roll, Pitch and Yaw over the samples with time in w and
// returns a new recording with each mean subtracted from its channel. The
// source recording is not modified.
func (b *BiasCorrector) Correct(rec *models.Recording, w models.BiasWindow) (*models.BiasCorrection, error) {
	var idx []int
	for i, t := range rec.Time {
		if w.Contains(t) {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return nil, &models.EmptyWindowError{Window: w}
	}

	out := &models.BiasCorrection{Window: w, Samples: len(idx)}
	channels := rec.Channels
	subset := make([]float64, len(idx))
	for _, role := range models.AngleRoles() {
		src := rec.Channels[role]
		for k, i := range idx {
			subset[k] = src[i]
		}
		mean := windowMean(subset)

		shifted := make([]float64, len(src))
		copy(shifted, src)
		floats.AddConst(-mean, shifted)
		channels[role] = shifted

		switch role {
		case models.RoleRoll:
			out.Roll = mean
		case models.RolePitch:
			out.Pitch = mean
		case models.RoleYaw:
			out.Yaw = mean
		}
	}
	out.Corrected = rec.WithChannels(channels)

	utils.L().Info("bias corrected         (window=%s, samples=%d, roll=%.6f, pitch=%.6f, yaw=%.6f)",
		w, out.Samples, out.Roll, out.Pitch, out.Yaw)
	return out, nil
}

// windowMean is the arithmetic mean with one refinement pass, so a constant
// input returns that constant exactly.
func windowMean(xs []float64) float64 {
	m := stat.Mean(xs, nil)
	var r float64
	for _, x := range xs {
		r += x - m
	}
	return m + r/float64(len(xs))
}
