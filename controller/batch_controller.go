package controller

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"crashtest-analyzer/models"
	"crashtest-analyzer/utils"
	"crashtest-analyzer/views"
)

// BatchOptions configures one batch run.
type BatchOptions struct {
	OutDir  string // parent of the session directory
	Start   string // bias window, raw as for a single request
	End     string
	SavePNG bool // keep each diagnostic figure next to the summary
}

// BatchController runs the speed/bias pipeline over many exports.
// Each run writes into a fresh session directory:
//   - summary.csv  (one row per input, written as results arrive)
//   - <input>.png  diagnostic figures (optional)
//
// Bias-corrected CSVs still land next to their inputs, as for a single
// request.
type BatchController struct {
	cfg   *utils.Config
	speed *SpeedBiasController
}

func NewBatchController(cfg *utils.Config, speed *SpeedBiasController) *BatchController {
	return &BatchController{cfg: cfg, speed: speed}
}

// FindExports lists the candidate exports in dir, skipping files this tool
// wrote itself.
func (b *BatchController) FindExports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &models.IOError{Path: dir, Op: "list", Err: err}
	}
	exts := make(map[string]bool, len(b.cfg.Batch.Extensions))
	for _, e := range b.cfg.Batch.Extensions {
		exts[strings.ToLower(e)] = true
	}

	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !exts[strings.ToLower(ext)] {
			continue
		}
		if strings.HasSuffix(strings.TrimSuffix(name, ext), b.cfg.Bias.OutputSuffix) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// batchRun is the mutable state of one Run call.
type batchRun struct {
	sessionDir string
	summary    *views.CSVWriter
	total      int

	done   uint64
	failed uint64
}

// Run processes inputs with a bounded worker pool. Rows are flushed to the
// summary periodically so an interrupted run still leaves a usable file.
// Inputs not started before ctx is cancelled are skipped and ctx.Err() is
// returned alongside the partial summary.
func (b *BatchController) Run(ctx context.Context, inputs []string, opts BatchOptions) (*models.BatchSummary, error) {
	start := time.Now()
	bc := b.cfg.Batch

	sessionDir := filepath.Join(opts.OutDir, bc.SessionPrefix+"_"+utils.RunID())
	if err := os.MkdirAll(sessionDir, 0o755); err != nil {
		return nil, &models.IOError{Path: sessionDir, Op: "mkdir", Err: err}
	}
	summary, err := views.NewCSVWriter(filepath.Join(sessionDir, "summary.csv"),
		bc.BufferSizeKB*1024, true, models.BatchEntry{}.CSVHeader())
	if err != nil {
		return nil, err
	}
	run := &batchRun{sessionDir: sessionDir, summary: summary, total: len(inputs)}
	utils.L().Info("batch started          (files=%d, workers=%d, session=%s)", len(inputs), bc.Workers, sessionDir)

	jobs := make(chan string)
	results := make(chan models.BatchEntry)
	stopFlush := make(chan struct{})

	// Periodic flusher
	var flushWG sync.WaitGroup
	flushWG.Add(1)
	go func() {
		defer flushWG.Done()
		ms := bc.FlushIntervalMs
		if ms <= 0 {
			ms = 500
		}
		ticker := time.NewTicker(time.Duration(ms) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopFlush:
				return
			case <-ticker.C:
				if err := run.summary.Flush(); err != nil {
					utils.L().Warn("batch summary flush: %v", err)
				}
				utils.L().Debug("batch progress         (done=%d/%d, failed=%d)",
					atomic.LoadUint64(&run.done), run.total, atomic.LoadUint64(&run.failed))
			}
		}
	}()

	// Workers
	workers := bc.Workers
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- b.process(run, path, opts)
			}
		}()
	}

	// Feeder
	go func() {
		defer close(jobs)
		for _, p := range inputs {
			select {
			case <-ctx.Done():
				return
			case jobs <- p:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Writer
	for e := range results {
		run.summary.WriteRow(e.CSVRow())
		atomic.AddUint64(&run.done, 1)
		if e.Result.ErrorFlag != 0 {
			atomic.AddUint64(&run.failed, 1)
		}
	}

	close(stopFlush)
	flushWG.Wait()
	if err := run.summary.Close(); err != nil {
		return nil, err
	}

	done, failed := int(atomic.LoadUint64(&run.done)), int(atomic.LoadUint64(&run.failed))
	sum := &models.BatchSummary{
		SessionDir: sessionDir,
		SummaryCSV: filepath.Join(sessionDir, "summary.csv"),
		Files:      done,
		Succeeded:  done - failed,
		Failed:     failed,
	}
	utils.L().Info("batch finished         (files=%d/%d, failed=%d, elapsed=%s)",
		done, run.total, failed, utils.Elapsed(start))
	return sum, ctx.Err()
}

func (b *BatchController) process(run *batchRun, path string, opts BatchOptions) models.BatchEntry {
	res := b.speed.Process(models.SpeedRequest{File: path, Start: opts.Start, End: opts.End})
	if opts.SavePNG && len(res.Diagnostic) > 0 {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		png := filepath.Join(run.sessionDir, base+".png")
		if err := os.WriteFile(png, res.Diagnostic, 0o644); err != nil {
			utils.L().Error("save diagnostic: %v", err)
		}
	}
	return models.BatchEntry{Input: path, Result: res}
}
