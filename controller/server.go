package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crashtest-analyzer/models"
	"crashtest-analyzer/utils"
)

// Server exposes the two pipelines over HTTP. File fields are paths
// relative to the configured base directory, where the upload layer has
// already stored them.
type Server struct {
	cfg    *utils.Config
	speed  *SpeedBiasController
	frames *FrameController
	locks  *dirLocks
	engine *gin.Engine
}

func NewServer(cfg *utils.Config, speed *SpeedBiasController, frames *FrameController) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		cfg:    cfg,
		speed:  speed,
		frames: frames,
		locks:  newDirLocks(),
		engine: gin.New(),
	}
	r := s.engine
	r.Use(gin.Recovery())
	r.Use(requestID)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/api/speed", s.postSpeed)
	r.GET("/api/speed/csv", s.getSpeedCSV)
	r.POST("/api/frames", s.postFrames)
	return s
}

// Handler returns the routed engine.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		utils.L().Info("http server listening  (addr=%s, base=%s)", s.cfg.Server.Addr, s.cfg.Server.BaseDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		utils.L().Info("http server stopping")
		return srv.Shutdown(shutCtx)
	}
}

func requestID(c *gin.Context) {
	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Set("request_id", id)
	c.Header("X-Request-ID", id)
	start := time.Now()
	c.Next()
	utils.L().Debug("http %s %s -> %d (%s, id=%s)",
		c.Request.Method, c.Request.URL.Path, c.Writer.Status(), utils.Elapsed(start), id)
}

// resolve maps a request path into the base directory, rejecting absolute
// paths and anything that climbs out of it.
func (s *Server) resolve(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(p) {
		return "", fmt.Errorf("path %q must be relative", p)
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q leaves the base directory", p)
	}
	return filepath.Join(s.cfg.Server.BaseDir, clean), nil
}

func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindNone, models.KindSignalQuality:
		return http.StatusOK
	case models.KindParameter, models.KindBiasWindow:
		return http.StatusBadRequest
	case models.KindIO:
		return http.StatusNotFound
	case models.KindStructural, models.KindChannelMapping:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// ─── handlers ───────────────────────────────────────────────────────────

func (s *Server) postSpeed(c *gin.Context) {
	var req models.SpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	path, err := s.resolve(req.File)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.File = path

	unlock := s.locks.lock(filepath.Dir(path))
	res := s.speed.Process(req)
	unlock()

	if res.OutputCSV != "" {
		if rel, err := filepath.Rel(s.cfg.Server.BaseDir, res.OutputCSV); err == nil {
			res.OutputCSV = rel
		}
	}
	c.JSON(statusFor(res.ErrorKind), res)
}

func (s *Server) getSpeedCSV(c *gin.Context) {
	path, err := s.resolve(c.Query("file"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	out := s.speed.OutputPath(path)

	unlock := s.locks.lock(filepath.Dir(path))
	defer unlock()
	if _, err := os.Stat(out); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no bias-corrected csv for " + c.Query("file")})
		return
	}
	c.FileAttachment(out, filepath.Base(out))
}

func (s *Server) postFrames(c *gin.Context) {
	var req models.FrameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fields := []*string{&req.XFile, &req.YFile, &req.ZFile, &req.RPYFile}
	if strings.TrimSpace(req.ASIFile) != "" {
		fields = append(fields, &req.ASIFile)
	}
	for _, f := range fields {
		p, err := s.resolve(*f)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		*f = p
	}

	unlock := s.locks.lock(s.frames.OutputDir(req))
	res := s.frames.Generate(c.Request.Context(), req)
	unlock()

	if rel, err := filepath.Rel(s.cfg.Server.BaseDir, res.Dir); err == nil {
		res.Dir = rel
	}
	c.JSON(statusFor(res.ErrorKind), res)
}

// ─── per-directory serialisation ────────────────────────────────────────

// dirLocks serialises requests that write into the same directory; output
// file names there are deterministic.
type dirLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDirLocks() *dirLocks {
	return &dirLocks{locks: make(map[string]*sync.Mutex)}
}

func (d *dirLocks) lock(dir string) func() {
	key := filepath.Clean(dir)
	d.mu.Lock()
	m, ok := d.locks[key]
	if !ok {
		m = &sync.Mutex{}
		d.locks[key] = m
	}
	d.mu.Unlock()

	m.Lock()
	return m.Unlock
}
