package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"crashtest-analyzer/controller"
	"crashtest-analyzer/models"
	"crashtest-analyzer/utils"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: crashtest-analyzer <command> [options]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  speed   estimate impact speed and remove angle bias from an export")
	fmt.Fprintln(os.Stderr, "  batch   run speed/bias over every export in a directory")
	fmt.Fprintln(os.Stderr, "  frames  render the overlay frame sequence")
	fmt.Fprintln(os.Stderr, "  serve   run the HTTP API")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Run 'crashtest-analyzer <command> -h' for command options.")
}

// common holds the flags every command accepts.
type common struct {
	config *string
	log    *string
	level  *string
}

func commonFlags(fs *flag.FlagSet) common {
	return common{
		config: fs.String("config", "", "path to analysis.yaml (built-in defaults when empty)"),
		log:    fs.String("log", "", "optional log file path (stdout is always included)"),
		level:  fs.String("level", "", "log level override: debug|info|warn|error"),
	}
}

// setup starts the logger and loads the configuration. Config errors are
// fatal.
func (c common) setup() (*utils.Config, *utils.Logger) {
	cfg, err := utils.LoadConfig(*c.config)

	file := *c.log
	if file == "" && cfg != nil {
		file = cfg.Logging.File
	}
	logger := utils.InitLogger(utils.INFO, file)
	if err != nil {
		utils.L().Fatal("load config: %v", err)
	}

	level := cfg.Logging.Level
	if *c.level != "" {
		level = *c.level
	}
	logger.SetLevel(utils.ParseLogLevel(level))

	utils.L().Info("═══════════════════════════════════════════════════")
	utils.L().Info("  Crash-Test Analyzer  ·  speed, bias & frames")
	utils.L().Info("  GOMAXPROCS=%d  ·  PID=%d  ·  level=%s", runtime.GOMAXPROCS(0), os.Getpid(), utils.ParseLogLevel(level))
	utils.L().Info("═══════════════════════════════════════════════════")
	return cfg, logger
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var code int
	switch os.Args[1] {
	case "speed", "s":
		code = cmdSpeed(os.Args[2:])
	case "batch", "b":
		code = cmdBatch(os.Args[2:])
	case "frames", "f":
		code = cmdFrames(os.Args[2:])
	case "serve":
		code = cmdServe(os.Args[2:])
	case "help", "h", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		usage()
		code = 2
	}
	os.Exit(code)
}

func cmdSpeed(args []string) int {
	fs := flag.NewFlagSet("speed", flag.ExitOnError)
	cf := commonFlags(fs)
	file := fs.String("file", "", "data-acquisition export (CSV or tab-separated)")
	start := fs.String("start", "", "bias window start in seconds")
	end := fs.String("end", "", "bias window end in seconds")
	pngOut := fs.String("png", "", "write the diagnostic figure to this path")
	asJSON := fs.Bool("json", false, "print the result as JSON")
	_ = fs.Parse(args)

	if *file == "" && fs.NArg() > 0 {
		*file = fs.Arg(0)
	}
	if *file == "" {
		fmt.Fprintln(os.Stderr, "Error: no input file")
		fs.Usage()
		return 2
	}

	cfg, logger := cf.setup()
	defer logger.Close()

	res := controller.NewSpeedBiasController(cfg).Process(models.SpeedRequest{File: *file, Start: *start, End: *end})

	if *pngOut != "" && len(res.Diagnostic) > 0 {
		if err := os.WriteFile(*pngOut, res.Diagnostic, 0o644); err != nil {
			utils.L().Error("write diagnostic: %v", err)
		}
	}

	if *asJSON {
		out := *res
		out.Diagnostic = nil
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	} else {
		printSpeed(res)
	}
	if res.ErrorFlag != 0 && res.ErrorKind != models.KindSignalQuality {
		return 1
	}
	return 0
}

func printSpeed(res *models.AnalysisResult) {
	val := func(p *float64, format string) string {
		if p == nil {
			return "n/a"
		}
		return fmt.Sprintf(format, *p)
	}
	fmt.Printf("test id        %s\n", res.TestID)
	fmt.Printf("speed          %s km/h (falling %s km/h)\n", val(res.SpeedKmh, "%.2f"), val(res.SpeedFalling, "%.2f"))
	fmt.Printf("offset         %s\n", val(res.Offset, "%.6f"))
	fmt.Printf("bias window    %s\n", res.Window)
	fmt.Printf("bias r/p/y     %s / %s / %s\n", val(res.RollBias, "%.4f"), val(res.PitchBias, "%.4f"), val(res.YawBias, "%.4f"))
	if res.OutputCSV != "" {
		fmt.Printf("corrected csv  %s\n", res.OutputCSV)
	}
	if res.ErrorFlag != 0 {
		fmt.Printf("error          %s: %s\n", res.ErrorKind, res.Error)
	}
}

func cmdBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	cf := commonFlags(fs)
	dir := fs.String("dir", "", "directory holding the exports")
	out := fs.String("out", "", "parent of the session directory (default: -dir)")
	start := fs.String("start", "", "bias window start in seconds")
	end := fs.String("end", "", "bias window end in seconds")
	pngs := fs.Bool("png", false, "keep diagnostic figures in the session directory")
	_ = fs.Parse(args)

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "Error: -dir is required")
		fs.Usage()
		return 2
	}
	if *out == "" {
		*out = *dir
	}

	cfg, logger := cf.setup()
	defer logger.Close()

	ctx, cancel := signalContext()
	defer cancel()

	batch := controller.NewBatchController(cfg, controller.NewSpeedBiasController(cfg))
	inputs, err := batch.FindExports(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	sum, err := batch.Run(ctx, inputs, controller.BatchOptions{OutDir: *out, Start: *start, End: *end, SavePNG: *pngs})
	if sum != nil {
		fmt.Printf("\n✓ %d files (%d ok, %d flagged). Summary at: %s\n", sum.Files, sum.Succeeded, sum.Failed, sum.SummaryCSV)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func cmdFrames(args []string) int {
	fs := flag.NewFlagSet("frames", flag.ExitOnError)
	cf := commonFlags(fs)
	var req models.FrameRequest
	fs.StringVar(&req.XFile, "x", "", "longitudinal acceleration file")
	fs.StringVar(&req.YFile, "y", "", "lateral acceleration file")
	fs.StringVar(&req.ZFile, "z", "", "vertical acceleration file")
	fs.StringVar(&req.RPYFile, "rpy", "", "roll/pitch/yaw angle file")
	fs.StringVar(&req.ASIFile, "asi", "", "ASI file (EN1317 only)")
	fs.StringVar(&req.OIV, "oiv", "", "time of OIV/THIV in seconds")
	fs.StringVar(&req.FinalTime, "final", "", "end of the sequence in seconds")
	fs.StringVar(&req.CameraRate, "camera", "", "camera frame rate in frames per second")
	fs.StringVar(&req.Mode, "mode", "MASH", "test standard: MASH|EN1317")
	_ = fs.Parse(args)

	if req.XFile == "" || req.YFile == "" || req.ZFile == "" || req.RPYFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -x, -y, -z and -rpy are required")
		fs.Usage()
		return 2
	}

	cfg, logger := cf.setup()
	defer logger.Close()

	ctx, cancel := signalContext()
	defer cancel()

	res := controller.NewFrameController(cfg).Generate(ctx, req)
	if !res.OK {
		fmt.Fprintf(os.Stderr, "Error: %s: %s\n", res.ErrorKind, res.Error)
		return 1
	}
	abs, _ := filepath.Abs(res.Dir)
	fmt.Printf("\n✓ %d frames (%d motion, every %g samples) in %s\n", res.Frames, res.NumImages, res.Increment, abs)
	return 0
}

func cmdServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cf := commonFlags(fs)
	addr := fs.String("addr", "", "listen address (overrides config)")
	_ = fs.Parse(args)

	cfg, logger := cf.setup()
	defer logger.Close()
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if !filepath.IsAbs(cfg.Server.BaseDir) {
		abs, _ := filepath.Abs(cfg.Server.BaseDir)
		cfg.Server.BaseDir = abs
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := controller.NewServer(cfg, controller.NewSpeedBiasController(cfg), controller.NewFrameController(cfg))
	if err := srv.Run(ctx); err != nil {
		utils.L().Error("server: %v", err)
		return 1
	}
	return 0
}
