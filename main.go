package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"handy/backend"
	"handy/beep"
	"handy/config"
	"handy/doctor"
	"handy/events"
	"handy/hotkey"
	"handy/log"
	"handy/observe"
	"handy/overlay"
	"handy/shutdown"
)

var version = "dev"

// guiMode is set by initGUI before run starts.
var guiMode bool

var (
	crashMu   sync.Mutex
	crashDir  string
	crashFile *os.File
)

// initCrashLog routes runtime crash output to crash_log.txt before any CGO
// code runs. run repoints it once the config is known.
func initCrashLog() {
	dir, err := log.ResolveDir(flagValue(os.Args[1:], "logpath"))
	if err != nil {
		return
	}
	openCrashLog(dir)
}

func openCrashLog(dir string) {
	crashMu.Lock()
	defer crashMu.Unlock()
	if dir == crashDir {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(dir, "crash_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
	if err := debug.SetCrashOutput(f, debug.CrashOptions{}); err != nil {
		f.Close()
		return
	}
	if crashFile != nil {
		crashFile.Close()
	}
	crashFile, crashDir = f, dir
}

// cancelHook lets frontends created before the coordinator (the GUI) reach it.
var (
	cancelMu   sync.Mutex
	cancelHook func()
)

func setCancelHook(fn func()) {
	cancelMu.Lock()
	cancelHook = fn
	cancelMu.Unlock()
}

func requestCancel() {
	cancelMu.Lock()
	fn := cancelHook
	cancelMu.Unlock()
	if fn != nil {
		fn()
	}
}

func fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	log.Error(msg)
	fmt.Fprintln(os.Stderr, "Error: "+msg)
	log.Close()
	os.Exit(1)
}

func run() {
	opts, err := parseFlags(os.Args[1:], flag.ExitOnError)
	if err != nil {
		os.Exit(2)
	}

	if opts.version {
		fmt.Printf("handy %s\n", version)
		os.Exit(0)
	}

	cfg, cfgPath, err := config.LoadResolved(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts.apply(cfg)
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	logPath, err := log.ResolveDir(cfg.Log.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	openCrashLog(log.Dir())
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if opts.profile != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", opts.profile)
			if err := http.ListenAndServe(opts.profile, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	if opts.crash {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if opts.doctor {
		os.Exit(doctor.Run(cfg, cfgPath))
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
	if cfgPath != "" {
		log.Info("config: " + cfgPath)
	}

	if !cfg.Overlay.Sound || opts.test {
		beep.Disable()
	} else {
		beep.Init()
	}

	os.Exit(serve(cfg, opts))
}

// serve runs the overlay until a signal, the frontend quitting or the
// backend going away, and returns the exit code.
func serve(cfg *config.Config, opts *cliFlags) int {
	root, stop := context.WithCancel(context.Background())
	defer stop()
	g, ctx := errgroup.WithContext(root)

	var metrics *observe.Metrics
	if cfg.Metrics.Listen != "" {
		shutdownMetrics, err := observe.InitProvider()
		if err != nil {
			fatalf("metrics provider: %v", err)
		}
		defer shutdownMetrics(context.Background())
		metrics = observe.DefaultMetrics()
		g.Go(func() error {
			if err := observe.Serve(ctx, cfg.Metrics.Listen); err != nil {
				return fmt.Errorf("metrics endpoint: %w", err)
			}
			return nil
		})
		log.Info("metrics: http://" + cfg.Metrics.Listen + "/metrics")
	}

	var (
		src       events.Source
		canceller overlay.Canceller
		client    *backend.Client
		addr      string
	)
	if opts.demo {
		fake := events.NewFake()
		src = fake
		// the demo backend acknowledges a cancel by hiding
		canceller = overlay.CancelFunc(func() { go fake.Hide() })
		addr = "demo"
		g.Go(func() error { return runDemo(ctx, fake) })
	} else {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.Backend.DialTimeout)
		c, err := backend.Dial(dialCtx, cfg.Backend.Address)
		cancel()
		if err != nil {
			fatalf("%v (is the backend running at %s?)", err, cfg.Backend.Address)
		}
		defer c.Close()
		client, src, canceller, addr = c, c, c, c.Addr()
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			case <-c.Done():
				tuiSend(BackendLostMsg{Err: c.Err()})
				if err := c.Err(); err != nil {
					return fmt.Errorf("backend connection lost: %w", err)
				}
				return nil
			}
		})
	}

	coordOpts := []overlay.Option{overlay.WithTickInterval(cfg.Overlay.TickInterval)}
	if metrics != nil {
		coordOpts = append(coordOpts, overlay.WithMetrics(metrics))
	}
	coord := overlay.New(src, canceller, coordOpts...)

	isRecording := func() bool {
		snap := coord.Snapshot()
		return snap.Visible && snap.Mode == overlay.Recording
	}
	cancelRecording := func() {
		if !isRecording() {
			return
		}
		beep.Play(beep.CueCancel)
		coord.Cancel()
	}
	setCancelHook(cancelRecording)

	frontend := pickFrontend(opts)
	counter := &showCounter{}
	out := sinks{counter, &cueSink{play: beep.Play}}

	var pr *printer
	switch frontend {
	case "gui":
		out = append(out, SinkFunc(guiUpdate))
	case "tui":
		box := newMailbox()
		out = append(out, box)
		tuiMu.Lock()
		tuiProgram = NewTUIProgram(cancelRecording)
		tuiMu.Unlock()
		go func() {
			for snap := range box.C() {
				tuiSend(OverlayMsg{Snapshot: snap})
			}
		}()
	default:
		pr = newPrinter(os.Stdout)
		out = append(out, pr)
	}
	coord.OnChange(out.Update)

	dispose, err := coord.Open()
	if err != nil {
		fatalf("%v", err)
	}
	log.SessionStart(addr, frontend)

	if cfg.Overlay.Hotkey && !opts.test {
		hk := hotkey.New()
		if err := hk.Register(); err != nil {
			log.Warnf("cancel hotkey unavailable: %v", err)
			if frontend != "tui" {
				fmt.Fprintf(os.Stderr, "Warning: cancel hotkey unavailable: %v\n", err)
			}
		} else {
			g.Go(func() error {
				defer hk.Unregister()
				hotkey.Watch(ctx, hk, isRecording, cancelRecording)
				return nil
			})
		}
	}

	g.Go(func() error {
		if sig := shutdown.Wait(ctx); sig != nil {
			log.Info("signal: " + sig.String())
			stop()
		}
		return nil
	})

	switch frontend {
	case "tui":
		go tuiSend(BackendLineMsg{Text: backendLine(addr)})
		g.Go(func() error {
			go func() {
				<-ctx.Done()
				tuiProgram.Quit()
			}()
			_, err := tuiProgram.Run()
			stop()
			if err != nil {
				return fmt.Errorf("TUI: %w", err)
			}
			return nil
		})
	case "headless":
		if opts.test {
			g.Go(func() error {
				err := runCommands(ctx, os.Stdin, pr, coord, cancelRecording)
				stop()
				return err
			})
		}
	}

	err = g.Wait()
	dispose()
	if client != nil {
		client.Close()
	}
	log.SessionEnd(counter.shows)
	if guiMode {
		guiQuit()
	}

	code := 0
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Errorf("exit: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		code = 1
	}
	log.Close()
	return code
}

// pickFrontend returns "gui", "tui" or "headless".
func pickFrontend(opts *cliFlags) string {
	switch {
	case guiMode:
		return "gui"
	case opts.test || !opts.tui:
		return "headless"
	case !term.IsTerminal(int(os.Stdout.Fd())):
		return "headless"
	}
	return "tui"
}

func backendLine(addr string) string {
	transport := "unix socket"
	switch {
	case addr == "demo":
		transport = "scripted"
	case strings.HasPrefix(addr, "ws://"), strings.HasPrefix(addr, "wss://"):
		transport = "websocket"
	}
	return "backend: " + addr + " (" + transport + ")"
}

type cliFlags struct {
	set map[string]bool

	configPath  string
	backendAddr string
	dialTimeout time.Duration
	tick        time.Duration
	logPath     string
	logLevel    string
	metrics     string
	noSound     bool
	noHotkey    bool
	gui         bool
	tui         bool
	demo        bool
	test        bool
	doctor      bool
	version     bool
	crash       bool
	profile     string
}

func parseFlags(args []string, onErr flag.ErrorHandling) (*cliFlags, error) {
	f := &cliFlags{set: make(map[string]bool)}
	fs := flag.NewFlagSet("handy", onErr)
	fs.StringVar(&f.configPath, "config", "", "Config file (default: $"+config.EnvPath+" or <user config dir>/handy/config.yaml)")
	fs.StringVar(&f.backendAddr, "backend", "", "Backend address: socket path, unix:///path, ws://host/path or wss://host/path")
	fs.DurationVar(&f.dialTimeout, "dial-timeout", config.DefaultDialTimeout, "How long to wait for the backend connection")
	fs.DurationVar(&f.tick, "tick", config.DefaultTickInterval, "Elapsed counter interval")
	fs.StringVar(&f.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	fs.StringVar(&f.logLevel, "loglevel", "", "Diagnostics log level: debug, info, warn or error")
	fs.StringVar(&f.metrics, "metrics", "", "Serve Prometheus metrics on this address (e.g., :9464)")
	fs.BoolVar(&f.noSound, "nosound", false, "Disable audio cues")
	fs.BoolVar(&f.noHotkey, "nohotkey", false, "Do not register the "+hotkey.Chord+" cancel hotkey")
	fs.BoolVar(&f.gui, "gui", false, "Run the floating desktop overlay (requires -tags gui)")
	fs.BoolVar(&f.tui, "tui", true, "Run with terminal UI when stdout is a terminal")
	fs.BoolVar(&f.demo, "demo", false, "Play a scripted session instead of connecting to a backend")
	fs.BoolVar(&f.test, "test", false, "Test mode (headless, stdin-driven)")
	fs.BoolVar(&f.doctor, "doctor", false, "Run system diagnostics and exit")
	fs.BoolVar(&f.version, "version", false, "Print version and exit")
	fs.BoolVar(&f.crash, "crash", false, "Trigger synthetic panic for testing crash logging")
	fs.StringVar(&f.profile, "profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(fl *flag.Flag) { f.set[fl.Name] = true })
	return f, nil
}

// apply overrides cfg with every flag given on the command line.
func (f *cliFlags) apply(cfg *config.Config) {
	if f.set["backend"] {
		cfg.Backend.Address = f.backendAddr
	}
	if f.set["dial-timeout"] {
		cfg.Backend.DialTimeout = f.dialTimeout
	}
	if f.set["tick"] {
		cfg.Overlay.TickInterval = f.tick
	}
	if f.set["logpath"] {
		cfg.Log.Path = f.logPath
	}
	if f.set["loglevel"] {
		cfg.Log.Level = f.logLevel
	}
	if f.set["metrics"] {
		cfg.Metrics.Listen = f.metrics
	}
	if f.set["nosound"] {
		cfg.Overlay.Sound = !f.noSound
	}
	if f.set["nohotkey"] {
		cfg.Overlay.Hotkey = !f.noHotkey
	}
	if f.set["gui"] {
		cfg.Overlay.GUI = f.gui
	}
}

// flagValue finds -name value or -name=value in args without parsing the
// full flag set, for decisions made before run.
func flagValue(args []string, name string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		trimmed := strings.TrimLeft(a, "-")
		if len(trimmed) == len(a) || len(a)-len(trimmed) > 2 {
			continue
		}
		if v, ok := strings.CutPrefix(trimmed, name+"="); ok {
			return v
		}
		if trimmed == name && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// wantGUI decides before flag parsing whether the GUI takes the main
// thread: an explicit -gui flag wins, otherwise overlay.gui from the config.
func wantGUI(args []string) bool {
	for _, a := range args {
		switch a {
		case "-gui", "--gui", "-gui=true", "--gui=true":
			return true
		case "-gui=false", "--gui=false":
			return false
		}
	}
	cfg, _, err := config.LoadResolved(flagValue(args, "config"))
	if err != nil {
		return false
	}
	return cfg.Overlay.GUI
}
