// Package main is the entry point for keymacro, a keyboard macro playback
// engine running on an emulated firmware timer.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/dshills/keymacro/internal/app"
	"github.com/dshills/keymacro/internal/config"
	"github.com/dshills/keymacro/internal/keymap"
	"github.com/dshills/keymacro/internal/script"
	"github.com/dshills/keymacro/internal/store"
	"github.com/dshills/keymacro/internal/trace"
	"github.com/dshills/keymacro/internal/view"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options holds the command line.
type options struct {
	configPath string
	image      string
	compile    string
	logLevel   string
	script     string
	list       bool
	view       bool
	json       bool
	watch      bool
	slots      []int
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, code, done := parseFlags(args, stdout, stderr)
	if done {
		return code
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger := app.NewLogger(app.LoggerConfig{
		Level:      app.ParseLogLevel(cfg.Logging.Level),
		Output:     stderr,
		Prefix:     "keymacro",
		Format:     cfg.Logging.Format,
		Timestamps: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case opts.compile != "":
		err = compile(cfg, opts.compile, logger)
	case opts.list:
		err = list(cfg, stdout)
	case opts.script != "":
		err = runScript(ctx, cfg, opts.script, logger)
	case opts.view:
		err = runView(ctx, cfg, stdin, stdout, logger)
	default:
		err = play(ctx, cfg, opts, stdin, stdout, logger)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// parseFlags returns the options, or an exit code with done set when the
// program should stop (help, version, usage errors).
func parseFlags(args []string, stdout, stderr io.Writer) (options, int, bool) {
	var opts options
	var showVersion bool

	fs := flag.NewFlagSet("keymacro", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file (TOML or YAML)")
	fs.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	fs.StringVar(&opts.image, "image", "", "Macro image (.bin) or definition (.yaml, .toml)")
	fs.StringVar(&opts.image, "i", "", "Macro image (shorthand)")
	fs.StringVar(&opts.compile, "compile", "", "Write the image as a raw binary to this path and exit")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.script, "script", "", "Run a Lua scenario against the simulator")
	fs.BoolVar(&opts.list, "list", false, "List the slot table and exit")
	fs.BoolVar(&opts.view, "view", false, "Open the interactive terminal monitor")
	fs.BoolVar(&opts.json, "json", false, "Write playback as JSON lines")
	fs.BoolVar(&opts.watch, "watch", false, "Reload the image when it changes")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "keymacro - keyboard macro playback\n\n")
		fmt.Fprintf(stderr, "Usage: keymacro [options] [slot...]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  keymacro -i macros.yaml -list        Show programmed slots\n")
		fmt.Fprintf(stderr, "  keymacro -i macros.bin 0 3           Play slot 0, then slot 3\n")
		fmt.Fprintf(stderr, "  echo 2 | keymacro -i macros.bin      Play slots read from stdin\n")
		fmt.Fprintf(stderr, "  keymacro -i macros.yaml -view        Interactive monitor\n")
		fmt.Fprintf(stderr, "  keymacro -i macros.yaml -script t.lua\n")
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, 0, true
		}
		return opts, 2, true
	}

	if showVersion {
		fmt.Fprintf(stdout, "keymacro %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return opts, 0, true
	}

	switch opts.logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
		return opts, 1, true
	}

	for _, arg := range fs.Args() {
		slot, err := strconv.Atoi(arg)
		if err != nil || slot < 0 {
			fmt.Fprintf(stderr, "Error: invalid slot %q\n", arg)
			return opts, 1, true
		}
		opts.slots = append(opts.slots, slot)
	}

	return opts, 0, false
}

// loadConfig layers command line options over the configuration file.
// Without -config the default location is used when it exists.
func loadConfig(opts options) (config.Config, error) {
	path := opts.configPath
	if path == "" {
		if def, err := config.DefaultPath(); err == nil {
			if _, err := os.Stat(def); err == nil {
				path = def
			}
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if opts.image != "" {
		cfg.Store.Image = opts.image
	}
	if opts.watch {
		cfg.Store.Watch = true
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	return cfg, cfg.Validate()
}

func compile(cfg config.Config, out string, logger *app.Logger) error {
	if cfg.Store.Image == "" {
		return app.ErrNoImage
	}
	mem, err := store.LoadImage(cfg.Store.Image, cfg.Store.SlotSize)
	if err != nil {
		return app.NewOperationError("load", cfg.Store.Image, err).WithContext("compile")
	}
	if err := store.SaveImage(out, mem); err != nil {
		return app.NewOperationError("save", out, err).WithContext("compile")
	}
	logger.WithComponent("store").Info("wrote %d bytes to %s", len(mem), out)
	return nil
}

func list(cfg config.Config, stdout io.Writer) error {
	cfg.Store.Watch = false
	application, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	for _, info := range application.Slots() {
		if !info.Programmed {
			fmt.Fprintf(stdout, "%3d  -\n", info.Slot)
			continue
		}
		parts := make([]string, 0, len(info.Entries))
		for _, e := range info.Entries {
			label := keymap.Name(e.Key)
			if d := e.Delay(); d > 0 {
				label += "+" + strconv.Itoa(int(d)*100) + "ms"
			}
			parts = append(parts, label)
		}
		fmt.Fprintf(stdout, "%3d  %s\n", info.Slot, strings.Join(parts, " "))
	}
	return nil
}

func runScript(ctx context.Context, cfg config.Config, path string, logger *app.Logger) error {
	cfg.Store.Watch = false
	sim, err := app.NewSimulator(cfg, app.WithLogger(logger))
	if err != nil {
		return err
	}
	defer sim.Close()

	runner := script.NewRunner(sim, script.WithLogger(logger))
	defer runner.Close()

	if err := runner.DoFile(ctx, path); err != nil {
		return app.NewOperationError("script", path, err).WithContext("image " + cfg.Store.Image)
	}
	return nil
}

func runView(ctx context.Context, cfg config.Config, stdin io.Reader, stdout io.Writer, logger *app.Logger) error {
	if !isTerminal(stdin) || !isTerminal(stdout) {
		return errors.New("-view needs an interactive terminal")
	}
	// The screen owns the terminal; keep logs off it.
	logger.SetOutput(io.Discard)

	screen, err := view.NewScreen()
	if err != nil {
		return app.WrapError(err, "failed to create terminal")
	}
	if err := screen.Init(); err != nil {
		return app.WrapError(err, "failed to initialize terminal")
	}
	defer screen.Fini()

	requests := make(chan app.Request, 16)
	var monitor *view.Monitor
	output := app.OutputFunc(func(ev app.Event) { monitor.Emit(ev) })

	application, err := app.New(cfg, app.WithLogger(logger), app.WithOutput(output))
	if err != nil {
		return err
	}
	defer application.Close()
	monitor = view.NewMonitor(screen, application.Slots(), requests)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- application.Run(ctx, requests) }()

	err = monitor.Run(ctx)
	cancel()
	if rerr := <-runErr; err == nil {
		err = rerr
	}
	return err
}

// play triggers the slots from the command line, or one slot per line of
// stdin when none are given, each after the previous session finished.
func play(ctx context.Context, cfg config.Config, opts options, stdin io.Reader, stdout io.Writer, logger *app.Logger) error {
	slots := opts.slots
	if len(slots) == 0 && isTerminal(stdin) {
		return errors.New("no slots given (pass slot numbers or pipe them on stdin)")
	}

	finished := make(chan struct{}, 1)
	var out app.Output
	if opts.json {
		out = trace.NewWriter(stdout)
	} else {
		out = &printer{w: stdout}
	}
	output := app.OutputFunc(func(ev app.Event) {
		out.Emit(ev)
		if ev.Kind == app.EventSessionFinished {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	})

	application, err := app.New(cfg, app.WithLogger(logger), app.WithOutput(output))
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	requests := make(chan app.Request)
	started := make(chan bool, 1)
	runErr := make(chan error, 1)
	go func() { runErr <- application.Run(ctx, requests) }()

	next := sliceSource(slots)
	if len(slots) == 0 {
		next = lineSource(bufio.NewScanner(stdin), logger)
	}

	for {
		slot, ok := next()
		if !ok {
			break
		}
		req := app.TriggerRequest(slot)
		req.Started = started
		select {
		case requests <- req:
		case <-ctx.Done():
			return <-runErr
		}
		select {
		case ok := <-started:
			if !ok {
				logger.Warn("slot %d is empty or out of range", slot)
				continue
			}
		case <-ctx.Done():
			return <-runErr
		}
		select {
		case <-finished:
		case <-ctx.Done():
			return <-runErr
		}
	}

	cancel()
	if err := <-runErr; err != nil {
		return err
	}
	if w, ok := out.(*trace.Writer); ok {
		return app.WrapError(w.Err(), "writing trace")
	}
	return nil
}

func sliceSource(slots []int) func() (int, bool) {
	i := 0
	return func() (int, bool) {
		if i >= len(slots) {
			return 0, false
		}
		i++
		return slots[i-1], true
	}
}

func lineSource(sc *bufio.Scanner, logger *app.Logger) func() (int, bool) {
	return func() (int, bool) {
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			slot, err := strconv.Atoi(line)
			if err != nil || slot < 0 {
				logger.Warn("ignoring %q: not a slot number", line)
				continue
			}
			return slot, true
		}
		return 0, false
	}
}

// printer writes one line per finished session with the keys it played.
type printer struct {
	w    io.Writer
	keys []string
}

func (p *printer) Emit(ev app.Event) {
	switch ev.Kind {
	case app.EventSessionStarted:
		p.keys = p.keys[:0]
	case app.EventKey:
		p.keys = append(p.keys, ev.Key.String())
	case app.EventSessionFinished:
		fmt.Fprintf(p.w, "slot %d: %s (%s)\n", ev.Session.Slot, strings.Join(p.keys, " "), ev.Reason)
	}
}

func isTerminal(r any) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
