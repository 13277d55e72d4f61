package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/opd-ai/passlok"
	"github.com/opd-ai/passlok/interfaces"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// folderKeyEnv names the variable holding folder key words that are
// activated at startup.
const folderKeyEnv = "PLK_FOLDER_KEY"

// env is the process surroundings a run works against.
type env struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	prompter interfaces.Prompter
	getenv   func(string) string
}

// globalFlags are the options accepted before the command name. Zero
// values leave the configuration file's setting alone.
type globalFlags struct {
	configPath string
	override   Config
	armorLock  bool
	help       bool
}

func parseGlobalFlags(args []string, stderr io.Writer) (*globalFlags, *flag.FlagSet, error) {
	g := &globalFlags{}
	fs := flag.NewFlagSet("plk", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&g.configPath, "config", "", "Configuration file (default "+DefaultConfigPath()+")")

	// Identity and storage
	fs.StringVar(&g.override.Email, "email", "", "Email address salting your Lock")
	fs.StringVar(&g.override.StorePath, "store", "", "Directory database file")
	fs.StringVar(&g.override.Host, "host", "", "Site your own Lock is recorded under")
	fs.DurationVar(&g.override.SessionTimeout, "timeout", 0, "Forget the master password after this long unused")

	// Output
	fs.IntVar(&g.override.JPEGQuality, "quality", 0, "JPEG quality for hidden images (1-90)")
	fs.BoolVar(&g.armorLock, "lock", false, "Prepend your Lock to armored messages")

	// Logging and metrics
	fs.StringVar(&g.override.LogLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	fs.StringVar(&g.override.LogFormat, "log-format", "", "Log format (text, json)")
	fs.StringVar(&g.override.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")

	fs.BoolVar(&g.help, "help", false, "Show help message")
	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "lock" {
			v := g.armorLock
			g.override.ArmorLock = &v
		}
	})
	return g, fs, nil
}

// printUsage prints the usage information.
func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "PassLok command-line tool")
	fmt.Fprintln(w, "=========================")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  plk [options] <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commandTable() {
		fmt.Fprintf(w, "  %-28s %s\n", c.name+" "+c.usage, c.summary)
	}
	fmt.Fprintln(w, "  shell                        Read commands from standard input, keeping the session")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fs.SetOutput(w)
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  # Publish your Lock")
	fmt.Fprintln(w, "  plk -email alice@example.com lock")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  # Encrypt for a contact and hide the result in a picture")
	fmt.Fprintln(w, "  echo 'meet at noon' | plk encrypt -to bob > msg.txt")
	fmt.Fprintln(w, "  plk hide -in cover.png -out hidden.png < msg.txt")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Folder key words in $%s are activated at startup.\n", folderKeyEnv)
}

// loadRunConfig reads the configuration file and applies flag overrides.
func loadRunConfig(g *globalFlags) (Config, error) {
	cfg, err := LoadConfig(g.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.Merge(g.override)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// openPassLok builds the toolkit instance for cfg.
func openPassLok(cfg Config, e *env) (*passlok.PassLok, error) {
	opts := passlok.NewOptions()
	opts.Email = cfg.Email
	opts.Host = cfg.Host
	opts.StorePath = cfg.StorePath
	opts.SessionTimeout = cfg.SessionTimeout
	opts.JPEGQuality = cfg.JPEGQuality
	opts.Prompter = e.prompter
	opts.OnSessionExpire = func() {
		logrus.WithFields(logrus.Fields{
			"function": "openPassLok",
			"timeout":  cfg.SessionTimeout,
		}).Info("Session expired, master password forgotten")
	}

	if cfg.StorePath != "" {
		if err := ensureDir(cfg.StorePath); err != nil {
			return nil, err
		}
	}
	pl, err := passlok.New(opts)
	if err != nil {
		return nil, err
	}

	if words := e.getenv(folderKeyEnv); words != "" {
		if err := pl.Session().ActivateMnemonic(words); err != nil {
			pl.Close()
			return nil, fmt.Errorf("$%s: %w", folderKeyEnv, err)
		}
	}
	return pl, nil
}

// serveMetrics exposes the default Prometheus registry on addr until the
// returned function is called.
func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithFields(logrus.Fields{
				"function": "serveMetrics",
				"addr":     addr,
				"error":    err.Error(),
			}).Warn("Metrics server stopped")
		}
	}()
	logrus.WithFields(logrus.Fields{
		"function": "serveMetrics",
		"addr":     addr,
	}).Info("Serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// run executes one invocation and returns the process exit code.
func run(ctx context.Context, args []string, e *env) int {
	g, fs, err := parseGlobalFlags(args, e.stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if g.help {
		printUsage(e.stdout, fs)
		return 0
	}
	if fs.NArg() == 0 {
		printUsage(e.stderr, fs)
		return 2
	}

	cfg, err := loadRunConfig(g)
	if err != nil {
		fmt.Fprintf(e.stderr, "Configuration error: %v\n", err)
		fmt.Fprintln(e.stderr, "Use -help for usage information.")
		return 1
	}
	setupLogging(cfg, e.stderr)

	name, rest := fs.Arg(0), fs.Args()[1:]
	var cmd *command
	if name != "shell" {
		if cmd = lookupCommand(name); cmd == nil {
			fmt.Fprintf(e.stderr, "Unknown command %q. Use -help for usage information.\n", name)
			return 2
		}
	}

	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr)
		defer stop()
	}

	pl, err := openPassLok(cfg, e)
	if err != nil {
		fmt.Fprintf(e.stderr, "Failed to open PassLok: %v\n", err)
		return 1
	}
	defer pl.Close()

	c := &cmdContext{cfg: cfg, env: e, pl: pl}
	if cmd == nil {
		return runShell(ctx, c)
	}
	if err := cmd.run(c, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(e.stderr, "plk %s: %v\n", name, err)
		return 1
	}
	return 0
}

// openTerminal returns the controlling terminal for prompts so that
// standard input stays free for message text.
func openTerminal() (*os.File, bool) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return os.Stdin, false
	}
	return tty, true
}

// main is the entry point for the plk command.
func main() {
	tty, own := openTerminal()
	p := newTerminalPrompter(tty, os.Stderr)

	e := &env{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr, prompter: p, getenv: os.Getenv}
	if !own {
		// Prompts and text share standard input through one buffer.
		e.stdin = p.reader
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], e)
	cancel()
	if own {
		tty.Close()
	}
	os.Exit(code)
}
