package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/cancelreader"

	"github.com/Makepad-fr/tada-remote/internal/api"
	"github.com/Makepad-fr/tada-remote/internal/config"
	"github.com/Makepad-fr/tada-remote/internal/logging"
	"github.com/Makepad-fr/tada-remote/internal/mockapi"
	"github.com/Makepad-fr/tada-remote/internal/model"
	"github.com/Makepad-fr/tada-remote/internal/todolist"
	"github.com/Makepad-fr/tada-remote/internal/tui"
	"github.com/Makepad-fr/tada-remote/internal/ui"
)

// Options carry the loaded config and the process streams.
type Options struct {
	Config *config.Config
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Interactive is true when stdin and stdout are terminals.
	Interactive bool
}

func (o *Options) defaults() {
	if o.Config == nil {
		o.Config = config.Default()
	}
	if o.Stdin == nil {
		o.Stdin = os.Stdin
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	opt.defaults()
	if len(args) == 0 {
		PrintHelp(opt.Stderr)
		return 2
	}
	cmd, a := args[0], args[1:]

	switch cmd {
	case "help", "-h", "--help":
		PrintHelp(opt.Stdout)
		return 0

	case "ls":
		return withSession(ctx, opt, opt.Interactive && !opt.Config.Plain, func(s *session) int {
			return s.list(ctx)
		})

	case "add":
		text := strings.TrimSpace(strings.Join(a, " "))
		if text == "" {
			ui.Fail(opt.Stderr, "usage: todo add <text...>")
			return 2
		}
		return withSession(ctx, opt, false, func(s *session) int {
			return s.add(ctx, text)
		})

	case "done", "rm":
		if len(a) != 1 {
			ui.Fail(opt.Stderr, "usage: todo "+cmd+" <id>")
			return 2
		}
		id, err := strconv.Atoi(a[0])
		if err != nil || id <= 0 {
			ui.Fail(opt.Stderr, cmd+": not a valid id: "+a[0])
			return 2
		}
		return withSession(ctx, opt, false, func(s *session) int {
			if cmd == "done" {
				return s.toggle(ctx, id)
			}
			return s.remove(ctx, id)
		})

	case "serve":
		return serve(ctx, a, opt)
	}

	ui.Fail(opt.Stderr, "unknown subcommand: "+cmd)
	fmt.Fprintln(opt.Stderr)
	PrintHelp(opt.Stderr)
	return 2
}

func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `todo - a terminal todo list backed by a remote API

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  ls                 Show the list (interactive on a terminal)
  add <text...>      Add a new todo (text can be multiple words)
  done <id>          Toggle completion of the todo with server id
  rm <id>            Delete the todo with server id (asks first)
  serve              Run a local mock API (-addr, -data, -prefix)

Flags:
  -api URL           Base URL of the todo API
  -timeout DURATION  Per-request timeout
  -update-method M   patch or put
  -plain             Print the list instead of starting the TUI
  -group             Group the printed list by pending/done
  -yes               Do not ask before deleting
  -theme NAME        classic, neon or mono
  -log-level LEVEL   debug, info, warn or error
  -log-file PATH     Write logs to a file

Examples:
  todo add "Buy milk"
  todo ls
  todo done 2
  todo -yes rm 3
  todo serve -addr :8080 -data ./todos.json
`)
}

// session is one command's worth of client state.
type session struct {
	opt         Options
	logger      *log.Logger
	client      *api.Client
	interactive bool
}

func withSession(ctx context.Context, opt Options, interactive bool, fn func(*session) int) int {
	cfg := opt.Config

	logOut := opt.Stderr
	if interactive && cfg.LogFile == "" {
		// stderr belongs to the TUI
		logOut = io.Discard
	}
	logger, closer, err := logging.Open(cfg.LogFile, logOut, logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		ui.Fail(opt.Stderr, err.Error())
		return 1
	}
	defer closer.Close()

	client, err := api.New(cfg.APIURL, append(cfg.ClientOptions(), api.WithLogger(logger))...)
	if err != nil {
		ui.Fail(opt.Stderr, err.Error())
		return 2
	}
	return fn(&session{opt: opt, logger: logger, client: client, interactive: interactive})
}

// mount returns a mounted view, printing the load error on failure.
func (s *session) mount(ctx context.Context, opts ...todolist.Option) (*todolist.View, bool) {
	opts = append([]todolist.Option{todolist.WithLogger(s.logger)}, opts...)
	v := todolist.New(s.client, opts...)
	if err := v.Mount(ctx); err != nil {
		s.report(v)
		v.Unmount()
		return nil, false
	}
	return v, true
}

func (s *session) report(v *todolist.View) {
	msg := v.Snapshot().LastError
	if msg == "" {
		msg = todolist.MsgLoadFailed
	}
	ui.Fail(s.opt.Stderr, msg)
}

func (s *session) print(v *todolist.View) {
	ui.Panel(s.opt.Stdout, ui.ListLines(v.Snapshot().Items, s.opt.Config.Group))
}

func (s *session) list(ctx context.Context) int {
	if s.interactive {
		if err := tui.Run(ctx, s.client, s.logger); err != nil {
			ui.Fail(s.opt.Stderr, err.Error())
			return 1
		}
		return 0
	}
	v, ok := s.mount(ctx)
	if !ok {
		return 1
	}
	defer v.Unmount()
	s.print(v)
	return 0
}

func (s *session) add(ctx context.Context, text string) int {
	v, ok := s.mount(ctx)
	if !ok {
		return 1
	}
	defer v.Unmount()

	if err := v.Create(ctx, text); err != nil {
		s.report(v)
		return 1
	}
	ui.OK(s.opt.Stdout, "added")
	s.print(v)
	return 0
}

func (s *session) toggle(ctx context.Context, id int) int {
	v, ok := s.mount(ctx)
	if !ok {
		return 1
	}
	defer v.Unmount()

	if !s.exists(v, id) {
		return 2
	}
	if err := v.Toggle(ctx, id); err != nil {
		s.report(v)
		return 1
	}
	ui.OK(s.opt.Stdout, "toggled")
	s.print(v)
	return 0
}

func (s *session) remove(ctx context.Context, id int) int {
	asked, accepted := false, false
	confirm := func(ctx context.Context, prompt string) bool {
		asked = true
		if s.opt.Config.Yes {
			accepted = true
		} else {
			accepted = promptYesNo(ctx, s.opt.Stdin, s.opt.Stdout, prompt)
		}
		return accepted
	}
	v, ok := s.mount(ctx, todolist.WithConfirm(confirm))
	if !ok {
		return 1
	}
	defer v.Unmount()

	if !s.exists(v, id) {
		return 2
	}
	if err := v.Remove(ctx, id); err != nil {
		s.report(v)
		return 1
	}
	if asked && !accepted {
		ui.Muted(s.opt.Stdout, "cancelled")
		return 0
	}
	ui.OK(s.opt.Stdout, "removed")
	s.print(v)
	return 0
}

func (s *session) exists(v *todolist.View, id int) bool {
	items := v.Snapshot().Items
	if slices.ContainsFunc(items, func(t model.Todo) bool { return t.ID == id }) {
		return true
	}
	ui.Fail(s.opt.Stderr, fmt.Sprintf("no todo with id %d", id))
	ui.Muted(s.opt.Stderr, "Hint: run `todo -plain ls` to see valid ids")
	return false
}

// promptYesNo reads one line from in. Anything but y/yes is a no, as is a
// cancelled ctx.
func promptYesNo(ctx context.Context, in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	if ctx.Err() != nil {
		fmt.Fprintln(out)
		return false
	}

	// Regular files cannot be polled; read them directly.
	r := in
	if cr, err := cancelreader.NewReader(in); err == nil {
		defer cr.Close()
		stop := context.AfterFunc(ctx, func() { cr.Cancel() })
		defer stop()
		r = cr
	}

	line, err := bufio.NewReader(r).ReadString('\n')
	if errors.Is(err, cancelreader.ErrCanceled) || ctx.Err() != nil {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func serve(ctx context.Context, args []string, opt Options) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(opt.Stderr)
	addr := fs.String("addr", ":8080", "listen address")
	data := fs.String("data", "", "persist todos to this JSON file (default: in memory)")
	prefix := fs.String("prefix", "/api", "path prefix for the todo routes")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg := opt.Config
	logger, closer, err := logging.Open(cfg.LogFile, opt.Stderr, logging.Options{
		Level:           cfg.LogLevel,
		Format:          cfg.LogFormat,
		ReportTimestamp: true,
		Prefix:          "tada-serve",
	})
	if err != nil {
		ui.Fail(opt.Stderr, err.Error())
		return 1
	}
	defer closer.Close()

	var store mockapi.Store = mockapi.NewMemoryStore()
	if *data != "" {
		fstore, err := mockapi.NewFileStore(*data)
		if err != nil {
			logger.Error("open data file", "path", *data, "err", err)
			return 1
		}
		store = fstore
		*data = fstore.Path()
	}

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Error("listen", "addr", *addr, "err", err)
		return 1
	}
	srv := &http.Server{
		Handler:           mockapi.New(store, mockapi.WithLogger(logger), mockapi.WithPrefix(*prefix)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	logger.Info("serving", "addr", ln.Addr().String(), "prefix", *prefix, "data", *data)

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve", "err", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "err", err)
		return 1
	}
	logger.Info("stopped")
	return 0
}
