package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/matrixctl"
	"github.com/fwojciec/matrixctl/ansible"
	"github.com/fwojciec/matrixctl/fs"
	"github.com/fwojciec/matrixctl/git"
	"github.com/fwojciec/matrixctl/htmltomarkdown"
	mhttp "github.com/fwojciec/matrixctl/http"
	"github.com/fwojciec/matrixctl/oidc"
	"github.com/fwojciec/matrixctl/postgres"
	"github.com/fwojciec/matrixctl/ssh"
	"github.com/fwojciec/matrixctl/synapse"
	"github.com/fwojciec/matrixctl/terminal"
	"github.com/fwojciec/matrixctl/yaml"
	mzerolog "github.com/fwojciec/matrixctl/zerolog"
	"github.com/rs/zerolog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	m := NewMain()
	err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(ExitCode(err))
}

// ErrNoCommand is returned when matrixctl is run without arguments.
var ErrNoCommand = matrixctl.Errorf(matrixctl.EINVALID, "no command specified")

// ExitCode maps the result of Run to the process exit status: 0 on
// success, 2 when the command line does not parse and 1 for every other
// error, malformed identifiers included.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var parseErr *kong.ParseError
	if errors.As(err, &parseErr) || errors.Is(err, ErrNoCommand) {
		return 2
	}
	return 1
}

// Main represents the program.
type Main struct {
	// Stdin answers prompts.
	Stdin io.Reader

	// HTTPClient replaces the admin API client. Used by end-to-end tests.
	HTTPClient *nethttp.Client
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{Stdin: os.Stdin}
}

// Run executes the CLI with the given arguments. Errors are reported on
// stderr before they are returned.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// Initialize dependencies struct for Kong binding
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("matrixctl"),
		kong.Description("Administer a Synapse homeserver."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return ErrNoCommand
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	// Kong has already printed the help of a subcommand.
	if slices.Contains(args, "--help") || slices.Contains(args, "-h") {
		return nil
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", err)
		return err
	}

	logger := mzerolog.NewLogger(stderr, cli.Debug)
	deps.Logger = logger
	deps.JSON = cli.JSON

	doc, err := yaml.NewLoader(cli.Config, logger).Load(cli.Server)
	if err != nil {
		return fail(deps, err)
	}
	cfg, err := doc.Config()
	if err != nil {
		return fail(deps, err)
	}
	deps.Config = cfg

	tokens, err := m.tokenSource(cfg, stderr, logger)
	if err != nil {
		return fail(deps, err)
	}

	var opts []mhttp.Option
	if m.HTTPClient != nil {
		opts = append(opts, mhttp.WithHTTPClient(m.HTTPClient))
	}
	httpClient := mhttp.NewClient(opts...)
	defer httpClient.CloseIdleConnections()

	doer := mzerolog.NewLoggingClient(httpClient, logger)
	fanout := mzerolog.NewLoggingFanout(
		mhttp.NewFanout(doer, mhttp.WithRequestsPerSecond(cfg.Server.API.RequestsPerSecond)),
		logger,
	)
	client := synapse.NewClient(cfg.Server, mzerolog.NewLoggingTokenSource(tokens, logger), doer, fanout, logger)

	deps.Users = synapse.NewUserService(client)
	deps.Rooms = synapse.NewRoomService(client)
	deps.Events = synapse.NewEventService(client)
	deps.Reports = synapse.NewReportService(client)
	deps.Server = synapse.NewServerService(client)
	deps.Media = synapse.NewMediaService(client, mhttp.NewDownloader(httpClient, ""), fs.NewMediaStore())
	deps.Playbook = ansible.NewRunner(cfg.Server.Ansible.Playbook, stdout, stderr, logger)
	deps.Updater = git.NewUpdater(logger)
	deps.Prompter = terminal.NewPrompter(m.Stdin, stderr)
	deps.Converter = htmltomarkdown.NewConverter()
	deps.Images = terminal.NewImgcat(stdout, cfg.UI.Image)
	deps.OpenRunner = func(ctx context.Context) (matrixctl.CommandRunner, error) {
		return ssh.Connect(ctx, cfg.Server.SSH, logger)
	}
	deps.OpenEventStore = func(ctx context.Context) (matrixctl.EventStore, func() error, error) {
		return openEventStore(ctx, cfg.Server, logger)
	}

	return kongCtx.Run(deps)
}

// tokenSource returns the bearer token source of the selected profile.
func (m *Main) tokenSource(cfg *matrixctl.Config, stderr io.Writer, logger zerolog.Logger) (matrixctl.TokenSource, error) {
	api := cfg.Server.API
	if api.AuthType != matrixctl.AuthTypeOIDC {
		return matrixctl.StaticTokenSource(api.Token), nil
	}

	path, err := fs.DefaultTokenCachePath()
	if err != nil {
		return nil, err
	}
	manager := oidc.NewManager(cfg.ServerName, *api.OIDC, fs.NewTokenCache(path), logger)
	manager.Prompt = stderr
	manager.HTTPClient = m.HTTPClient
	return manager, nil
}

// openEventStore connects to the Synapse database, through an SSH tunnel
// when the profile asks for one.
func openEventStore(ctx context.Context, server *matrixctl.Server, logger zerolog.Logger) (matrixctl.EventStore, func() error, error) {
	host, port := server.SSH.Address, server.Database.Port
	closers := []func() error{}
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	if server.Database.Tunnel {
		client, err := ssh.Connect(ctx, server.SSH, logger)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, client.Close)

		tunnel, err := client.Forward(net.JoinHostPort("127.0.0.1", strconv.Itoa(server.Database.Port)))
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		host, port = "127.0.0.1", tunnel.Addr().Port
	}
	if host == "" {
		return nil, nil, matrixctl.Errorf(matrixctl.ECONFIG, "ssh.address is required to reach the database")
	}

	db := postgres.NewDB(postgres.DSN(server.Database, host, port))
	if err := db.Open(ctx); err != nil {
		_ = closeAll()
		return nil, nil, err
	}
	closers = append(closers, db.Close)
	return postgres.NewEventStore(db), closeAll, nil
}

// fail reports err on stderr and returns it.
func fail(deps *Dependencies, err error) error {
	fmt.Fprintf(deps.Stderr, "error: %s\n", matrixctl.ErrorMessage(err))
	return err
}
