package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"
	"github.com/wavecast/wavecast/internal/api"
	"github.com/wavecast/wavecast/internal/events"
	"github.com/wavecast/wavecast/internal/session"
	"github.com/wavecast/wavecast/internal/shared"
	"github.com/wavecast/wavecast/internal/twofactor"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	bus     *events.Bus
	session *session.Store
	api     *api.Client
	keyring *twofactor.Keyring
	dialer  *websocket.Dialer
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Bus     *events.Bus
	Session *session.Store
	API     *api.Client
	Keyring *twofactor.Keyring
	Dialer  *websocket.Dialer
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Bus == nil {
		opts.Bus = events.NewBus(opts.Logger)
	}

	return &Runner{
		config:  opts.Config,
		bus:     opts.Bus,
		session: opts.Session,
		api:     opts.API,
		keyring: opts.Keyring,
		dialer:  opts.Dialer,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when a TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, streamsCommand, subsCommand, notifyCommand, watchCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// openDatabase opens the local cache, running migrations on first use.
func (r *Runner) openDatabase() (*sql.DB, error) {
	path := r.config.Database.Path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// requireAuth fails fast before actions that need a signed-in session.
func (r *Runner) requireAuth() error {
	if r.session == nil || !r.session.IsAuthenticated() {
		return fmt.Errorf("%w: run 'wavecast auth login' first", shared.ErrNotAuthenticated)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
