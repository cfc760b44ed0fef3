package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/claippy/claippy/internal/api"
	"github.com/claippy/claippy/internal/config"
	"github.com/claippy/claippy/internal/conversation"
	"github.com/claippy/claippy/internal/display"
	"github.com/claippy/claippy/internal/logging"
)

// App holds the application state threaded through every command action.
type App struct {
	cfg      *config.Config
	store    *conversation.Store
	executor api.QueryExecutor
	out      io.Writer
}

// NewApp creates a new App instance with default configuration
func NewApp() *App {
	return &App{
		cfg: config.NewConfig(),
		out: os.Stdout,
	}
}

// ensureStore lazily opens the conversation store.
func (app *App) ensureStore() (*conversation.Store, error) {
	if app.store != nil {
		return app.store, nil
	}
	var store *conversation.Store
	var err error
	if app.cfg.DataDir != "" {
		store, err = conversation.OpenAt(app.cfg.DataDir)
	} else {
		store, err = conversation.Open()
	}
	if err != nil {
		return nil, err
	}
	app.store = store
	return store, nil
}

// ensureExecutor lazily creates the query executor so commands that never
// hit the model (ls, history, new) work without an API key.
func (app *App) ensureExecutor() (api.QueryExecutor, error) {
	if app.executor != nil {
		return app.executor, nil
	}
	client, err := api.NewClient(app.cfg)
	if err != nil {
		return nil, err
	}
	app.executor = client
	return client, nil
}

// Execute runs the root command
func Execute() {
	app := NewApp()
	verbose := false

	rootCmd := &cobra.Command{
		Use:   "claippy",
		Short: "A CLI assistant that keeps per-worktree conversations with context",
		Long: `Claippy manages named conversations with a language model and a context
set of files and URLs supplied as background material. State lives in the
.claippy directory at the root of the current git worktree.

With no subcommand it starts an interactive REPL where !commands mirror
the CLI subcommands and any other line is sent as a query.

Examples:
  claippy new api-redesign
  claippy add src/handler.go https://example.com/rfc.html
  claippy q "Why does the handler double-close the body?"
  claippy                               # REPL`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				logging.SetLevel(logging.LevelDebug)
			}
			if err := app.cfg.Validate(); err != nil {
				return err
			}
			if app.cfg.Render {
				if err := display.InitRenderer(); err != nil {
					logging.Warn("markdown rendering unavailable", logging.Fields{"cause": err.Error()})
				}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Dispatch("repl", nil)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&app.cfg.Stream, "stream", "s", false, "Stream responses in real-time")
	rootCmd.PersistentFlags().BoolVarP(&app.cfg.Render, "render", "r", false, "Render responses as markdown")
	rootCmd.PersistentFlags().StringVarP(&app.cfg.Model, "model", "m", "", "Model name")
	rootCmd.PersistentFlags().StringVar(&app.cfg.DataDir, "data-dir", "", "Conversation store directory (default: <worktree>/.claippy)")

	// Every subcommand is generated from the shared dispatch table.
	for i := range commandTable {
		spec := commandTable[i]
		use := spec.Name
		if spec.Usage != "" {
			use += " " + spec.Usage
		}
		rootCmd.AddCommand(&cobra.Command{
			Use:     use,
			Aliases: spec.Aliases,
			Short:   spec.Short,
			Args:    cobra.MinimumNArgs(spec.MinArgs),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.Dispatch(spec.Name, args)
			},
		})
	}

	// cobra prints the error itself; exit non-zero for dispatch and
	// persistence failures alike.
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
