// Package cli is the gamedex command-line client. It talks to a gamedex
// server for catalog lookups and keeps the signed-in user's collection.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gamedex/client"
	"gamedex/collection"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	envServer  = "GAMEDEX_SERVER"
	envToken   = "GAMEDEX_TOKEN"
	envStorage = "GAMEDEX_STORAGE"

	defaultServer = "http://localhost:3002"
)

// errReported marks a failure the notifier already showed to the user.
var errReported = errors.New("reported")

type options struct {
	server  string
	token   string
	storage string
	verbose bool
	timeout time.Duration
	noColor bool
}

// NewRootCmd builds the gamedex command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "gamedex",
		Short: "Search games and manage your collection",
		Long: `Search the game catalog and manage your game collection.

The server address and session token are read from flags, falling back to
the environment:

  GAMEDEX_SERVER   server base URL (default ` + defaultServer + `)
  GAMEDEX_TOKEN    session token issued by /auth/callback
  GAMEDEX_STORAGE  local storage file used for the offline collection

Without a token the collection is read-only and served from local storage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.WarnLevel)
			}
			logrus.SetOutput(cmd.ErrOrStderr())
			if opts.noColor {
				color.NoColor = true
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.server, "server", envOr(envServer, defaultServer), "gamedex server base URL")
	flags.StringVar(&opts.token, "token", os.Getenv(envToken), "session token")
	flags.StringVar(&opts.storage, "storage", os.Getenv(envStorage), "local storage file")
	flags.DurationVar(&opts.timeout, "timeout", 15*time.Second, "request timeout")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newSearchCmd(opts))
	root.AddCommand(newPopularCmd(opts))
	root.AddCommand(newGameCmd(opts))
	root.AddCommand(newCollectionCmd(opts))
	root.AddCommand(newBrowseCmd(opts))

	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(root.ErrOrStderr(), color.RedString("Error:"), err)
		}
		return 1
	}
	return 0
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (o *options) client() *client.Client {
	return client.New(o.server, o.token, nil)
}

// collection opens the session's collection store and loads it. Load
// failures fall back to local data, so they are only logged.
func (o *options) collection(cmd *cobra.Command) (collection.Store, error) {
	path := o.storage
	if path == "" {
		var err error
		if path, err = collection.DefaultStoragePath(); err != nil {
			return nil, fmt.Errorf("resolve storage path: %w", err)
		}
	}

	store := collection.New(o.token, collection.Deps{
		API:      o.client(),
		Storage:  collection.NewFileStorage(path),
		Notifier: newColorNotifier(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	})
	if err := store.Load(cmd.Context()); err != nil {
		logrus.WithError(err).Debug("Collection loaded from local storage")
	}
	return store, nil
}

func (o *options) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}
