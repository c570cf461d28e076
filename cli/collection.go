package cli

import (
	"errors"
	"fmt"
	"io"

	"gamedex/collection"
	"gamedex/core"
	"gamedex/realtime"

	"github.com/spf13/cobra"
)

func newCollectionCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"col"},
		Short:   "Manage your game collection",
		Long: `Manage your game collection.

Changes require a session token. Without one the collection saved on this
machine is shown read-only.`,
	}
	cmd.AddCommand(newCollectionListCmd(opts))
	cmd.AddCommand(newCollectionAddCmd(opts))
	cmd.AddCommand(newCollectionRemoveCmd(opts))
	cmd.AddCommand(newCollectionWatchCmd(opts))
	return cmd
}

func newCollectionListCmd(opts *options) *cobra.Command {
	var sortBy string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the games in your collection",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			by, err := collection.ParseCriterion(sortBy)
			if err != nil {
				return err
			}
			store, err := opts.collection(cmd)
			if err != nil {
				return err
			}
			printCollection(cmd.OutOrStdout(), store.Sorted(by))
			return nil
		},
	}
	cmd.Flags().StringVarP(&sortBy, "sort", "s", string(collection.ByDateAdded), "sort by dateAdded, releaseDate or name")
	return cmd
}

func newCollectionAddCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <game-id>",
		Short: "Add a game to your collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			store, err := opts.collection(cmd)
			if err != nil {
				return err
			}

			game := core.CollectedGame{Game: core.Game{ID: id}}
			if opts.token != "" {
				ctx, cancel := opts.context(cmd)
				details, err := opts.client().Game(ctx, id)
				cancel()
				if err != nil {
					return fmt.Errorf("game %d: %w", id, err)
				}
				if details.Game == nil {
					return fmt.Errorf("game %d not found", id)
				}
				game.Game = *details.Game
			}

			if !store.Add(cmd.Context(), game) {
				return errReported
			}
			return nil
		},
	}
}

func newCollectionRemoveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <game-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a game from your collection",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}
			store, err := opts.collection(cmd)
			if err != nil {
				return err
			}

			store.Remove(cmd.Context(), id)
			if opts.token == "" || store.Contains(id) {
				return errReported
			}
			return nil
		},
	}
}

func newCollectionWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow changes made to your collection from other sessions",
		Long: `Follow changes made to your collection from other sessions.

Every add or remove confirmed by the server is applied to the local copy
and printed as it happens. Stop with Ctrl+C.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.token == "" {
				return errors.New("watching requires a session token (--token or GAMEDEX_TOKEN)")
			}
			store, err := opts.collection(cmd)
			if err != nil {
				return err
			}
			remote, ok := store.(*collection.Remote)
			if !ok {
				return errors.New("watching requires a signed-in collection")
			}

			ctx := cmd.Context()
			sub, err := realtime.Subscribe(ctx, opts.server, opts.token)
			if err != nil {
				return fmt.Errorf("subscribe to collection changes: %w", err)
			}
			defer func() { _ = sub.Close() }()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Watching collection (%d games). Press Ctrl+C to stop.\n", remote.Len())
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-sub.Events():
					if !ok {
						return fmt.Errorf("collection updates stopped: %w", sub.Err())
					}
					printCollectionEvent(out, remote, event)
				}
			}
		},
	}
}

// printCollectionEvent applies event to remote and reports the change.
func printCollectionEvent(w io.Writer, remote *collection.Remote, event core.CollectionEvent) {
	name := fmt.Sprintf("Game %d", event.GameID)
	if game, ok := findGame(remote.Items(), event.GameID); ok {
		name = game.Name
	}

	remote.Apply(event)

	switch event.Action {
	case core.CollectionAdded:
		if game, ok := findGame(remote.Items(), event.GameID); ok {
			name = game.Name
		}
		fmt.Fprintf(w, "+ %s (%d games)\n", name, remote.Len())
	case core.CollectionRemoved:
		fmt.Fprintf(w, "- %s (%d games)\n", name, remote.Len())
	}
}

func findGame(games []core.CollectedGame, id int64) (core.CollectedGame, bool) {
	for _, g := range games {
		if g.ID == id {
			return g, true
		}
	}
	return core.CollectedGame{}, false
}
