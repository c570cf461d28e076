package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gamedex/search"

	"github.com/spf13/cobra"
)

func newSearchCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the game catalog by name",
		Long: `Search the game catalog by name.

Examples:
  gamedex search zelda
  gamedex search "final fantasy" --limit 25`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return errors.New("query must not be blank")
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			results, err := opts.client().Search(ctx, query, limit)
			if err != nil {
				return fmt.Errorf("search %q: %w", query, err)
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultLimit, "maximum number of results")
	return cmd
}

func newPopularCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "popular",
		Short: "List highly rated games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := opts.context(cmd)
			defer cancel()

			results, err := opts.client().Popular(ctx, limit)
			if err != nil {
				return fmt.Errorf("popular games: %w", err)
			}
			printResults(cmd.OutOrStdout(), results)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", search.DefaultSuggestionLimit, "maximum number of results")
	return cmd
}

func newGameCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "game <id>",
		Short: "Show details for a game",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGameID(args[0])
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd)
			defer cancel()

			details, err := opts.client().Game(ctx, id)
			if err != nil {
				return fmt.Errorf("game %d: %w", id, err)
			}
			printGame(cmd.OutOrStdout(), details)
			return nil
		},
	}
}

func parseGameID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid game ID %q", s)
	}
	return id, nil
}
