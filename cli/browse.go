package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"gamedex/search"

	"github.com/spf13/cobra"
)

func newBrowseCmd(opts *options) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Search interactively as you type",
		Long: `Search interactively. Each line replaces the current query; results
appear once input has been quiet for the debounce window. An empty line
shows popular games. Type :q to quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl := search.NewController(opts.client(), search.Options{Debounce: debounce})
			defer ctrl.Close()
			return browse(cmd, ctrl, opts.timeout+debounce)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", search.DefaultDebounce, "quiet period before a query is sent")
	return cmd
}

// browse feeds stdin lines into the controller and prints every settled
// result set. On end of input it waits up to grace for the last query.
func browse(cmd *cobra.Command, ctrl *search.Controller, grace time.Duration) error {
	out := cmd.OutOrStdout()

	var (
		mu      sync.Mutex
		want    string
		loading bool
	)
	settled := make(chan struct{}, 1)
	writeOut := func(fn func(w io.Writer)) {
		mu.Lock()
		defer mu.Unlock()
		fn(out)
	}

	ctrl.OnChange(func(s search.State) {
		mu.Lock()
		wasLoading := loading
		loading = s.Loading
		current := want
		mu.Unlock()

		if s.Loading || !wasLoading || s.Query == "" || s.Query != current {
			return
		}
		writeOut(func(w io.Writer) {
			if s.Error != "" {
				fmt.Fprintln(w, s.Error)
				return
			}
			printResults(w, s.Results)
		})
		select {
		case settled <- struct{}{}:
		default:
		}
	})

	if err := ctrl.LoadSuggestions(cmd.Context()); err == nil {
		writeOut(func(w io.Writer) {
			fmt.Fprintln(w, "Popular right now:")
			printResults(w, ctrl.State().Suggestions)
		})
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == ":q" || line == ":quit" {
			return nil
		}

		mu.Lock()
		want = line
		mu.Unlock()
		select {
		case <-settled:
		default:
		}

		if line == "" {
			ctrl.Clear()
			writeOut(func(w io.Writer) {
				printResults(w, ctrl.State().Suggestions)
			})
			continue
		}
		ctrl.SetQuery(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	mu.Lock()
	pending := want != ""
	mu.Unlock()
	if pending {
		select {
		case <-settled:
		case <-time.After(grace):
		case <-cmd.Context().Done():
		}
	}
	return nil
}
