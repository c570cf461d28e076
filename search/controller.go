// Package search drives an as-you-type game search: input is debounced,
// each dispatch runs under its own context, and answers to superseded
// queries are dropped.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"gamedex/core"

	"github.com/sirupsen/logrus"
)

const (
	DefaultDebounce        = 300 * time.Millisecond
	DefaultLimit           = 10
	DefaultSuggestionLimit = 5

	errSearchFailed = "Error searching games. Please try again."
)

type (
	// Searcher is the catalog surface the controller queries.
	Searcher interface {
		Search(ctx context.Context, query string, limit int) ([]core.SearchResult, error)
		Popular(ctx context.Context, limit int) ([]core.SearchResult, error)
	}

	// State is a snapshot of the controller.
	State struct {
		Query       string
		Results     []core.SearchResult
		Suggestions []core.SearchResult
		Loading     bool
		Error       string
	}

	Options struct {
		Debounce        time.Duration
		Limit           int
		SuggestionLimit int
	}

	Controller struct {
		searcher        Searcher
		debounce        time.Duration
		limit           int
		suggestionLimit int

		mu         sync.Mutex
		state      State
		timer      *time.Timer
		cancel     context.CancelFunc
		generation uint64
		listeners  []func(State)
		closed     bool
	}
)

func NewController(searcher Searcher, opts Options) *Controller {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.SuggestionLimit <= 0 {
		opts.SuggestionLimit = DefaultSuggestionLimit
	}
	return &Controller{
		searcher:        searcher,
		debounce:        opts.Debounce,
		limit:           opts.Limit,
		suggestionLimit: opts.SuggestionLimit,
		state: State{
			Results:     []core.SearchResult{},
			Suggestions: []core.SearchResult{},
		},
	}
}

// OnChange registers fn to receive every state change.
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot()
}

// SetQuery records the input and schedules a search once the input has been
// quiet for the debounce window. Blank input clears the results at once.
func (c *Controller) SetQuery(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	gen := c.supersede()
	c.state.Query = text

	if strings.TrimSpace(text) == "" {
		c.state.Results = []core.SearchResult{}
		c.state.Error = ""
		c.state.Loading = false
		c.publish()
		return
	}

	c.timer = time.AfterFunc(c.debounce, func() { c.dispatch(gen, text) })
	c.publish()
}

// Clear resets the query and results and abandons any pending search.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.supersede()
	c.state.Query = ""
	c.state.Results = []core.SearchResult{}
	c.state.Error = ""
	c.state.Loading = false
	c.publish()
}

// LoadSuggestions fetches the popular list shown while the query is empty.
func (c *Controller) LoadSuggestions(ctx context.Context) error {
	results, err := c.searcher.Popular(ctx, c.suggestionLimit)
	if err != nil {
		logrus.WithError(err).Error("Error loading suggestions")
		return err
	}
	if results == nil {
		results = []core.SearchResult{}
	}

	c.mu.Lock()
	c.state.Suggestions = results
	c.publish()
	return nil
}

// Close stops the timer and cancels any in-flight search.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.supersede()
}

func (c *Controller) dispatch(gen uint64, query string) {
	c.mu.Lock()
	if gen != c.generation || c.closed {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state.Loading = true
	c.state.Error = ""
	c.publish()

	results, err := c.searcher.Search(ctx, query, c.limit)
	cancel()

	c.mu.Lock()
	if gen != c.generation {
		// A newer query owns the state now.
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	c.state.Loading = false
	if err != nil {
		logrus.WithFields(logrus.Fields{"error": err, "query": query}).Warn("Search failed")
		c.state.Error = errSearchFailed
		c.state.Results = []core.SearchResult{}
	} else {
		if results == nil {
			results = []core.SearchResult{}
		}
		c.state.Results = results
	}
	c.publish()
}

// supersede invalidates the pending timer and in-flight request and
// returns the new generation. Callers hold c.mu.
func (c *Controller) supersede() uint64 {
	c.generation++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return c.generation
}

func (c *Controller) snapshot() State {
	s := c.state
	s.Results = append([]core.SearchResult(nil), c.state.Results...)
	s.Suggestions = append([]core.SearchResult(nil), c.state.Suggestions...)
	if s.Results == nil {
		s.Results = []core.SearchResult{}
	}
	if s.Suggestions == nil {
		s.Suggestions = []core.SearchResult{}
	}
	return s
}

// publish takes a snapshot, releases c.mu and notifies listeners.
func (c *Controller) publish() {
	s := c.snapshot()
	listeners := make([]func(State), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()
	for _, fn := range listeners {
		fn(s)
	}
}
