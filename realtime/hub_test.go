package realtime

import (
	"context"
	"testing"

	"gamedex/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

type fakeVerifier struct{}

func (fakeVerifier) GetUser(ctx context.Context, token string) (*core.User, error) {
	if token == "good" {
		return &core.User{ID: "github:1"}, nil
	}
	return nil, core.ErrUnauthorized
}

type emitted struct {
	room  socketio.Room
	event string
	args  []any
}

func newTestHub(t *testing.T) (*Hub, *[]emitted) {
	h := NewHub(fakeVerifier{})
	t.Cleanup(h.Close)
	var sent []emitted
	h.emit = func(room socketio.Room, event string, args ...any) {
		sent = append(sent, emitted{room: room, event: event, args: args})
	}
	return h, &sent
}

func TestSubscribe_JoinsUserRoom(t *testing.T) {
	h, _ := newTestHub(t)

	var (
		joined  []socketio.Room
		replies []string
	)
	h.subscribe("good",
		func(room socketio.Room) { joined = append(joined, room) },
		func(event string, args ...any) { replies = append(replies, event) },
	)

	assert.Equal(t, []socketio.Room{"user:github:1"}, joined)
	assert.Equal(t, []string{EventSubscribed}, replies)
}

func TestSubscribe_RejectsBadToken(t *testing.T) {
	h, _ := newTestHub(t)

	var (
		joined  []socketio.Room
		replies []string
	)
	for _, token := range []string{"", "forged"} {
		h.subscribe(token,
			func(room socketio.Room) { joined = append(joined, room) },
			func(event string, args ...any) { replies = append(replies, event) },
		)
	}

	assert.Empty(t, joined)
	assert.Equal(t, []string{EventUnauthorized, EventUnauthorized}, replies)
}

func TestCollectionChanged_EmitsToUserRoom(t *testing.T) {
	h, sent := newTestHub(t)

	event := core.CollectionEvent{Action: core.CollectionRemoved, GameID: 1942}
	h.CollectionChanged("github:1", event)

	require.Len(t, *sent, 1)
	got := (*sent)[0]
	assert.Equal(t, socketio.Room("user:github:1"), got.room)
	assert.Equal(t, EventCollectionChanged, got.event)
	assert.Equal(t, []any{event}, got.args)
}

func TestTokenFrom(t *testing.T) {
	assert.Equal(t, "abc", tokenFrom([]any{"abc"}))
	assert.Equal(t, "abc", tokenFrom([]any{map[string]any{"token": "abc"}}))
	assert.Equal(t, "", tokenFrom([]any{42}))
	assert.Equal(t, "", tokenFrom(nil))
}

func TestClose_BeforeServing(t *testing.T) {
	h := NewHub(fakeVerifier{})

	assert.NotNil(t, h.Handler())
	assert.NotPanics(t, h.Close)
}
