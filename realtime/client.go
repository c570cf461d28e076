package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"gamedex/core"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Engine.IO v4 and Socket.IO v5 packet prefixes used by the subscription.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'

	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketConnectError = '4'

	handshakeTimeout = 10 * time.Second
)

// Subscription receives collection-changed events for one session.
type Subscription struct {
	conn   *websocket.Conn
	events chan core.CollectionEvent
	stop   chan struct{}
	done   chan struct{}

	writeMu sync.Mutex
	errMu   sync.Mutex
	err     error
	closed  bool
	log     *logrus.Entry
}

// Subscribe connects to the hub served by serverURL and subscribes with the
// session token. It returns once the hub accepted the token.
func Subscribe(ctx context.Context, serverURL, token string) (*Subscription, error) {
	endpoint, err := socketURL(serverURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime: dial %s: %w", endpoint, err)
	}

	s := &Subscription{
		conn:   conn,
		events: make(chan core.CollectionEvent, 16),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		log:    logrus.WithField("component", "realtime-client"),
	}

	deadline := time.Now().Add(handshakeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetReadDeadline(deadline)

	if err := s.handshake(token); err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Time{})

	go s.readLoop()
	return s, nil
}

// Events delivers collection changes until the connection ends.
func (s *Subscription) Events() <-chan core.CollectionEvent {
	return s.events
}

// Err reports why the event stream ended. It is nil after Close.
func (s *Subscription) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Close disconnects and waits for the reader to stop.
func (s *Subscription) Close() error {
	s.errMu.Lock()
	if s.closed {
		s.errMu.Unlock()
		return nil
	}
	s.closed = true
	s.errMu.Unlock()
	close(s.stop)

	_ = s.write(string(engineMessage) + string(socketDisconnect))
	err := s.conn.Close()
	<-s.done
	return err
}

func (s *Subscription) handshake(token string) error {
	// The engine greets with an open packet before anything else.
	if _, err := s.expect(func(p string) (bool, error) {
		return p[0] == engineOpen, nil
	}); err != nil {
		return fmt.Errorf("realtime: engine handshake: %w", err)
	}

	if err := s.write(string(engineMessage) + string(socketConnect)); err != nil {
		return fmt.Errorf("realtime: connect namespace: %w", err)
	}
	if _, err := s.expect(func(p string) (bool, error) {
		if len(p) < 2 || p[0] != engineMessage {
			return false, nil
		}
		switch p[1] {
		case socketConnect:
			return true, nil
		case socketConnectError:
			return false, fmt.Errorf("connect refused: %s", p[2:])
		}
		return false, nil
	}); err != nil {
		return fmt.Errorf("realtime: connect namespace: %w", err)
	}

	payload, err := json.Marshal([]any{EventSubscribe, token})
	if err != nil {
		return err
	}
	if err := s.write(string(engineMessage) + string(socketEvent) + string(payload)); err != nil {
		return fmt.Errorf("realtime: subscribe: %w", err)
	}
	if _, err := s.expect(func(p string) (bool, error) {
		name, _, ok := parseEvent(p)
		switch {
		case !ok:
			return false, nil
		case name == EventSubscribed:
			return true, nil
		case name == EventUnauthorized:
			return false, core.ErrUnauthorized
		}
		return false, nil
	}); err != nil {
		return fmt.Errorf("realtime: subscribe: %w", err)
	}
	return nil
}

// expect reads packets, answering pings, until match accepts one.
func (s *Subscription) expect(match func(packet string) (bool, error)) (string, error) {
	for {
		packet, err := s.read()
		if err != nil {
			return "", err
		}
		if packet[0] == engineClose {
			return "", errors.New("connection closed by server")
		}
		ok, err := match(packet)
		if err != nil {
			return "", err
		}
		if ok {
			return packet, nil
		}
	}
}

func (s *Subscription) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		packet, err := s.read()
		if err != nil {
			s.fail(err)
			return
		}
		if packet[0] == engineClose || strings.HasPrefix(packet, string(engineMessage)+string(socketDisconnect)) {
			s.fail(errors.New("realtime: disconnected by server"))
			return
		}

		name, args, ok := parseEvent(packet)
		if !ok || name != EventCollectionChanged || len(args) == 0 {
			continue
		}
		var event core.CollectionEvent
		if err := json.Unmarshal(args[0], &event); err != nil {
			s.log.WithError(err).Warn("Ignoring unreadable collection event")
			continue
		}
		select {
		case s.events <- event:
		case <-s.stop:
			return
		}
	}
}

// read returns the next non-empty text packet, answering engine pings.
func (s *Subscription) read() (string, error) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		packet := string(data)
		if packet == "" {
			continue
		}
		if packet[0] == enginePing {
			if err := s.write(string(enginePong) + packet[1:]); err != nil {
				return "", err
			}
			continue
		}
		return packet, nil
	}
}

func (s *Subscription) write(packet string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, []byte(packet))
}

func (s *Subscription) fail(err error) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	if !s.closed {
		s.err = err
	}
}

// parseEvent decodes a `42[name, args...]` packet on the default namespace.
func parseEvent(packet string) (string, []json.RawMessage, bool) {
	if len(packet) < 2 || packet[0] != engineMessage || packet[1] != socketEvent {
		return "", nil, false
	}
	body := strings.TrimLeft(packet[2:], "0123456789")

	var parts []json.RawMessage
	if err := json.Unmarshal([]byte(body), &parts); err != nil || len(parts) == 0 {
		return "", nil, false
	}
	var name string
	if err := json.Unmarshal(parts[0], &name); err != nil {
		return "", nil, false
	}
	return name, parts[1:], true
}

func socketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("realtime: parse server URL: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("realtime: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	u.RawQuery = url.Values{"EIO": {"4"}, "transport": {"websocket"}}.Encode()
	return u.String(), nil
}
