// Package client is the Go SDK for the vibecheck widget: it bootstraps the
// per-event tally over HTTP, keeps it live over the websocket feed, and
// exposes the submission operation with the widget's tap semantics.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	handler "github.com/vibecheck/api/internal/adapters/handler/http"
	"github.com/vibecheck/api/internal/core/domain"
)

// lastVotedTTL is how long the confirmation marker stays on the tapped vibe.
const lastVotedTTL = 1500 * time.Millisecond

type Client struct {
	baseURL string
	eventID string
	http    *http.Client

	lastVotedTTL time.Duration

	mu             sync.Mutex
	counts         domain.Counts
	loading        bool
	inFlight       bool
	lastVoted      domain.Vibe
	lastVotedTimer *time.Timer
	errMsg         string
	onVote         []func(domain.Vibe)
	conn           *websocket.Conn
}

// New builds a client for one event scope. The scope is fixed for the
// client's lifetime; an empty id means the default event.
func New(baseURL, eventID string) *Client {
	if eventID == "" {
		eventID = domain.DefaultEvent
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		eventID:      eventID,
		http:         &http.Client{Timeout: 10 * time.Second},
		lastVotedTTL: lastVotedTTL,
		counts:       domain.NewCounts(),
		loading:      true,
	}
}

// OnVote registers a callback invoked once per vote echoed by the feed,
// including this client's own submissions. This is how an animation layer
// learns of new votes.
func (c *Client) OnVote(fn func(domain.Vibe)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onVote = append(c.onVote, fn)
}

// FetchCounts loads the current tally. On failure the previous counts are
// kept (zeros on first call), the error message is set, and loading still
// transitions to done; there is no automatic retry.
func (c *Client) FetchCounts(ctx context.Context) error {
	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	u := fmt.Sprintf("%s/api/votes/counts?event=%s", c.baseURL, url.QueryEscape(c.eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return c.failLoad(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.failLoad(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.failLoad(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body struct {
		Event  string        `json:"event"`
		Counts domain.Counts `json:"counts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return c.failLoad(err)
	}

	c.mu.Lock()
	c.counts = body.Counts
	c.errMsg = ""
	c.mu.Unlock()
	return nil
}

func (c *Client) failLoad(err error) error {
	c.mu.Lock()
	c.errMsg = handler.MsgLoadFailed
	c.mu.Unlock()
	return fmt.Errorf("%w: %v", domain.ErrLoadFailed, err)
}

// Vote submits one vote for the client's event. If a submission is already in
// flight the call is a no-op, guarding against duplicate taps. The local
// count is not incremented here: it rises only when the feed echoes the
// insert back, like for any other observer.
func (c *Client) Vote(ctx context.Context, vibe domain.Vibe) error {
	if !vibe.Valid() {
		return domain.ErrInvalidVibe
	}

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return nil
	}
	c.inFlight = true
	c.mu.Unlock()

	err := c.postVote(ctx, vibe)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err != nil {
		c.errMsg = handler.MsgVoteFailed
		return fmt.Errorf("%w: %v", domain.ErrVoteFailed, err)
	}

	c.errMsg = ""
	c.lastVoted = vibe
	if c.lastVotedTimer != nil {
		c.lastVotedTimer.Stop()
	}
	c.lastVotedTimer = time.AfterFunc(c.lastVotedTTL, func() {
		c.mu.Lock()
		if c.lastVoted == vibe {
			c.lastVoted = ""
		}
		c.mu.Unlock()
	})

	return nil
}

func (c *Client) postVote(ctx context.Context, vibe domain.Vibe) error {
	payload, err := json.Marshal(map[string]string{"vibe": vibe.String()})
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/api/votes?event=%s", c.baseURL, url.QueryEscape(c.eventID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Subscribe opens the websocket feed and merges pushed insertions until the
// context is canceled or Close is called. The feed's opening counts frame is
// already de-duplicated against its own bootstrap server-side, so applying
// it wholesale closes the fetch/subscribe race on this end too.
func (c *Client) Subscribe(ctx context.Context) error {
	wsURL, err := c.liveURL()
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial live feed: %w", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go c.readLoop(conn)
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg handler.LiveMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Event != c.eventID {
			continue
		}

		switch msg.Type {
		case handler.LiveTypeCounts:
			c.mu.Lock()
			if msg.Counts != nil {
				c.counts = msg.Counts
			}
			if msg.Error != "" {
				c.errMsg = msg.Error
			}
			c.loading = false
			c.mu.Unlock()

		case handler.LiveTypeVote:
			if msg.Vote == nil || !msg.Vote.Vibe.Valid() {
				continue
			}
			c.mu.Lock()
			if msg.Counts != nil {
				c.counts = msg.Counts
			} else {
				c.counts[msg.Vote.Vibe]++
			}
			callbacks := make([]func(domain.Vibe), len(c.onVote))
			copy(callbacks, c.onVote)
			c.mu.Unlock()

			for _, fn := range callbacks {
				fn(msg.Vote.Vibe)
			}
		}
	}
}

func (c *Client) liveURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/votes/live"
	u.RawQuery = "event=" + url.QueryEscape(c.eventID)
	return u.String(), nil
}

// Close tears down the live subscription. The feed must not outlive the
// widget that opened it.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	if c.lastVotedTimer != nil {
		c.lastVotedTimer.Stop()
	}
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (c *Client) EventID() string {
	return c.eventID
}

func (c *Client) Counts() domain.Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts.Clone()
}

func (c *Client) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LastVoted reports the vibe whose confirmation marker is currently shown,
// or "" once the marker has cleared.
func (c *Client) LastVoted() domain.Vibe {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastVoted
}

// Err returns the current user-visible error message, if any.
func (c *Client) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}
