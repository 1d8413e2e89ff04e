package bridge

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Handler serves messages in the privileged context
type Handler interface {
	Handle(ctx context.Context, msg Message) *Reply
}

// Transport carries one envelope to the privileged context and returns its
// reply
type Transport interface {
	RoundTrip(ctx context.Context, env Envelope) (*Reply, error)
}

// maxReplyBytes bounds a decoded reply; inline media replies are large
const maxReplyBytes = 128 << 20

// LocalTransport delivers envelopes to an in-process handler through a
// mailbox goroutine. Every request gets its own reply channel.
type LocalTransport struct {
	handler Handler
	mailbox chan delivery
	quit    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

type delivery struct {
	ctx   context.Context
	raw   []byte
	reply chan *Reply
}

// NewLocalTransport starts the mailbox
func NewLocalTransport(handler Handler, depth int) *LocalTransport {
	if depth <= 0 {
		depth = 16
	}
	t := &LocalTransport{
		handler: handler,
		mailbox: make(chan delivery, depth),
		quit:    make(chan struct{}),
	}
	t.wg.Add(1)
	go t.run()
	return t
}

func (t *LocalTransport) run() {
	defer t.wg.Done()
	for {
		select {
		case d := <-t.mailbox:
			// Handlers are asynchronous; the mailbox only orders delivery
			t.wg.Add(1)
			go func() {
				defer t.wg.Done()
				d.reply <- serve(d.ctx, t.handler, d.raw)
			}()
		case <-t.quit:
			return
		}
	}
}

// RoundTrip serializes the envelope, as a real context boundary would, and
// waits for the reply
func (t *LocalTransport) RoundTrip(ctx context.Context, env Envelope) (*Reply, error) {
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	d := delivery{ctx: ctx, raw: raw, reply: make(chan *Reply, 1)}
	select {
	case t.mailbox <- d:
	case <-t.quit:
		return nil, &TransportError{Err: fmt.Errorf("transport closed")}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-d.reply:
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the mailbox and waits for in-flight handlers
func (t *LocalTransport) Close() error {
	t.once.Do(func() { close(t.quit) })
	t.wg.Wait()
	return nil
}

// serve decodes one raw envelope and runs the handler
func serve(ctx context.Context, h Handler, raw []byte) *Reply {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Failure(fmt.Errorf("decode envelope: %w", err))
	}
	msg, err := Decode(env)
	if err != nil {
		return Failure(err)
	}
	reply := h.Handle(ctx, msg)
	if reply == nil {
		return Failure(fmt.Errorf("%s: no reply", env.Action))
	}
	return reply
}

// HTTPTransport talks to a relay served over HTTP
type HTTPTransport struct {
	endpoint string
	client   *http.Client

	// Token is sent as a bearer token when set
	Token string
}

// NewHTTPTransport creates a transport posting to endpoint (e.g.
// http://localhost:9002/bridge)
func NewHTTPTransport(endpoint string, client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &HTTPTransport{endpoint: endpoint, client: client}
}

// RoundTrip posts the envelope and decodes the reply
func (t *HTTPTransport) RoundTrip(ctx context.Context, env Envelope) (*Reply, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var reply Reply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, &TransportError{Status: resp.StatusCode, Body: string(raw), Err: fmt.Errorf("decode reply: %w", err)}
	}
	return &reply, nil
}

// NewHTTPHandler exposes a Handler over HTTP for HTTPTransport. When token
// is set every request must carry it as a bearer token. Message failures
// are {success: false} replies with status 200; only malformed or
// unauthorized requests get a non-2xx status.
func NewHTTPHandler(h Handler, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" && !validBearer(r.Header.Get("Authorization"), token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxReplyBytes))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}

		reply := serve(r.Context(), h, raw)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(reply)
	})
}

func validBearer(header, token string) bool {
	got, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1
}
