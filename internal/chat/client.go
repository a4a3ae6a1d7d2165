// Package chat implements the streaming chat session client. The client
// owns the conversation state (messages, products, session id, loading
// flag), issues the triggering request, consumes the backend's event
// stream, and mirrors the transcript to the local store best-effort.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/roqcodes/ZyraClient/internal/backend"
	"github.com/roqcodes/ZyraClient/internal/session"
	"github.com/roqcodes/ZyraClient/internal/shop"
)

// User-visible messages for the error taxonomy. Every network or
// storage failure surfaces as at most one synthetic assistant message;
// none propagate to the caller.
const (
	shopErrText      = "Sorry, there was an error connecting to your shop. Please check your shop domain and try again."
	transportErrText = "Sorry, there was an error connecting to the chat service. Please try again later."
	authRequiredText = "Authentication required to access shop data. Please log in to your shop account."
)

// Recorder persists conversation transcripts best-effort. All methods
// swallow failures; see internal/transcript.
type Recorder interface {
	Append(msg session.Message, sessionID string)
	History(sessionID string) []session.Message
	MarkRead(sessionID string)
}

// Client is the streaming chat session client. It is the exclusive
// owner of the conversation state; surfaces read snapshots and submit
// input through SendMessage.
type Client struct {
	api      *backend.Client
	resolver *shop.Resolver
	recorder Recorder
	stream   *http.Client // no timeout, SSE streams are long-lived
	trigger  *http.Client
	logger   *slog.Logger
	tracer   trace.Tracer
	meter    metric.Meter

	// OnDelta, when set, is invoked with each streamed text fragment so
	// a surface can render the assistant's reply incrementally. Called
	// from the goroutine running SendMessage, outside the state lock.
	OnDelta func(delta string)

	mu        sync.Mutex
	messages  []session.Message
	products  []session.Product
	sessionID string // "" until the backend assigns one
	loading   bool
}

func NewClient(api *backend.Client, resolver *shop.Resolver, recorder Recorder, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) *Client {
	return &Client{
		api:      api,
		resolver: resolver,
		recorder: recorder,
		stream:   &http.Client{Timeout: 0}, // no timeout for SSE streams
		trigger:  &http.Client{Timeout: 60 * time.Second},
		logger:   logger,
		tracer:   tracer,
		meter:    meter,
	}
}

// Messages returns a snapshot of the conversation in append order.
func (c *Client) Messages() []session.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]session.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Products returns a snapshot of the current turn's product list.
func (c *Client) Products() []session.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]session.Product, len(c.products))
	copy(out, c.products)
	return out
}

// SessionID returns the backend-assigned session id, or "".
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Loading reports whether a turn is in flight.
func (c *Client) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// ClearMessages resets the conversation: messages, products and session
// id. It must not be called while a turn is in flight.
func (c *Client) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = nil
	c.products = nil
	c.sessionID = ""
}

// ResumeSession adopts an existing session id and replaces the in-memory
// conversation with its persisted history. A session id that is already
// set is never overwritten.
func (c *Client) ResumeSession(sessionID string) {
	if sessionID == "" {
		return
	}
	c.mu.Lock()
	if c.sessionID != "" {
		c.mu.Unlock()
		return
	}
	c.sessionID = sessionID
	c.mu.Unlock()

	if history := c.recorder.History(sessionID); len(history) > 0 {
		c.mu.Lock()
		c.messages = history
		c.mu.Unlock()
	}
	c.recorder.MarkRead(sessionID)
	c.logger.Info("resumed session", "session_id", sessionID)
}

// SendMessage runs one conversational turn: append the user message,
// open the event stream, fire the triggering request, and apply stream
// events until a terminal one. It blocks until the turn reaches a
// terminal state. All failures are converted to synthetic assistant
// messages; SendMessage never returns an error.
func (c *Client) SendMessage(ctx context.Context, text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	userMsg := session.Message{
		SenderType: session.SenderUser,
		Text:       text,
		Timestamp:  session.Timestamp(),
		Read:       true,
	}

	c.mu.Lock()
	c.messages = append(c.messages, userMsg)
	c.loading = true
	sessionID := c.sessionID
	c.mu.Unlock()

	if sessionID != "" {
		go c.recorder.Append(userMsg, sessionID)
	}

	domain := c.resolver.Resolve()
	if domain == "" {
		c.logger.Error("no shop domain available, cannot send message")
		c.appendAssistant(shopErrText)
		c.setLoading(false)
		return
	}

	ctx, span := c.tracer.Start(ctx, "chat_turn")
	defer span.End()
	start := time.Now()
	defer func() {
		c.recordTurnDuration(ctx, time.Since(start))
	}()

	// The terminal transition happens exactly once per turn, no matter
	// which path gets there first: closing the stream is the only
	// cancellation primitive and must be safe to invoke repeatedly.
	streamCtx, cancel := context.WithCancel(ctx)
	var once sync.Once
	finish := func() {
		once.Do(func() {
			cancel()
			c.setLoading(false)
		})
	}
	defer finish()

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, c.api.ChatURL(domain), nil)
	if err != nil {
		c.logger.Error("failed to create stream request", "error", err)
		c.appendAssistant(transportErrText)
		return
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		c.logger.Error("failed to open event stream", "error", err)
		c.appendAssistant(transportErrText)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("event stream rejected", "status", resp.Status)
		c.appendAssistant(transportErrText)
		return
	}

	// The triggering request and the stream are two separate channels
	// to the same logical turn. The trigger runs on the parent context
	// so closing the stream does not cancel it; a trigger failure tears
	// the turn down through finish.
	go func() {
		if err := c.sendTrigger(ctx, domain, text, sessionID); err != nil {
			c.logger.Error("error sending chat message", "error", err)
			c.appendAssistant(transportErrText)
			finish()
		}
	}()

	c.consumeStream(ctx, streamCtx, resp, finish)
}

// consumeStream applies stream events in arrival order until a terminal
// event or a transport error.
func (c *Client) consumeStream(ctx, streamCtx context.Context, resp *http.Response, finish func()) {
	reader := newSSEReader(resp.Body)
	var accum string

	for {
		data, err := reader.Next()
		if err != nil {
			if streamCtx.Err() != nil {
				// Closed by us after a terminal event.
				return
			}
			c.logger.Error("event stream closed unexpectedly", "error", err)
			c.appendAssistant(transportErrText)
			finish()
			return
		}

		ev, err := decodeEvent(data)
		if err != nil {
			c.logger.Warn("skipping malformed stream event", "error", err)
			continue
		}
		c.countEvent(ctx, ev.Type)

		switch ev.Type {
		case eventText:
			accum += ev.Text
			c.applyDelta(accum)
			if c.OnDelta != nil {
				c.OnDelta(ev.Text)
			}

		case eventProducts:
			// A new turn's products replace the previous list wholesale.
			if len(ev.Products) > 0 {
				c.logger.Info("received products", "count", len(ev.Products))
				c.mu.Lock()
				c.products = ev.Products
				c.mu.Unlock()
			}

		case eventSessionID:
			// First assignment wins; an established id is never overwritten.
			if ev.SessionID != "" {
				c.mu.Lock()
				if c.sessionID == "" {
					c.sessionID = ev.SessionID
					c.logger.Info("session id assigned", "session_id", ev.SessionID)
				}
				c.mu.Unlock()
			}

		case eventAuthRequired:
			c.logger.Warn("authentication required for tool", "tool", ev.Tool)
			c.appendAssistant(authRequiredText)
			finish()
			return

		case eventDone:
			c.mu.Lock()
			sessionID := c.sessionID
			c.mu.Unlock()
			if accum != "" && sessionID != "" {
				final := session.Message{
					SenderType: session.SenderAssistant,
					Text:       accum,
					Timestamp:  session.Timestamp(),
					Read:       true,
				}
				go c.recorder.Append(final, sessionID)
			}
			finish()
			return

		case eventError:
			c.logger.Error("error from assistant backend", "error", ev.Error)
			detail := ev.Error
			if detail == "" {
				detail = "Unknown error"
			}
			c.appendAssistant(fmt.Sprintf("Sorry, there was an error: %s. Please try again.", detail))
			finish()
			return

		default:
			c.logger.Warn("unknown stream event type", "type", ev.Type)
		}
	}
}

// sendTrigger issues the POST that asks the backend to begin producing
// this turn's stream output. Its response body is not used for UI state.
func (c *Client) sendTrigger(ctx context.Context, domain, text, sessionID string) error {
	body := triggerRequest{
		Message:      text,
		ShopDomain:   domain,
		CustomerInfo: customerInfo{ID: "customer-" + uuid.NewString()[:8]},
	}
	if sessionID != "" {
		body.SessionID = &sessionID
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.api.ChatURL(domain), bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create trigger request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.trigger.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send trigger request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("trigger request rejected: %s", resp.Status)
	}
	return nil
}

// applyDelta folds the accumulated assistant text into the message
// list: the open assistant message of this turn is overwritten in
// place, otherwise a new one is appended. Closed messages (user input,
// surfaced errors) are immutable.
func (c *Client) applyDelta(accum string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := len(c.messages); n > 0 {
		last := &c.messages[n-1]
		if last.SenderType == session.SenderAssistant && !last.Read {
			last.Text = accum
			return
		}
	}
	c.messages = append(c.messages, session.Message{
		SenderType: session.SenderAssistant,
		Text:       accum,
		Timestamp:  session.Timestamp(),
		Read:       false,
	})
}

// appendAssistant appends a closed assistant message, used for surfaced
// errors and auth prompts.
func (c *Client) appendAssistant(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, session.Message{
		SenderType: session.SenderAssistant,
		Text:       text,
		Timestamp:  session.Timestamp(),
		Read:       true,
	})
}

func (c *Client) setLoading(loading bool) {
	c.mu.Lock()
	c.loading = loading
	c.mu.Unlock()
}

func (c *Client) countEvent(ctx context.Context, kind string) {
	counter, err := c.meter.Int64Counter(
		fmt.Sprintf("chat.events.%s", kind),
		metric.WithDescription(fmt.Sprintf("Stream events received: %s", kind)),
	)
	if err != nil {
		c.logger.Warn("failed to create counter", "kind", kind, "error", err)
		return
	}
	counter.Add(ctx, 1)
}

func (c *Client) recordTurnDuration(ctx context.Context, d time.Duration) {
	histogram, err := c.meter.Float64Histogram(
		"chat.turn.duration",
		metric.WithDescription("Chat turn duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(d.Milliseconds()))
	}
}
