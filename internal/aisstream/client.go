package aisstream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ErrFeedRejected is returned when the server answers with an error frame,
// typically an invalid API key or subscription. Retrying will not help.
var ErrFeedRejected = errors.New("feed rejected subscription")

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("connection closed")

// Dialer opens subscribed feed connections.
type Dialer struct {
	config Config
	logger zerolog.Logger
}

// NewDialer creates a dialer. Unset config fields take DefaultConfig values,
// except timeouts which stay disabled when zero.
func NewDialer(config Config, logger *zerolog.Logger) *Dialer {
	def := DefaultConfig()
	if config.Endpoint == "" {
		config.Endpoint = def.Endpoint
	}
	if len(config.BoundingBoxes) == 0 {
		config.BoundingBoxes = def.BoundingBoxes
	}
	if len(config.MessageTypes) == 0 {
		config.MessageTypes = def.MessageTypes
	}

	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "aisstream").Logger()
	}

	return &Dialer{config: config, logger: l}
}

// Dial connects and sends the subscription. The connection lives until Close
// is called or ctx is cancelled.
func (d *Dialer) Dial(ctx context.Context) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.config.HandshakeTimeout,
	}

	ws, _, err := dialer.DialContext(ctx, d.config.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &Conn{
		ws:     ws,
		config: d.config,
		logger: d.logger,
		done:   make(chan struct{}),
	}

	if err := c.subscribe(); err != nil {
		ws.Close()
		return nil, err
	}

	d.logger.Info().
		Str("endpoint", d.config.Endpoint).
		Int("bounding_boxes", len(d.config.BoundingBoxes)).
		Strs("message_types", d.config.MessageTypes).
		Msg("subscribed to feed")

	if d.config.ReadTimeout > 0 {
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(d.config.ReadTimeout))
		})
	}

	c.wg.Add(1)
	go c.watch(ctx)

	if d.config.PingInterval > 0 {
		c.wg.Add(1)
		go c.pingLoop()
	}

	return c, nil
}

// Conn is one subscribed feed connection. Next must be called from a single
// goroutine.
type Conn struct {
	ws     *websocket.Conn
	config Config
	logger zerolog.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func (c *Conn) subscribe() error {
	sub := subscription{
		APIKey:             c.config.APIKey,
		BoundingBoxes:      c.config.BoundingBoxes,
		FiltersShipMMSI:    c.config.ShipMMSI,
		FilterMessageTypes: c.config.MessageTypes,
	}

	if c.config.WriteTimeout > 0 {
		c.ws.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	if err := c.ws.WriteJSON(sub); err != nil {
		return fmt.Errorf("write subscribe: %w", err)
	}
	return nil
}

// Next blocks until the next frame arrives. It fails when the read deadline
// passes without any traffic, when the peer closes, or after ctx is
// cancelled.
func (c *Conn) Next(ctx context.Context) ([]byte, error) {
	if c.config.ReadTimeout > 0 {
		c.ws.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}

	_, message, err := c.ws.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		select {
		case <-c.done:
			return nil, ErrClosed
		default:
		}
		return nil, fmt.Errorf("read message: %w", err)
	}

	return message, nil
}

// Close sends a close frame and releases the connection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = c.ws.Close()
		c.wg.Wait()
	})
	return err
}

// watch closes the socket when ctx is cancelled, unblocking Next.
func (c *Conn) watch(ctx context.Context) {
	defer c.wg.Done()

	select {
	case <-ctx.Done():
		c.ws.Close()
	case <-c.done:
	}
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (c *Conn) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			timeout := c.config.WriteTimeout
			if timeout <= 0 {
				timeout = 10 * time.Second
			}
			deadline := time.Now().Add(timeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				// Reader will notice the dead connection.
				c.logger.Debug().Err(err).Msg("ping failed")
			}
		}
	}
}
