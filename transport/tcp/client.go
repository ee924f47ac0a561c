package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rocketscienceinc/mazechase-backend/internal/apperror"
	"github.com/rocketscienceinc/mazechase-backend/internal/entity"
	"github.com/rocketscienceinc/mazechase-backend/internal/protocol"
)

const (
	clientReadBuffer = 1024
	maxRetryInterval = 5 * time.Second
)

// FrameSink receives every message the server sends.
type FrameSink interface {
	ShowFrame(frame entity.Frame)
}

// Client is the player side of the wire. It tracks its own position so that
// directional input can be turned into the absolute coordinates the server expects.
type Client struct {
	logger *slog.Logger
	addr   string

	maxRetries    uint64
	retryInterval time.Duration

	mu   sync.Mutex
	conn net.Conn
	pos  entity.Position
}

func NewClient(logger *slog.Logger, addr string, maxRetries uint64, retryInterval time.Duration) *Client {
	if retryInterval <= 0 {
		retryInterval = backoff.DefaultInitialInterval
	}

	return &Client{
		logger:        logger.With("component", "tcp_client", "addr", addr),
		addr:          addr,
		maxRetries:    maxRetries,
		retryInterval: retryInterval,
		pos:           entity.DefaultClientStart,
	}
}

// Connect - dials the server with bounded exponential backoff and gives up with ErrConnect.
func (that *Client) Connect(ctx context.Context) error {
	log := that.logger.With("method", "Connect")

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = that.retryInterval
	expBackoff.MaxInterval = maxRetryInterval

	attempt := 0
	operation := func() (net.Conn, error) {
		attempt++

		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", that.addr)
		if err != nil {
			log.Warn("server not reachable", "attempt", attempt, "error", err)
			return nil, err
		}

		return conn, nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(expBackoff, that.maxRetries), ctx)

	conn, err := backoff.RetryWithData(operation, policy)
	if err != nil {
		return fmt.Errorf("%w: %s after %d attempts: %w", apperror.ErrConnect, that.addr, attempt, err)
	}

	that.mu.Lock()
	that.conn = conn
	that.pos = entity.DefaultClientStart
	that.mu.Unlock()

	log.Info("connected to server")

	return nil
}

// SendMove - asks the server to move the client one step by (dx, dy).
func (that *Client) SendMove(dx, dy int) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.conn == nil {
		return apperror.ErrNotConnected
	}

	target := that.pos.Add(entity.Direction{DX: dx, DY: dy})

	data, err := protocol.EncodeMove(target)
	if err != nil {
		return err
	}

	if _, err = that.conn.Write(data); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrSend, err)
	}

	// optimistic until the next frame says otherwise
	that.pos = target

	return nil
}

// Receive - forwards server messages to sink until the connection ends.
// An orderly close by the server returns nil.
func (that *Client) Receive(ctx context.Context, sink FrameSink) error {
	that.mu.Lock()
	conn := that.conn
	that.mu.Unlock()

	if conn == nil {
		return apperror.ErrNotConnected
	}

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	buf := make([]byte, clientReadBuffer)
	pending := ""

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			var messages []string
			messages, pending = protocol.SplitMessages(pending + string(buf[:n]))

			for _, msg := range messages {
				that.deliver(sink, msg)
			}
		}

		if err != nil {
			if strings.TrimSpace(pending) != "" {
				that.deliver(sink, pending)
			}

			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("%w: %w", apperror.ErrConnectionLost, err)
		}
	}
}

func (that *Client) deliver(sink FrameSink, msg string) {
	frame := protocol.ParseFrame(msg)

	if pos, ok := frame.ClientPosition(); ok {
		that.mu.Lock()
		that.pos = pos
		that.mu.Unlock()
	}

	sink.ShowFrame(frame)
}

func (that *Client) Position() entity.Position {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.pos
}

func (that *Client) Disconnect() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.conn == nil {
		return nil
	}

	err := that.conn.Close()
	that.conn = nil

	that.logger.Info("disconnected")

	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("failed to close connection: %w", err)
	}

	return nil
}
