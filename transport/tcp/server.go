package tcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/rocketscienceinc/mazechase-backend/internal/apperror"
	"github.com/rocketscienceinc/mazechase-backend/internal/entity"
	"github.com/rocketscienceinc/mazechase-backend/internal/protocol"
)

const defaultReadBuffer = 512

// GameSession is what the server drives for each accepted connection.
type GameSession interface {
	ID() string
	Start(ctx context.Context) error
	HandleMove(ctx context.Context, target entity.Position) error
	Close(ctx context.Context)
	Done() <-chan struct{}
}

// SessionFactory builds a fresh session, with a fresh maze, for a connection.
type SessionFactory func(conn net.Conn) GameSession

// ContinueFunc decides whether to accept another connection after a session closes.
type ContinueFunc func() bool

// Server accepts connections one at a time and runs a single session per connection.
type Server struct {
	logger     *slog.Logger
	newSession SessionFactory
	playAgain  ContinueFunc
	readBuffer int

	listener net.Listener
}

func NewServer(logger *slog.Logger, newSession SessionFactory, playAgain ContinueFunc, readBuffer int) *Server {
	if readBuffer < protocol.MoveMessageLen {
		readBuffer = defaultReadBuffer
	}

	if playAgain == nil {
		playAgain = func() bool { return true }
	}

	return &Server{
		logger:     logger.With("component", "tcp_server"),
		newSession: newSession,
		playAgain:  playAgain,
		readBuffer: readBuffer,
	}
}

// Start - binds addr and serves until ctx is done or the operator stops.
func (that *Server) Start(ctx context.Context, addr string) error {
	if err := that.Listen(addr); err != nil {
		return err
	}

	return that.Serve(ctx)
}

// Listen - binds the listening socket. A bind failure is fatal for the caller.
func (that *Server) Listen(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", apperror.ErrBind, addr, err)
	}

	that.listener = listener
	that.logger.Info("listening", "addr", listener.Addr().String())

	return nil
}

func (that *Server) Addr() net.Addr {
	if that.listener == nil {
		return nil
	}

	return that.listener.Addr()
}

// Serve - accepts connections sequentially, never concurrently.
func (that *Server) Serve(ctx context.Context) error {
	if that.listener == nil {
		return fmt.Errorf("%w: server is not listening", apperror.ErrBind)
	}

	log := that.logger.With("method", "Serve")

	stop := context.AfterFunc(ctx, func() {
		_ = that.listener.Close()
	})
	defer stop()
	defer that.listener.Close()

	for {
		log.Info("waiting for client")

		conn, err := that.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Info("listener closed")
				return nil
			}

			return fmt.Errorf("failed to accept connection: %w", err)
		}

		that.serveConn(ctx, conn)

		if ctx.Err() != nil {
			return nil
		}

		if !that.playAgain() {
			log.Info("operator stopped the server")
			return nil
		}
	}
}

// serveConn - runs the receive/respond loop of one session until the connection ends.
func (that *Server) serveConn(ctx context.Context, conn net.Conn) {
	session := that.newSession(conn)
	log := that.logger.With("sessionID", session.ID(), "remote", conn.RemoteAddr().String())
	cleanupCtx := context.WithoutCancel(ctx)

	log.Info("client connected")

	stop := context.AfterFunc(ctx, func() {
		session.Close(cleanupCtx)
	})
	defer stop()

	if err := session.Start(ctx); err != nil {
		log.Error("failed to start session", "error", err)
		session.Close(cleanupCtx)
		return
	}

	buf := make([]byte, that.readBuffer)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			that.handleChunk(ctx, log, session, buf[:n])
		}

		if err != nil {
			select {
			case <-session.Done():
				log.Debug("connection closed by session")
			default:
				if errors.Is(err, io.EOF) {
					log.Info("client disconnected")
				} else {
					log.Warn("read failed", "error", err)
				}
			}

			break
		}
	}

	session.Close(cleanupCtx)
	<-session.Done()
}

func (that *Server) handleChunk(ctx context.Context, log *slog.Logger, session GameSession, chunk []byte) {
	target, err := protocol.DecodeMove(chunk)
	if err != nil {
		log.Debug("ignoring malformed message", "error", err)
		return
	}

	if err = session.HandleMove(ctx, target); err != nil && !errors.Is(err, apperror.ErrSessionEnded) {
		log.Warn("failed to handle move", "error", err)
	}
}
