package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/mazechase-backend/internal/apperror"
	"github.com/rocketscienceinc/mazechase-backend/internal/entity"
	"github.com/rocketscienceinc/mazechase-backend/internal/protocol"
)

// DefaultRoundDuration is how long a round lasts unless configured otherwise.
const DefaultRoundDuration = 60 * time.Second

const (
	// frameWriteTimeout caps a frame write; it never reaches past the round deadline.
	frameWriteTimeout = 2 * time.Second
	endWriteTimeout   = 500 * time.Millisecond
)

type connDep interface {
	Write(p []byte) (int, error)
	SetWriteDeadline(t time.Time) error
	Close() error
}

type botDep interface {
	NextMove(maze *entity.Maze, opponentPos, clientPos entity.Position) (entity.Direction, bool)
}

type sessionRepoDep interface {
	Save(ctx context.Context, snapshot *entity.Snapshot, ttl time.Duration) error
	DeleteByID(ctx context.Context, id string) error
}

// GameSession is one play-through against one connected client.
// Every state transition and every write to the connection happens under mu,
// so the round timer and the receive loop never interleave.
type GameSession struct {
	mu sync.Mutex

	id     string
	logger *slog.Logger

	conn        connDep
	maze        *entity.Maze
	bot         botDep
	sessionRepo sessionRepoDep

	roundDuration time.Duration
	deadline      time.Time
	timer         *time.Timer

	state string
	done  chan struct{}
}

func NewGameSession(logger *slog.Logger, conn connDep, maze *entity.Maze, bot botDep, sessionRepo sessionRepoDep, roundDuration time.Duration) *GameSession {
	if roundDuration <= 0 {
		roundDuration = DefaultRoundDuration
	}

	id := uuid.NewString()

	return &GameSession{
		id:            id,
		logger:        logger.With("component", "game_session", "sessionID", id),
		conn:          conn,
		maze:          maze,
		bot:           bot,
		sessionRepo:   sessionRepo,
		roundDuration: roundDuration,
		state:         entity.StateAwaitingConnection,
		done:          make(chan struct{}),
	}
}

func (that *GameSession) ID() string {
	return that.id
}

// Done is closed once the session reaches the closed state.
func (that *GameSession) Done() <-chan struct{} {
	return that.done
}

func (that *GameSession) State() string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

// Start - activates the session: arms the round timer and sends the initial frame.
func (that *GameSession) Start(ctx context.Context) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != entity.StateAwaitingConnection {
		return apperror.ErrSessionEnded
	}

	that.state = entity.StateActive
	that.deadline = time.Now().Add(that.roundDuration)
	that.timer = time.AfterFunc(that.roundDuration, that.expire)

	that.logger.Info("round started", "deadline", that.deadline)

	if err := that.writeFrame(); err != nil {
		that.closeLocked(ctx)
		return err
	}

	that.saveSnapshot(ctx)

	return nil
}

// HandleMove - applies one client move, answers with the opponent's move and a fresh frame.
// Reaching the finish ends the round instead of sending a frame.
func (that *GameSession) HandleMove(ctx context.Context, target entity.Position) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != entity.StateActive {
		return apperror.ErrSessionEnded
	}

	log := that.logger.With("method", "HandleMove")

	if !time.Now().Before(that.deadline) {
		that.endLocked(ctx, "round deadline elapsed")
		return nil
	}

	outcome := that.maze.TryMove(entity.ActorClient, target)
	log.Debug("client moved", "target", target.String(), "outcome", outcome.String())

	if outcome == entity.MovedAndFinished {
		that.endLocked(ctx, "client reached the finish")
		return nil
	}

	opponentPos := that.maze.Position(entity.ActorOpponent)
	if dir, ok := that.bot.NextMove(that.maze, opponentPos, that.maze.Position(entity.ActorClient)); ok {
		opponentOutcome := that.maze.TryMove(entity.ActorOpponent, opponentPos.Add(dir))
		log.Debug("opponent moved", "target", opponentPos.Add(dir).String(), "outcome", opponentOutcome.String())

		if opponentOutcome == entity.MovedAndFinished {
			that.endLocked(ctx, "opponent reached the finish")
			return nil
		}
	}

	if err := that.writeFrame(); err != nil {
		log.Error("failed to send frame", "error", err)
		that.closeLocked(ctx)
		return err
	}

	that.saveSnapshot(ctx)

	return nil
}

// Close - tears the session down without an end-of-round message.
// Used when the peer goes away; safe to call more than once.
func (that *GameSession) Close(ctx context.Context) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closeLocked(ctx)
}

// Snapshot - the current observable state.
func (that *GameSession) Snapshot() *entity.Snapshot {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.snapshotLocked()
}

func (that *GameSession) expire() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != entity.StateActive {
		return
	}

	that.endLocked(context.Background(), "round deadline elapsed")
}

// endLocked - first end condition wins; the end message is best-effort.
func (that *GameSession) endLocked(ctx context.Context, reason string) {
	that.state = entity.StateEnding

	if that.timer != nil {
		that.timer.Stop()
	}

	result := that.maze.Result()
	that.logger.Info("round over",
		"reason", reason,
		"result", string(result),
		"clientScore", that.maze.Score(entity.ActorClient),
		"opponentScore", that.maze.Score(entity.ActorOpponent),
	)

	if err := that.send(protocol.EncodeGameOver(result), time.Now().Add(endWriteTimeout)); err != nil {
		that.logger.Warn("failed to send end of round", "error", err)
	}

	that.closeLocked(ctx)
}

func (that *GameSession) closeLocked(ctx context.Context) {
	if that.state == entity.StateClosed {
		return
	}

	if that.timer != nil {
		that.timer.Stop()
	}

	if err := that.conn.Close(); err != nil {
		that.logger.Debug("failed to close connection", "error", err)
	}

	that.state = entity.StateClosed

	if err := that.sessionRepo.DeleteByID(ctx, that.id); err != nil {
		that.logger.Warn("failed to drop session snapshot", "error", err)
	}

	close(that.done)

	that.logger.Info("session closed")
}

// writeFrame - a peer that stops reading cannot hold mu past the round deadline.
func (that *GameSession) writeFrame() error {
	by := time.Now().Add(frameWriteTimeout)
	if that.deadline.Before(by) {
		by = that.deadline
	}

	return that.send(protocol.EncodeFrame(that.maze), by)
}

func (that *GameSession) send(data []byte, by time.Time) error {
	if err := that.conn.SetWriteDeadline(by); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrSend, err)
	}

	if _, err := that.conn.Write(data); err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrSend, err)
	}

	return nil
}

func (that *GameSession) saveSnapshot(ctx context.Context) {
	ttl := time.Until(that.deadline)
	if ttl <= 0 {
		return
	}

	if err := that.sessionRepo.Save(ctx, that.snapshotLocked(), ttl); err != nil {
		that.logger.Warn("failed to save session snapshot", "error", err)
	}
}

func (that *GameSession) snapshotLocked() *entity.Snapshot {
	return &entity.Snapshot{
		ID:            that.id,
		State:         that.state,
		ClientPos:     that.maze.Position(entity.ActorClient),
		OpponentPos:   that.maze.Position(entity.ActorOpponent),
		ClientScore:   that.maze.Score(entity.ActorClient),
		OpponentScore: that.maze.Score(entity.ActorOpponent),
		Deadline:      that.deadline,
		Rows:          that.maze.Rows(),
	}
}
