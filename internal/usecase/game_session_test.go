package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/mazechase-backend/internal/apperror"
	"github.com/rocketscienceinc/mazechase-backend/internal/entity"
	"github.com/rocketscienceinc/mazechase-backend/internal/service"
	mockedUseCase "github.com/rocketscienceinc/mazechase-backend/mocks/usecase"
)

var errBrokenPipe = errors.New("broken pipe")

type fakeConn struct {
	mu       sync.Mutex
	writes   []string
	closed   bool
	writeErr error

	// stalled behaves like a peer that never reads: writes block until the write deadline.
	stalled       bool
	writeDeadline time.Time
}

func (that *fakeConn) SetWriteDeadline(t time.Time) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.writeDeadline = t

	return nil
}

func (that *fakeConn) Write(p []byte) (int, error) {
	that.mu.Lock()

	if that.stalled {
		deadline := that.writeDeadline
		that.mu.Unlock()

		if deadline.IsZero() {
			select {}
		}

		time.Sleep(time.Until(deadline))

		return 0, os.ErrDeadlineExceeded
	}

	defer that.mu.Unlock()

	if that.closed {
		return 0, net.ErrClosed
	}

	if that.writeErr != nil {
		return 0, that.writeErr
	}

	that.writes = append(that.writes, string(p))

	return len(p), nil
}

func (that *fakeConn) Close() error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.closed = true

	return nil
}

func (that *fakeConn) Writes() []string {
	that.mu.Lock()
	defer that.mu.Unlock()

	return append([]string(nil), that.writes...)
}

func (that *fakeConn) IsClosed() bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.closed
}

// stayBot never moves the opponent.
type stayBot struct{}

func (stayBot) NextMove(*entity.Maze, entity.Position, entity.Position) (entity.Direction, bool) {
	return entity.Direction{}, false
}

type keepOrder struct{}

func (keepOrder) Shuffle(int, func(i, j int)) {}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newSessionRepo(t *testing.T) *mockedUseCase.MocksessionRepoDep {
	t.Helper()

	repo := mockedUseCase.NewMocksessionRepoDep(t)
	repo.EXPECT().Save(mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	repo.EXPECT().DeleteByID(mock.Anything, mock.Anything).Return(nil).Maybe()

	return repo
}

func countGameOver(writes []string) int {
	n := 0
	for _, w := range writes {
		if strings.HasPrefix(w, "Game over! ") {
			n++
		}
	}
	return n
}

func waitDone(t *testing.T, session *GameSession) {
	t.Helper()

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not close in time")
	}
}

func TestGameSession_Start(t *testing.T) {
	t.Run("Sends the initial frame and saves a snapshot", func(t *testing.T) {
		// Given: a session over a fresh maze
		ctx := context.Background()
		conn := &fakeConn{}
		repo := mockedUseCase.NewMocksessionRepoDep(t)
		maze := entity.NewDefaultMaze()
		session := NewGameSession(newTestLogger(), conn, maze, stayBot{}, repo, time.Minute)

		repo.EXPECT().
			Save(mock.Anything, mock.AnythingOfType("*entity.Snapshot"), mock.AnythingOfType("time.Duration")).
			Run(func(_ context.Context, snapshot *entity.Snapshot, ttl time.Duration) {
				assert.Equal(t, session.ID(), snapshot.ID)
				assert.Equal(t, entity.StateActive, snapshot.State)
				assert.Greater(t, ttl, 59*time.Second)
			}).
			Return(nil).
			Once()
		repo.EXPECT().DeleteByID(mock.Anything, session.ID()).Return(nil).Once()

		// When: starting it
		err := session.Start(ctx)

		// Then: the client receives the initial frame
		require.NoError(t, err)
		assert.Equal(t, entity.StateActive, session.State())
		assert.Equal(t, []string{maze.Render()}, conn.Writes())

		session.Close(ctx)
	})

	t.Run("Cannot be started twice", func(t *testing.T) {
		ctx := context.Background()
		session := NewGameSession(newTestLogger(), &fakeConn{}, entity.NewDefaultMaze(), stayBot{}, newSessionRepo(t), time.Minute)

		require.NoError(t, session.Start(ctx))
		assert.ErrorIs(t, session.Start(ctx), apperror.ErrSessionEnded)

		session.Close(ctx)
	})

	t.Run("Write failure closes the session", func(t *testing.T) {
		ctx := context.Background()
		conn := &fakeConn{writeErr: errBrokenPipe}
		session := NewGameSession(newTestLogger(), conn, entity.NewDefaultMaze(), stayBot{}, newSessionRepo(t), time.Minute)

		err := session.Start(ctx)

		require.ErrorIs(t, err, apperror.ErrSend)
		assert.Equal(t, entity.StateClosed, session.State())
		assert.True(t, conn.IsClosed())
	})
}

func TestGameSession_HandleMove(t *testing.T) {
	t.Run("Collecting a pickup increments the client score by one", func(t *testing.T) {
		// Given: an active session
		ctx := context.Background()
		conn := &fakeConn{}
		session := NewGameSession(newTestLogger(), conn, entity.NewDefaultMaze(), stayBot{}, newSessionRepo(t), time.Minute)
		require.NoError(t, session.Start(ctx))

		// When: the client walks onto the pickup at (4,1) and then off it
		require.NoError(t, session.HandleMove(ctx, entity.Position{X: 4, Y: 1}))
		require.NoError(t, session.HandleMove(ctx, entity.Position{X: 5, Y: 1}))

		// Then: the score went up once and the cell now renders empty
		writes := conn.Writes()
		require.Len(t, writes, 3)
		assert.Contains(t, writes[1], "Score C (client): 1 | Score K (server): 0")
		assert.Contains(t, writes[2], "Score C (client): 1 | Score K (server): 0")
		assert.Contains(t, writes[2], "#....C...S..#\n")

		session.Close(ctx)
	})

	t.Run("Blocked move still lets the opponent act and sends a frame", func(t *testing.T) {
		ctx := context.Background()
		conn := &fakeConn{}
		session := NewGameSession(newTestLogger(), conn, entity.NewDefaultMaze(), service.NewBotService(keepOrder{}), newSessionRepo(t), time.Minute)
		require.NoError(t, session.Start(ctx))

		// When: the client walks into a wall
		require.NoError(t, session.HandleMove(ctx, entity.Position{X: 0, Y: 1}))

		// Then: the client stays, the opponent steps down and a frame is sent
		snapshot := session.Snapshot()
		assert.Equal(t, entity.DefaultClientStart, snapshot.ClientPos)
		assert.Equal(t, entity.Position{X: 1, Y: 3}, snapshot.OpponentPos)
		assert.Len(t, conn.Writes(), 2)

		session.Close(ctx)
	})

	t.Run("Client reaching the finish ends the round without a frame", func(t *testing.T) {
		// Given: an active session
		ctx := context.Background()
		conn := &fakeConn{}
		session := NewGameSession(newTestLogger(), conn, entity.NewDefaultMaze(), stayBot{}, newSessionRepo(t), time.Minute)
		require.NoError(t, session.Start(ctx))

		// When: the client lands on the finish
		require.NoError(t, session.HandleMove(ctx, entity.Position{X: 11, Y: 5}))

		// Then: exactly one end message follows the initial frame and the connection is closed
		waitDone(t, session)
		writes := conn.Writes()
		require.Len(t, writes, 2)
		assert.Equal(t, "Game over! Draw!\n", writes[1])
		assert.True(t, conn.IsClosed())

		// And: later moves are ignored
		assert.ErrorIs(t, session.HandleMove(ctx, entity.Position{X: 2, Y: 1}), apperror.ErrSessionEnded)
		assert.Len(t, conn.Writes(), 2)
	})

	t.Run("Opponent reaching the finish ends the round", func(t *testing.T) {
		// Given: an opponent standing next to the finish
		ctx := context.Background()
		conn := &fakeConn{}
		maze, err := entity.ParseMaze([]string{
			"#####",
			"#..F#",
			"#####",
		}, entity.Position{X: 1, Y: 1}, entity.Position{X: 2, Y: 1})
		require.NoError(t, err)

		session := NewGameSession(newTestLogger(), conn, maze, service.NewBotService(keepOrder{}), newSessionRepo(t), time.Minute)
		require.NoError(t, session.Start(ctx))

		// When: the client stays put and the opponent steps right
		require.NoError(t, session.HandleMove(ctx, entity.Position{X: 1, Y: 1}))

		// Then: the end message replaces the frame
		waitDone(t, session)
		writes := conn.Writes()
		require.Len(t, writes, 2)
		assert.Equal(t, 1, countGameOver(writes))
		assert.Equal(t, "Game over! Draw!\n", writes[1])
	})

	t.Run("Frame write failure ends the session", func(t *testing.T) {
		ctx := context.Background()
		conn := &fakeConn{}
		session := NewGameSession(newTestLogger(), conn, entity.NewDefaultMaze(), stayBot{}, newSessionRepo(t), time.Minute)
		require.NoError(t, session.Start(ctx))

		conn.mu.Lock()
		conn.writeErr = errBrokenPipe
		conn.mu.Unlock()

		err := session.HandleMove(ctx, entity.Position{X: 2, Y: 1})

		require.ErrorIs(t, err, apperror.ErrSend)
		waitDone(t, session)
		assert.Equal(t, entity.StateClosed, session.State())
	})
}

func TestGameSession_Deadline(t *testing.T) {
	t.Run("Deadline sends exactly one result and closes", func(t *testing.T) {
		// Given: a short round where the client collects two pickups
		ctx := context.Background()
		conn := &fakeConn{}
		session := NewGameSession(newTestLogger(), conn, entity.NewDefaultMaze(), stayBot{}, newSessionRepo(t), 150*time.Millisecond)
		require.NoError(t, session.Start(ctx))
		require.NoError(t, session.HandleMove(ctx, entity.Position{X: 4, Y: 1}))
		require.NoError(t, session.HandleMove(ctx, entity.Position{X: 9, Y: 1}))

		// When: the deadline elapses
		waitDone(t, session)

		// Then: a single client-wins message is the last thing sent
		writes := conn.Writes()
		require.Len(t, writes, 4)
		assert.Equal(t, 1, countGameOver(writes))
		assert.Contains(t, writes[3], "Client wins!")
		assert.True(t, conn.IsClosed())

		// And: later moves produce nothing
		assert.ErrorIs(t, session.HandleMove(ctx, entity.Position{X: 8, Y: 1}), apperror.ErrSessionEnded)
		assert.Len(t, conn.Writes(), 4)
	})

	t.Run("Racing moves never interleave with the end message", func(t *testing.T) {
		ctx := context.Background()
		conn := &fakeConn{}
		session := NewGameSession(newTestLogger(), conn, entity.NewDefaultMaze(), service.NewBotService(nil), newSessionRepo(t), 30*time.Millisecond)
		require.NoError(t, session.Start(ctx))

		var wg sync.WaitGroup
		for i := range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				targets := []entity.Position{{X: 1, Y: 3}, {X: 2, Y: 3}, {X: 3, Y: 3}, {X: 2 + i, Y: 3}}
				for n := 0; ; n++ {
					if err := session.HandleMove(ctx, targets[n%len(targets)]); errors.Is(err, apperror.ErrSessionEnded) {
						return
					}
					time.Sleep(time.Millisecond)
				}
			}()
		}

		waitDone(t, session)
		wg.Wait()

		writes := conn.Writes()
		require.NotEmpty(t, writes)
		assert.Equal(t, 1, countGameOver(writes))
		assert.True(t, strings.HasPrefix(writes[len(writes)-1], "Game over! "))
	})

	t.Run("Peer that never reads is dropped by the deadline", func(t *testing.T) {
		// Given: an active session whose peer stops reading
		ctx := context.Background()
		conn := &fakeConn{}
		session := NewGameSession(newTestLogger(), conn, entity.NewDefaultMaze(), stayBot{}, newSessionRepo(t), 200*time.Millisecond)
		require.NoError(t, session.Start(ctx))

		conn.mu.Lock()
		conn.stalled = true
		conn.mu.Unlock()

		// When: the client keeps moving
		started := time.Now()
		err := session.HandleMove(ctx, entity.Position{X: 2, Y: 1})

		// Then: the blocked frame gives up at the round deadline and the session closes
		require.ErrorIs(t, err, apperror.ErrSend)
		assert.Less(t, time.Since(started), time.Second)
		waitDone(t, session)
		assert.Equal(t, entity.StateClosed, session.State())
		assert.True(t, conn.IsClosed())
	})

	t.Run("Move after the deadline ends the round instead of answering", func(t *testing.T) {
		ctx := context.Background()
		conn := &fakeConn{}
		session := NewGameSession(newTestLogger(), conn, entity.NewDefaultMaze(), stayBot{}, newSessionRepo(t), time.Minute)
		require.NoError(t, session.Start(ctx))

		session.mu.Lock()
		session.deadline = time.Now().Add(-time.Millisecond)
		session.mu.Unlock()

		require.NoError(t, session.HandleMove(ctx, entity.Position{X: 2, Y: 1}))

		writes := conn.Writes()
		require.Len(t, writes, 2)
		assert.Equal(t, "Game over! Draw!\n", writes[1])
		assert.Equal(t, entity.StateClosed, session.State())
	})

	t.Run("Close stops the round timer", func(t *testing.T) {
		ctx := context.Background()
		conn := &fakeConn{}
		session := NewGameSession(newTestLogger(), conn, entity.NewDefaultMaze(), stayBot{}, newSessionRepo(t), 50*time.Millisecond)
		require.NoError(t, session.Start(ctx))

		session.Close(ctx)
		session.Close(ctx)
		time.Sleep(120 * time.Millisecond)

		assert.Equal(t, 0, countGameOver(conn.Writes()))
		assert.Equal(t, entity.StateClosed, session.State())
	})
}
