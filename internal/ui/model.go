package ui

import (
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rocketscienceinc/mazechase-backend/internal/entity"
)

const helpLine = "Arrows or WASD to move, q to quit."

type mover interface {
	SendMove(dx, dy int) error
}

// Sink hands frames from the network goroutine to the bubbletea program.
// Once closed it drops frames instead of blocking the receive loop.
type Sink struct {
	frames chan entity.Frame

	done      chan struct{}
	closeOnce sync.Once
}

func NewSink() *Sink {
	return &Sink{
		frames: make(chan entity.Frame, 16),
		done:   make(chan struct{}),
	}
}

func (that *Sink) ShowFrame(frame entity.Frame) {
	select {
	case that.frames <- frame:
	case <-that.done:
	}
}

// Close - called once the program has stopped reading frames.
func (that *Sink) Close() {
	that.closeOnce.Do(func() {
		close(that.done)
	})
}

func (that *Sink) Frames() <-chan entity.Frame {
	return that.frames
}

type frameMsg entity.Frame

type closedMsg struct {
	err error
}

// Model is the client screen: the last board, the result once the round is over and a status line.
type Model struct {
	mover  mover
	frames <-chan entity.Frame
	closed <-chan error

	board  string
	result string
	status string
}

func NewModel(mover mover, frames <-chan entity.Frame, closed <-chan error) Model {
	return Model{
		mover:  mover,
		frames: frames,
		closed: closed,
		status: "waiting for the server...",
	}
}

func waitForFrame(frames <-chan entity.Frame) tea.Cmd {
	return func() tea.Msg {
		return frameMsg(<-frames)
	}
}

func waitForClose(closed <-chan error) tea.Cmd {
	return func() tea.Msg {
		return closedMsg{err: <-closed}
	}
}

func (that Model) Init() tea.Cmd {
	return tea.Batch(waitForFrame(that.frames), waitForClose(that.closed))
}

func (that Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		intent := IntentFromKey(msg.String())
		if intent == IntentQuit {
			return that, tea.Quit
		}

		if !intent.IsMove() || that.result != "" {
			return that, nil
		}

		if err := that.mover.SendMove(intent.Delta()); err != nil {
			that.status = err.Error()
			return that, nil
		}

		that.status = ""
	case frameMsg:
		frame := entity.Frame(msg)

		// the board is the server text as sent; the end message goes under it
		if !frame.GameOver && strings.TrimSpace(frame.Raw) != "" {
			that.board = frame.Raw
		}

		if frame.GameOver {
			that.result = "Game over! " + string(frame.Result)
		}

		return that, waitForFrame(that.frames)
	case closedMsg:
		switch {
		case msg.err != nil:
			that.status = msg.err.Error()
		case that.result == "":
			that.status = "server closed the connection"
		default:
			that.status = ""
		}
	}

	return that, nil
}

func (that Model) View() string {
	var sb strings.Builder

	sb.WriteString(that.board)

	if that.result != "" {
		sb.WriteString("\n" + that.result + "\n")
	}

	if that.status != "" {
		sb.WriteString("\n" + that.status + "\n")
	}

	sb.WriteString("\n" + helpLine + "\n")

	return sb.String()
}
