package entity

import (
	"errors"
	"fmt"
	"strings"
)

const (
	CellWall   Cell = '#'
	CellEmpty  Cell = '.'
	CellPickup Cell = 'S'
	CellFinish Cell = 'F'

	ClientGlyph   = 'C'
	OpponentGlyph = 'K'

	ClientLabel   = "C (client)"
	OpponentLabel = "K (server)"

	InstructionLine = "Goal: collect more chests (S) or reach the finish (F) before time runs out!"
)

var (
	ErrEmptyLayout       = errors.New("maze layout is empty")
	ErrNotRectangular    = errors.New("maze layout is not rectangular")
	ErrOpenBorder        = errors.New("maze border must be walls")
	ErrUnknownGlyph      = errors.New("unknown maze glyph")
	ErrInvalidStart      = errors.New("invalid start position")
	ErrStartsOverlapping = errors.New("actors must start on distinct cells")
)

// DefaultLayout is the reference 7x13 maze.
var DefaultLayout = []string{
	"#############",
	"#...S....S..#",
	"#.###.###.#.#",
	"#...........#",
	"#.#########.#",
	"#......S...F#",
	"#############",
}

var (
	DefaultClientStart   = Position{X: 1, Y: 1}
	DefaultOpponentStart = Position{X: 1, Y: 2}
)

// Cell is the kind of a single maze square, stored as its glyph.
type Cell byte

// Actor identifies one of the two positions moving through the maze.
type Actor int

const (
	ActorClient Actor = iota
	ActorOpponent
)

func (that Actor) String() string {
	if that == ActorClient {
		return "client"
	}
	return "opponent"
}

func (that Actor) other() Actor {
	if that == ActorClient {
		return ActorOpponent
	}
	return ActorClient
}

// MoveOutcome is the result of Maze.TryMove.
type MoveOutcome int

const (
	Blocked MoveOutcome = iota
	Moved
	MovedAndScored
	MovedAndFinished
)

func (that MoveOutcome) String() string {
	switch that {
	case Moved:
		return "moved"
	case MovedAndScored:
		return "moved_and_scored"
	case MovedAndFinished:
		return "moved_and_finished"
	default:
		return "blocked"
	}
}

// Maze holds the grid, pickup state, both actor positions and both scores.
// It is not safe for concurrent use; the owning session serializes access.
type Maze struct {
	grid      [][]Cell
	positions [2]Position
	scores    [2]int
}

// ParseMaze - builds a maze from glyph rows and start positions.
func ParseMaze(rows []string, clientStart, opponentStart Position) (*Maze, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrEmptyLayout
	}

	width := len(rows[0])
	grid := make([][]Cell, len(rows))

	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrNotRectangular, y, len(row), width)
		}

		grid[y] = make([]Cell, width)
		for x := range width {
			cell := Cell(row[x])
			switch cell {
			case CellWall, CellEmpty, CellPickup, CellFinish:
			default:
				return nil, fmt.Errorf("%w: %q at (%d, %d)", ErrUnknownGlyph, row[x], x, y)
			}

			onBorder := y == 0 || y == len(rows)-1 || x == 0 || x == width-1
			if onBorder && cell != CellWall {
				return nil, fmt.Errorf("%w: (%d, %d)", ErrOpenBorder, x, y)
			}

			grid[y][x] = cell
		}
	}

	maze := &Maze{grid: grid}

	for _, start := range []Position{clientStart, opponentStart} {
		if cell, ok := maze.CellAt(start); !ok || cell == CellWall {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStart, start)
		}
	}

	if clientStart == opponentStart {
		return nil, ErrStartsOverlapping
	}

	maze.positions[ActorClient] = clientStart
	maze.positions[ActorOpponent] = opponentStart

	return maze, nil
}

// NewDefaultMaze - returns a fresh copy of the reference maze.
func NewDefaultMaze() *Maze {
	maze, err := ParseMaze(DefaultLayout, DefaultClientStart, DefaultOpponentStart)
	if err != nil {
		panic(fmt.Errorf("reference maze is invalid: %w", err))
	}

	return maze
}

func (that *Maze) Width() int {
	return len(that.grid[0])
}

func (that *Maze) Height() int {
	return len(that.grid)
}

func (that *Maze) InBound(pos Position) bool {
	return pos.Y >= 0 && pos.Y < that.Height() && pos.X >= 0 && pos.X < that.Width()
}

// CellAt - returns the underlying cell kind, ignoring actors.
func (that *Maze) CellAt(pos Position) (Cell, bool) {
	if !that.InBound(pos) {
		return CellWall, false
	}

	return that.grid[pos.Y][pos.X], true
}

func (that *Maze) Position(actor Actor) Position {
	return that.positions[actor]
}

func (that *Maze) Score(actor Actor) int {
	return that.scores[actor]
}

// CanEnter - reports whether actor may step onto target.
// Walls and out-of-bounds cells block everyone; the client's cell blocks the opponent.
func (that *Maze) CanEnter(actor Actor, target Position) bool {
	cell, ok := that.CellAt(target)
	if !ok || cell == CellWall {
		return false
	}

	if actor == ActorOpponent && target == that.positions[actor.other()] {
		return false
	}

	return true
}

// TryMove - moves actor onto target, collecting a pickup if present.
func (that *Maze) TryMove(actor Actor, target Position) MoveOutcome {
	if !that.CanEnter(actor, target) {
		return Blocked
	}

	that.positions[actor] = target

	switch that.grid[target.Y][target.X] {
	case CellPickup:
		that.grid[target.Y][target.X] = CellEmpty
		that.scores[actor]++
		return MovedAndScored
	case CellFinish:
		return MovedAndFinished
	default:
		return Moved
	}
}

// Result - determines the outcome from the current scores.
func (that *Maze) Result() Result {
	return DetermineResult(that.scores[ActorClient], that.scores[ActorOpponent])
}

// Rows - returns the grid with both actors drawn over their cells.
func (that *Maze) Rows() []string {
	rows := make([]string, 0, that.Height())

	for y, line := range that.grid {
		var sb strings.Builder
		for x, cell := range line {
			switch (Position{X: x, Y: y}) {
			case that.positions[ActorClient]:
				sb.WriteByte(ClientGlyph)
			case that.positions[ActorOpponent]:
				sb.WriteByte(OpponentGlyph)
			default:
				sb.WriteByte(byte(cell))
			}
		}
		rows = append(rows, sb.String())
	}

	return rows
}

// Render - produces the text frame: grid rows, the score line and the instruction line.
func (that *Maze) Render() string {
	var sb strings.Builder

	for _, row := range that.Rows() {
		sb.WriteString(row)
		sb.WriteByte('\n')
	}

	sb.WriteString(ScoreLine(that.scores[ActorClient], that.scores[ActorOpponent]))
	sb.WriteByte('\n')
	sb.WriteString(InstructionLine)
	sb.WriteByte('\n')

	return sb.String()
}

func ScoreLine(clientScore, opponentScore int) string {
	return fmt.Sprintf("Score %s: %d | Score %s: %d", ClientLabel, clientScore, OpponentLabel, opponentScore)
}
