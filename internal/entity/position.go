package entity

import "fmt"

// Position is a cell coordinate: x is the column, y the row.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (that Position) Add(dir Direction) Position {
	return Position{X: that.X + dir.DX, Y: that.Y + dir.DY}
}

func (that Position) String() string {
	return fmt.Sprintf("(%d, %d)", that.X, that.Y)
}

// Direction is a single-step cardinal offset.
type Direction struct {
	DX int
	DY int
}

var (
	Up    = Direction{DX: 0, DY: -1}
	Down  = Direction{DX: 0, DY: 1}
	Left  = Direction{DX: -1, DY: 0}
	Right = Direction{DX: 1, DY: 0}
)

// CardinalDirections lists the four offsets before shuffling.
var CardinalDirections = [4]Direction{Down, Right, Up, Left}
