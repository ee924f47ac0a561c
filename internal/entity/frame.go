package entity

// Frame is the structured view of one server message.
type Frame struct {
	Raw           string
	Rows          []string
	ClientScore   int
	OpponentScore int
	Status        string
	GameOver      bool
	Result        Result
}

// ClientPosition - locates the client glyph in the grid rows.
func (that *Frame) ClientPosition() (Position, bool) {
	for y, row := range that.Rows {
		for x := range len(row) {
			if row[x] == ClientGlyph {
				return Position{X: x, Y: y}, true
			}
		}
	}

	return Position{}, false
}
