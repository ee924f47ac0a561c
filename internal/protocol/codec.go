// Package protocol implements the plain-text wire format between the maze server and its client.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/mazechase-backend/internal/apperror"
	"github.com/rocketscienceinc/mazechase-backend/internal/entity"
)

const (
	// MoveMessageLen is the size of "DDD DDD".
	MoveMessageLen = 7

	maxCoordinate  = 999
	gameOverPrefix = "Game over! "
)

var scoreLineFormat = fmt.Sprintf("Score %s: %%d | Score %s: %%d", entity.ClientLabel, entity.OpponentLabel)

// EncodeMove - formats an absolute target cell as zero-padded "xxx yyy".
func EncodeMove(pos entity.Position) ([]byte, error) {
	if pos.X < 0 || pos.X > maxCoordinate || pos.Y < 0 || pos.Y > maxCoordinate {
		return nil, fmt.Errorf("%w: %s", apperror.ErrInvalidCoordinate, pos)
	}

	return []byte(fmt.Sprintf("%03d %03d", pos.X, pos.Y)), nil
}

// DecodeMove - parses one received chunk. Only the first seven characters are looked at:
// three digits, any separator, three digits. Range checks are left to the maze.
func DecodeMove(data []byte) (entity.Position, error) {
	msg := string(data)
	if len(msg) < MoveMessageLen {
		return entity.Position{}, fmt.Errorf("%w: %d bytes", apperror.ErrDecode, len(msg))
	}

	x, ok := parseDigits(msg[:3])
	if !ok {
		return entity.Position{}, fmt.Errorf("%w: bad x %q", apperror.ErrDecode, msg[:3])
	}

	y, ok := parseDigits(msg[4:7])
	if !ok {
		return entity.Position{}, fmt.Errorf("%w: bad y %q", apperror.ErrDecode, msg[4:7])
	}

	return entity.Position{X: x, Y: y}, nil
}

func parseDigits(s string) (int, bool) {
	for i := range len(s) {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}

	return n, true
}

// EncodeFrame - the rendered maze as a single UTF-8 write.
func EncodeFrame(maze *entity.Maze) []byte {
	return []byte(maze.Render())
}

// EncodeGameOver - the end-of-round line.
func EncodeGameOver(result entity.Result) []byte {
	return []byte(gameOverPrefix + string(result) + "\n")
}

// SplitMessages - cuts buffered stream data into complete server messages.
// A frame ends with the instruction line, the end message with its line break;
// whatever follows the last complete message is returned as rest.
func SplitMessages(data string) (messages []string, rest string) {
	for {
		end := messageEnd(data)
		if end < 0 {
			return messages, data
		}

		messages = append(messages, data[:end])
		data = data[end:]
	}
}

func messageEnd(data string) int {
	frameEnd := -1
	if i := strings.Index(data, entity.InstructionLine); i >= 0 {
		frameEnd = i + len(entity.InstructionLine)

		switch {
		case strings.HasPrefix(data[frameEnd:], "\r\n"):
			frameEnd += 2
		case strings.HasPrefix(data[frameEnd:], "\n"):
			frameEnd++
		}
	}

	overEnd := -1
	if i := strings.Index(data, gameOverPrefix); i >= 0 {
		if nl := strings.IndexByte(data[i:], '\n'); nl >= 0 {
			overEnd = i + nl + 1
		}
	}

	switch {
	case frameEnd < 0:
		return overEnd
	case overEnd < 0:
		return frameEnd
	default:
		return min(frameEnd, overEnd)
	}
}

// ParseFrame - splits a received chunk into grid rows, scores, status and the end-of-round result.
// A chunk holding a frame followed by the end message yields both.
func ParseFrame(text string) entity.Frame {
	frame := entity.Frame{Raw: text}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	scoreSeen := false

	for _, line := range lines {
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, gameOverPrefix):
			frame.GameOver = true
			frame.Result = entity.Result(strings.TrimSpace(strings.TrimPrefix(line, gameOverPrefix)))
		case strings.HasPrefix(line, "Score "):
			var clientScore, opponentScore int
			if _, err := fmt.Sscanf(line, scoreLineFormat, &clientScore, &opponentScore); err == nil {
				frame.ClientScore = clientScore
				frame.OpponentScore = opponentScore
			}
			scoreSeen = true
		case scoreSeen:
			frame.Status = line
		default:
			frame.Rows = append(frame.Rows, line)
		}
	}

	return frame
}
