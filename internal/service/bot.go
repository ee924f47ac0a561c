package service

import (
	"math/rand/v2"

	"github.com/rocketscienceinc/mazechase-backend/internal/entity"
)

// Shuffler is the randomness capability used by the bot. *rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type BotService interface {
	NextMove(maze *entity.Maze, opponentPos, clientPos entity.Position) (entity.Direction, bool)
}

type botService struct {
	shuffler Shuffler
}

// NewBotService - creates the opponent policy. A nil shuffler uses the auto-seeded global source.
func NewBotService(shuffler Shuffler) BotService {
	if shuffler == nil {
		shuffler = globalShuffler{}
	}

	return &botService{shuffler: shuffler}
}

// NextMove - picks the first direction, in shuffled order, that leads off walls and off the client.
// No path planning, no memory between calls.
func (that *botService) NextMove(maze *entity.Maze, opponentPos, clientPos entity.Position) (entity.Direction, bool) {
	dirs := entity.CardinalDirections
	that.shuffler.Shuffle(len(dirs), func(i, j int) {
		dirs[i], dirs[j] = dirs[j], dirs[i]
	})

	for _, dir := range dirs {
		target := opponentPos.Add(dir)

		cell, ok := maze.CellAt(target)
		if !ok || cell == entity.CellWall || target == clientPos {
			continue
		}

		return dir, true
	}

	return entity.Direction{}, false
}

type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}
