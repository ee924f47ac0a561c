package entity

type Result string

const (
	ResultClientWins Result = "Client wins!"
	ResultServerWins Result = "Server wins!"
	ResultDraw       Result = "Draw!"
)

// DetermineResult - the strictly greater score wins, equal scores draw.
func DetermineResult(clientScore, opponentScore int) Result {
	switch {
	case clientScore > opponentScore:
		return ResultClientWins
	case clientScore < opponentScore:
		return ResultServerWins
	default:
		return ResultDraw
	}
}
