package ui

// Intent is one discrete input from the player.
type Intent int

const (
	IntentNone Intent = iota
	IntentUp
	IntentDown
	IntentLeft
	IntentRight
	IntentQuit
)

// IntentFromKey - maps a bubbletea key string to an intent.
func IntentFromKey(key string) Intent {
	switch key {
	case "up", "w", "k":
		return IntentUp
	case "down", "s", "j":
		return IntentDown
	case "left", "a", "h":
		return IntentLeft
	case "right", "d", "l":
		return IntentRight
	case "esc", "q", "ctrl+c":
		return IntentQuit
	default:
		return IntentNone
	}
}

// Delta - the grid offset of a directional intent.
func (that Intent) Delta() (int, int) {
	switch that {
	case IntentUp:
		return 0, -1
	case IntentDown:
		return 0, 1
	case IntentLeft:
		return -1, 0
	case IntentRight:
		return 1, 0
	default:
		return 0, 0
	}
}

func (that Intent) IsMove() bool {
	return that >= IntentUp && that <= IntentRight
}
