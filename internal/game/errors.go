package game

// All rejections are recoverable and reported synchronously to the caller;
// a rejected mutation leaves room state untouched.
var (
	ErrInvalidInput           = errf("invalid input")
	ErrInvalidGuessFormat     = errf("guess must be exactly 4 digits")
	ErrRoomNotFound           = errf("room not found")
	ErrRoomFull               = errf("room already has two players")
	ErrGameNotInPlayableState = errf("action not allowed in current game state")
	ErrNotYourTurn            = errf("not your turn")
	ErrSecretAlreadySubmitted = errf("secret already submitted")
	ErrPlayerNotInGame        = errf("player is not in this game")
	ErrConcurrentModification = errf("concurrent modification, retry")
	ErrStorageUnavailable     = errf("storage unavailable")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
