package gameproto

import "fmt"

// Result codes a command can fail with. These are domain failures: the
// connection stays healthy, only the one operation failed.
const (
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrUnreachable   = "E_UNREACHABLE"
	ErrUnbreakable   = "E_UNBREAKABLE"
	ErrNoItem        = "E_NO_ITEM"
	ErrNotFound      = "E_NOT_FOUND"
	ErrInvalidTarget = "E_INVALID_TARGET"
	ErrBusy          = "E_BUSY"
	ErrInternal      = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrBadRequest:    {},
	ErrUnreachable:   {},
	ErrUnbreakable:   {},
	ErrNoItem:        {},
	ErrNotFound:      {},
	ErrInvalidTarget: {},
	ErrBusy:          {},
	ErrInternal:      {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CommandError carries a failed RESULT back to the caller.
type CommandError struct {
	Code    string
	Message string
}

func (e *CommandError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
