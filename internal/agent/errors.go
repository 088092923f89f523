package agent

import (
	"errors"
	"fmt"

	"minebridge.ai/internal/gameproto"
)

// ErrNotConnected is returned by any facade call made while the physical
// connection is down. Callers may retry once the supervisor reconnects.
var ErrNotConnected = errors.New("not connected to game server")

// ActionError is a recoverable, single-operation failure: the target was
// unreachable, the block indestructible, an item missing. It never means the
// connection is unhealthy.
type ActionError struct {
	Code   string
	Reason string
}

func (e *ActionError) Error() string {
	if e.Reason == "" {
		return e.Code
	}
	return fmt.Sprintf("%s (%s)", e.Reason, e.Code)
}

// mapErr converts wire-client errors into the facade taxonomy.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gameproto.ErrClosed) {
		return ErrNotConnected
	}
	var ce *gameproto.CommandError
	if errors.As(err, &ce) {
		return &ActionError{Code: ce.Code, Reason: ce.Message}
	}
	return err
}
