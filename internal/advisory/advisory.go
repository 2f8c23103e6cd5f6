// Package advisory formalizes the log-and-continue policy for best-effort
// side effects (slot flips, notifications, realtime publishes). The enclosing
// operation's persisted state change is the durable fact; these side effects
// never fail it.
package advisory

import "github.com/rs/zerolog"

// Log records a failed advisory operation. A nil err is a no-op, so call
// sites stay one line.
func Log(logger zerolog.Logger, op string, err error) {
	if err == nil {
		return
	}
	logger.Warn().Err(err).Str("op", op).Msg("advisory operation failed")
}
