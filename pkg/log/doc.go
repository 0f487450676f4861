/*
Package log provides structured logging for the deck engine using zerolog.

The global Logger is initialized once via Init and is safe for concurrent
use. Components obtain a child logger carrying their name via WithComponent,
and request-scoped loggers via WithRequestID/WithDeckID so that all log
lines for one chat or deck-build request share a correlation field.

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	repoLog := log.WithComponent("repository")
	repoLog.Warn().Str("card", name).Msg("cache miss, falling back to catalog")
*/
package log
