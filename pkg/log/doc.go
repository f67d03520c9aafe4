/*
Package log provides structured logging for the agent using zerolog.

Logs are JSON by default (--log-json) or a human console writer otherwise.
Component loggers are created with WithComponent/WithUpdateComponent/WithRunID
rather than threading a logger through every call; the global Logger is set
once in main via Init and is safe for concurrent use from the broker
callbacks, the watchdog goroutine, and the main loop.
*/
package log
