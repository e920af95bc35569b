// Package log provides rangeflow's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// simple Field type for structured context. It is backed by Go's standard
// library slog, so output format (text or JSON) and level filtering are
// handled by stock slog handlers while call sites stay on this facade.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormat(log.FormatText),
//	)
//	l = l.With(log.Component("scan"))
//	l.Info("cursor opened", log.Str("space", "orders"))
//
// # Interop
//
// To integrate with libraries expecting *log.Logger (Pebble event listeners,
// net/http error logs), use RedirectStdLog or ToStdLogger.
package log
