// Package busctx carries per-request bus diagnostics settings in a context.
package busctx

import (
	"context"
	"encoding/hex"
	"log/slog"
)

type ctxIndex int

const ctxIndexVerbose ctxIndex = iota

func IsVerbose(ctx context.Context) bool {
	val := ctx.Value(ctxIndexVerbose)
	if val == nil {
		return false
	}
	return val.(bool)
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, ctxIndexVerbose, value)
}

// Dump logs a hex dump of frame at debug level when ctx is verbose.
func Dump(ctx context.Context, log *slog.Logger, msg string, frame []byte) {
	if !IsVerbose(ctx) {
		return
	}
	log.Debug(msg, "len", len(frame), "frame", hex.EncodeToString(frame))
}
