package logger

import (
	"log/slog"

	"github.com/forumchain/forumchain/types"
)

/*
Log attribute key values. Generally shouldn't be used directly, use the
appropriate attribute constructor function instead.

Only define names here if they are common for multiple modules, module
specific names should be defined in the module.
*/
const (
	ModuleKey  = "module"
	ErrorKey   = "err"
	BlockKey   = "block"
	OpKey      = "op"
	AccountKey = "account"
	DataKey    = "data"
)

/*
Error adds error to the log

	if err := f(); err != nil {
		log.Error("calling f", logger.Error(err))
	}
*/
func Error(err error) slog.Attr {
	return slog.Any(ErrorKey, err)
}

// Module names the engine module the log line originates from. Use with
// logger.With() to create a sub-logger rather than repeating it per call.
func Module(name string) slog.Attr {
	return slog.String(ModuleKey, name)
}

// Block adds the block height being applied.
func Block(num uint32) slog.Attr {
	return slog.Uint64(BlockKey, uint64(num))
}

// Op names the operation type associated with the logging call.
func Op(opType string) slog.Attr {
	return slog.String(OpKey, opType)
}

// Account tags the primary account the logging call is about.
func Account(name types.AccountName) slog.Attr {
	return slog.String(AccountKey, string(name))
}

// Data adds an additional data field to the message. Use of anonymous
// types is discouraged.
func Data(d any) slog.Attr {
	return slog.Any(DataKey, d)
}
