package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/storage"
)

const (
	errSyntax          = "ERR syntax error"
	errNestedMulti     = "ERR MULTI calls can not be nested"
	errExecNoMulti     = "ERR EXEC without MULTI"
	errDiscardNoMulti  = "ERR DISCARD without MULTI"
	errExecAbort       = "EXECABORT Transaction discarded because of previous errors."
	errNotAllowedInTx  = "ERR Command not allowed inside a transaction"
	errInvalidExpire   = "ERR invalid expire time in '%s' command"
	errTimeoutInvalid  = "ERR timeout is not a float or out of range"
	errTimeoutNegative = "ERR timeout is negative"
	errOutOfRange      = "ERR value is out of range, must be positive"
	errNXXX            = "ERR XX and NX options at the same time are not compatible"
)

// errorReply maps storage errors to their wire form
func errorReply(err error) resp.Value {
	switch {
	case errors.Is(err, storage.ErrWrongType):
		return resp.MakeError("WRONGTYPE Operation against a key holding the wrong kind of value")
	case errors.Is(err, storage.ErrNotInteger):
		return resp.MakeError("ERR value is not an integer or out of range")
	case errors.Is(err, storage.ErrNotFloat):
		return resp.MakeError("ERR value is not a valid float")
	case errors.Is(err, storage.ErrHashNotInteger):
		return resp.MakeError("ERR hash value is not an integer")
	case errors.Is(err, storage.ErrOverflow):
		return resp.MakeError("ERR increment or decrement would overflow")
	case errors.Is(err, storage.ErrNaN):
		return resp.MakeError("ERR resulting score is not a number (NaN)")
	case errors.Is(err, storage.ErrInvalidBound):
		return resp.MakeError("ERR min or max is not a float")
	case errors.Is(err, storage.ErrNoSuchKey):
		return resp.MakeError("ERR no such key")
	}
	return resp.MakeError("ERR " + err.Error())
}

func unknownCommand(name string) resp.Value {
	return resp.MakeError(fmt.Sprintf("ERR unknown command '%s'", name))
}

func wrongArity(name string) resp.Value {
	return resp.MakeErrorWrongNumberOfArguments(strings.ToLower(name))
}

func unknownSubcommand(sub, command string) resp.Value {
	return resp.MakeError("ERR unknown subcommand '" + sub + "'. Try " + command + " HELP.")
}
