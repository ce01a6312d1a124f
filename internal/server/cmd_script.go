package server

import (
	"strconv"
	"strings"

	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/script"
)

const (
	errNegativeKeys   = "ERR Number of keys can't be negative"
	errTooManyKeys    = "ERR Number of keys can't be greater than number of args"
	errScriptUnknown  = "ERR Unknown Redis command called from script"
	errScriptDenied   = "ERR This Redis command is not allowed from scripts"
	errScriptArity    = "ERR Wrong number of args calling Redis command from script"
	errScriptNonLocal = "ERR Script attempted to access a key not declared in KEYS"
)

// parseNumKeys validates numkeys of EVAL/EVALSHA script numkeys [key ...] [arg ...]
func parseNumKeys(args []resp.Value) (int, string) {
	n, err := strconv.Atoi(string(args[1].String))
	switch {
	case err != nil:
		return 0, "ERR value is not an integer or out of range"
	case n < 0:
		return 0, errNegativeKeys
	case n > len(args)-2:
		return 0, errTooManyKeys
	}
	return n, ""
}

// scriptKeys returns the declared keys, nil when numkeys is invalid
func scriptKeys(args []resp.Value) []string {
	if len(args) < 2 {
		return nil
	}
	n, msg := parseNumKeys(args)
	if msg != "" {
		return nil
	}

	keys := make([]string, n)
	for i := range keys {
		keys[i] = string(args[2+i].String)
	}
	return keys
}

func eval(ctx *cmdContext) resp.Value {
	src := ctx.str(0)
	ctx.engine.scripts.Load(src)
	return runScript(ctx, src)
}

func evalsha(ctx *cmdContext) resp.Value {
	src, ok := ctx.engine.scripts.Lookup(ctx.str(0))
	if !ok {
		return resp.MakeError(script.ErrNoScript)
	}
	return runScript(ctx, src)
}

func runScript(ctx *cmdContext, src string) resp.Value {
	n, msg := parseNumKeys(ctx.args)
	if msg != "" {
		return resp.MakeError(msg)
	}

	keys := ctx.strs(2)[:n]
	argv := ctx.strs(2 + n)
	return ctx.engine.scripts.Run(ctx.sess.Context(), src, keys, argv, scriptCaller(ctx, keys))
}

// scriptCaller dispatches redis.call inside the transaction of the running script.
// Commands may only touch keys the script declared
func scriptCaller(ctx *cmdContext, declared []string) script.Caller {
	allowed := make(map[string]struct{}, len(declared))
	for _, k := range declared {
		allowed[k] = struct{}{}
	}

	return func(args []string) resp.Value {
		name := strings.ToUpper(args[0])
		meta, ok := commandRegistry[name]
		if !ok {
			return resp.MakeError(errScriptUnknown)
		}
		if meta.has(flagNoScript) {
			return resp.MakeError(errScriptDenied)
		}
		if !meta.arityOK(len(args) - 1) {
			return resp.MakeError(errScriptArity)
		}

		vals := make([]resp.Value, len(args)-1)
		for i, a := range args[1:] {
			vals[i] = resp.MakeBulkString(a)
		}

		if meta.has(flagAllKeys) {
			if !ctx.tx.CoversAll() {
				return resp.MakeError(errScriptNonLocal)
			}
		}
		for _, k := range meta.keys(vals) {
			if _, ok := allowed[k]; !ok {
				return resp.MakeError(errScriptNonLocal)
			}
		}

		return ctx.engine.call(&cmdContext{args: vals, tx: ctx.tx, sess: ctx.sess, engine: ctx.engine}, name)
	}
}

// scriptCmd implements SCRIPT LOAD|EXISTS|FLUSH
func scriptCmd(ctx *cmdContext) resp.Value {
	sub := strings.ToUpper(ctx.str(0))
	switch sub {
	case "LOAD":
		if len(ctx.args) != 2 {
			return wrongArity("SCRIPT|LOAD")
		}
		return resp.MakeBulkString(ctx.engine.scripts.Load(ctx.str(1)))

	case "EXISTS":
		if len(ctx.args) < 2 {
			return wrongArity("SCRIPT|EXISTS")
		}
		found := ctx.engine.scripts.Exists(ctx.strs(1)...)
		out := make([]resp.Value, len(found))
		for i, ok := range found {
			out[i] = resp.MakeBool(ok)
		}
		return resp.MakeArray(out)

	case "FLUSH":
		ctx.engine.scripts.Flush()
		return resp.MakeOK()
	}

	return unknownSubcommand(ctx.str(0), "SCRIPT")
}
