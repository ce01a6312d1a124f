package server

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/storage"
)

func get(ctx *cmdContext) resp.Value {
	val, ok, err := ctx.tx.Get(ctx.str(0))
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(val)
}

// set implements SET key value [NX | XX] [GET] [EX seconds | PX milliseconds | EXAT unix | PXAT unix-ms | KEEPTTL]
func set(ctx *cmdContext) resp.Value {
	key, value := ctx.str(0), ctx.str(1)

	opts, withGet, errReply := parseSetOptions(ctx)
	if !errReply.IsZero() {
		return errReply
	}

	old := resp.MakeNilBulkString()
	if withGet {
		val, ok, err := ctx.tx.Get(key)
		if err != nil {
			return errorReply(err)
		}
		if ok {
			old = resp.MakeBulkString(val)
		}
	}

	written := ctx.tx.Set(key, value, opts)
	if withGet {
		return old
	}
	if !written {
		return resp.MakeNilBulkString()
	}
	return resp.MakeOK()
}

func parseSetOptions(ctx *cmdContext) (storage.SetOptions, bool, resp.Value) {
	var (
		opts      storage.SetOptions
		withGet   bool
		hasExpire bool
	)

	for i := 2; i < len(ctx.args); i++ {
		opt := strings.ToUpper(ctx.str(i))
		switch opt {
		case "NX":
			if opts.XX {
				return opts, false, resp.MakeError(errSyntax)
			}
			opts.NX = true
		case "XX":
			if opts.NX {
				return opts, false, resp.MakeError(errSyntax)
			}
			opts.XX = true
		case "GET":
			withGet = true
		case "KEEPTTL":
			if hasExpire {
				return opts, false, resp.MakeError(errSyntax)
			}
			opts.KeepTTL = true
		case "EX", "PX", "EXAT", "PXAT":
			if hasExpire || opts.KeepTTL || i+1 >= len(ctx.args) {
				return opts, false, resp.MakeError(errSyntax)
			}
			i++
			n, err := ctx.intArg(i)
			if err != nil {
				return opts, false, errorReply(err)
			}
			if n <= 0 {
				return opts, false, resp.MakeError(fmt.Sprintf(errInvalidExpire, "set"))
			}
			hasExpire = true

			ok := false
			switch opt {
			case "EX":
				opts.TTL, ok = ttlOf(n, time.Second)
			case "PX":
				opts.TTL, ok = ttlOf(n, time.Millisecond)
			case "EXAT":
				opts.ExpireAt, ok = deadlineOf(n, time.Second)
			case "PXAT":
				opts.ExpireAt, ok = deadlineOf(n, time.Millisecond)
			}
			if !ok {
				return opts, false, resp.MakeError(fmt.Sprintf(errInvalidExpire, "set"))
			}
		default:
			return opts, false, resp.MakeError(errSyntax)
		}
	}

	return opts, withGet, resp.Value{}
}

func setnx(ctx *cmdContext) resp.Value {
	return resp.MakeBool(ctx.tx.Set(ctx.str(0), ctx.str(1), storage.SetOptions{NX: true}))
}

func setex(ctx *cmdContext) resp.Value {
	return setWithTTL(ctx, "setex", time.Second)
}

func psetex(ctx *cmdContext) resp.Value {
	return setWithTTL(ctx, "psetex", time.Millisecond)
}

func setWithTTL(ctx *cmdContext, name string, unit time.Duration) resp.Value {
	n, err := ctx.intArg(1)
	if err != nil {
		return errorReply(err)
	}
	ttl, ok := ttlOf(n, unit)
	if n <= 0 || !ok {
		return resp.MakeError(fmt.Sprintf(errInvalidExpire, name))
	}

	ctx.tx.Set(ctx.str(0), ctx.str(2), storage.SetOptions{TTL: ttl})
	return resp.MakeOK()
}

func mset(ctx *cmdContext) resp.Value {
	if len(ctx.args)%2 != 0 {
		return wrongArity("MSET")
	}

	for i := 0; i < len(ctx.args); i += 2 {
		ctx.tx.Set(ctx.str(i), ctx.str(i+1), storage.SetOptions{})
	}
	return resp.MakeOK()
}

// mget answers nil for keys holding other types
func mget(ctx *cmdContext) resp.Value {
	out := make([]resp.Value, len(ctx.args))
	for i := range ctx.args {
		val, ok, err := ctx.tx.Get(ctx.str(i))
		if err != nil || !ok {
			out[i] = resp.MakeNilBulkString()
			continue
		}
		out[i] = resp.MakeBulkString(val)
	}
	return resp.MakeArray(out)
}

func getdel(ctx *cmdContext) resp.Value {
	val, ok, err := ctx.tx.GetDel(ctx.str(0))
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(val)
}

func incr(ctx *cmdContext) resp.Value {
	return incrementBy(ctx, 1)
}

func decr(ctx *cmdContext) resp.Value {
	return incrementBy(ctx, -1)
}

func incrby(ctx *cmdContext) resp.Value {
	delta, err := ctx.intArg(1)
	if err != nil {
		return errorReply(err)
	}
	return incrementBy(ctx, delta)
}

func decrby(ctx *cmdContext) resp.Value {
	delta, err := ctx.intArg(1)
	if err != nil {
		return errorReply(err)
	}
	if delta == math.MinInt64 {
		return resp.MakeError("ERR decrement would overflow")
	}
	return incrementBy(ctx, -delta)
}

func incrementBy(ctx *cmdContext, delta int64) resp.Value {
	n, err := ctx.tx.IncrBy(ctx.str(0), delta)
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeInteger(n)
}

func incrbyfloat(ctx *cmdContext) resp.Value {
	delta, err := ctx.floatArg(1)
	if err != nil {
		return errorReply(err)
	}

	f, err := ctx.tx.IncrByFloat(ctx.str(0), delta)
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeFloat(f)
}

func appendCmd(ctx *cmdContext) resp.Value {
	n, err := ctx.tx.Append(ctx.str(0), ctx.str(1))
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeInteger(int64(n))
}

func strlen(ctx *cmdContext) resp.Value {
	n, err := ctx.tx.StrLen(ctx.str(0))
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeInteger(int64(n))
}

// cas implements CAS key expected new, replying 1 when the value was swapped
func cas(ctx *cmdContext) resp.Value {
	ok, err := ctx.tx.CompareAndSwap(ctx.str(0), ctx.str(1), ctx.str(2))
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeBool(ok)
}
