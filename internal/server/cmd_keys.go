package server

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/storage"
)

func del(ctx *cmdContext) resp.Value {
	var deleted int64
	for _, key := range ctx.strs(0) {
		if ctx.tx.Delete(key) {
			deleted++
		}
	}
	return resp.MakeInteger(deleted)
}

// exists counts repeated keys as many times as they are given
func exists(ctx *cmdContext) resp.Value {
	var n int64
	for _, key := range ctx.strs(0) {
		if ctx.tx.Exists(key) {
			n++
		}
	}
	return resp.MakeInteger(n)
}

func expire(ctx *cmdContext) resp.Value {
	return expireIn(ctx, "expire", time.Second)
}

func pexpire(ctx *cmdContext) resp.Value {
	return expireIn(ctx, "pexpire", time.Millisecond)
}

func expireIn(ctx *cmdContext, name string, unit time.Duration) resp.Value {
	n, err := ctx.intArg(1)
	if err != nil {
		return errorReply(err)
	}
	ttl, ok := ttlOf(n, unit)
	if !ok {
		return resp.MakeError(fmt.Sprintf(errInvalidExpire, name))
	}
	return resp.MakeBool(ctx.tx.Expire(ctx.str(0), ttl))
}

func expireat(ctx *cmdContext) resp.Value {
	return expireAtUnix(ctx, "expireat", time.Second)
}

func pexpireat(ctx *cmdContext) resp.Value {
	return expireAtUnix(ctx, "pexpireat", time.Millisecond)
}

func expireAtUnix(ctx *cmdContext, name string, unit time.Duration) resp.Value {
	n, err := ctx.intArg(1)
	if err != nil {
		return errorReply(err)
	}
	at, ok := deadlineOf(n, unit)
	if !ok {
		return resp.MakeError(fmt.Sprintf(errInvalidExpire, name))
	}
	return resp.MakeBool(ctx.tx.ExpireAt(ctx.str(0), at))
}

// ttlOf converts n units to a TTL. ok is false when the product or the resulting
// deadline does not fit in int64 nanoseconds
func ttlOf(n int64, unit time.Duration) (time.Duration, bool) {
	if n > math.MaxInt64/int64(unit) || n < math.MinInt64/int64(unit) {
		return 0, false
	}
	d := time.Duration(n) * unit
	if d > 0 && d > time.Duration(math.MaxInt64-time.Now().UnixNano()) {
		return 0, false
	}
	return d, true
}

// deadlineOf converts a unix timestamp counted in unit
func deadlineOf(n int64, unit time.Duration) (time.Time, bool) {
	if n > math.MaxInt64/int64(unit) || n < math.MinInt64/int64(unit) {
		return time.Time{}, false
	}
	return time.Unix(0, n*int64(unit)), true
}

func ttl(ctx *cmdContext) resp.Value {
	return remaining(ctx, time.Second)
}

func pttl(ctx *cmdContext) resp.Value {
	return remaining(ctx, time.Millisecond)
}

// remaining replies -2 for a missing key, -1 without TTL, otherwise the TTL rounded to unit
func remaining(ctx *cmdContext, unit time.Duration) resp.Value {
	d, status := ctx.tx.Expiry(ctx.str(0))
	if status != storage.ExpActive {
		return resp.MakeInteger(int64(status))
	}
	return resp.MakeInteger(int64((d + unit/2) / unit))
}

func persist(ctx *cmdContext) resp.Value {
	return resp.MakeBool(ctx.tx.Persist(ctx.str(0)))
}

func typeCmd(ctx *cmdContext) resp.Value {
	return resp.MakeSimpleString(ctx.tx.Type(ctx.str(0)))
}

func keys(ctx *cmdContext) resp.Value {
	return resp.MakeBulkArray(ctx.tx.Keys(ctx.str(0)))
}

func dbsize(ctx *cmdContext) resp.Value {
	return resp.MakeInteger(int64(ctx.tx.KeyCount()))
}

// flushall serves FLUSHALL and FLUSHDB, ASYNC is accepted and runs synchronously
func flushall(ctx *cmdContext) resp.Value {
	if len(ctx.args) > 1 {
		return resp.MakeError(errSyntax)
	}
	if len(ctx.args) == 1 {
		switch strings.ToUpper(ctx.str(0)) {
		case "ASYNC", "SYNC":
		default:
			return resp.MakeError(errSyntax)
		}
	}

	ctx.tx.Flush()
	return resp.MakeOK()
}
