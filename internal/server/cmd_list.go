package server

import (
	"math"
	"strconv"
	"time"

	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/storage"
)

func lpush(ctx *cmdContext) resp.Value {
	return push(ctx, true)
}

func rpush(ctx *cmdContext) resp.Value {
	return push(ctx, false)
}

func push(ctx *cmdContext, front bool) resp.Value {
	n, err := ctx.tx.Push(ctx.str(0), front, ctx.strs(1)...)
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeInteger(int64(n))
}

func lpop(ctx *cmdContext) resp.Value {
	return pop(ctx, true)
}

func rpop(ctx *cmdContext) resp.Value {
	return pop(ctx, false)
}

// pop replies a single element, or an array when a count is given
func pop(ctx *cmdContext, front bool) resp.Value {
	if len(ctx.args) > 2 {
		return resp.MakeError(errSyntax)
	}

	count := 1
	if len(ctx.args) == 2 {
		n, err := ctx.intArg(1)
		if err != nil || n < 0 {
			return resp.MakeError(errOutOfRange)
		}
		count = int(n)
	}

	vals, err := ctx.tx.Pop(ctx.str(0), front, count)
	if err != nil {
		return errorReply(err)
	}

	if len(ctx.args) == 2 {
		if vals == nil {
			return resp.MakeNilArray()
		}
		return resp.MakeBulkArray(vals)
	}
	if len(vals) == 0 {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(vals[0])
}

func lrange(ctx *cmdContext) resp.Value {
	start, err := ctx.intArg(1)
	if err != nil {
		return errorReply(err)
	}
	stop, err := ctx.intArg(2)
	if err != nil {
		return errorReply(err)
	}

	vals, err := ctx.tx.Range(ctx.str(0), int(start), int(stop))
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeBulkArray(vals)
}

func llen(ctx *cmdContext) resp.Value {
	n, err := ctx.tx.Len(ctx.str(0))
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeInteger(int64(n))
}

func lindex(ctx *cmdContext) resp.Value {
	idx, err := ctx.intArg(1)
	if err != nil {
		return errorReply(err)
	}

	val, ok, err := ctx.tx.Index(ctx.str(0), int(idx))
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(val)
}

func blpop(ctx *cmdContext) resp.Value {
	return blockingPop(ctx, true)
}

func brpop(ctx *cmdContext) resp.Value {
	return blockingPop(ctx, false)
}

// maxTimeoutSeconds is the longest timeout that still fits in a time.Duration
const maxTimeoutSeconds = float64(math.MaxInt64 / int64(time.Second))

// blockingPop implements BLPOP/BRPOP key [key ...] timeout.
// The waiter is registered before the first attempt, so a push between the attempt and the wait is not lost.
// Inside EXEC the command runs once without blocking
func blockingPop(ctx *cmdContext, front bool) resp.Value {
	keys := ctx.strs(0)
	keys = keys[:len(keys)-1]

	secs, err := strconv.ParseFloat(ctx.str(len(ctx.args)-1), 64)
	if err != nil || math.IsNaN(secs) || math.IsInf(secs, 0) || secs > maxTimeoutSeconds {
		return resp.MakeError(errTimeoutInvalid)
	}
	if secs < 0 {
		return resp.MakeError(errTimeoutNegative)
	}

	if ctx.tx != nil {
		return popReply(ctx.tx.PopFirst(keys, front))
	}

	st := ctx.engine.storage
	w := st.NewWaiter(keys...)
	defer w.Close()

	var timeout <-chan time.Time
	if secs > 0 {
		timer := time.NewTimer(time.Duration(secs * float64(time.Second)))
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		var reply resp.Value
		_ = st.Update(keys, func(tx *storage.Txn) error {
			reply = popReply(tx.PopFirst(keys, front))
			return nil
		})
		if !reply.IsNull {
			return reply
		}

		select {
		case <-w.C:
		case <-timeout:
			return resp.MakeNilArray()
		case <-ctx.sess.Context().Done():
			return resp.MakeNilArray()
		}
	}
}

func popReply(key, val string, found bool, err error) resp.Value {
	if err != nil {
		return errorReply(err)
	}
	if !found {
		return resp.MakeNilArray()
	}
	return resp.MakeBulkArray([]string{key, val})
}
