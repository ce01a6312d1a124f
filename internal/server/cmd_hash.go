package server

import (
	"slices"

	"github.com/eternalApril/moonkv/internal/resp"
)

// fieldPairs reads field value pairs starting at argument i
func fieldPairs(ctx *cmdContext, i int) (map[string]string, bool) {
	rest := ctx.strs(i)
	if len(rest) == 0 || len(rest)%2 != 0 {
		return nil, false
	}

	fields := make(map[string]string, len(rest)/2)
	for j := 0; j < len(rest); j += 2 {
		fields[rest[j]] = rest[j+1]
	}
	return fields, true
}

func hset(ctx *cmdContext) resp.Value {
	fields, ok := fieldPairs(ctx, 1)
	if !ok {
		return wrongArity("HSET")
	}
	return intReply(ctx.tx.HSet(ctx.str(0), fields))
}

func hmset(ctx *cmdContext) resp.Value {
	fields, ok := fieldPairs(ctx, 1)
	if !ok {
		return wrongArity("HMSET")
	}
	if _, err := ctx.tx.HSet(ctx.str(0), fields); err != nil {
		return errorReply(err)
	}
	return resp.MakeOK()
}

func hget(ctx *cmdContext) resp.Value {
	val, ok, err := ctx.tx.HGet(ctx.str(0), ctx.str(1))
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(val)
}

func hmget(ctx *cmdContext) resp.Value {
	key := ctx.str(0)
	fields := ctx.strs(1)

	out := make([]resp.Value, 0, len(fields))
	for _, field := range fields {
		val, ok, err := ctx.tx.HGet(key, field)
		if err != nil {
			return errorReply(err)
		}
		if ok {
			out = append(out, resp.MakeBulkString(val))
		} else {
			out = append(out, resp.MakeNilBulkString())
		}
	}
	return resp.MakeArray(out)
}

// hgetall replies field value pairs ordered by field
func hgetall(ctx *cmdContext) resp.Value {
	all, err := ctx.tx.HGetAll(ctx.str(0))
	if err != nil {
		return errorReply(err)
	}

	fields := make([]string, 0, len(all))
	for f := range all {
		fields = append(fields, f)
	}
	slices.Sort(fields)

	out := make([]string, 0, 2*len(fields))
	for _, f := range fields {
		out = append(out, f, all[f])
	}
	return resp.MakeBulkArray(out)
}

func hincrby(ctx *cmdContext) resp.Value {
	delta, err := ctx.intArg(2)
	if err != nil {
		return errorReply(err)
	}

	n, err := ctx.tx.HIncrBy(ctx.str(0), ctx.str(1), delta)
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeInteger(n)
}

func hexists(ctx *cmdContext) resp.Value {
	ok, err := ctx.tx.HExists(ctx.str(0), ctx.str(1))
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeBool(ok)
}

func hdel(ctx *cmdContext) resp.Value {
	return intReply(ctx.tx.HDel(ctx.str(0), ctx.strs(1)...))
}

func hlen(ctx *cmdContext) resp.Value {
	return intReply(ctx.tx.HLen(ctx.str(0)))
}

func hkeys(ctx *cmdContext) resp.Value {
	return arrayReply(ctx.tx.HKeys(ctx.str(0)))
}

func hvals(ctx *cmdContext) resp.Value {
	return arrayReply(ctx.tx.HVals(ctx.str(0)))
}
