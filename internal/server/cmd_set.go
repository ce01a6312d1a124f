package server

import (
	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/storage"
)

func sadd(ctx *cmdContext) resp.Value {
	return intReply(ctx.tx.SAdd(ctx.str(0), ctx.strs(1)...))
}

func srem(ctx *cmdContext) resp.Value {
	return intReply(ctx.tx.SRem(ctx.str(0), ctx.strs(1)...))
}

func smembers(ctx *cmdContext) resp.Value {
	return arrayReply(ctx.tx.SMembers(ctx.str(0)))
}

func sismember(ctx *cmdContext) resp.Value {
	ok, err := ctx.tx.SIsMember(ctx.str(0), ctx.str(1))
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeBool(ok)
}

func scard(ctx *cmdContext) resp.Value {
	return intReply(ctx.tx.SCard(ctx.str(0)))
}

func sinter(ctx *cmdContext) resp.Value {
	return setAlgebra(ctx, (*storage.Txn).SInter)
}

func sunion(ctx *cmdContext) resp.Value {
	return setAlgebra(ctx, (*storage.Txn).SUnion)
}

func sdiff(ctx *cmdContext) resp.Value {
	return setAlgebra(ctx, (*storage.Txn).SDiff)
}

func setAlgebra(ctx *cmdContext, op func(*storage.Txn, ...string) ([]string, error)) resp.Value {
	return arrayReply(op(ctx.tx, ctx.strs(0)...))
}

func intReply(n int, err error) resp.Value {
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeInteger(int64(n))
}

func arrayReply(vals []string, err error) resp.Value {
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeBulkArray(vals)
}
