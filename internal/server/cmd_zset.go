package server

import (
	"strings"

	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/storage"
)

// zadd implements ZADD key [NX|XX] [CH] score member [score member ...]
func zadd(ctx *cmdContext) resp.Value {
	var opts storage.ZAddOptions

	i := 1
loop:
	for ; i < len(ctx.args); i++ {
		switch strings.ToUpper(ctx.str(i)) {
		case "NX":
			opts.NX = true
		case "XX":
			opts.XX = true
		case "CH":
			opts.CH = true
		default:
			break loop
		}
	}

	if opts.NX && opts.XX {
		return resp.MakeError(errNXXX)
	}

	rest := len(ctx.args) - i
	if rest == 0 || rest%2 != 0 {
		return resp.MakeError(errSyntax)
	}

	members := make([]storage.ZMember, 0, rest/2)
	for ; i < len(ctx.args); i += 2 {
		score, err := ctx.floatArg(i)
		if err != nil {
			return errorReply(err)
		}
		members = append(members, storage.ZMember{Member: ctx.str(i + 1), Score: score})
	}

	return intReply(ctx.tx.ZAdd(ctx.str(0), opts, members...))
}

func zincrby(ctx *cmdContext) resp.Value {
	delta, err := ctx.floatArg(1)
	if err != nil {
		return errorReply(err)
	}

	score, err := ctx.tx.ZIncrBy(ctx.str(0), delta, ctx.str(2))
	if err != nil {
		return errorReply(err)
	}
	return resp.MakeBulkString(resp.FormatFloat(score))
}

func zscore(ctx *cmdContext) resp.Value {
	score, ok, err := ctx.tx.ZScore(ctx.str(0), ctx.str(1))
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeBulkString(resp.FormatFloat(score))
}

func zrank(ctx *cmdContext) resp.Value {
	return rankReply(ctx, false)
}

func zrevrank(ctx *cmdContext) resp.Value {
	return rankReply(ctx, true)
}

func rankReply(ctx *cmdContext, rev bool) resp.Value {
	rank, ok, err := ctx.tx.ZRank(ctx.str(0), ctx.str(1), rev)
	if err != nil {
		return errorReply(err)
	}
	if !ok {
		return resp.MakeNilBulkString()
	}
	return resp.MakeInteger(int64(rank))
}

func zrange(ctx *cmdContext) resp.Value {
	return rangeByIndex(ctx, false)
}

func zrevrange(ctx *cmdContext) resp.Value {
	return rangeByIndex(ctx, true)
}

// rangeByIndex implements Z[REV]RANGE key start stop [WITHSCORES]
func rangeByIndex(ctx *cmdContext, rev bool) resp.Value {
	start, err := ctx.intArg(1)
	if err != nil {
		return errorReply(err)
	}
	stop, err := ctx.intArg(2)
	if err != nil {
		return errorReply(err)
	}

	withScores := false
	switch len(ctx.args) {
	case 3:
	case 4:
		if !strings.EqualFold(ctx.str(3), "WITHSCORES") {
			return resp.MakeError(errSyntax)
		}
		withScores = true
	default:
		return resp.MakeError(errSyntax)
	}

	members, err := ctx.tx.ZRange(ctx.str(0), int(start), int(stop), rev)
	if err != nil {
		return errorReply(err)
	}
	return membersReply(members, withScores)
}

func zrangebyscore(ctx *cmdContext) resp.Value {
	return rangeByScore(ctx, false)
}

func zrevrangebyscore(ctx *cmdContext) resp.Value {
	return rangeByScore(ctx, true)
}

// rangeByScore implements Z[REV]RANGEBYSCORE key min max [WITHSCORES] [LIMIT offset count].
// The reverse form takes max before min
func rangeByScore(ctx *cmdContext, rev bool) resp.Value {
	lo, hi := 1, 2
	if rev {
		lo, hi = 2, 1
	}

	lower, err := storage.ParseScoreBound(ctx.str(lo))
	if err != nil {
		return errorReply(err)
	}
	upper, err := storage.ParseScoreBound(ctx.str(hi))
	if err != nil {
		return errorReply(err)
	}

	withScores := false
	offset, count := 0, -1
	for i := 3; i < len(ctx.args); i++ {
		switch strings.ToUpper(ctx.str(i)) {
		case "WITHSCORES":
			withScores = true
		case "LIMIT":
			if i+2 >= len(ctx.args) {
				return resp.MakeError(errSyntax)
			}
			off, err := ctx.intArg(i + 1)
			if err != nil {
				return errorReply(err)
			}
			cnt, err := ctx.intArg(i + 2)
			if err != nil {
				return errorReply(err)
			}
			offset, count = int(off), int(cnt)
			i += 2
		default:
			return resp.MakeError(errSyntax)
		}
	}

	if offset < 0 {
		return resp.MakeBulkArray([]string{})
	}

	members, err := ctx.tx.ZRangeByScore(ctx.str(0), lower, upper, rev, offset, count)
	if err != nil {
		return errorReply(err)
	}
	return membersReply(members, withScores)
}

func membersReply(members []storage.ZMember, withScores bool) resp.Value {
	n := len(members)
	if withScores {
		n *= 2
	}

	out := make([]string, 0, n)
	for _, m := range members {
		out = append(out, m.Member)
		if withScores {
			out = append(out, resp.FormatFloat(m.Score))
		}
	}
	return resp.MakeBulkArray(out)
}

func zcard(ctx *cmdContext) resp.Value {
	return intReply(ctx.tx.ZCard(ctx.str(0)))
}

func zrem(ctx *cmdContext) resp.Value {
	return intReply(ctx.tx.ZRem(ctx.str(0), ctx.strs(1)...))
}
