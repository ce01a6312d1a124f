package server

import (
	"math"
	"strconv"

	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/storage"
)

// cmdContext is what a handler sees: arguments without the command name,
// the storage transaction covering the command keys and the calling session.
// tx is nil for commands without keys
type cmdContext struct {
	args   []resp.Value
	tx     *storage.Txn
	sess   *Session
	engine *Engine
}

type command interface {
	execute(ctx *cmdContext) resp.Value
}

type commandFunc func(ctx *cmdContext) resp.Value

func (c commandFunc) execute(ctx *cmdContext) resp.Value {
	return c(ctx)
}

func (ctx *cmdContext) str(i int) string {
	return string(ctx.args[i].String)
}

// strs returns arguments from i to the end
func (ctx *cmdContext) strs(i int) []string {
	out := make([]string, 0, len(ctx.args)-i)
	for _, a := range ctx.args[i:] {
		out = append(out, string(a.String))
	}
	return out
}

func (ctx *cmdContext) intArg(i int) (int64, error) {
	n, err := strconv.ParseInt(ctx.str(i), 10, 64)
	if err != nil {
		return 0, storage.ErrNotInteger
	}
	return n, nil
}

func (ctx *cmdContext) floatArg(i int) (float64, error) {
	f, err := strconv.ParseFloat(ctx.str(i), 64)
	if err != nil || math.IsNaN(f) {
		return 0, storage.ErrNotFloat
	}
	return f, nil
}
