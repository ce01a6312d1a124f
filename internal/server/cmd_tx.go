package server

import (
	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/storage"
)

func multi(ctx *cmdContext) resp.Value {
	if ctx.sess.multi {
		return resp.MakeError(errNestedMulti)
	}
	ctx.sess.multi = true
	return resp.MakeOK()
}

func discard(ctx *cmdContext) resp.Value {
	if !ctx.sess.multi {
		return resp.MakeError(errDiscardNoMulti)
	}
	ctx.sess.resetMulti()
	return resp.MakeOK()
}

// exec locks the union of the queued keys once and runs the queue under that lock,
// so no other client observes a partial transaction
func exec(ctx *cmdContext) resp.Value {
	sess := ctx.sess
	if !sess.multi {
		return resp.MakeError(errExecNoMulti)
	}

	queue, dirty := sess.queue, sess.dirty
	sess.resetMulti()
	if dirty {
		return resp.MakeError(errExecAbort)
	}

	var (
		keys    []string
		allKeys bool
	)
	for _, q := range queue {
		if q.meta.has(flagAllKeys) {
			allKeys = true
		}
		keys = append(keys, q.meta.keys(q.args)...)
	}

	e := ctx.engine
	replies := make([]resp.Value, 0, len(queue))
	fn := func(tx *storage.Txn) error {
		for _, q := range queue {
			replies = append(replies, e.call(&cmdContext{args: q.args, tx: tx, sess: sess, engine: e}, q.name))
		}
		return nil
	}

	var err error
	if allKeys {
		err = e.storage.UpdateAll(fn)
	} else {
		err = e.storage.Update(keys, fn)
	}
	if err != nil {
		return errorReply(err)
	}

	return resp.MakeArray(replies)
}
