package server

import (
	"github.com/eternalApril/moonkv/internal/resp"
)

func subscribe(ctx *cmdContext) resp.Value {
	sub := ctx.sess.subscriber(ctx.engine)
	for _, ch := range ctx.strs(0) {
		if err := sub.Subscribe(ch, confirmer(ctx.sess, "subscribe", ch)); err != nil {
			return resp.Value{}
		}
	}
	return resp.Value{}
}

func psubscribe(ctx *cmdContext) resp.Value {
	sub := ctx.sess.subscriber(ctx.engine)
	for _, p := range ctx.strs(0) {
		if err := sub.PSubscribe(p, confirmer(ctx.sess, "psubscribe", p)); err != nil {
			return resp.Value{}
		}
	}
	return resp.Value{}
}

func unsubscribe(ctx *cmdContext) resp.Value {
	return unsubscribeAll(ctx, "unsubscribe", false)
}

func punsubscribe(ctx *cmdContext) resp.Value {
	return unsubscribeAll(ctx, "punsubscribe", true)
}

// unsubscribeAll drops the named subscriptions, or every subscription of the kind when none is named.
// With nothing to drop a single confirmation with a nil name is sent
func unsubscribeAll(ctx *cmdContext, kind string, pattern bool) resp.Value {
	sub := ctx.sess.subscriber(ctx.engine)

	names := ctx.strs(0)
	if len(names) == 0 {
		if pattern {
			names = sub.Patterns()
		} else {
			names = sub.Channels()
		}
	}

	if len(names) == 0 {
		_ = ctx.sess.push(resp.MakeArray([]resp.Value{
			resp.MakeBulkString(kind),
			resp.MakeNilBulkString(),
			resp.MakeInteger(int64(sub.Count())),
		}))
		return resp.Value{}
	}

	for _, name := range names {
		var err error
		confirm := unsubscribeConfirmer(ctx.sess, kind, name)
		if pattern {
			err = sub.PUnsubscribe(name, confirm)
		} else {
			err = sub.Unsubscribe(name, confirm)
		}
		if err != nil {
			break
		}
	}
	return resp.Value{}
}

// confirmer writes the [kind, name, count] frame before the subscription becomes visible to publishers
func confirmer(sess *Session, kind, name string) func(int) error {
	return func(count int) error {
		return sess.push(resp.MakeArray([]resp.Value{
			resp.MakeBulkString(kind),
			resp.MakeBulkString(name),
			resp.MakeInteger(int64(count)),
		}))
	}
}

// unsubscribeConfirmer writes the messages still queued for the session ahead of the confirmation
func unsubscribeConfirmer(sess *Session, kind, name string) func(int) error {
	confirm := confirmer(sess, kind, name)
	return func(count int) error {
		sess.deliverMu.Lock()
		defer sess.deliverMu.Unlock()

		if err := sess.writePending(); err != nil {
			return err
		}
		return confirm(count)
	}
}

func publish(ctx *cmdContext) resp.Value {
	n := ctx.engine.broker.Publish(ctx.str(0), ctx.str(1))
	return resp.MakeInteger(int64(n))
}
