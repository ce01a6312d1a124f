package server

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eternalApril/moonkv/internal/config"
	"github.com/eternalApril/moonkv/internal/metrics"
	"github.com/eternalApril/moonkv/internal/pubsub"
	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/eternalApril/moonkv/internal/script"
	"github.com/eternalApril/moonkv/internal/storage"
	"go.uber.org/zap"
)

// maxGCRounds bounds how many sweeps one tick may run back to back
const maxGCRounds = 16

// Engine coordinates the execution of commands and manages the background tasks of the repository
type Engine struct {
	commands map[string]command // Registry of available commands (the key is the command name in uppercase)
	storage  storage.Storage    // Underlying KV storage
	cfg      *config.Config     // Configuration engine
	broker   *pubsub.Broker
	scripts  *script.Runner
	metrics  *metrics.Metrics
	slowlog  *slowLog
	logger   *zap.Logger

	startTime time.Time
	clients   atomic.Int64
	processed atomic.Int64
	expired   atomic.Int64

	stopGC   chan struct{}  // Channel for the background GC stop signal
	gcDone   sync.WaitGroup // Finished when the GC loop has exited
	stopOnce sync.Once      // Ensures that the stop happens only once
}

// NewEngine initializes the engine, registers the commands, and
// if enabled in the config, starts background cleanup of outdated keys
func NewEngine(s storage.Storage, cfg *config.Config, logger *zap.Logger) *Engine {
	engine := &Engine{
		commands:  make(map[string]command),
		storage:   s,
		cfg:       cfg,
		scripts:   script.NewRunner(cfg.Scripting.Timeout, logger.Named("script")),
		metrics:   metrics.New(s.KeyCount),
		slowlog:   newSlowLog(cfg.SlowLog.SlowerThan, cfg.SlowLog.MaxLen),
		logger:    logger,
		startTime: time.Now(),
		stopGC:    make(chan struct{}),
	}

	engine.broker = pubsub.NewBroker(cfg.PubSub.QueueSize,
		pubsub.WithDropHook(engine.metrics.MessageDropped),
		pubsub.WithLogger(logger.Named("pubsub")),
	)

	engine.registerCommands()

	if cfg.GC.Enabled {
		engine.gcDone.Add(1)
		go engine.startGCLoop()
	}

	return engine
}

// Metrics returns the Prometheus collectors of the engine
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// startGCLoop triggers the active expiration mechanism
func (e *Engine) startGCLoop() {
	defer e.gcDone.Done()

	ticker := time.NewTicker(e.cfg.GC.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.expireCycle()
		case <-e.stopGC:
			e.logger.Info("GC stopped")
			return
		}
	}
}

// expireCycle sweeps again right away while the share of expired samples stays above the threshold
func (e *Engine) expireCycle() {
	for round := 0; round < maxGCRounds; round++ {
		stats := e.storage.DeleteExpired(e.cfg.GC.SamplesPerCheck)
		if stats.Expired > 0 {
			e.expired.Add(int64(stats.Expired))
			e.metrics.KeysExpired(stats.Expired)

			if e.logger.Core().Enabled(zap.DebugLevel) {
				e.logger.Debug("GC delete expired",
					zap.Int("expired", stats.Expired),
					zap.Float64("expired_ratio", stats.Ratio()),
				)
			}
		}

		if stats.Ratio() <= e.cfg.GC.MatchThreshold {
			return
		}
	}
}

// register adds a new command to the engine. The command name is uppercase
func (e *Engine) register(name string, cmd command) {
	e.commands[strings.ToUpper(name)] = cmd
}

// registerCommands fills the registry, every name must have an entry in commandRegistry
func (e *Engine) registerCommands() {
	// connection and server
	e.register("PING", commandFunc(ping))
	e.register("ECHO", commandFunc(echo))
	e.register("QUIT", commandFunc(quit))
	e.register("INFO", commandFunc(info))
	e.register("COMMAND", commandFunc(cmd))

	// strings
	e.register("GET", commandFunc(get))
	e.register("SET", commandFunc(set))
	e.register("SETNX", commandFunc(setnx))
	e.register("SETEX", commandFunc(setex))
	e.register("PSETEX", commandFunc(psetex))
	e.register("MSET", commandFunc(mset))
	e.register("MGET", commandFunc(mget))
	e.register("GETDEL", commandFunc(getdel))
	e.register("INCR", commandFunc(incr))
	e.register("DECR", commandFunc(decr))
	e.register("INCRBY", commandFunc(incrby))
	e.register("DECRBY", commandFunc(decrby))
	e.register("INCRBYFLOAT", commandFunc(incrbyfloat))
	e.register("APPEND", commandFunc(appendCmd))
	e.register("STRLEN", commandFunc(strlen))
	e.register("CAS", commandFunc(cas))

	// generic
	e.register("DEL", commandFunc(del))
	e.register("EXISTS", commandFunc(exists))
	e.register("EXPIRE", commandFunc(expire))
	e.register("PEXPIRE", commandFunc(pexpire))
	e.register("EXPIREAT", commandFunc(expireat))
	e.register("PEXPIREAT", commandFunc(pexpireat))
	e.register("TTL", commandFunc(ttl))
	e.register("PTTL", commandFunc(pttl))
	e.register("PERSIST", commandFunc(persist))
	e.register("TYPE", commandFunc(typeCmd))
	e.register("KEYS", commandFunc(keys))
	e.register("DBSIZE", commandFunc(dbsize))
	e.register("FLUSHALL", commandFunc(flushall))
	e.register("FLUSHDB", commandFunc(flushall))

	// lists
	e.register("LPUSH", commandFunc(lpush))
	e.register("RPUSH", commandFunc(rpush))
	e.register("LPOP", commandFunc(lpop))
	e.register("RPOP", commandFunc(rpop))
	e.register("LRANGE", commandFunc(lrange))
	e.register("LLEN", commandFunc(llen))
	e.register("LINDEX", commandFunc(lindex))
	e.register("BLPOP", commandFunc(blpop))
	e.register("BRPOP", commandFunc(brpop))

	// sets
	e.register("SADD", commandFunc(sadd))
	e.register("SREM", commandFunc(srem))
	e.register("SMEMBERS", commandFunc(smembers))
	e.register("SISMEMBER", commandFunc(sismember))
	e.register("SCARD", commandFunc(scard))
	e.register("SINTER", commandFunc(sinter))
	e.register("SUNION", commandFunc(sunion))
	e.register("SDIFF", commandFunc(sdiff))

	// sorted sets
	e.register("ZADD", commandFunc(zadd))
	e.register("ZINCRBY", commandFunc(zincrby))
	e.register("ZSCORE", commandFunc(zscore))
	e.register("ZRANK", commandFunc(zrank))
	e.register("ZREVRANK", commandFunc(zrevrank))
	e.register("ZRANGE", commandFunc(zrange))
	e.register("ZREVRANGE", commandFunc(zrevrange))
	e.register("ZRANGEBYSCORE", commandFunc(zrangebyscore))
	e.register("ZREVRANGEBYSCORE", commandFunc(zrevrangebyscore))
	e.register("ZCARD", commandFunc(zcard))
	e.register("ZREM", commandFunc(zrem))

	// hashes
	e.register("HSET", commandFunc(hset))
	e.register("HMSET", commandFunc(hmset))
	e.register("HGET", commandFunc(hget))
	e.register("HMGET", commandFunc(hmget))
	e.register("HGETALL", commandFunc(hgetall))
	e.register("HINCRBY", commandFunc(hincrby))
	e.register("HEXISTS", commandFunc(hexists))
	e.register("HDEL", commandFunc(hdel))
	e.register("HLEN", commandFunc(hlen))
	e.register("HKEYS", commandFunc(hkeys))
	e.register("HVALS", commandFunc(hvals))

	// transactions
	e.register("MULTI", commandFunc(multi))
	e.register("EXEC", commandFunc(exec))
	e.register("DISCARD", commandFunc(discard))

	// pub/sub
	e.register("SUBSCRIBE", commandFunc(subscribe))
	e.register("UNSUBSCRIBE", commandFunc(unsubscribe))
	e.register("PSUBSCRIBE", commandFunc(psubscribe))
	e.register("PUNSUBSCRIBE", commandFunc(punsubscribe))
	e.register("PUBLISH", commandFunc(publish))

	// scripting
	e.register("EVAL", commandFunc(eval))
	e.register("EVALSHA", commandFunc(evalsha))
	e.register("SCRIPT", commandFunc(scriptCmd))

	e.register("SLOWLOG", commandFunc(slowlogCmd))
	e.register("CONFIG", commandFunc(configCmd))
}

// OnConnect creates the session of a new connection
func (e *Engine) OnConnect(id string, sink Sink) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	e.clients.Add(1)
	e.metrics.ClientConnected()

	if e.logger.Core().Enabled(zap.DebugLevel) {
		e.logger.Debug("session opened", zap.String("session", id))
	}

	sess := &Session{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		sink:   sink,
	}
	if a, ok := sink.(interface{ RemoteAddr() string }); ok {
		sess.addr = a.RemoteAddr()
	}
	return sess
}

// OnDisconnect drops the open transaction and subscriptions and releases blocked commands
func (e *Engine) OnDisconnect(sess *Session) {
	sess.cancel()
	sess.resetMulti()
	if sess.sub != nil {
		sess.sub.Close()
	}

	e.clients.Add(-1)
	e.metrics.ClientDisconnected()

	if e.logger.Core().Enabled(zap.DebugLevel) {
		e.logger.Debug("session closed", zap.String("session", sess.id))
	}
}

// Execute finds the command by name and executes it with the passed arguments.
// Inside MULTI valid commands are queued instead. Errors are returned in the RESP format
func (e *Engine) Execute(sess *Session, name string, args []resp.Value) resp.Value {
	if e.logger.Core().Enabled(zap.DebugLevel) {
		// Log the command name and number of args
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("args_count", len(args)),
			zap.String("session", sess.id),
		)
	}

	upper := strings.ToUpper(name)
	meta, ok := commandRegistry[upper]
	if !ok {
		sess.dirty = sess.multi
		return unknownCommand(name)
	}

	if !meta.arityOK(len(args)) {
		sess.dirty = sess.multi
		return wrongArity(upper)
	}

	if sess.subscribed() && !allowedWhileSubscribed[upper] {
		return resp.MakeError("ERR Can't execute '" + strings.ToLower(upper) +
			"': only (P)SUBSCRIBE / (P)UNSUBSCRIBE / PING / QUIT are allowed in this context")
	}

	if sess.multi && !isTxControl(upper) {
		if meta.has(flagNoTx) {
			sess.dirty = true
			return resp.MakeError(errNotAllowedInTx)
		}
		sess.queue = append(sess.queue, queuedCommand{name: upper, meta: meta, args: args})
		return resp.MakeSimpleString("QUEUED")
	}

	return e.run(sess, upper, meta, args)
}

var allowedWhileSubscribed = map[string]bool{
	"SUBSCRIBE":    true,
	"UNSUBSCRIBE":  true,
	"PSUBSCRIBE":   true,
	"PUNSUBSCRIBE": true,
	"PING":         true,
	"QUIT":         true,
}

func isTxControl(name string) bool {
	switch name {
	case "MULTI", "EXEC", "DISCARD":
		return true
	}
	return false
}

// run opens the storage transaction covering the command keys and calls the handler inside it
func (e *Engine) run(sess *Session, name string, meta commandMetadata, args []resp.Value) resp.Value {
	ctx := &cmdContext{args: args, sess: sess, engine: e}
	if !meta.needsTx() {
		return e.call(ctx, name)
	}

	var reply resp.Value
	fn := func(tx *storage.Txn) error {
		ctx.tx = tx
		reply = e.call(ctx, name)
		return nil
	}

	write := meta.has(flagWrite)
	var err error
	switch {
	case meta.has(flagAllKeys) && write:
		err = e.storage.UpdateAll(fn)
	case meta.has(flagAllKeys):
		err = e.storage.ViewAll(fn)
	case write:
		err = e.storage.Update(meta.keys(args), fn)
	default:
		err = e.storage.View(meta.keys(args), fn)
	}
	if err != nil {
		return errorReply(err)
	}

	return reply
}

// call runs the handler with an already prepared context and accounts for it.
// Blocking commands are not timed for the slow log
func (e *Engine) call(ctx *cmdContext, name string) resp.Value {
	start := time.Now()
	reply := e.commands[name].execute(ctx)
	elapsed := time.Since(start)

	e.processed.Add(1)
	e.metrics.CommandProcessed(name, reply.IsError())
	if !commandRegistry[name].has(flagBlocking) {
		e.slowlog.record(elapsed, name, ctx.args, ctx.sess.addr)
	}
	return reply
}

// Shutdown shuts down the engine and its background services correctly
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		close(e.stopGC)
		e.gcDone.Wait()
		e.logger.Info("engine stopped")
	})
}
