// Package script runs Lua scripts with a Redis-like API on top of gopher-lua
package script

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/eternalApril/moonkv/internal/resp"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// ErrNoScript is the reply text for an unknown sha
const ErrNoScript = "NOSCRIPT No matching script. Please use EVAL."

// Caller executes one command issued by redis.call or redis.pcall.
// args[0] is the command name
type Caller func(args []string) resp.Value

// Runner executes scripts and keeps a cache of loaded sources by their SHA1
type Runner struct {
	mu      sync.RWMutex
	scripts map[string]string

	timeout time.Duration
	logger  *zap.Logger
}

// NewRunner creates a runner. A zero timeout disables the limit
func NewRunner(timeout time.Duration, logger *zap.Logger) *Runner {
	return &Runner{
		scripts: make(map[string]string),
		timeout: timeout,
		logger:  logger,
	}
}

// SHA1 returns the hex digest used as script id
func SHA1(src string) string {
	sum := sha1.Sum([]byte(src))
	return hex.EncodeToString(sum[:])
}

// Load caches src and returns its sha
func (r *Runner) Load(src string) string {
	sha := SHA1(src)

	r.mu.Lock()
	r.scripts[sha] = src
	r.mu.Unlock()

	return sha
}

// Lookup returns a cached script by sha, case-insensitive
func (r *Runner) Lookup(sha string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.scripts[strings.ToLower(sha)]
	return src, ok
}

// Exists reports for every sha whether it is cached
func (r *Runner) Exists(shas ...string) []bool {
	out := make([]bool, len(shas))
	for i, sha := range shas {
		_, out[i] = r.Lookup(sha)
	}
	return out
}

// Flush drops every cached script
func (r *Runner) Flush() {
	r.mu.Lock()
	clear(r.scripts)
	r.mu.Unlock()
}

// Run executes src with KEYS and ARGV set, routing redis.call to call.
// The result is converted to a reply, script errors become error replies
func (r *Runner) Run(ctx context.Context, src string, keys, argv []string, call Caller) resp.Value {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	L := newState()
	defer L.Close()
	L.SetContext(ctx)

	L.SetGlobal("KEYS", stringsTable(L, keys))
	L.SetGlobal("ARGV", stringsTable(L, argv))
	L.SetGlobal("redis", redisModule(L, call))

	fn, err := L.LoadString(src)
	if err != nil {
		return resp.MakeError("ERR Error compiling script: " + err.Error())
	}

	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return r.scriptError(ctx, err)
	}

	return toReply(L.Get(-1))
}

func (r *Runner) scriptError(ctx context.Context, err error) resp.Value {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		r.logger.Warn("script timed out", zap.Duration("timeout", r.timeout))
		return resp.MakeError("ERR Error running script: timed out")
	}

	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		// errors raised by redis.call keep the original reply
		if t, ok := apiErr.Object.(*lua.LTable); ok {
			if e, ok := t.RawGetString("err").(lua.LString); ok {
				return resp.MakeError(string(e))
			}
		}
		return resp.MakeError("ERR Error running script: " + apiErr.Object.String())
	}

	return resp.MakeError("ERR Error running script: " + err.Error())
}

// newState opens only the libraries a script needs, without io and os
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

func stringsTable(L *lua.LState, values []string) *lua.LTable {
	t := L.CreateTable(len(values), 0)
	for i, v := range values {
		t.RawSetInt(i+1, lua.LString(v))
	}
	return t
}

func redisModule(L *lua.LState, call Caller) *lua.LTable {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"call": func(L *lua.LState) int {
			reply, err := invoke(L, call)
			if err == nil && reply.IsError() {
				err = errors.New(reply.Text())
			}
			if err != nil {
				t := L.NewTable()
				t.RawSetString("err", lua.LString(err.Error()))
				L.Error(t, 1)
				return 0
			}
			L.Push(toLua(L, reply))
			return 1
		},
		"pcall": func(L *lua.LState) int {
			reply, err := invoke(L, call)
			if err != nil {
				reply = resp.MakeError(err.Error())
			}
			L.Push(toLua(L, reply))
			return 1
		},
		"status_reply": func(L *lua.LState) int {
			t := L.NewTable()
			t.RawSetString("ok", lua.LString(L.CheckString(1)))
			L.Push(t)
			return 1
		},
		"error_reply": func(L *lua.LState) int {
			t := L.NewTable()
			t.RawSetString("err", lua.LString(L.CheckString(1)))
			L.Push(t)
			return 1
		},
	})
	return mod
}

// invoke collects the call arguments, only strings and numbers are accepted
func invoke(L *lua.LState, call Caller) (resp.Value, error) {
	argc := L.GetTop()
	if argc == 0 {
		return resp.Value{}, errors.New("ERR Please specify at least one argument for this redis lib call")
	}

	args := make([]string, argc)
	for i := 1; i <= argc; i++ {
		switch v := L.Get(i).(type) {
		case lua.LString, lua.LNumber:
			args[i-1] = v.String()
		default:
			return resp.Value{}, errors.New("ERR Lua redis lib command arguments must be strings or integers")
		}
	}

	return call(args), nil
}
