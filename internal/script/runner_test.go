package script

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/eternalApril/moonkv/internal/resp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mapCaller serves GET and SET from a map
func mapCaller(data map[string]string) Caller {
	return func(args []string) resp.Value {
		switch strings.ToUpper(args[0]) {
		case "GET":
			v, ok := data[args[1]]
			if !ok {
				return resp.MakeNilBulkString()
			}
			return resp.MakeBulkString(v)
		case "SET":
			data[args[1]] = args[2]
			return resp.MakeOK()
		case "INCR":
			return resp.MakeInteger(42)
		case "LIST":
			return resp.MakeBulkArray([]string{"a", "b"})
		}
		return resp.MakeError("ERR unknown command '" + args[0] + "'")
	}
}

func newRunner() *Runner {
	return NewRunner(time.Second, zap.NewNop())
}

func TestRunner_Conversions(t *testing.T) {
	r := newRunner()

	tests := []struct {
		name   string
		script string
		keys   []string
		argv   []string
		want   resp.Value
	}{
		{"string", "return 'hello'", nil, nil, resp.MakeBulkString("hello")},
		{"number truncated", "return 3.9", nil, nil, resp.MakeInteger(3)},
		{"true", "return true", nil, nil, resp.MakeInteger(1)},
		{"false", "return false", nil, nil, resp.MakeNilBulkString()},
		{"nil", "return nil", nil, nil, resp.MakeNilBulkString()},
		{"keys and argv", "return KEYS[1] .. ':' .. ARGV[1]", []string{"user"}, []string{"1"}, resp.MakeBulkString("user:1")},
		{"array stops at nil", "return {1, 'two', nil, 4}", nil, nil, resp.MakeArray([]resp.Value{resp.MakeInteger(1), resp.MakeBulkString("two")})},
		{"status", "return redis.status_reply('FINE')", nil, nil, resp.MakeSimpleString("FINE")},
		{"error", "return redis.error_reply('ERR custom')", nil, nil, resp.MakeError("ERR custom")},
		{"ok table", "return {ok='DONE'}", nil, nil, resp.MakeSimpleString("DONE")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Run(context.Background(), tt.script, tt.keys, tt.argv, mapCaller(nil))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunner_RedisCall(t *testing.T) {
	r := newRunner()
	data := map[string]string{"k": "v1"}

	cas := `
if redis.call('GET', KEYS[1]) == ARGV[1] then
	redis.call('SET', KEYS[1], ARGV[2])
	return 1
end
return 0`

	got := r.Run(context.Background(), cas, []string{"k"}, []string{"v1", "v2"}, mapCaller(data))
	assert.Equal(t, resp.MakeInteger(1), got)
	assert.Equal(t, "v2", data["k"])

	got = r.Run(context.Background(), cas, []string{"k"}, []string{"v1", "v3"}, mapCaller(data))
	assert.Equal(t, resp.MakeInteger(0), got)
	assert.Equal(t, "v2", data["k"])

	got = r.Run(context.Background(), "return redis.call('GET', 'missing') == false", nil, nil, mapCaller(data))
	assert.Equal(t, resp.MakeInteger(1), got)

	got = r.Run(context.Background(), "return redis.call('INCR', 'n') + 1", nil, nil, mapCaller(data))
	assert.Equal(t, resp.MakeInteger(43), got)

	got = r.Run(context.Background(), "return redis.call('LIST')", nil, nil, mapCaller(data))
	assert.Equal(t, resp.MakeBulkArray([]string{"a", "b"}), got)

	got = r.Run(context.Background(), "return redis.call('SET', 'k', 'v')['ok']", nil, nil, mapCaller(data))
	assert.Equal(t, resp.MakeBulkString("OK"), got)
}

func TestRunner_CallErrors(t *testing.T) {
	r := newRunner()

	got := r.Run(context.Background(), "return redis.call('NOPE')", nil, nil, mapCaller(nil))
	assert.Equal(t, resp.MakeError("ERR unknown command 'NOPE'"), got)

	got = r.Run(context.Background(), "local e = redis.pcall('NOPE'); return e['err']", nil, nil, mapCaller(nil))
	assert.Equal(t, resp.MakeBulkString("ERR unknown command 'NOPE'"), got)

	got = r.Run(context.Background(), "return redis.call()", nil, nil, mapCaller(nil))
	require.True(t, got.IsError())
	assert.Contains(t, got.Text(), "at least one argument")

	got = r.Run(context.Background(), "return redis.call('GET', {})", nil, nil, mapCaller(nil))
	require.True(t, got.IsError())
	assert.Contains(t, got.Text(), "must be strings or integers")
}

func TestRunner_ScriptErrors(t *testing.T) {
	r := newRunner()

	got := r.Run(context.Background(), "return +", nil, nil, mapCaller(nil))
	require.True(t, got.IsError())
	assert.True(t, strings.HasPrefix(got.Text(), "ERR Error compiling script"))

	got = r.Run(context.Background(), "error('boom')", nil, nil, mapCaller(nil))
	require.True(t, got.IsError())
	assert.True(t, strings.HasPrefix(got.Text(), "ERR Error running script"))
	assert.Contains(t, got.Text(), "boom")

	got = r.Run(context.Background(), "return os.time()", nil, nil, mapCaller(nil))
	assert.True(t, got.IsError(), "os library is not available")
}

func TestRunner_Timeout(t *testing.T) {
	r := NewRunner(50*time.Millisecond, zap.NewNop())

	start := time.Now()
	got := r.Run(context.Background(), "while true do end", nil, nil, mapCaller(nil))
	require.True(t, got.IsError())
	assert.Contains(t, got.Text(), "timed out")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunner_Cache(t *testing.T) {
	r := newRunner()
	src := "return 1"

	sha := r.Load(src)
	assert.Equal(t, "e0e1f9fabfc9d4800c877a703b823ac0578ff8db", sha)
	assert.Equal(t, SHA1(src), sha)

	got, ok := r.Lookup(strings.ToUpper(sha))
	assert.True(t, ok)
	assert.Equal(t, src, got)

	assert.Equal(t, []bool{true, false}, r.Exists(sha, "ffff"))

	r.Flush()
	_, ok = r.Lookup(sha)
	assert.False(t, ok)
}
