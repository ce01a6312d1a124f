package server

import (
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/eternalApril/moonkv/internal/resp"
)

const (
	slowLogMaxArgs   = 32
	slowLogMaxArgLen = 128
)

type slowEntry struct {
	id       int64
	at       time.Time
	duration time.Duration
	args     []string
	client   string
}

// slowLog keeps the latest commands that ran for at least the threshold, newest first
type slowLog struct {
	mu        sync.Mutex
	threshold time.Duration
	maxLen    int
	nextID    int64
	entries   []slowEntry
}

func newSlowLog(threshold time.Duration, maxLen int) *slowLog {
	return &slowLog{threshold: threshold, maxLen: maxLen}
}

// record adds the command when it is slow enough. Long argument lists and
// values are shortened the same way Redis does it
func (l *slowLog) record(d time.Duration, name string, args []resp.Value, client string) {
	if l.threshold < 0 || d < l.threshold || l.maxLen == 0 {
		return
	}

	argc := min(len(args)+1, slowLogMaxArgs)
	logged := make([]string, 0, argc)
	logged = append(logged, name)
	for i, a := range args {
		if len(logged) == slowLogMaxArgs-1 && argc < len(args)+1 {
			logged = append(logged, "... ("+strconv.Itoa(len(args)-i)+" more arguments)")
			break
		}
		logged = append(logged, shortenArg(a.String))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = slices.Insert(l.entries, 0, slowEntry{
		id:       l.nextID,
		at:       time.Now(),
		duration: d,
		args:     logged,
		client:   client,
	})
	l.nextID++
	if len(l.entries) > l.maxLen {
		clear(l.entries[l.maxLen:])
		l.entries = l.entries[:l.maxLen]
	}
}

func shortenArg(b []byte) string {
	if len(b) <= slowLogMaxArgLen {
		return string(b)
	}
	return string(b[:slowLogMaxArgLen]) + "... (" + strconv.Itoa(len(b)-slowLogMaxArgLen) + " more bytes)"
}

// latest returns up to n entries, newest first. A negative n returns all of them
func (l *slowLog) latest(n int) []slowEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n < 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	return slices.Clone(l.entries[:n])
}

func (l *slowLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *slowLog) reset() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// reply formats the entry as id, unix time, duration in microseconds, arguments, client address and name
func (s slowEntry) reply() resp.Value {
	return resp.MakeArray([]resp.Value{
		resp.MakeInteger(s.id),
		resp.MakeInteger(s.at.Unix()),
		resp.MakeInteger(s.duration.Microseconds()),
		resp.MakeBulkArray(s.args),
		resp.MakeBulkString(s.client),
		resp.MakeBulkString(""),
	})
}
