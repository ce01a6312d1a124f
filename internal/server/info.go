package server

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"
)

// redisCompatVersion is reported to clients that gate features on the Redis version
const redisCompatVersion = "7.0.0"

// Info is a snapshot of server state reported by INFO
type Info struct {
	KeyCount          int
	Expires           int
	MemoryEstimate    int64
	Uptime            time.Duration
	ConnectedClients  int64
	CommandsProcessed int64
	ExpiredKeys       int64
	PubSubChannels    int
	PubSubPatterns    int
}

// Info collects the current statistics
func (e *Engine) Info() Info {
	channels, patterns := e.broker.Stats()
	return Info{
		KeyCount:          e.storage.KeyCount(),
		Expires:           e.storage.ExpiresCount(),
		MemoryEstimate:    e.storage.MemoryUsage(),
		Uptime:            time.Since(e.startTime),
		ConnectedClients:  e.clients.Load(),
		CommandsProcessed: e.processed.Load(),
		ExpiredKeys:       e.expired.Load(),
		PubSubChannels:    channels,
		PubSubPatterns:    patterns,
	}
}

// Render formats the requested section, or every section when it is empty,
// "all" or "default"
func (i Info) Render(section string) string {
	section = strings.ToLower(section)
	all := section == "" || section == "all" || section == "default" || section == "everything"

	var b strings.Builder
	write := func(name string, lines ...string) {
		if !all && section != strings.ToLower(name) {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\r\n")
		}
		b.WriteString("# " + name + "\r\n")
		for _, l := range lines {
			b.WriteString(l + "\r\n")
		}
	}

	write("Server",
		"moonkv_version:1.0.0",
		"redis_version:"+redisCompatVersion,
		"os:"+runtime.GOOS+" "+runtime.GOARCH,
		"go_version:"+runtime.Version(),
		fmt.Sprintf("process_id:%d", os.Getpid()),
		fmt.Sprintf("uptime_in_seconds:%d", int64(i.Uptime.Seconds())),
		fmt.Sprintf("uptime_in_days:%d", int64(i.Uptime.Hours()/24)),
	)
	write("Clients",
		fmt.Sprintf("connected_clients:%d", i.ConnectedClients),
	)
	write("Memory",
		fmt.Sprintf("used_memory:%d", i.MemoryEstimate),
		"used_memory_human:"+humanBytes(i.MemoryEstimate),
	)
	write("Stats",
		fmt.Sprintf("total_commands_processed:%d", i.CommandsProcessed),
		fmt.Sprintf("expired_keys:%d", i.ExpiredKeys),
		fmt.Sprintf("pubsub_channels:%d", i.PubSubChannels),
		fmt.Sprintf("pubsub_patterns:%d", i.PubSubPatterns),
	)

	keyspace := []string{}
	if i.KeyCount > 0 {
		keyspace = append(keyspace, fmt.Sprintf("db0:keys=%d,expires=%d,avg_ttl=0", i.KeyCount, i.Expires))
	}
	write("Keyspace", keyspace...)

	return b.String()
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f%c", float64(n)/float64(div), "KMGTPE"[exp])
}
