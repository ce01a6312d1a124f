package server

import (
	"slices"
	"strings"

	"github.com/eternalApril/moonkv/internal/resp"
)

const (
	flagWrite       = "write"
	flagReadonly    = "readonly"
	flagFast        = "fast"
	flagAllKeys     = "allkeys"     // touches the whole keyspace
	flagBlocking    = "blocking"    // may wait for other clients
	flagPubSub      = "pubsub"      // pub/sub command
	flagNoScript    = "noscript"    // not callable from scripts
	flagNoTx        = "notx"        // not allowed inside MULTI
	flagMovableKeys = "movablekeys" // key positions depend on arguments
)

type commandMetadata struct {
	arity    int      // Arity includes the command name itself
	flags    []string // write, readonly, fast, etc
	firstKey int      // 1-based index of the first key
	lastKey  int      // 1-based index of the last key, negative counts from the end
	step     int      // Step count for finding keys
	doc      commandDoc
}

// commandDoc stores a description for the command
type commandDoc struct {
	summary    string
	complexity string
	group      string
	since      string
}

func (m commandMetadata) has(flag string) bool {
	return slices.Contains(m.flags, flag)
}

// arityOK checks the number of arguments, argc excludes the command name
func (m commandMetadata) arityOK(argc int) bool {
	if m.arity >= 0 {
		return argc+1 == m.arity
	}
	return argc+1 >= -m.arity
}

// keys extracts the key arguments. args excludes the command name
func (m commandMetadata) keys(args []resp.Value) []string {
	if m.has(flagMovableKeys) {
		return scriptKeys(args)
	}
	if m.firstKey == 0 {
		return nil
	}

	last := m.lastKey
	if last < 0 {
		last += len(args) + 1
	}

	var keys []string
	for i := m.firstKey; i <= last && i <= len(args); i += m.step {
		keys = append(keys, string(args[i-1].String))
	}
	return keys
}

// needsTx reports whether the engine must lock the command keys before running it.
// Blocking commands lock on their own, between waits
func (m commandMetadata) needsTx() bool {
	if m.has(flagBlocking) {
		return false
	}
	return m.firstKey > 0 || m.has(flagAllKeys) || m.has(flagMovableKeys)
}

var (
	readFlags      = []string{flagReadonly}
	readFastFlags  = []string{flagReadonly, flagFast}
	writeFlags     = []string{flagWrite}
	writeFastFlags = []string{flagWrite, flagFast}
)

var commandRegistry = map[string]commandMetadata{
	// connection and server
	"PING":    {-1, []string{flagFast}, 0, 0, 0, commandDoc{"Ping the server.", "O(1)", "connection", "1.0.0"}},
	"ECHO":    {2, []string{flagFast}, 0, 0, 0, commandDoc{"Echo the given string.", "O(1)", "connection", "1.0.0"}},
	"QUIT":    {-1, []string{flagFast, flagNoScript}, 0, 0, 0, commandDoc{"Close the connection.", "O(1)", "connection", "1.0.0"}},
	"INFO":    {-1, []string{flagNoScript, flagNoTx}, 0, 0, 0, commandDoc{"Get information and statistics about the server.", "O(1)", "server", "1.0.0"}},
	"COMMAND": {-1, []string{flagNoScript}, 0, 0, 0, commandDoc{"Get array of command details.", "O(N) where N is the number of commands to look up.", "server", "2.8.13"}},
	"SLOWLOG": {-2, []string{flagNoScript}, 0, 0, 0, commandDoc{"Get, count or reset the slow log.", "O(N) where N is the number of entries returned", "server", "2.2.12"}},
	"CONFIG":  {-2, []string{flagNoScript}, 0, 0, 0, commandDoc{"Get configuration parameters matching glob patterns.", "O(N) when N is the number of configuration parameters", "server", "2.0.0"}},

	// strings
	"GET":         {2, readFastFlags, 1, 1, 1, commandDoc{"Get the value of a key.", "O(1)", "string", "1.0.0"}},
	"SET":         {-3, writeFlags, 1, 1, 1, commandDoc{"Set the string value of a key.", "O(1)", "string", "1.0.0"}},
	"SETNX":       {3, writeFastFlags, 1, 1, 1, commandDoc{"Set the value of a key, only if the key does not exist.", "O(1)", "string", "1.0.0"}},
	"SETEX":       {4, writeFlags, 1, 1, 1, commandDoc{"Set the value and expiration of a key.", "O(1)", "string", "2.0.0"}},
	"PSETEX":      {4, writeFlags, 1, 1, 1, commandDoc{"Set the value and expiration in milliseconds of a key.", "O(1)", "string", "2.6.0"}},
	"MSET":        {-3, writeFlags, 1, -1, 2, commandDoc{"Set multiple keys to multiple values.", "O(N) where N is the number of keys to set.", "string", "1.0.1"}},
	"MGET":        {-2, readFastFlags, 1, -1, 1, commandDoc{"Get the values of all the given keys.", "O(N) where N is the number of keys to retrieve.", "string", "1.0.0"}},
	"GETDEL":      {2, writeFastFlags, 1, 1, 1, commandDoc{"Get the value of a key and delete the key.", "O(1)", "string", "6.2.0"}},
	"INCR":        {2, writeFastFlags, 1, 1, 1, commandDoc{"Increment the integer value of a key by one.", "O(1)", "string", "1.0.0"}},
	"DECR":        {2, writeFastFlags, 1, 1, 1, commandDoc{"Decrement the integer value of a key by one.", "O(1)", "string", "1.0.0"}},
	"INCRBY":      {3, writeFastFlags, 1, 1, 1, commandDoc{"Increment the integer value of a key by the given amount.", "O(1)", "string", "1.0.0"}},
	"DECRBY":      {3, writeFastFlags, 1, 1, 1, commandDoc{"Decrement the integer value of a key by the given number.", "O(1)", "string", "1.0.0"}},
	"INCRBYFLOAT": {3, writeFastFlags, 1, 1, 1, commandDoc{"Increment the float value of a key by the given amount.", "O(1)", "string", "2.6.0"}},
	"APPEND":      {3, writeFastFlags, 1, 1, 1, commandDoc{"Append a value to a key.", "O(1)", "string", "2.0.0"}},
	"STRLEN":      {2, readFastFlags, 1, 1, 1, commandDoc{"Get the length of the value stored in a key.", "O(1)", "string", "2.2.0"}},
	"CAS":         {4, writeFastFlags, 1, 1, 1, commandDoc{"Set the value of a key only if it equals the expected value.", "O(1)", "string", "1.0.0"}},

	// generic
	"DEL":       {-2, writeFlags, 1, -1, 1, commandDoc{"Delete a key.", "O(N) where N is the number of keys that will be removed.", "generic", "1.0.0"}},
	"EXISTS":    {-2, readFastFlags, 1, -1, 1, commandDoc{"Determine if a key exists.", "O(N) where N is the number of keys to check.", "generic", "1.0.0"}},
	"EXPIRE":    {3, writeFastFlags, 1, 1, 1, commandDoc{"Set a key's time to live in seconds.", "O(1)", "generic", "1.0.0"}},
	"PEXPIRE":   {3, writeFastFlags, 1, 1, 1, commandDoc{"Set a key's time to live in milliseconds.", "O(1)", "generic", "2.6.0"}},
	"EXPIREAT":  {3, writeFastFlags, 1, 1, 1, commandDoc{"Set the expiration for a key as a UNIX timestamp.", "O(1)", "generic", "1.2.0"}},
	"PEXPIREAT": {3, writeFastFlags, 1, 1, 1, commandDoc{"Set the expiration for a key as a UNIX timestamp specified in milliseconds.", "O(1)", "generic", "2.6.0"}},
	"TTL":       {2, readFastFlags, 1, 1, 1, commandDoc{"Get the time to live for a key in seconds.", "O(1)", "generic", "1.0.0"}},
	"PTTL":      {2, readFastFlags, 1, 1, 1, commandDoc{"Get the time to live for a key in milliseconds.", "O(1)", "generic", "2.6.0"}},
	"PERSIST":   {2, writeFastFlags, 1, 1, 1, commandDoc{"Remove the expiration from a key.", "O(1)", "generic", "2.2.0"}},
	"TYPE":      {2, readFastFlags, 1, 1, 1, commandDoc{"Determine the type stored at key.", "O(1)", "generic", "1.0.0"}},
	"KEYS":      {2, []string{flagReadonly, flagAllKeys}, 0, 0, 0, commandDoc{"Find all keys matching the given pattern.", "O(N) with N being the number of keys in the database.", "generic", "1.0.0"}},
	"DBSIZE":    {1, []string{flagReadonly, flagAllKeys, flagFast}, 0, 0, 0, commandDoc{"Return the number of keys in the selected database.", "O(1)", "server", "1.0.0"}},
	"FLUSHALL":  {-1, []string{flagWrite, flagAllKeys, flagNoScript}, 0, 0, 0, commandDoc{"Remove all keys from all databases.", "O(N) where N is the total number of keys in all databases.", "server", "1.0.0"}},
	"FLUSHDB":   {-1, []string{flagWrite, flagAllKeys, flagNoScript}, 0, 0, 0, commandDoc{"Remove all keys from the current database.", "O(N) where N is the number of keys in the selected database.", "server", "1.0.0"}},

	// lists
	"LPUSH":  {-3, writeFastFlags, 1, 1, 1, commandDoc{"Prepend one or multiple elements to a list.", "O(1) for each element added.", "list", "1.0.0"}},
	"RPUSH":  {-3, writeFastFlags, 1, 1, 1, commandDoc{"Append one or multiple elements to a list.", "O(1) for each element added.", "list", "1.0.0"}},
	"LPOP":   {-2, writeFastFlags, 1, 1, 1, commandDoc{"Remove and get the first elements in a list.", "O(N) where N is the number of elements returned.", "list", "1.0.0"}},
	"RPOP":   {-2, writeFastFlags, 1, 1, 1, commandDoc{"Remove and get the last elements in a list.", "O(N) where N is the number of elements returned.", "list", "1.0.0"}},
	"LRANGE": {4, readFlags, 1, 1, 1, commandDoc{"Get a range of elements from a list.", "O(S+N) where S is the start offset and N the number of elements.", "list", "1.0.0"}},
	"LLEN":   {2, readFastFlags, 1, 1, 1, commandDoc{"Get the length of a list.", "O(1)", "list", "1.0.0"}},
	"LINDEX": {3, readFlags, 1, 1, 1, commandDoc{"Get an element from a list by its index.", "O(N) where N is the number of elements to traverse.", "list", "1.0.0"}},
	"BLPOP":  {-3, []string{flagWrite, flagBlocking, flagNoScript}, 1, -2, 1, commandDoc{"Remove and get the first element in a list, or block until one is available.", "O(N) where N is the number of provided keys.", "list", "2.0.0"}},
	"BRPOP":  {-3, []string{flagWrite, flagBlocking, flagNoScript}, 1, -2, 1, commandDoc{"Remove and get the last element in a list, or block until one is available.", "O(N) where N is the number of provided keys.", "list", "2.0.0"}},

	// sets
	"SADD":      {-3, writeFastFlags, 1, 1, 1, commandDoc{"Add one or more members to a set.", "O(1) for each element added.", "set", "1.0.0"}},
	"SREM":      {-3, writeFastFlags, 1, 1, 1, commandDoc{"Remove one or more members from a set.", "O(N) where N is the number of members to be removed.", "set", "1.0.0"}},
	"SMEMBERS":  {2, readFlags, 1, 1, 1, commandDoc{"Get all the members in a set.", "O(N) where N is the set cardinality.", "set", "1.0.0"}},
	"SISMEMBER": {3, readFastFlags, 1, 1, 1, commandDoc{"Determine if a given value is a member of a set.", "O(1)", "set", "1.0.0"}},
	"SCARD":     {2, readFastFlags, 1, 1, 1, commandDoc{"Get the number of members in a set.", "O(1)", "set", "1.0.0"}},
	"SINTER":    {-2, readFlags, 1, -1, 1, commandDoc{"Intersect multiple sets.", "O(N*M) worst case where N is the smallest set and M the number of sets.", "set", "1.0.0"}},
	"SUNION":    {-2, readFlags, 1, -1, 1, commandDoc{"Add multiple sets.", "O(N) where N is the total number of elements in all given sets.", "set", "1.0.0"}},
	"SDIFF":     {-2, readFlags, 1, -1, 1, commandDoc{"Subtract multiple sets.", "O(N) where N is the total number of elements in all given sets.", "set", "1.0.0"}},

	// sorted sets
	"ZADD":             {-4, writeFastFlags, 1, 1, 1, commandDoc{"Add one or more members to a sorted set, or update its score if it already exists.", "O(log(N)) for each item added.", "sorted-set", "1.2.0"}},
	"ZINCRBY":          {4, writeFastFlags, 1, 1, 1, commandDoc{"Increment the score of a member in a sorted set.", "O(log(N))", "sorted-set", "1.2.0"}},
	"ZSCORE":           {3, readFastFlags, 1, 1, 1, commandDoc{"Get the score associated with the given member in a sorted set.", "O(1)", "sorted-set", "1.2.0"}},
	"ZRANK":            {3, readFastFlags, 1, 1, 1, commandDoc{"Determine the index of a member in a sorted set.", "O(log(N))", "sorted-set", "2.0.0"}},
	"ZREVRANK":         {3, readFastFlags, 1, 1, 1, commandDoc{"Determine the index of a member in a sorted set, with scores ordered from high to low.", "O(log(N))", "sorted-set", "2.0.0"}},
	"ZRANGE":           {-4, readFlags, 1, 1, 1, commandDoc{"Return a range of members in a sorted set, by index.", "O(log(N)+M) with M the number of elements returned.", "sorted-set", "1.2.0"}},
	"ZREVRANGE":        {-4, readFlags, 1, 1, 1, commandDoc{"Return a range of members in a sorted set, by index, with scores ordered from high to low.", "O(log(N)+M) with M the number of elements returned.", "sorted-set", "1.2.0"}},
	"ZRANGEBYSCORE":    {-4, readFlags, 1, 1, 1, commandDoc{"Return a range of members in a sorted set, by score.", "O(log(N)+M) with M the number of elements returned.", "sorted-set", "1.0.5"}},
	"ZREVRANGEBYSCORE": {-4, readFlags, 1, 1, 1, commandDoc{"Return a range of members in a sorted set, by score, with scores ordered from high to low.", "O(log(N)+M) with M the number of elements returned.", "sorted-set", "2.2.0"}},
	"ZCARD":            {2, readFastFlags, 1, 1, 1, commandDoc{"Get the number of members in a sorted set.", "O(1)", "sorted-set", "1.2.0"}},
	"ZREM":             {-3, writeFastFlags, 1, 1, 1, commandDoc{"Remove one or more members from a sorted set.", "O(M*log(N)) with M the number of members to remove.", "sorted-set", "1.2.0"}},

	// hashes
	"HSET":    {-4, writeFastFlags, 1, 1, 1, commandDoc{"Set the string value of a hash field.", "O(1) for each field/value pair added.", "hash", "2.0.0"}},
	"HMSET":   {-4, writeFastFlags, 1, 1, 1, commandDoc{"Set multiple hash fields to multiple values.", "O(N) where N is the number of fields being set.", "hash", "2.0.0"}},
	"HGET":    {3, readFastFlags, 1, 1, 1, commandDoc{"Get the value of a hash field.", "O(1)", "hash", "2.0.0"}},
	"HMGET":   {-3, readFastFlags, 1, 1, 1, commandDoc{"Get the values of all the given hash fields.", "O(N) where N is the number of fields being requested.", "hash", "2.0.0"}},
	"HGETALL": {2, readFlags, 1, 1, 1, commandDoc{"Get all the fields and values in a hash.", "O(N) where N is the size of the hash.", "hash", "2.0.0"}},
	"HINCRBY": {4, writeFastFlags, 1, 1, 1, commandDoc{"Increment the integer value of a hash field by the given number.", "O(1)", "hash", "2.0.0"}},
	"HEXISTS": {3, readFastFlags, 1, 1, 1, commandDoc{"Determine if a hash field exists.", "O(1)", "hash", "2.0.0"}},
	"HDEL":    {-3, writeFastFlags, 1, 1, 1, commandDoc{"Delete one or more hash fields.", "O(N) where N is the number of fields to be removed.", "hash", "2.0.0"}},
	"HLEN":    {2, readFastFlags, 1, 1, 1, commandDoc{"Get the number of fields in a hash.", "O(1)", "hash", "2.0.0"}},
	"HKEYS":   {2, readFlags, 1, 1, 1, commandDoc{"Get all the fields in a hash.", "O(N) where N is the size of the hash.", "hash", "2.0.0"}},
	"HVALS":   {2, readFlags, 1, 1, 1, commandDoc{"Get all the values in a hash.", "O(N) where N is the size of the hash.", "hash", "2.0.0"}},

	// transactions
	"MULTI":   {1, []string{flagFast, flagNoScript}, 0, 0, 0, commandDoc{"Mark the start of a transaction block.", "O(1)", "transactions", "1.2.0"}},
	"EXEC":    {1, []string{flagNoScript}, 0, 0, 0, commandDoc{"Execute all commands issued after MULTI.", "Depends on commands in the transaction", "transactions", "1.2.0"}},
	"DISCARD": {1, []string{flagFast, flagNoScript}, 0, 0, 0, commandDoc{"Discard all commands issued after MULTI.", "O(N), when N is the number of queued commands", "transactions", "2.0.0"}},

	// pub/sub
	"SUBSCRIBE":    {-2, []string{flagPubSub, flagNoScript, flagNoTx}, 0, 0, 0, commandDoc{"Listen for messages published to the given channels.", "O(N) where N is the number of channels to subscribe to.", "pubsub", "2.0.0"}},
	"UNSUBSCRIBE":  {-1, []string{flagPubSub, flagNoScript, flagNoTx}, 0, 0, 0, commandDoc{"Stop listening for messages posted to the given channels.", "O(N) where N is the number of clients already subscribed to a channel.", "pubsub", "2.0.0"}},
	"PSUBSCRIBE":   {-2, []string{flagPubSub, flagNoScript, flagNoTx}, 0, 0, 0, commandDoc{"Listen for messages published to channels matching the given patterns.", "O(N) where N is the number of patterns the client is already subscribed to.", "pubsub", "2.0.0"}},
	"PUNSUBSCRIBE": {-1, []string{flagPubSub, flagNoScript, flagNoTx}, 0, 0, 0, commandDoc{"Stop listening for messages posted to channels matching the given patterns.", "O(N+M) where N is the number of patterns and M the number of clients.", "pubsub", "2.0.0"}},
	"PUBLISH":      {3, []string{flagPubSub, flagFast}, 0, 0, 0, commandDoc{"Post a message to a channel.", "O(N+M) where N is the number of clients subscribed to the receiving channel and M the number of patterns.", "pubsub", "2.0.0"}},

	// scripting
	"EVAL":    {-3, []string{flagWrite, flagNoScript, flagMovableKeys}, 0, 0, 0, commandDoc{"Execute a Lua script server side.", "Depends on the script that is executed.", "scripting", "2.6.0"}},
	"EVALSHA": {-3, []string{flagWrite, flagNoScript, flagMovableKeys}, 0, 0, 0, commandDoc{"Execute a Lua script server side.", "Depends on the script that is executed.", "scripting", "2.6.0"}},
	"SCRIPT":  {-2, []string{flagNoScript}, 0, 0, 0, commandDoc{"A container for Lua scripts management commands.", "Depends on subcommand.", "scripting", "2.6.0"}},
}

func makeFlagsArray(flags []string) resp.Value {
	vals := make([]resp.Value, len(flags))
	for i, f := range flags {
		vals[i] = resp.MakeSimpleString(f)
	}
	return resp.MakeArray(vals)
}

func makeInfoCmdArray(name string) resp.Value {
	meta := commandRegistry[name]
	return resp.MakeArray([]resp.Value{
		resp.MakeBulkString(strings.ToLower(name)),
		resp.MakeInteger(int64(meta.arity)),
		makeFlagsArray(meta.flags),
		resp.MakeInteger(int64(meta.firstKey)),
		resp.MakeInteger(int64(meta.lastKey)),
		resp.MakeInteger(int64(meta.step)),
	})
}

func commandNames() []string {
	names := make([]string, 0, len(commandRegistry))
	for name := range commandRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func getAllCommands() resp.Value {
	names := commandNames()
	cmdArray := make([]resp.Value, 0, len(names))
	for _, name := range names {
		cmdArray = append(cmdArray, makeInfoCmdArray(name))
	}
	return resp.MakeArray(cmdArray)
}

// getCommandsInfo returns details for the named commands, nil for unknown ones
func getCommandsInfo(names []string) resp.Value {
	out := make([]resp.Value, 0, len(names))
	for _, name := range names {
		name = strings.ToUpper(name)
		if _, ok := commandRegistry[name]; !ok {
			out = append(out, resp.MakeNilArray())
			continue
		}
		out = append(out, makeInfoCmdArray(name))
	}
	return resp.MakeArray(out)
}

// getCommandsDocs returns documentation for specified commands or all commands
// Format: [Name, [Summary, val, Since, val...], Name, [...]]
func getCommandsDocs(names []string) resp.Value {
	targets := commandNames()
	if len(names) > 0 {
		targets = targets[:0:0]
		for _, name := range names {
			targets = append(targets, strings.ToUpper(name))
		}
	}

	result := make([]resp.Value, 0, len(targets)*2)

	for _, name := range targets {
		meta, ok := commandRegistry[name]
		if !ok {
			continue
		}
		doc := meta.doc

		result = append(result, resp.MakeBulkString(strings.ToLower(name)))

		props := []resp.Value{
			resp.MakeBulkString("summary"),
			resp.MakeBulkString(doc.summary),
			resp.MakeBulkString("since"),
			resp.MakeBulkString(doc.since),
			resp.MakeBulkString("group"),
			resp.MakeBulkString(doc.group),
			resp.MakeBulkString("complexity"),
			resp.MakeBulkString(doc.complexity),
		}

		result = append(result, resp.MakeArray(props))
	}

	return resp.MakeArray(result)
}
