package server

import (
	"slices"
	"strconv"
	"strings"

	"github.com/eternalApril/moonkv/internal/glob"
	"github.com/eternalApril/moonkv/internal/resp"
)

func ping(ctx *cmdContext) resp.Value {
	if len(ctx.args) > 1 {
		return wrongArity("PING")
	}

	if ctx.sess.subscribed() {
		msg := ""
		if len(ctx.args) == 1 {
			msg = ctx.str(0)
		}
		return resp.MakeBulkArray([]string{"pong", msg})
	}

	if len(ctx.args) == 1 {
		return resp.MakeBulkString(ctx.str(0))
	}
	return resp.MakeSimpleString("PONG")
}

func echo(ctx *cmdContext) resp.Value {
	return resp.MakeBulkString(ctx.str(0))
}

func quit(ctx *cmdContext) resp.Value {
	ctx.sess.quit = true
	return resp.MakeOK()
}

func info(ctx *cmdContext) resp.Value {
	section := ""
	if len(ctx.args) > 0 {
		section = ctx.str(0)
	}
	return resp.MakeBulkString(ctx.engine.Info().Render(section))
}

// cmd serves COMMAND, COMMAND COUNT, COMMAND INFO and COMMAND DOCS
func cmd(ctx *cmdContext) resp.Value {
	if len(ctx.args) == 0 {
		return getAllCommands()
	}

	sub := strings.ToUpper(ctx.str(0))
	switch sub {
	case "COUNT":
		return resp.MakeInteger(int64(len(commandRegistry)))
	case "DOCS":
		return getCommandsDocs(ctx.strs(1))
	case "INFO":
		if len(ctx.args) == 1 {
			return getAllCommands()
		}
		return getCommandsInfo(ctx.strs(1))
	}

	return unknownSubcommand(ctx.str(0), "COMMAND")
}

// slowlogCmd serves SLOWLOG GET [count], SLOWLOG LEN and SLOWLOG RESET
func slowlogCmd(ctx *cmdContext) resp.Value {
	slow := ctx.engine.slowlog

	sub := strings.ToUpper(ctx.str(0))
	switch {
	case sub == "GET" && len(ctx.args) <= 2:
		count := 10
		if len(ctx.args) == 2 {
			n, err := ctx.intArg(1)
			if err != nil {
				return errorReply(err)
			}
			if n < -1 {
				return resp.MakeError("ERR count should be greater than or equal to -1")
			}
			count = int(n)
		}

		entries := slow.latest(count)
		out := make([]resp.Value, len(entries))
		for i, entry := range entries {
			out[i] = entry.reply()
		}
		return resp.MakeArray(out)
	case sub == "LEN" && len(ctx.args) == 1:
		return resp.MakeInteger(int64(slow.len()))
	case sub == "RESET" && len(ctx.args) == 1:
		slow.reset()
		return resp.MakeOK()
	}

	return unknownSubcommand(ctx.str(0), "SLOWLOG")
}

// configCmd serves CONFIG GET pattern [pattern ...]. Parameters are the dotted
// config file keys plus a few Redis names that clients commonly ask for
func configCmd(ctx *cmdContext) resp.Value {
	if strings.ToUpper(ctx.str(0)) != "GET" {
		return unknownSubcommand(ctx.str(0), "CONFIG")
	}
	if len(ctx.args) < 2 {
		return wrongArity("config|get")
	}

	params, err := configParams(ctx.engine)
	if err != nil {
		return errorReply(err)
	}

	names := make([]string, 0, len(params))
	for name := range params {
		for _, pattern := range ctx.strs(1) {
			if glob.Match(strings.ToLower(pattern), name) {
				names = append(names, name)
				break
			}
		}
	}
	slices.Sort(names)

	out := make([]string, 0, 2*len(names))
	for _, name := range names {
		out = append(out, name, params[name])
	}
	return resp.MakeBulkArray(out)
}

func configParams(e *Engine) (map[string]string, error) {
	params, err := e.cfg.Settings()
	if err != nil {
		return nil, err
	}

	threshold := int64(-1)
	if e.cfg.SlowLog.SlowerThan >= 0 {
		threshold = e.cfg.SlowLog.SlowerThan.Microseconds()
	}

	params["bind"] = e.cfg.Server.Host
	params["port"] = e.cfg.Server.Port
	params["databases"] = "1"
	params["maxmemory"] = "0"
	params["maxmemory-policy"] = "noeviction"
	params["appendonly"] = "no"
	params["save"] = ""
	params["slowlog-log-slower-than"] = strconv.FormatInt(threshold, 10)
	params["slowlog-max-len"] = strconv.Itoa(e.cfg.SlowLog.MaxLen)
	return params, nil
}
