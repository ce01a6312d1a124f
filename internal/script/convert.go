package script

import (
	"math"

	"github.com/eternalApril/moonkv/internal/resp"
	lua "github.com/yuin/gopher-lua"
)

// toLua converts a command reply into the Lua value a script sees
func toLua(L *lua.LState, v resp.Value) lua.LValue {
	switch v.Type {
	case resp.TypeInteger:
		return lua.LNumber(v.Integer)

	case resp.TypeBulkString:
		if v.IsNull {
			return lua.LFalse
		}
		return lua.LString(v.String)

	case resp.TypeSimpleString:
		t := L.NewTable()
		t.RawSetString("ok", lua.LString(v.String))
		return t

	case resp.TypeError:
		t := L.NewTable()
		t.RawSetString("err", lua.LString(v.String))
		return t

	case resp.TypeArray:
		if v.IsNull {
			return lua.LFalse
		}
		t := L.CreateTable(len(v.Array), 0)
		for i, el := range v.Array {
			t.RawSetInt(i+1, toLua(L, el))
		}
		return t
	}

	return lua.LNil
}

// toReply converts a script result into a reply.
// Numbers are truncated to integers and array conversion stops at the first nil
func toReply(lv lua.LValue) resp.Value {
	switch v := lv.(type) {
	case lua.LNumber:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return resp.MakeNilBulkString()
		}
		return resp.MakeInteger(int64(f))

	case lua.LString:
		return resp.MakeBulkString(string(v))

	case lua.LBool:
		if v {
			return resp.MakeInteger(1)
		}
		return resp.MakeNilBulkString()

	case *lua.LTable:
		if ok, isStr := v.RawGetString("ok").(lua.LString); isStr {
			return resp.MakeSimpleString(string(ok))
		}
		if e, isStr := v.RawGetString("err").(lua.LString); isStr {
			return resp.MakeError(string(e))
		}

		items := make([]resp.Value, 0, v.Len())
		for i := 1; ; i++ {
			el := v.RawGetInt(i)
			if el == lua.LNil {
				break
			}
			items = append(items, toReply(el))
		}
		return resp.MakeArray(items)
	}

	return resp.MakeNilBulkString()
}
