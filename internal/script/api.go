package script

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ModuleName is the name of the Lua module exposing the simulator.
const ModuleName = "keymacro"

// DefaultIdleLimit caps run_until_idle when no limit is given.
const DefaultIdleLimit = 1_000_000

func (r *Runner) loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"start":           r.start,
		"cancel":          r.cancel,
		"tick":            r.tick,
		"poll":            r.poll,
		"frame":           r.frame,
		"active":          r.active,
		"has_macro":       r.hasMacro,
		"drain":           r.drain,
		"run_until_idle":  r.runUntilIdle,
		"ticks_per_100ms": r.ticksPer100ms,
		"elapsed_ms":      r.elapsedMS,
		"session":         r.session,
		"log":             r.logf,
	})
	L.Push(mod)
	return 1
}

func (r *Runner) start(L *lua.LState) int {
	L.Push(lua.LBool(r.sim.Start(L.CheckInt(1))))
	return 1
}

func (r *Runner) cancel(L *lua.LState) int {
	L.Push(lua.LBool(r.sim.Cancel()))
	return 1
}

func (r *Runner) tick(L *lua.LState) int {
	n := L.OptInt(1, 1)
	if n < 0 {
		L.ArgError(1, "tick count must not be negative")
	}
	L.Push(lua.LNumber(r.sim.Tick(n)))
	return 1
}

func (r *Runner) poll(L *lua.LState) int {
	r.sim.Poll()
	return 0
}

func (r *Runner) frame(L *lua.LState) int {
	n := L.OptInt(1, 1)
	if n < 0 {
		L.ArgError(1, "frame count must not be negative")
	}
	r.sim.Step(n)
	return 0
}

func (r *Runner) active(L *lua.LState) int {
	L.Push(lua.LBool(r.sim.Active()))
	return 1
}

func (r *Runner) hasMacro(L *lua.LState) int {
	L.Push(lua.LBool(r.sim.HasMacro(L.CheckInt(1))))
	return 1
}

func (r *Runner) drain(L *lua.LState) int {
	keys := r.sim.DrainKeys()
	tbl := L.CreateTable(len(keys), 0)
	for _, k := range keys {
		tbl.Append(lua.LString(k.String()))
	}
	L.Push(tbl)
	return 1
}

func (r *Runner) runUntilIdle(L *lua.LState) int {
	limit := L.OptInt(1, DefaultIdleLimit)
	used, idle := r.sim.RunUntilIdle(limit)
	L.Push(lua.LNumber(used))
	L.Push(lua.LBool(idle))
	return 2
}

func (r *Runner) ticksPer100ms(L *lua.LState) int {
	L.Push(lua.LNumber(r.sim.TicksPer100ms()))
	return 1
}

func (r *Runner) elapsedMS(L *lua.LState) int {
	L.Push(lua.LNumber(float64(r.sim.Elapsed().Microseconds()) / 1000))
	return 1
}

func (r *Runner) session(L *lua.LState) int {
	s := r.sim.App().Player().Session()
	tbl := L.NewTable()
	tbl.RawSetString("id", lua.LString(s.ID))
	tbl.RawSetString("slot", lua.LNumber(s.Slot))
	tbl.RawSetString("cursor", lua.LNumber(s.Cursor))
	tbl.RawSetString("pending", lua.LNumber(s.PendingDelayTicks))
	tbl.RawSetString("elapsed", lua.LNumber(s.ElapsedTicks))
	tbl.RawSetString("active", lua.LBool(s.Active))
	tbl.RawSetString("keys", lua.LNumber(s.Keys))
	tbl.RawSetString("dropped", lua.LNumber(s.Dropped))
	L.Push(tbl)
	return 1
}

func (r *Runner) logf(L *lua.LState) int {
	format := L.CheckString(1)
	args := make([]any, 0, L.GetTop()-1)
	for i := 2; i <= L.GetTop(); i++ {
		args = append(args, toGo(L.Get(i)))
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	r.log.WithComponent("script").Info("%s", msg)
	return 0
}

func toGo(v lua.LValue) any {
	switch v := v.(type) {
	case lua.LNumber:
		if f := float64(v); f == float64(int64(f)) {
			return int64(f)
		}
		return float64(v)
	case lua.LBool:
		return bool(v)
	case lua.LString:
		return string(v)
	default:
		return v.String()
	}
}
