package rules

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit caps the opcodes one bonus script may execute.
const DefaultInstructionLimit = 10_000

// BonusInput is the snapshot a bonus script sees as its only argument.
type BonusInput struct {
	Amount          float64
	CasterLevel     int32
	VictimLevel     int32
	CasterHealthPct float64
	VictimHealthPct float64
	CasterPowerPct  float64
	Stacks          int32
	Periodic        bool
}

// VM runs bonus scripts. One VM belongs to one shard; it is not safe for
// concurrent use.
type VM struct {
	L     *lua.LState
	limit int
	fns   map[*lua.FunctionProto]*lua.LFunction
}

// NewVM creates a sandboxed Lua state: base, table, string and math only,
// with file loading and module loading removed.
func NewVM(instLimit int) *VM {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "print"} {
		L.SetGlobal(name, lua.LNil)
	}
	return &VM{L: L, limit: instLimit, fns: make(map[*lua.FunctionProto]*lua.LFunction)}
}

// Close releases the Lua state.
func (vm *VM) Close() {
	vm.L.Close()
}

// Bonus runs the rule's script and returns its (flat, percent) damage bonus.
// A rule without a script yields zeros.
func (vm *VM) Bonus(r *Rule, in BonusInput) (flat, percent float64, err error) {
	if !r.HasScript() {
		return 0, 0, nil
	}
	fn, ok := vm.fns[r.proto]
	if !ok {
		fn = vm.L.NewFunctionFromProto(r.proto)
		vm.fns[r.proto] = fn
	}

	arg := vm.L.NewTable()
	arg.RawSetString("amount", lua.LNumber(in.Amount))
	arg.RawSetString("caster_level", lua.LNumber(in.CasterLevel))
	arg.RawSetString("victim_level", lua.LNumber(in.VictimLevel))
	arg.RawSetString("caster_health_pct", lua.LNumber(in.CasterHealthPct))
	arg.RawSetString("victim_health_pct", lua.LNumber(in.VictimHealthPct))
	arg.RawSetString("caster_power_pct", lua.LNumber(in.CasterPowerPct))
	arg.RawSetString("stacks", lua.LNumber(in.Stacks))
	arg.RawSetString("periodic", lua.LBool(in.Periodic))

	ctx, cancel := newCountingContext(vm.limit)
	defer cancel()
	vm.L.SetContext(ctx)
	defer vm.L.RemoveContext()

	if err := vm.L.CallByParam(lua.P{Fn: fn, NRet: 2, Protect: true}, arg); err != nil {
		return 0, 0, fmt.Errorf("rule %d script: %w", r.Template, err)
	}
	flat = number(vm.L.Get(-2))
	percent = number(vm.L.Get(-1))
	vm.L.Pop(2)
	return flat, percent, nil
}

func number(v lua.LValue) float64 {
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// countingContext cancels itself after Done has been called limit times.
// The Lua main loop calls Done once per opcode.
type countingContext struct {
	context.Context
	cancel    context.CancelFunc
	remaining int
}

func (c *countingContext) Done() <-chan struct{} {
	c.remaining--
	if c.remaining <= 0 {
		c.cancel()
	}
	return c.Context.Done()
}

func newCountingContext(limit int) (context.Context, context.CancelFunc) {
	base, cancel := context.WithCancel(context.Background())
	return &countingContext{Context: base, cancel: cancel, remaining: limit}, cancel
}
