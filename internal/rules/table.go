package rules

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
	"gopkg.in/yaml.v3"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/model"
)

// Table maps template ids to rules. It is immutable after construction and
// may be shared between shards.
type Table struct {
	rules   map[data.TemplateID]*Rule
	coexist map[[2]data.TemplateID]struct{}
}

// NewTable resolves and compiles the rules.
func NewTable(rules ...*Rule) (*Table, error) {
	t := &Table{
		rules:   make(map[data.TemplateID]*Rule, len(rules)),
		coexist: make(map[[2]data.TemplateID]struct{}),
	}
	for _, r := range rules {
		if r.Template == 0 {
			return nil, fmt.Errorf("rule without template id")
		}
		if _, dup := t.rules[r.Template]; dup {
			return nil, fmt.Errorf("duplicate rule for template %d", r.Template)
		}
		if err := r.resolve(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", r.Template, err)
		}
		t.rules[r.Template] = r
		for _, other := range r.Coexist {
			t.coexist[pairKey(r.Template, other)] = struct{}{}
		}
	}
	return t, nil
}

// Get returns the rule of a template, nil if none. A nil table has no rules.
func (t *Table) Get(id data.TemplateID) *Rule {
	if t == nil {
		return nil
	}
	return t.rules[id]
}

// Coexist reports whether two templates may be active together on one
// target even if their uniqueness policy would evict one of them.
func (t *Table) Coexist(a, b data.TemplateID) bool {
	if t == nil {
		return false
	}
	_, ok := t.coexist[pairKey(a, b)]
	return ok
}

// Len returns the number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

func pairKey(a, b data.TemplateID) [2]data.TemplateID {
	if a > b {
		a, b = b, a
	}
	return [2]data.TemplateID{a, b}
}

func (r *Rule) resolve() error {
	for i := range r.PostApply {
		b := &r.PostApply[i]
		switch b.From {
		case "", "spell_power":
			b.Source = FromSpellPower
		case "attack_power":
			b.Source = FromAttackPower
		default:
			return fmt.Errorf("unknown boost source %q", b.From)
		}
		if b.Effect < 0 || b.Effect >= data.MaxEffects {
			return fmt.Errorf("boost effect index %d out of range", b.Effect)
		}
	}
	if ps := r.PowerScaling; ps != nil {
		switch ps.Pool {
		case "", "mana":
			ps.Power = model.PowerMana
		case "rage":
			ps.Power = model.PowerRage
		case "focus":
			ps.Power = model.PowerFocus
		case "energy":
			ps.Power = model.PowerEnergy
		default:
			return fmt.Errorf("unknown power pool %q", ps.Pool)
		}
	}
	if r.Script != "" {
		proto, err := compile(r.Script, fmt.Sprintf("rule_%d", r.Template))
		if err != nil {
			return err
		}
		r.proto = proto
	}
	return nil
}

func compile(src, name string) (*lua.FunctionProto, error) {
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("compiling script: %w", err)
	}
	return proto, nil
}

type fileYAML struct {
	Rules []*Rule `yaml:"rules"`
}

// Load reads the rule table from a YAML file.
// If the file doesn't exist, returns an empty table.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewTable()
		}
		return nil, fmt.Errorf("reading rules %s: %w", path, err)
	}
	t, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing rules %s: %w", path, err)
	}
	slog.Info("loaded rules", "path", path, "count", t.Len())
	return t, nil
}

// Parse builds a table from YAML bytes.
func Parse(raw []byte) (*Table, error) {
	var f fileYAML
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return NewTable(f.Rules...)
}
