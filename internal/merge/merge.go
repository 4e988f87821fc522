// Package merge computes the effective settings of a (target,
// configuration) pair: base bag, then the configuration's bag, then every
// conditional bag whose expression holds for the current run.
package merge

import (
	"fmt"
	"reflect"

	"github.com/expr-lang/expr"
	"github.com/kiln-build/kiln/internal/graph"
)

// ConfigurationNotFoundError is raised when the requested configuration
// is not declared for a target and the target has no default
// configuration to fall back on.
type ConfigurationNotFoundError struct {
	Target        string
	Configuration string
}

func (e *ConfigurationNotFoundError) Error() string {
	return fmt.Sprintf("target %q does not declare configuration %q and has no default configuration", e.Target, e.Configuration)
}

// condEnv is the environment condition expressions evaluate against.
type condEnv struct {
	Flavor        string            `expr:"flavor"`
	Configuration string            `expr:"configuration"`
	Defines       map[string]string `expr:"defines"`
}

// Merger resolves effective settings for one run. Flavor and Defines are
// read-only run context; a Merger carries no per-target state, so Merge
// is idempotent and safe to call concurrently.
type Merger struct {
	Flavor  string
	Defines map[string]string
}

func New(flavor string, defines map[string]string) *Merger {
	return &Merger{Flavor: flavor, Defines: defines}
}

// Merge returns a fresh effective settings bag for the target under the
// named configuration. Inputs are never mutated; callers wanting updated
// results after changing a target must merge again.
func (m *Merger) Merge(t *graph.Target, configuration string) (graph.Settings, error) {
	out := t.Settings.Clone()

	bag, declared := t.Configurations[configuration]
	if !declared {
		if t.DefaultConfiguration == "" {
			return graph.Settings{}, &ConfigurationNotFoundError{Target: t.Name, Configuration: configuration}
		}
		bag, declared = t.Configurations[t.DefaultConfiguration]
		if !declared {
			return graph.Settings{}, &ConfigurationNotFoundError{Target: t.Name, Configuration: t.DefaultConfiguration}
		}
	}
	layerSettings(&out, bag)

	env := condEnv{Flavor: m.Flavor, Configuration: configuration, Defines: m.Defines}
	for _, cond := range t.Conditions {
		matched, err := m.eval(cond.When, env)
		if err != nil {
			return graph.Settings{}, fmt.Errorf("target %q: %w", t.Name, err)
		}
		if !matched {
			continue
		}
		layerSettings(&out, cond.Settings)
	}

	return out, nil
}

func (m *Merger) eval(expression string, env condEnv) (bool, error) {
	program, err := expr.Compile(expression, expr.Env(env))
	if err != nil {
		return false, fmt.Errorf("failed to compile condition %q: %w", expression, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("failed to run condition %q: %w", expression, err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("condition %q evaluated to %T, want bool", expression, result)
	}
	return matched, nil
}

// layerSettings layers src onto dst: list fields append, scalar fields
// override when src's value is non-zero. Reflection keeps the layering
// in step with the Settings bag as fields are added.
func layerSettings(dst *graph.Settings, src graph.Settings) {
	dstVal := reflect.ValueOf(dst).Elem()
	srcVal := reflect.ValueOf(src)

	for i := range srcVal.NumField() {
		srcField := srcVal.Field(i)
		dstField := dstVal.Field(i)

		if srcField.Kind() == reflect.Slice {
			if !srcField.IsNil() {
				dstField.Set(reflect.AppendSlice(dstField, srcField))
			}
			continue
		}
		if !srcField.IsZero() {
			dstField.Set(srcField)
		}
	}
}
