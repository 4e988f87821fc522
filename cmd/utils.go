package cmd

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

type enumChoice struct {
	name string
	help string
}

// EnumValue is a pflag.Value restricted to a fixed set of strings.
// Choices are held sorted so help text and completion output are stable
// run to run.
type EnumValue struct {
	value   string
	choices []enumChoice
}

func NewEnumValue(defaultVal string, allowed map[string]string) EnumValue {
	if _, ok := allowed[defaultVal]; !ok {
		panic(fmt.Sprintf("default value %q not in allowed set", defaultVal))
	}
	choices := make([]enumChoice, 0, len(allowed))
	for name, help := range allowed {
		choices = append(choices, enumChoice{name: name, help: help})
	}
	slices.SortFunc(choices, func(a, b enumChoice) int {
		return strings.Compare(a.name, b.name)
	})
	return EnumValue{value: defaultVal, choices: choices}
}

func (e *EnumValue) String() string     { return e.value }
func (e *EnumValue) HelpString() string { return "[" + strings.Join(e.AllowedKeys(), ", ") + "]" }
func (e *EnumValue) Type() string       { return "enum" }
func (e *EnumValue) Value() string      { return e.value }

func (e *EnumValue) Set(v string) error {
	for _, choice := range e.choices {
		if choice.name == v {
			e.value = v
			return nil
		}
	}
	return fmt.Errorf("must be one of: %s", strings.Join(e.AllowedKeys(), ", "))
}

func (e *EnumValue) AllowedKeys() []string {
	keys := make([]string, 0, len(e.choices))
	for _, choice := range e.choices {
		keys = append(keys, choice.name)
	}
	return keys
}

func (e *EnumValue) CompletionFunc() func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		items := make([]string, 0, len(e.choices))
		for _, choice := range e.choices {
			if choice.help != "" {
				items = append(items, fmt.Sprintf("%s\t%s", choice.name, choice.help))
			} else {
				items = append(items, choice.name)
			}
		}
		return items, cobra.ShellCompDirectiveDefault
	}
}
