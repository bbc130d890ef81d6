// SPDX-License-Identifier: GPL-3.0-or-later

package macroconf

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/netdata/netdata/go/macros/pkg/macro/engine"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

// RoleConfig defines the grammars of a text role. Extends names a
// built-in role whose grammars are merged in.
type RoleConfig struct {
	Extends       string   `yaml:"extends,omitempty" json:"extends"`
	UserMacros    bool     `yaml:"user_macros" json:"user_macros"`
	Macros        []string `yaml:"macros,omitempty" json:"macros"`
	MacroFuncs    []string `yaml:"macro_funcs,omitempty" json:"macro_funcs"`
	MacrosN       []string `yaml:"macros_n,omitempty" json:"macros_n"`
	MacrosAN      []string `yaml:"macros_an,omitempty" json:"macros_an"`
	References    bool     `yaml:"references" json:"references"`
	LLDMacros     bool     `yaml:"lld_macros" json:"lld_macros"`
	LLDMacroFuncs bool     `yaml:"lld_macro_funcs" json:"lld_macro_funcs"`
	FunctionIDs   bool     `yaml:"function_ids" json:"function_ids"`
	ExprMacros    bool     `yaml:"expr_macros" json:"expr_macros"`
	Replacements  bool     `yaml:"replacements" json:"replacements"`
}

func (r RoleConfig) grammars() token.Grammars {
	return token.Grammars{
		UserMacros:    r.UserMacros,
		Macros:        r.Macros,
		MacroFuncs:    r.MacroFuncs,
		MacrosN:       r.MacrosN,
		MacrosAN:      r.MacrosAN,
		References:    r.References,
		LLDMacros:     r.LLDMacros,
		LLDMacroFuncs: r.LLDMacroFuncs,
		FunctionIDs:   r.FunctionIDs,
		ExprMacros:    r.ExprMacros,
		Replacements:  r.Replacements,
	}
}

func (c Config) roles() (map[string]token.Grammars, error) {
	if len(c.Roles) == 0 {
		return nil, nil
	}

	builtin := engine.DefaultRoles()
	out := make(map[string]token.Grammars, len(c.Roles))

	var errs *multierror.Error
	for name, r := range c.Roles {
		if name == "" {
			errs = multierror.Append(errs, fmt.Errorf("role with empty name"))
			continue
		}
		g := r.grammars()
		if r.Extends != "" {
			base, ok := builtin[r.Extends]
			if !ok {
				errs = multierror.Append(errs, fmt.Errorf("role '%s' extends unknown role '%s'", name, r.Extends))
				continue
			}
			g = base.Merge(g)
		}
		out[name] = g
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return out, nil
}
