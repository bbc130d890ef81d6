// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"slices"

	"github.com/netdata/netdata/go/macros/pkg/macro/provider"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

// Text roles. A role decides which macro families are recognised in a
// text: a URL field knows host macros but not expression macros.
const (
	RoleName        = "name"
	RoleDescription = "description"
	RoleURL         = "url"
	RoleExpression  = "expression"
	RoleItemName    = "item_name"
	RoleTemplate    = "template"
)

func concat(lists ...[]string) []string {
	return slices.Concat(lists...)
}

// DefaultRoles returns the built-in role grammars.
func DefaultRoles() map[string]token.Grammars {
	hostAndInventory := concat(provider.HostMacros, provider.InventoryMacros)
	all := concat(provider.HostMacros, provider.InventoryMacros, provider.ItemMacros)

	return map[string]token.Grammars{
		RoleName: {
			UserMacros:    true,
			Macros:        hostAndInventory,
			MacroFuncs:    all,
			MacrosN:       all,
			LLDMacros:     true,
			LLDMacroFuncs: true,
			ExprMacros:    true,
		},
		RoleDescription: {
			UserMacros: true,
			MacroFuncs: all,
			MacrosN:    all,
			LLDMacros:  true,
			ExprMacros: true,
		},
		RoleURL: {
			UserMacros: true,
			Macros:     hostAndInventory,
			LLDMacros:  true,
		},
		RoleExpression: {
			UserMacros:  true,
			LLDMacros:   true,
			FunctionIDs: true,
		},
		RoleItemName: {
			UserMacros:    true,
			Macros:        provider.HostMacros,
			References:    true,
			LLDMacros:     true,
			LLDMacroFuncs: true,
		},
		RoleTemplate: {
			UserMacros:    true,
			Macros:        hostAndInventory,
			MacroFuncs:    all,
			MacrosN:       all,
			References:    true,
			LLDMacros:     true,
			LLDMacroFuncs: true,
			FunctionIDs:   true,
			ExprMacros:    true,
		},
	}
}
