// SPDX-License-Identifier: GPL-3.0-or-later

package filestore

type (
	// Document is the YAML layout of a file store.
	Document struct {
		Global    Scope      `yaml:"global"`
		Templates []Scope    `yaml:"templates"`
		Hosts     []Host     `yaml:"hosts"`
		Items     []Item     `yaml:"items"`
		Functions []Function `yaml:"functions"`
	}
	Scope struct {
		ID        string   `yaml:"id"`
		Templates []string `yaml:"templates"`
		Macros    []Macro  `yaml:"macros"`
	}
	Macro struct {
		// Macro is the full macro with optional context:
		// {$NAME}, {$NAME:"ctx"} or {$NAME:regex:"pattern"}.
		Macro  string `yaml:"macro"`
		Value  string `yaml:"value"`
		Secret bool   `yaml:"secret"`
	}
	Host struct {
		Scope       `yaml:",inline"`
		Host        string            `yaml:"host"`
		Name        string            `yaml:"name"`
		Description string            `yaml:"description"`
		Interface   Interface         `yaml:"interface"`
		Inventory   map[string]string `yaml:"inventory"`
	}
	Interface struct {
		IP    string `yaml:"ip"`
		DNS   string `yaml:"dns"`
		Port  string `yaml:"port"`
		UseIP *bool  `yaml:"useip"`
	}
	Item struct {
		ID        string   `yaml:"id"`
		HostID    string   `yaml:"hostid"`
		Key       string   `yaml:"key"`
		Name      string   `yaml:"name"`
		Units     string   `yaml:"units"`
		LastValue *string  `yaml:"lastvalue"`
		History   []Sample `yaml:"history"`
	}
	Sample struct {
		Clock int64  `yaml:"clock"`
		Value string `yaml:"value"`
	}
	Function struct {
		ID     string `yaml:"id"`
		ItemID string `yaml:"itemid"`
		Name   string `yaml:"name"`
		Params string `yaml:"params"`
	}
)
