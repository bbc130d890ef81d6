// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"github.com/jessevdk/go-flags"
)

const defaultFormat = `{{ .Key }}: {{ .Resolved }}`

// Option defines command line options.
type Option struct {
	Config  string   `short:"c" long:"config" description:"config file to read"`
	Store   string   `short:"s" long:"store" description:"YAML store file, overrides the configured backend"`
	Inputs  []string `short:"i" long:"input" description:"JSON lines input files, glob patterns allowed (default: stdin)"`
	Format  string   `short:"f" long:"format" description:"output template for each resolved text"`
	Debug   bool     `short:"d" long:"debug" description:"debug mode"`
	Version bool     `short:"v" long:"version" description:"display the version and exit"`
}

// Parse returns parsed command-line flags in Option struct
func Parse(args []string) (*Option, error) {
	opt := &Option{
		Format: defaultFormat,
	}
	parser := flags.NewParser(opt, flags.Default)
	parser.Name = "macroresolve"
	parser.Usage = "[OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	return opt, nil
}

func IsHelp(err error) bool {
	return flags.WroteHelp(err)
}
