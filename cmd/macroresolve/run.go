// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/mitchellh/go-homedir"

	"github.com/netdata/netdata/go/macros/cmd/macroresolve/cli"
	"github.com/netdata/netdata/go/macros/logger"
	"github.com/netdata/netdata/go/macros/pkg/macro/engine"
	"github.com/netdata/netdata/go/macros/pkg/macro/provider"
	"github.com/netdata/netdata/go/macros/pkg/macro/scope"
	"github.com/netdata/netdata/go/macros/pkg/macroconf"
)

const stdinName = "-"

type (
	// inputRecord is one line of input.
	inputRecord struct {
		Key    string      `json:"key"`
		Text   string      `json:"text"`
		Role   string      `json:"role"`
		Entity inputEntity `json:"entity"`
	}
	inputEntity struct {
		HostID    string            `json:"hostid"`
		Hosts     []string          `json:"hosts"`
		Scopes    []string          `json:"scopes"`
		ItemID    string            `json:"itemid"`
		Items     []string          `json:"items"`
		ItemKey   string            `json:"item_key"`
		EventTime int64             `json:"event_time"`
		LLD       json.RawMessage   `json:"lld"`
		LLDPaths  map[string]string `json:"lld_paths"`
	}
	// outputRecord is the data of the output template.
	outputRecord struct {
		File     string
		Key      string
		Role     string
		Text     string
		Resolved string
	}
)

func run(ctx context.Context, opts *cli.Option, stdin io.Reader, w io.Writer, log *logger.Logger) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	ecfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}

	tmpl, err := newTemplate(opts.Format)
	if err != nil {
		return err
	}

	files, err := expandInputs(opts.Inputs)
	if err != nil {
		return err
	}

	batches := make([][]engine.TextRequest, len(files))
	for i, name := range files {
		if batches[i], err = readInput(name, stdin); err != nil {
			return err
		}
	}

	store, closeStore, err := cfg.OpenStore(ctx, log)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	eng := engine.New(ecfg, store, engine.WithLogger(log.With("component", "engine")))

	log.Debugf("resolving %d batches from %v", len(batches), files)

	results, err := eng.ResolveBatches(ctx, batches)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	for i, reqs := range batches {
		for _, req := range reqs {
			rec := outputRecord{
				File:     files[i],
				Key:      req.Key,
				Role:     req.Role,
				Text:     req.Text,
				Resolved: results[i][req.Key],
			}
			if err := tmpl.Execute(bw, rec); err != nil {
				return fmt.Errorf("output of '%s': %v", req.Key, err)
			}
			_ = bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

func loadConfig(opts *cli.Option) (macroconf.Config, error) {
	cfg := macroconf.Default()
	if opts.Config != "" {
		var err error
		if cfg, err = macroconf.Load(opts.Config); err != nil {
			return cfg, err
		}
	}
	if opts.Store != "" {
		path, err := homedir.Expand(opts.Store)
		if err != nil {
			return cfg, err
		}
		cfg.Backend = macroconf.BackendFile
		cfg.File = macroconf.FileConfig{Path: path}
	}
	return cfg, nil
}

func newTemplate(format string) (*template.Template, error) {
	tmpl, err := template.New("output").Funcs(sprig.TxtFuncMap()).Parse(format)
	if err != nil {
		return nil, fmt.Errorf("output format: %v", err)
	}
	return tmpl, nil
}

// expandInputs returns the files matched by the patterns, each once, in
// pattern order. No patterns means stdin.
func expandInputs(patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return []string{stdinName}, nil
	}

	var files []string
	for _, p := range patterns {
		if p == stdinName {
			files = append(files, p)
			continue
		}
		p, err := homedir.Expand(p)
		if err != nil {
			return nil, err
		}
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			return nil, fmt.Errorf("input '%s': %v", p, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("input '%s': no files found", p)
		}
		slices.Sort(matches)
		for _, m := range matches {
			if !slices.Contains(files, m) {
				files = append(files, m)
			}
		}
	}
	return files, nil
}

func readInput(name string, stdin io.Reader) ([]engine.TextRequest, error) {
	if name == stdinName {
		return readRequests(name, stdin)
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return readRequests(name, f)
}

// readRequests reads JSON lines. Blank lines are skipped and a record
// without a key is keyed by its line number.
func readRequests(name string, r io.Reader) ([]engine.TextRequest, error) {
	var reqs []engine.TextRequest

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for num := 1; sc.Scan(); num++ {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec inputRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("%s:%d: %v", name, num, err)
		}
		if rec.Key == "" {
			rec.Key = "line" + strconv.Itoa(num)
		}
		reqs = append(reqs, rec.request())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%s: %v", name, err)
	}
	return reqs, nil
}

func (r inputRecord) request() engine.TextRequest {
	e := r.Entity
	ent := provider.Entity{
		HostID:    e.HostID,
		Hosts:     e.Hosts,
		ItemID:    e.ItemID,
		Items:     e.Items,
		ItemKey:   e.ItemKey,
		EventTime: e.EventTime,
		LLDPaths:  e.LLDPaths,
	}
	for _, s := range e.Scopes {
		ent.Scopes = append(ent.Scopes, scope.ID(s))
	}
	if len(e.LLD) > 0 && string(e.LLD) != "null" {
		ent.LLD = string(e.LLD)
	}
	return engine.TextRequest{Key: r.Key, Text: r.Text, Role: r.Role, Entity: ent}
}
