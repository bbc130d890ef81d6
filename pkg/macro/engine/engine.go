// SPDX-License-Identifier: GPL-3.0-or-later

// Package engine is the entry point of macro resolution: it scans texts,
// resolves user macros through the batch coordinator and everything else
// through the providers, applies macro functions and writes the values
// back into the texts.
package engine

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/netdata/netdata/go/macros/logger"
	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/macro/batch"
	"github.com/netdata/netdata/go/macros/pkg/macro/funcs"
	"github.com/netdata/netdata/go/macros/pkg/macro/provider"
	"github.com/netdata/netdata/go/macros/pkg/macro/scope"
	"github.com/netdata/netdata/go/macros/pkg/macro/subst"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

var ErrUnknownRole = errors.New("unknown text role")

type Config struct {
	// Sentinel is the output of failed macro functions and, with
	// UnresolvedAsSentinel, of unresolved macros.
	Sentinel             string
	UnresolvedAsSentinel bool
	// Mask replaces the values of secret user macros.
	Mask   string
	Global scope.ID
	// Concurrency bounds ResolveBatches.
	Concurrency int
	// Roles override or extend the built-in role grammars.
	Roles map[string]token.Grammars

	Location *time.Location
	Now      func() time.Time
}

// TextRequest is one text to resolve. Grammars, when set, take precedence
// over Role; an empty Role is RoleTemplate.
type TextRequest struct {
	Key      string
	Text     string
	Role     string
	Grammars *token.Grammars
	Entity   provider.Entity
}

type Option func(*Engine)

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.Logger = l }
}

// WithProviders replaces the default providers.
func WithProviders(p ...provider.Provider) Option {
	return func(e *Engine) { e.providers = p }
}

type Engine struct {
	*logger.Logger

	cfg       Config
	store     backend.Store
	coord     *batch.Coordinator
	funcs     *funcs.Processor
	providers []provider.Provider
	roles     map[string]token.Grammars

	mu       sync.Mutex
	scanners map[string]*token.Scanner
}

func New(cfg Config, store backend.Store, opts ...Option) *Engine {
	if cfg.Sentinel == "" {
		cfg.Sentinel = funcs.UnresolvedSentinel
	}
	if cfg.Mask == "" {
		cfg.Mask = scope.MaskString
	}
	if cfg.Global == "" {
		cfg.Global = backend.GlobalScope
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	e := &Engine{
		cfg:       cfg,
		store:     store,
		providers: provider.Default(),
		roles:     DefaultRoles(),
		scanners:  make(map[string]*token.Scanner),
	}
	for _, opt := range opts {
		opt(e)
	}
	for name, g := range cfg.Roles {
		e.roles[name] = g
	}

	e.coord = batch.New(batch.Config{Global: cfg.Global, Mask: cfg.Mask}, store, e.Logger)
	e.funcs = funcs.New(funcs.Config{Location: cfg.Location, Now: cfg.Now, Sentinel: cfg.Sentinel})

	return e
}

// Roles returns the names of the known roles.
func (e *Engine) Roles() []string {
	return slices.Sorted(maps.Keys(e.roles))
}

func (e *Engine) scanner(req *TextRequest) (*token.Scanner, error) {
	if req.Grammars != nil {
		return token.NewScanner(*req.Grammars), nil
	}

	role := req.Role
	if role == "" {
		role = RoleTemplate
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if sc, ok := e.scanners[role]; ok {
		return sc, nil
	}
	g, ok := e.roles[role]
	if !ok {
		return nil, fmt.Errorf("%w '%s' (text '%s')", ErrUnknownRole, role, req.Key)
	}
	sc := token.NewScanner(g)
	e.scanners[role] = sc
	return sc, nil
}

// ResolveText resolves a single text.
func (e *Engine) ResolveText(ctx context.Context, req TextRequest) (string, error) {
	if req.Key == "" {
		req.Key = "text"
	}
	out, err := e.ResolveTextBatch(ctx, []TextRequest{req})
	if err != nil {
		return "", err
	}
	return out[req.Key], nil
}

// ResolveUserMacro resolves one user macro from the starting scopes.
func (e *Engine) ResolveUserMacro(ctx context.Context, scopes []scope.ID, name string, context *string) (scope.Resolved, error) {
	name = strings.TrimSuffix(strings.TrimPrefix(name, "{$"), "}")
	res, err := e.coord.Resolve(ctx, []batch.Request{{Key: name, Scopes: scopes, Name: name, Context: context}})
	if err != nil {
		return scope.Resolved{}, err
	}
	return res.Values[0], nil
}

// ResolveBatches resolves independent batches concurrently, at most
// Config.Concurrency at a time. Results are in batch order. Batches share
// nothing, each reads its own copy of the scope data.
func (e *Engine) ResolveBatches(ctx context.Context, batches [][]TextRequest) ([]map[string]string, error) {
	results := make([]map[string]string, len(batches))

	p := pool.New().
		WithMaxGoroutines(e.cfg.Concurrency).
		WithContext(ctx).
		WithCancelOnError()

	for i, reqs := range batches {
		p.Go(func(ctx context.Context) error {
			out, err := e.ResolveTextBatch(ctx, reqs)
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			results[i] = out
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

type textState struct {
	req    *TextRequest
	tokens []token.Token
	// user maps token index to batch request index
	user  map[int]int
	needs map[int]*provider.Need
}

// ResolveTextBatch resolves all texts as one batch and returns the
// resolved texts by request key. Any backend failure fails the whole
// batch.
func (e *Engine) ResolveTextBatch(ctx context.Context, reqs []TextRequest) (map[string]string, error) {
	log := e.Logger.With("batch", uuid.NewString())

	var (
		states   = make([]*textState, len(reqs))
		userReqs []batch.Request
		byProv   = make(map[provider.Provider][]*provider.Need)
	)

	seen := make(map[string]bool, len(reqs))
	for i := range reqs {
		req := &reqs[i]
		if seen[req.Key] {
			log.Debugf("duplicate text key '%s', the last text wins", req.Key)
		}
		seen[req.Key] = true

		sc, err := e.scanner(req)
		if err != nil {
			return nil, err
		}

		st := &textState{
			req:    req,
			tokens: sc.Scan(req.Text),
			user:   make(map[int]int),
			needs:  make(map[int]*provider.Need),
		}
		states[i] = st

		for j, tok := range st.tokens {
			if isUserMacro(tok) {
				st.user[j] = len(userReqs)
				userReqs = append(userReqs, userRequest(req.Key, req.Entity.UserScopes(), tok))
				continue
			}
			p := e.provider(tok)
			if p == nil {
				log.Debugf("no provider for '%s' in '%s'", tok.Raw, req.Key)
				continue
			}
			n := &provider.Need{Entity: &req.Entity, Token: tok}
			st.needs[j] = n
			byProv[p] = append(byProv[p], n)
		}
	}

	user, err := e.coord.Resolve(ctx, userReqs)
	if err != nil {
		return nil, fmt.Errorf("resolving user macros: %w", err)
	}

	env := &provider.Env{
		Store:      e.store,
		Now:        e.cfg.Now,
		UserMacros: e.nestedUserMacros,
		Log:        log,
	}
	for _, p := range e.providers {
		needs := byProv[p]
		if len(needs) == 0 {
			continue
		}
		if err := p.Resolve(ctx, env, needs); err != nil {
			return nil, fmt.Errorf("%s provider: %w", p.Name(), err)
		}
	}

	policy := subst.Policy{Unresolved: e.cfg.UnresolvedAsSentinel, Sentinel: e.cfg.Sentinel}
	out := make(map[string]string, len(reqs))

	for _, st := range states {
		values := make(map[int]string, len(st.tokens))
		for j, tok := range st.tokens {
			var (
				v     string
				found bool
			)
			if k, ok := st.user[j]; ok {
				r := user.Values[k]
				v, found = r.Value, r.Found
			} else if n, ok := st.needs[j]; ok {
				v, found = n.Value, n.Found
			}
			if !found {
				continue
			}
			if fn := tok.Attr.Func; fn != nil && tok.Kind != token.KindExprMacro {
				v = e.funcs.Apply(fn.Name, fn.Params, v)
			}
			values[tok.Pos] = v
		}
		out[st.req.Key] = subst.Substitute(st.req.Text, st.tokens, values, policy)
	}

	log.Debugf("resolved %d texts: %d user macros in %d round trips", len(reqs), len(userReqs), user.Stats.RoundTrips)

	return out, nil
}

func (e *Engine) provider(tok token.Token) provider.Provider {
	for _, p := range e.providers {
		if p.Handles(tok) {
			return p
		}
	}
	return nil
}

// nestedUserMacros resolves user macros found inside provider values as a
// separate batch.
func (e *Engine) nestedUserMacros(ctx context.Context, lookups []provider.UserMacroLookup) ([]scope.Resolved, error) {
	reqs := make([]batch.Request, len(lookups))
	for i, l := range lookups {
		reqs[i] = batch.Request{Key: "nested", Scopes: l.Scopes, Name: l.Name, Context: l.Context}
	}
	res, err := e.coord.Resolve(ctx, reqs)
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

func isUserMacro(tok token.Token) bool {
	switch tok.Kind {
	case token.KindUserMacro:
		return true
	case token.KindMacroFunc:
		return strings.HasPrefix(tok.Attr.Macro, "{$")
	}
	return false
}

func userRequest(key string, scopes []scope.ID, tok token.Token) batch.Request {
	req := batch.Request{Key: key, Scopes: scopes, Name: tok.Attr.Name}
	if tok.HasContext() {
		c := tok.Attr.Context
		req.Context = &c
	}
	return req
}
