// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdata/netdata/go/macros/logger"
	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/backend/filestore"
	"github.com/netdata/netdata/go/macros/pkg/macro/provider"
	"github.com/netdata/netdata/go/macros/pkg/macro/scope"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
)

const storeDoc = `
global:
  macros:
    - macro: '{$TIMEOUT}'
      value: 3s
    - macro: '{$DISK.FREE.MIN:"/boot"}'
      value: 5%

templates:
  - id: t-base
    macros:
      - macro: '{$DISK.FREE.MIN}'
        value: 10%
      - macro: '{$URL}'
        value: https://example.com
      - macro: '{$MIRROR}'
        value: ftp://example.com
  - id: t-linux
    templates: [t-base]
    macros:
      - macro: '{$DISK.FREE.MIN:regex:"^/var"}'
        value: 20%
      - macro: '{$PASSWORD}'
        value: hunter2
        secret: true

hosts:
  - id: "10001"
    host: web01
    templates: [t-linux]
    interface:
      ip: 192.0.2.10

items:
  - id: "20001"
    hostid: "10001"
    key: vfs.fs.size[/,pfree]
    lastvalue: "41.5"

functions:
  - id: "30001"
    itemid: "20001"
    name: last
`

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()

	store, err := filestore.Parse([]byte(storeDoc))
	require.NoError(t, err)

	return New(cfg, store)
}

func TestEngine_ResolveText(t *testing.T) {
	host := provider.Entity{HostID: "10001"}

	tests := map[string]struct {
		req  TextRequest
		want string
	}{
		"host and user macro": {
			req:  TextRequest{Text: "Host: {HOST.NAME}, free: {$DISK.FREE.MIN}", Entity: host},
			want: "Host: web01, free: 10%",
		},
		"user macro contexts": {
			req:  TextRequest{Text: `{$DISK.FREE.MIN:"/boot"} {$DISK.FREE.MIN:"/var/log"} {$DISK.FREE.MIN:"/home"}`, Entity: host},
			want: "5% 20% 10%",
		},
		"global fallback": {
			req:  TextRequest{Text: "timeout={$TIMEOUT}", Entity: host},
			want: "timeout=3s",
		},
		"user macro function": {
			req:  TextRequest{Text: `{{$URL}.regsub("^https://(.+)$", "\1")}`, Entity: host},
			want: "example.com",
		},
		"user macro with function suffix": {
			req:  TextRequest{Text: `{$URL}.regsub("^https://(.+)$", "\1")`, Entity: host},
			want: "example.com",
		},
		"function suffix without match": {
			req:  TextRequest{Text: `{$MIRROR}.regsub("^https://(.+)$", "\1")`, Entity: host},
			want: "*UNKNOWN*",
		},
		"secret is masked before functions": {
			req:  TextRequest{Text: "{$PASSWORD} {{$PASSWORD}.fmtnum(2)}", Entity: host},
			want: "****** *UNKNOWN*",
		},
		"unresolved stay verbatim": {
			req:  TextRequest{Text: "{$NOPE} {HOST.NAME} {$TIMEOUT}", Entity: provider.Entity{HostID: "404"}},
			want: "{$NOPE} {HOST.NAME} 3s",
		},
		"item macro function": {
			req:  TextRequest{Text: "{{ITEM.LASTVALUE}.fmtnum(2)}%", Entity: provider.Entity{ItemID: "20001"}},
			want: "41.50%",
		},
		"url role": {
			req:  TextRequest{Text: "{$URL}/{HOST.IP}/{ITEM.ID}", Role: RoleURL, Entity: host},
			want: "https://example.com/192.0.2.10/{ITEM.ID}",
		},
		"expression role": {
			req:  TextRequest{Text: "{30001}<{$DISK.FREE.MIN}", Role: RoleExpression, Entity: host},
			want: "last(/web01/vfs.fs.size[/,pfree])<10%",
		},
		"name role with lld function": {
			req: TextRequest{
				Text:   `{#IFNAME}: {{#IFNAME}.iregsub("ETH(\d)", "port \1")}`,
				Role:   RoleName,
				Entity: provider.Entity{LLD: `{"{#IFNAME}": "eth0"}`},
			},
			want: "eth0: port 0",
		},
		"explicit grammars": {
			req:  TextRequest{Text: "{$URL} {HOST.NAME}", Grammars: &token.Grammars{}, Entity: host},
			want: "{$URL} {HOST.NAME}",
		},
		"no macros": {
			req:  TextRequest{Text: "plain text", Entity: host},
			want: "plain text",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, Config{})

			got, err := e.ResolveText(context.Background(), test.req)

			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestEngine_ResolveText_SecretNeverLeaks(t *testing.T) {
	host := provider.Entity{HostID: "10001"}

	tests := map[string]struct {
		text string
		want string
	}{
		"plain":          {text: "{$PASSWORD}", want: "******"},
		"fmtnum":         {text: "{{$PASSWORD}.fmtnum(2)}", want: "*UNKNOWN*"},
		"regsub":         {text: `{{$PASSWORD}.regsub("(.*)", "\1")}`, want: "******"},
		"iregsub suffix": {text: `{$PASSWORD}.iregsub("^(.)", "\1")`, want: "*"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			e := newTestEngine(t, Config{})

			got, err := e.ResolveText(context.Background(), TextRequest{Text: test.text, Entity: host})

			require.NoError(t, err)
			assert.Equal(t, test.want, got)
			assert.NotContains(t, got, "hunter2")
		})
	}
}

func TestEngine_ResolveTextBatch(t *testing.T) {
	e := newTestEngine(t, Config{UnresolvedAsSentinel: true, Sentinel: "N/A"})

	reqs := []TextRequest{
		{Key: "a", Text: "{$DISK.FREE.MIN}", Entity: provider.Entity{HostID: "10001"}},
		{Key: "b", Text: "{$DISK.FREE.MIN} {$NOPE}", Entity: provider.Entity{Scopes: []scope.ID{"t-base"}}},
		{Key: "c", Text: "{{$URL}.regsub(nomatch, x)}", Entity: provider.Entity{HostID: "10001"}},
	}

	got, err := e.ResolveTextBatch(context.Background(), reqs)
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"a": "10%",
		"b": "10% N/A",
		"c": "N/A",
	}, got)
}

func TestEngine_ResolveTextBatch_DuplicateKeys(t *testing.T) {
	defer logger.Level.Set(slog.LevelInfo)
	logger.Level.Set(slog.LevelDebug)

	var buf bytes.Buffer
	store, err := filestore.Parse([]byte(storeDoc))
	require.NoError(t, err)
	e := New(Config{}, store, WithLogger(logger.NewWithWriter(&buf)))

	got, err := e.ResolveTextBatch(context.Background(), []TextRequest{
		{Key: "k", Text: "{$TIMEOUT}"},
		{Key: "k", Text: "{$URL}", Entity: provider.Entity{HostID: "10001"}},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"k": "https://example.com"}, got)
	assert.Contains(t, buf.String(), "duplicate text key 'k'")
}

func TestEngine_ResolveBatches(t *testing.T) {
	e := newTestEngine(t, Config{Concurrency: 2})
	host := provider.Entity{HostID: "10001"}

	batches := [][]TextRequest{
		{{Key: "x", Text: "{$TIMEOUT}", Entity: host}},
		{{Key: "x", Text: "{HOST.HOST}", Entity: host}, {Key: "y", Text: "{$URL}", Entity: host}},
		nil,
	}

	got, err := e.ResolveBatches(context.Background(), batches)
	require.NoError(t, err)

	assert.Equal(t, []map[string]string{
		{"x": "3s"},
		{"x": "web01", "y": "https://example.com"},
		{},
	}, got)

	_, err = e.ResolveBatches(context.Background(), [][]TextRequest{
		{{Key: "x", Text: "{$TIMEOUT}"}},
		{{Key: "y", Text: "{$TIMEOUT}", Role: "nope"}},
	})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestEngine_ResolveUserMacro(t *testing.T) {
	e := newTestEngine(t, Config{})
	ctx := "/var/log"

	got, err := e.ResolveUserMacro(context.Background(), []scope.ID{"10001"}, "{$DISK.FREE.MIN}", &ctx)
	require.NoError(t, err)

	assert.Equal(t, "20%", got.Value)
	assert.Equal(t, scope.Context, got.Precision)
	assert.Equal(t, scope.ID("t-linux"), got.Scope)

	got, err = e.ResolveUserMacro(context.Background(), []scope.ID{"10001"}, "NOPE", nil)
	require.NoError(t, err)
	assert.False(t, got.Found)
}

func TestEngine_Roles(t *testing.T) {
	custom := token.Grammars{Replacements: true}
	e := newTestEngine(t, Config{Roles: map[string]token.Grammars{"custom": custom}})

	assert.Contains(t, e.Roles(), "custom")
	assert.Contains(t, e.Roles(), RoleTemplate)

	got, err := e.ResolveText(context.Background(), TextRequest{Text: "{$URL}", Role: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "{$URL}", got)

	_, err = e.ResolveText(context.Background(), TextRequest{Text: "{$URL}", Role: "nope"})
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestEngine_BackendFailure(t *testing.T) {
	store, err := filestore.Parse([]byte(storeDoc))
	require.NoError(t, err)

	e := New(Config{}, brokenStore{Store: store})

	_, err = e.ResolveText(context.Background(), TextRequest{Text: "{$URL}", Entity: provider.Entity{HostID: "10001"}})
	assert.ErrorIs(t, err, errBroken)

	// texts without user macros do not touch the scope store
	got, err := e.ResolveText(context.Background(), TextRequest{Text: "{HOST.HOST}", Entity: provider.Entity{HostID: "10001"}})
	require.NoError(t, err)
	assert.Equal(t, "web01", got)
}

var errBroken = errors.New("broken")

type brokenStore struct{ backend.Store }

func (brokenStore) FetchParentScopes(context.Context, []scope.ID) (map[scope.ID][]scope.ID, error) {
	return nil, errBroken
}
