// SPDX-License-Identifier: GPL-3.0-or-later

package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netdata/netdata/go/macros/pkg/backend"
	"github.com/netdata/netdata/go/macros/pkg/macro/scope"
	"github.com/netdata/netdata/go/macros/pkg/macro/token"
	"github.com/netdata/netdata/go/macros/pkg/sqlquery"
)

var _ backend.Store = (*Store)(nil)

func newTestStore(t *testing.T, style sqlquery.PlaceholderStyle) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewWithDB(db, style, 0, nil), mock
}

func TestStore_FetchDefinitions(t *testing.T) {
	s, mock := newTestStore(t, sqlquery.PlaceholderQuestion)

	mock.ExpectQuery("SELECT macro, value, type FROM globalmacro ORDER BY globalmacroid").
		WillReturnRows(sqlmock.NewRows([]string{"macro", "value", "type"}).
			AddRow("{$TIMEOUT}", "3s", "0"))
	mock.ExpectQuery("SELECT hostid, macro, value, type FROM hostmacro WHERE hostid IN (?, ?) ORDER BY hostmacroid").
		WithArgs("10001", "10002").
		WillReturnRows(sqlmock.NewRows([]string{"hostid", "macro", "value", "type"}).
			AddRow("10001", `{$PORT:"ssh"}`, "22", "0").
			AddRow("10001", "{$PASS}", "hunter2", "1").
			AddRow("10002", `{$PATH:regex:"^/var"}`, "x", "2").
			AddRow("10002", "{$broken", "x", "0"))

	defs, err := s.FetchDefinitions(context.Background(), []scope.ID{"10001", backend.GlobalScope, "10002"})
	require.NoError(t, err)

	assert.Equal(t, []scope.Definition{
		{Scope: backend.GlobalScope, Name: "TIMEOUT", Value: "3s"},
		{Scope: "10001", Name: "PORT", Context: "ssh", ContextKind: token.ContextExact, Value: "22"},
		{Scope: "10001", Name: "PASS", Value: "hunter2", Secret: true},
		{Scope: "10002", Name: "PATH", Context: "^/var", ContextKind: token.ContextRegex, Value: "x", Secret: true},
	}, defs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FetchParentScopes(t *testing.T) {
	s, mock := newTestStore(t, sqlquery.PlaceholderDollar)

	mock.ExpectQuery("SELECT hostid, templateid FROM hosts_templates WHERE hostid IN ($1, $2)").
		WithArgs("10001", "10002").
		WillReturnRows(sqlmock.NewRows([]string{"hostid", "templateid"}).
			AddRow("10001", "500").
			AddRow("10001", "501"))

	parents, err := s.FetchParentScopes(context.Background(), []scope.ID{"10001", "10002"})
	require.NoError(t, err)

	assert.Equal(t, map[scope.ID][]scope.ID{"10001": {"500", "501"}, "10002": nil}, parents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FetchEntityAttributes(t *testing.T) {
	tests := map[string]struct {
		kind    backend.EntityKind
		prepare func(m sqlmock.Sqlmock)
		ids     []string
		attrs   []string
		want    map[string]map[string]string
		wantErr bool
	}{
		"hosts": {
			kind: backend.EntityHost,
			prepare: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT h.hostid, h.host, h.name, h.description, i.ip, i.dns, i.port, i.useip " +
					"FROM hosts h LEFT JOIN interface i ON i.hostid = h.hostid AND i.main = 1 AND i.type = 1 " +
					"WHERE h.hostid IN (?)").
					WithArgs("10001").
					WillReturnRows(sqlmock.NewRows([]string{"hostid", "host", "name", "description", "ip", "dns", "port", "useip"}).
						AddRow("10001", "web01", "Web 01", "", "192.0.2.1", nil, "10050", "1"))
			},
			ids:   []string{"10001"},
			attrs: []string{backend.AttrHost, backend.AttrIP, backend.AttrDNS},
			want: map[string]map[string]string{
				"10001": {backend.AttrHost: "web01", backend.AttrIP: "192.0.2.1", backend.AttrDNS: ""},
			},
		},
		"items map key_ column": {
			kind: backend.EntityItem,
			prepare: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT itemid, key_, name, hostid, units FROM items WHERE itemid IN (?)").
					WithArgs("20001").
					WillReturnRows(sqlmock.NewRows([]string{"itemid", "key_", "name", "hostid", "units"}).
						AddRow("20001", "agent.ping", "Ping", "10001", ""))
			},
			ids:   []string{"20001"},
			attrs: []string{backend.AttrKey, backend.AttrHostID},
			want: map[string]map[string]string{
				"20001": {backend.AttrKey: "agent.ping", backend.AttrHostID: "10001"},
			},
		},
		"inventory": {
			kind: backend.EntityInventory,
			prepare: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT * FROM host_inventory WHERE hostid IN (?)").
					WithArgs("10001").
					WillReturnRows(sqlmock.NewRows([]string{"hostid", "os", "tag"}).
						AddRow("10001", "Linux", "rack-1"))
			},
			ids:   []string{"10001"},
			attrs: []string{"os"},
			want:  map[string]map[string]string{"10001": {"os": "Linux"}},
		},
		"query error": {
			kind: backend.EntityItem,
			prepare: func(m sqlmock.Sqlmock) {
				m.ExpectQuery("SELECT itemid, key_, name, hostid, units FROM items WHERE itemid IN (?)").
					WillReturnError(errors.New("boom"))
			},
			ids:     []string{"1"},
			wantErr: true,
		},
		"unknown kind": {
			kind:    "trigger",
			prepare: func(sqlmock.Sqlmock) {},
			ids:     []string{"1"},
			wantErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			s, mock := newTestStore(t, sqlquery.PlaceholderQuestion)
			test.prepare(mock)

			got, err := s.FetchEntityAttributes(context.Background(), test.kind, test.ids, test.attrs)

			if test.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, test.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_MetricValues(t *testing.T) {
	s, mock := newTestStore(t, sqlquery.PlaceholderDollar)

	mock.ExpectQuery("SELECT h.itemid, h.value FROM history h JOIN ("+
		"SELECT itemid, MAX(clock) AS clock FROM history WHERE itemid IN ($1, $2) GROUP BY itemid"+
		") m ON m.itemid = h.itemid AND m.clock = h.clock").
		WithArgs("20001", "20002").
		WillReturnRows(sqlmock.NewRows([]string{"itemid", "value"}).AddRow("20001", "41.5"))

	query := "SELECT value FROM history WHERE itemid = $1 AND clock <= $2 ORDER BY clock DESC LIMIT 1"
	mock.ExpectQuery(query).
		WithArgs("20001", int64(1700000000)).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("40"))
	mock.ExpectQuery(query).
		WithArgs("20002", int64(1700000000)).
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	latest, err := s.FetchLatestMetricValues(context.Background(), []string{"20001", "20002"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"20001": "41.5"}, latest)

	lookups := []backend.ItemAt{{ItemID: "20001", Time: 1700000000}, {ItemID: "20002", Time: 1700000000}}
	at, err := s.FetchMetricValuesAt(context.Background(), lookups)
	require.NoError(t, err)
	assert.Equal(t, map[backend.ItemAt]string{lookups[0]: "40"}, at)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindItemsAndFunctions(t *testing.T) {
	s, mock := newTestStore(t, sqlquery.PlaceholderQuestion)

	mock.ExpectQuery("SELECT i.itemid, h.host, i.key_ FROM items i JOIN hosts h ON h.hostid = i.hostid WHERE h.host IN (?)").
		WithArgs("web01").
		WillReturnRows(sqlmock.NewRows([]string{"itemid", "host", "key_"}).
			AddRow("20001", "web01", "agent.ping").
			AddRow("20002", "web01", "system.uptime"))
	mock.ExpectQuery("SELECT functionid, itemid, name, parameter FROM functions WHERE functionid IN (?)").
		WithArgs("30001").
		WillReturnRows(sqlmock.NewRows([]string{"functionid", "itemid", "name", "parameter"}).
			AddRow("30001", "20001", "last", ""))

	key := backend.HostKey{Host: "web01", Key: "agent.ping"}
	items, err := s.FindItems(context.Background(), []backend.HostKey{key})
	require.NoError(t, err)
	assert.Equal(t, map[backend.HostKey]string{key: "20001"}, items)

	fns, err := s.FetchFunctions(context.Background(), []string{"30001"})
	require.NoError(t, err)
	assert.Equal(t, map[string]backend.Function{"30001": {ID: "30001", ItemID: "20001", Name: "last"}}, fns)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_NotConnected(t *testing.T) {
	s, err := New(Config{Driver: "mysql"}, nil)
	require.NoError(t, err)

	_, err = s.FetchParentScopes(context.Background(), []scope.ID{"1"})
	assert.Error(t, err)
	assert.NoError(t, s.Close())
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(Config{Driver: "oracle"}, nil)
	assert.Error(t, err)
}

func TestRedactDSN(t *testing.T) {
	tests := map[string]struct {
		dsn  string
		want string
	}{
		"url with password":    {dsn: "postgres://user:secret@db:5432/zabbix", want: "postgres://user:****@db:5432/zabbix"},
		"url without password": {dsn: "postgres://user@db/zabbix", want: "postgres://****@db/zabbix"},
		"mysql style":          {dsn: "zabbix:secret@tcp(db:3306)/zabbix", want: "zabbix:****@tcp(db:3306)/zabbix"},
		"no userinfo":          {dsn: "postgres://db/zabbix", want: "postgres://db/zabbix"},
		"empty":                {dsn: "", want: ""},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, redactDSN(test.dsn))
		})
	}
}
