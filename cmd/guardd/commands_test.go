package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guardkit/guard/internal/config"
	"github.com/guardkit/guard/internal/journal"
	"github.com/guardkit/guard/pkg/guard"
)

func TestProbeCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"up"}`))
	}))
	defer srv.Close()

	var out bytes.Buffer
	g := &Global{Out: &out}

	require.NoError(t, (&ProbeCmd{URL: srv.URL, Timeout: time.Second}).Run(g))
	assert.JSONEq(t, `{"ok":true,"data":{"status":"up"}}`, out.String())

	out.Reset()
	err := (&ProbeCmd{URL: srv.URL + "/missing", Timeout: time.Second}).Run(g)
	ge, ok := guard.AsGuardError(err)
	require.True(t, ok)
	assert.Equal(t, guard.CodeNotFound, ge.Code())
	assert.Contains(t, out.String(), `"code":"NOT_FOUND"`)
}

func TestJournalCmds(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := journal.Open(ctx, path)
	require.NoError(t, err)
	for _, c := range []guard.Code{guard.CodeTimeout, guard.CodeNetwork, guard.CodeTimeout} {
		_, err := j.Record(ctx, "probe", guard.New("probe failed", guard.WithCode(c)))
		require.NoError(t, err)
	}
	require.NoError(t, j.Close())

	var cfg config.Config
	cfg.Journal.Path = path

	var out bytes.Buffer
	g := &Global{Config: cfg, Out: &out}

	require.NoError(t, (&JournalListCmd{Limit: 10, Code: "TIMEOUT"}).Run(g))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"code":"TIMEOUT"`)
	assert.Contains(t, lines[0], `"source":"probe"`)

	out.Reset()
	require.NoError(t, (&JournalStatsCmd{}).Run(g))
	assert.JSONEq(t, `{"TIMEOUT":2,"NETWORK":1}`, out.String())

	out.Reset()
	err = (&JournalListCmd{Code: "SOMETIMES"}).Run(g)
	ge, ok := guard.AsGuardError(err)
	require.True(t, ok)
	assert.Equal(t, guard.CodeValidation, ge.Code())
}
