package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"

	"github.com/guardkit/guard/internal/app"
	"github.com/guardkit/guard/internal/config"
	"github.com/guardkit/guard/internal/journal"
	"github.com/guardkit/guard/internal/platform/httpclient"
	"github.com/guardkit/guard/pkg/guard"
)

// Global is bound into every command's Run.
type Global struct {
	Config config.Config
	Out    io.Writer
}

// CLI is the command tree.
type CLI struct {
	Serve   ServeCmd   `cmd:"" default:"1" help:"Serve the playground HTTP API and run the probe scheduler"`
	Journal JournalCmd `cmd:"" help:"Inspect the failure journal"`
	Probe   ProbeCmd   `cmd:"" help:"Fetch a URL once and print the guarded result"`
}

// ServeCmd implements 'serve'.
type ServeCmd struct{}

func (s *ServeCmd) Run(g *Global) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, g.Config)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return a.Run(ctx)
}

// JournalCmd groups journal subcommands.
type JournalCmd struct {
	List  JournalListCmd  `cmd:"" help:"List recorded failures, newest first"`
	Stats JournalStatsCmd `cmd:"" help:"Count recorded failures per code"`
}

// JournalListCmd implements 'journal list'.
type JournalListCmd struct {
	Limit  int    `short:"n" default:"20" help:"Maximum number of entries"`
	Code   string `short:"c" help:"Only entries with this error code"`
	Source string `short:"s" help:"Only entries from this source"`
}

func (l *JournalListCmd) Run(g *Global) error {
	ctx := context.Background()
	j, err := journal.Open(ctx, g.Config.Journal.Path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	entries, err := j.List(ctx, journal.Filter{Code: guard.Code(l.Code), Source: l.Source, Limit: l.Limit})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(g.Out)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

// JournalStatsCmd implements 'journal stats'.
type JournalStatsCmd struct{}

func (s *JournalStatsCmd) Run(g *Global) error {
	ctx := context.Background()
	j, err := journal.Open(ctx, g.Config.Journal.Path)
	if err != nil {
		return err
	}
	defer func() { _ = j.Close() }()

	counts, err := j.CountByCode(ctx)
	if err != nil {
		return err
	}
	return json.NewEncoder(g.Out).Encode(counts)
}

// ProbeCmd implements 'probe'.
type ProbeCmd struct {
	URL     string        `arg:"" help:"URL returning JSON"`
	Timeout time.Duration `default:"5s" help:"Request timeout"`
}

// Run prints the Result as JSON and fails the command when the fetch failed.
func (p *ProbeCmd) Run(g *Global) error {
	client := httpclient.New(httpclient.WithTimeout(p.Timeout))

	res := guard.Run(context.Background(), func(ctx context.Context) (any, error) {
		var out any
		err := client.GetJSON(ctx, p.URL, &out)
		return out, err
	})
	if err := json.NewEncoder(g.Out).Encode(res); err != nil {
		return err
	}
	if !res.Ok {
		return res.Err
	}
	return nil
}
