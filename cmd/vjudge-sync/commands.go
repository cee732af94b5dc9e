package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/rw-r-r-0644/vjudge-sync/judge"
	"github.com/rw-r-r-0644/vjudge-sync/ledger"
	"github.com/rw-r-r-0644/vjudge-sync/logging"
	"github.com/rw-r-r-0644/vjudge-sync/store"
	"github.com/rw-r-r-0644/vjudge-sync/syncer"
	"github.com/rw-r-r-0644/vjudge-sync/vjudge"
)

// Table cells are coloured only in the last column: tabwriter counts escape
// sequences as width.
var (
	okText   = color.New(color.FgGreen).SprintFunc()
	warnText = color.New(color.FgYellow).SprintFunc()
	errText  = color.New(color.FgRed).SprintFunc()
	bold     = color.New(color.Bold).SprintFunc()
)

func configFromCmd(cmd *cli.Command) (*Config, error) {
	overrides := map[string]any{}
	if v := cmd.String("log-level"); v != "" {
		overrides["log.level"] = v
	}
	if v := cmd.String("log-format"); v != "" {
		overrides["log.format"] = v
	}
	return loadConfig(cmd.String("config"), overrides)
}

func loggerFor(cmd *cli.Command, cfg *Config) zerolog.Logger {
	lc := cfg.Log
	lc.Output = cmd.Root().ErrWriter
	return logging.New(lc)
}

// selectJudges narrows the configured judges to filter, keeping config order.
func selectJudges(cfg *Config, filter []string) ([]string, error) {
	if len(filter) == 0 {
		return cfg.Judges, nil
	}
	for _, name := range filter {
		if !slices.Contains(cfg.Judges, name) {
			return nil, fmt.Errorf("judge %q is not configured", name)
		}
	}
	var out []string
	for _, name := range cfg.Judges {
		if slices.Contains(filter, name) {
			out = append(out, name)
		}
	}
	return out, nil
}

func buildPasses(fs afero.Fs, cfg *Config, names []string) ([]syncer.Pass, error) {
	passes := make([]syncer.Pass, 0, len(names))
	for _, name := range names {
		j, err := judge.Build(cfg.JudgeType(name), cfg.Settings[name])
		if err != nil {
			return nil, fmt.Errorf("judge %s: %w", name, err)
		}
		passes = append(passes, syncer.Pass{
			Name:      name,
			Judge:     j,
			Workspace: store.NewWorkspace(fs, cfg.DataDir, name),
		})
	}
	return passes, nil
}

func runSync(ctx context.Context, cmd *cli.Command, fs afero.Fs) error {
	cfg, err := configFromCmd(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateVJudge(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	names, err := selectJudges(cfg, cmd.StringSlice("judge"))
	if err != nil {
		return err
	}
	passes, err := buildPasses(fs, cfg, names)
	if err != nil {
		return err
	}

	log := loggerFor(cmd, cfg)
	client, err := vjudge.NewClient(vjudge.Options{
		BaseURL:          cfg.VJudge.BaseURL,
		Cookie:           cfg.VJudge.Cookie,
		UserAgent:        cfg.VJudge.UserAgent,
		Proxy:            cfg.VJudge.Proxy,
		Timeout:          cfg.VJudge.Timeout,
		Rate:             cfg.VJudge.Rate,
		BreakerThreshold: cfg.VJudge.BreakerThreshold,
		BreakerTimeout:   cfg.VJudge.BreakerTimeout,
		Logger:           log,
	})
	if err != nil {
		return err
	}

	orch, err := syncer.New(passes, client, syncer.Options{SkipFetch: cmd.Bool("no-fetch")}, log)
	if err != nil {
		return err
	}
	reports := orch.Run(ctx)
	return printReports(cmd.Root().Writer, reports)
}

func printReports(out io.Writer, reports []syncer.Report) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Judge\tProblems\tPending\tResolved\tNo submission\tRejected\tFailed\tResult")
	for _, r := range reports {
		result := okText("ok")
		switch {
		case r.Err != nil:
			result = errText(r.Err.Error())
		case r.Failed > 0 || r.Rejected > 0:
			result = warnText("incomplete")
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
			r.Judge, r.Problems, r.Pending, r.Resolved, r.NoSubmission, r.Rejected, r.Failed, result)
	}
	return w.Flush()
}

func runStatus(cmd *cli.Command, fs afero.Fs) error {
	cfg, err := configFromCmd(cmd)
	if err != nil {
		return err
	}
	names, err := selectJudges(cfg, cmd.StringSlice("judge"))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Judge\tType\tProblems\tLedgered\tTerminal\tNon-terminal\tPending")
	for _, name := range names {
		st, err := syncer.Inspect(store.NewWorkspace(fs, cfg.DataDir, name))
		if err != nil {
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, cfg.JudgeType(name), errText(err.Error()))
			continue
		}
		pending := okText(st.Pending)
		if st.Pending > 0 {
			pending = warnText(st.Pending)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			name, cfg.JudgeType(name), st.Problems, st.Ledgered, st.Terminal, st.NonTerminal, pending)
	}
	return w.Flush()
}

func runPrune(cmd *cli.Command, fs afero.Fs) error {
	cfg, err := configFromCmd(cmd)
	if err != nil {
		return err
	}
	names, err := selectJudges(cfg, cmd.StringSlice("judge"))
	if err != nil {
		return err
	}

	opts := ledger.PruneOptions{
		DryRun: cmd.Bool("dry-run"),
		Backup: !cmd.Bool("no-backup"),
	}
	out := cmd.Root().Writer
	var failed []string
	for _, name := range names {
		ws := store.NewWorkspace(fs, cfg.DataDir, name)
		st, err := ledger.Prune(fs, ws.LedgerPath(), opts)
		if err != nil {
			fmt.Fprintf(out, "%s: %s\n", name, errText(err.Error()))
			failed = append(failed, name)
			continue
		}

		verb := "removed"
		if opts.DryRun {
			verb = "would remove"
		}
		fmt.Fprintf(out, "%s: kept %d, %s %s of %d entries\n",
			bold(name), st.Kept, verb, warnText(st.Removed), st.Total)
		if st.BackupPath != "" {
			fmt.Fprintf(out, "  backup: %s\n", st.BackupPath)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("prune failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func runJudges(cmd *cli.Command) error {
	w := tabwriter.NewWriter(cmd.Root().Writer, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tName\tSettings")
	for _, d := range judge.Defs() {
		var settings []string
		for _, s := range d.Settings {
			id := s.ID
			if s.Required {
				id += "*"
			}
			settings = append(settings, id)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.ID, d.Name, strings.Join(settings, ", "))
	}
	return w.Flush()
}
