// Command findashctl triggers cache warmups, inspects the job queue and
// exports report pages to xlsx from the command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/plugtech/findash/cmd/findashctl/cli"
	"github.com/plugtech/findash/internal/app"
	"github.com/plugtech/findash/internal/query"
)

const usage = `usage: findashctl <command> [flags]

commands:
  warmup     enqueue a cache warmup (-year)
  queue      show default queue stats (-json)
  scheduled  list scheduled tasks (-n)
  export     render a page to xlsx (-page -year -month -from -to -company -o)
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "load config: %v\n", err)
		return 1
	}

	switch args[0] {
	case "warmup", "queue", "scheduled":
		return runJobs(ctx, cfg, args[0], args[1:], stdout, stderr)
	case "export":
		return runExport(ctx, cfg, args[1:], stderr)
	default:
		fmt.Fprint(stderr, usage)
		return 2
	}
}

func runJobs(ctx context.Context, cfg *app.Config, cmd string, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	year := fs.Int("year", 0, "year to warm (default current)")
	asJSON := fs.Bool("json", false, "print JSON")
	size := fs.Int("n", 10, "number of scheduled tasks")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if cfg.RedisAddr == "" {
		fmt.Fprintln(stderr, "REDIS_ADDR is required")
		return 1
	}
	jobsCLI := cli.NewJobsCLI(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer jobsCLI.Close()

	switch cmd {
	case "warmup":
		info, err := jobsCLI.Warmup(ctx, *year)
		if err != nil {
			fmt.Fprintf(stderr, "enqueue warmup: %v\n", err)
			return 1
		}
		fmt.Fprintf(stdout, "enqueued %s (%s)\n", info.ID, info.Queue)
	case "queue":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(stderr, "inspect queue: %v\n", err)
			return 1
		}
		if err := cli.PrintStats(stdout, stats, *asJSON); err != nil {
			return 1
		}
	case "scheduled":
		tasks, err := jobsCLI.ListScheduled(ctx, *size)
		if err != nil {
			fmt.Fprintf(stderr, "list scheduled: %v\n", err)
			return 1
		}
		if err := cli.PrintScheduled(stdout, tasks); err != nil {
			return 1
		}
	}
	return 0
}

func runExport(ctx context.Context, cfg *app.Config, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	page := fs.String("page", "overview", "cashflow|delinquency|overview|receivables|payables")
	year := fs.Int("year", 0, "year")
	month := fs.Int("month", 0, "month")
	from := fs.String("from", "", "window start YYYY-MM-DD")
	to := fs.String("to", "", "window end YYYY-MM-DD")
	companies := fs.String("company", "", "comma separated company names")
	out := fs.String("o", "", "output file (default <page>.xlsx)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	loc, err := cfg.Location()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	sel := query.Selection{Year: *year, Month: *month}
	for _, name := range strings.Split(*companies, ",") {
		if name = strings.TrimSpace(name); name != "" {
			sel.Companies = append(sel.Companies, name)
		}
	}
	if sel.From, err = parseDay(*from, loc); err != nil {
		fmt.Fprintf(stderr, "from: %v\n", err)
		return 2
	}
	if sel.To, err = parseDay(*to, loc); err != nil {
		fmt.Fprintf(stderr, "to: %v\n", err)
		return 2
	}

	reports, err := app.BuildReports(ctx, cfg, app.ReportsDeps{})
	if err != nil {
		fmt.Fprintf(stderr, "build reports: %v\n", err)
		return 1
	}
	defer reports.Close()

	path := *out
	if path == "" {
		path = *page + ".xlsx"
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer f.Close()

	failed, err := cli.Export(ctx, reports.Service, cli.ExportOptions{Page: *page, Selection: sel, Out: f})
	if err != nil {
		fmt.Fprintf(stderr, "export: %v\n", err)
		return 1
	}
	if len(failed) > 0 {
		fmt.Fprintf(stderr, "warning: sections failed: %s\n", strings.Join(failed, ", "))
	}
	return 0
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}
