// Package main is the command-line front end for the price database.
//
// Usage:
//
//	report [-config file] <command> [flags]
//
// Commands: print, chart, info, add, edit, remove, update.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"regexp"
	"strings"
	"time"

	"fuel-price-lab/internal/aggregate"
	"fuel-price-lab/internal/calendar"
	"fuel-price-lab/internal/config"
	"fuel-price-lab/internal/domain"
	"fuel-price-lab/internal/ingestion"
	"fuel-price-lab/internal/observability"
	"fuel-price-lab/internal/reporting"
	"fuel-price-lab/internal/resample"
	"fuel-price-lab/internal/stations"
	"fuel-price-lab/internal/storage/stores"
)

// env bundles what every command needs.
type env struct {
	cfg    *config.Config
	cal    calendar.Calendar
	repo   *stations.Repository
	out    io.Writer
	logger *log.Logger
}

type command func(ctx context.Context, e *env, args []string) error

var commands = map[string]command{
	"print":  runPrint,
	"chart":  runChart,
	"info":   runInfo,
	"add":    runAdd,
	"remove": runRemove,
	"edit":   runEdit,
	"update": runUpdate,
}

func main() {
	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)
	config.LoadEnv(logger)

	configPath := flag.String("config", os.Getenv("FUEL_CONFIG"), "YAML config file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", flag.Arg(0))
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	loc, err := cfg.TimeLocation()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	st, cleanup, err := stores.Open(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}

	e := &env{
		cfg: cfg,
		cal: calendar.New(loc),
		repo: stations.New(stations.Options{
			Stations:  st.Stations,
			Prices:    st.Prices,
			History:   st.History,
			BatchSize: cfg.Storage.BatchSize,
			Logger:    logger,
		}),
		out:    os.Stdout,
		logger: logger,
	}

	err = cmd(ctx, e, flag.Args()[1:])
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: report [-config file] <command> [flags]

Commands:
  print   -id N | -name NAME [-begin T] [-end T]   print a station's price table
  chart   -station REF | -fuel FUEL [-transform raw|trend|average]
          [-mode day|week|monday..sunday] [-pattern RE] [-format csv|markdown]
  info                                             database summary
  add     -name NAME [-url URL] [-address ADDR] [-color #rrggbb]
  edit    -id N | -name NAME [-url URL] [-address ADDR] [-color #rrggbb]
  remove  -id N | -name NAME
  update                                           run one ingestion cycle

Times are epoch milliseconds or "2006-01-02 15:04:05" in the configured location.`)
}

// window parses optional begin/end flags. Zero means unbounded.
func (e *env) window(begin, end string) (int64, int64, error) {
	var b, en int64
	var err error
	if begin != "" {
		if b, err = e.cal.ParseTime(begin); err != nil {
			return 0, 0, fmt.Errorf("begin: %w", err)
		}
	}
	if end != "" {
		if en, err = e.cal.ParseTime(end); err != nil {
			return 0, 0, fmt.Errorf("end: %w", err)
		}
	}
	if b != 0 && en != 0 && b > en {
		return 0, 0, errors.New("begin is after end")
	}
	return b, en, nil
}

// loadRange maps unbounded window ends to the full key range.
func loadRange(begin, end int64) (int64, int64) {
	if begin == 0 {
		begin = math.MinInt64
	}
	if end == 0 {
		end = math.MaxInt64
	}
	return begin, end
}

// station resolves -id or -name. Names fall back to the most similar station.
func (e *env) station(ctx context.Context, id int64, name string, begin, end int64) (*domain.Station, error) {
	switch {
	case id != 0 && name != "":
		return nil, errors.New("-id and -name are mutually exclusive")
	case id != 0:
		return e.repo.ByID(ctx, id, begin, end)
	case name != "":
		return e.repo.Lookup(ctx, name, begin, end)
	}
	return nil, errors.New("one of -id or -name is required")
}

func runPrint(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	id := fs.Int64("id", 0, "station id")
	name := fs.String("name", "", "station name")
	begin := fs.String("begin", "", "window start")
	end := fs.String("end", "", "window end")
	if err := fs.Parse(args); err != nil {
		return err
	}

	b, en, err := e.window(*begin, *end)
	if err != nil {
		return err
	}
	lb, le := loadRange(b, en)
	st, err := e.station(ctx, *id, *name, lb, le)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "%s (#%d)\n", st.Name, st.ID)
	if st.Address != "" {
		fmt.Fprintln(e.out, st.Address)
	}
	fmt.Fprintln(e.out)
	fmt.Fprint(e.out, reporting.RenderPriceTable(st, e.cal.Location()))
	return nil
}

func runChart(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("chart", flag.ContinueOnError)
	ref := fs.String("station", "", "station id or name")
	fuelArg := fs.String("fuel", "", "fuel type")
	transformArg := fs.String("transform", "raw", "raw, trend or average")
	modeArg := fs.String("mode", "day", "averaging mode")
	patternArg := fs.String("pattern", "", "regular expression over trace names")
	format := fs.String("format", "markdown", "csv or markdown")
	begin := fs.String("begin", "", "window start")
	end := fs.String("end", "", "window end")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*ref == "") == (*fuelArg == "") {
		return errors.New("exactly one of -station or -fuel is required")
	}

	transform, err := domain.ParseTransform(*transformArg)
	if err != nil {
		return err
	}
	req := aggregate.Request{Transform: transform}
	if transform == domain.TransformAverage {
		if req.Mode, err = domain.ParseAverageMode(*modeArg); err != nil {
			return err
		}
	}
	if *patternArg != "" {
		if req.Pattern, err = regexp.Compile(*patternArg); err != nil {
			return fmt.Errorf("invalid pattern: %w", err)
		}
	}
	if req.Begin, req.End, err = e.window(*begin, *end); err != nil {
		return err
	}

	agg := aggregate.New(aggregate.Options{
		Resampler: resample.New(e.cal.Location(), resample.WithStepsPerHour(e.cfg.Resample.StepsPerHour)),
		Logger:    e.logger,
	})

	lb, le := loadRange(req.Begin, req.End)
	var res *aggregate.Result
	if *ref != "" {
		st, err := e.repo.Lookup(ctx, *ref, lb, le)
		if err != nil {
			return err
		}
		res, err = agg.ForStation(ctx, st, req)
		if err != nil {
			return err
		}
	} else {
		fuel, err := domain.ParseFuelType(*fuelArg)
		if err != nil {
			return err
		}
		sts, err := e.repo.ByFuel(ctx, fuel, lb, le)
		if err != nil {
			return err
		}
		res, err = agg.ForFuel(ctx, fuel, sts, req)
		if err != nil {
			return err
		}
	}

	switch strings.ToLower(*format) {
	case "csv":
		return reporting.WriteTracesCSV(e.out, res, e.cal.Location())
	case "markdown", "md":
		_, err := fmt.Fprint(e.out, reporting.RenderChartMarkdown(res, e.cal.Location()))
		return err
	}
	return fmt.Errorf("unknown format %q", *format)
}

func runInfo(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	begin := fs.String("begin", "", "window start")
	end := fs.String("end", "", "window end")
	if err := fs.Parse(args); err != nil {
		return err
	}
	b, en, err := e.window(*begin, *end)
	if err != nil {
		return err
	}
	lb, le := loadRange(b, en)

	summary, err := reporting.NewGenerator(e.repo, e.cal.Location()).Generate(ctx, lb, le)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(e.out, reporting.RenderMarkdown(summary))
	return err
}

func runAdd(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	name := fs.String("name", "", "station name")
	url := fs.String("url", "", "vendor page")
	address := fs.String("address", "", "street address")
	colorArg := fs.String("color", "#808080", "display color")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return errors.New("-name is required")
	}
	color, err := domain.ParseColor(*colorArg)
	if err != nil {
		return err
	}

	st := domain.NewStation(0, strings.TrimSpace(*name), *url, *address, color)
	if err := e.repo.Add(ctx, st); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Added %s (#%d)\n", st.Name, st.ID)
	return nil
}

func runEdit(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	id := fs.Int64("id", 0, "station id")
	name := fs.String("name", "", "exact station name")
	url := fs.String("url", "", "new vendor page")
	address := fs.String("address", "", "new street address")
	colorArg := fs.String("color", "", "new display color")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var (
		st  *domain.Station
		err error
	)
	switch {
	case *id != 0 && *name != "":
		return errors.New("-id and -name are mutually exclusive")
	case *id != 0:
		st, err = e.repo.ByID(ctx, *id, 0, 0)
	case *name != "":
		st, err = e.repo.ByName(ctx, *name, 0, 0)
	default:
		return errors.New("one of -id or -name is required")
	}
	if err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["url"] {
		st.URL = *url
	}
	if set["address"] {
		st.Address = *address
	}
	if set["color"] {
		if st.Color, err = domain.ParseColor(*colorArg); err != nil {
			return err
		}
	}

	if err := e.repo.Update(ctx, st); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Updated %s (#%d)\n", st.Name, st.ID)
	return nil
}

func runRemove(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	id := fs.Int64("id", 0, "station id")
	name := fs.String("name", "", "exact station name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	target := *id
	if *name != "" {
		if target != 0 {
			return errors.New("-id and -name are mutually exclusive")
		}
		// Exact match only: never delete a fuzzy guess.
		st, err := e.repo.ByName(ctx, *name, 0, 0)
		if err != nil {
			return err
		}
		target = st.ID
	}
	if target == 0 {
		return errors.New("one of -id or -name is required")
	}

	if err := e.repo.Remove(ctx, target); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Removed station #%d\n", target)
	return nil
}

func runUpdate(ctx context.Context, e *env, args []string) error {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	timeout := fs.Duration("timeout", 5*time.Minute, "cycle timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var source ingestion.Source
	switch e.cfg.Ingestion.Source {
	case config.SourceHTTP:
		opts := []ingestion.HTTPOption{ingestion.WithLogger(e.logger)}
		if e.cfg.Ingestion.UserAgent != "" {
			opts = append(opts, ingestion.WithUserAgent(e.cfg.Ingestion.UserAgent))
		}
		source = ingestion.NewHTTPSource(opts...)
	case config.SourceStatic:
		source = ingestion.NewStaticSource()
	default:
		return fmt.Errorf("source %q needs a running server", e.cfg.Ingestion.Source)
	}

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Repository:  e.repo,
		Source:      source,
		Metrics:     observability.DefaultMetrics,
		Concurrency: e.cfg.Ingestion.Concurrency,
		Logger:      e.logger,
	})

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cycle, err := runner.RunOnce(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Fetched %d stations, stored %d observations, %d failed\n",
		cycle.Stations, cycle.Observations, len(cycle.Failed))
	return nil
}
