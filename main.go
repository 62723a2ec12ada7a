package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/pflag"

	"github.com/rtm0/wrfxsect/internal/config"
	"github.com/rtm0/wrfxsect/internal/export"
	"github.com/rtm0/wrfxsect/internal/log"
	"github.com/rtm0/wrfxsect/internal/pipeline"
	"github.com/rtm0/wrfxsect/internal/vm"
	"github.com/rtm0/wrfxsect/internal/wrfout"
	"github.com/rtm0/wrfxsect/internal/xsect"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger, err := log.New(cfg.LogLevel, cfg.LogsDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Cross-section extraction failed", "err", err)
		logger.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	req, err := cfg.Request()
	if err != nil {
		return err
	}

	d, err := wrfout.Open(cfg.File)
	if err != nil {
		return fmt.Errorf("could not open WRF output: %w", err)
	}
	defer d.Close()
	logger.Info("WRF summary", d.Summary()...)

	if cfg.Output.Info {
		path, err := wrfout.WriteInfo(d)
		if err != nil {
			return fmt.Errorf("could not write dataset information: %w", err)
		}
		logger.Info("Dataset information written", "path", path)
	}

	acc, err := wrfout.NewAccessor(d)
	if err != nil {
		return err
	}
	projector := xsect.NewProjector(xsect.NewWarnOnce(logger.Logger))
	ex, err := pipeline.NewExtractor(logger.Logger, acc, projector)
	if err != nil {
		return err
	}
	plan, err := ex.Validate(req)
	if err != nil {
		return fmt.Errorf("invalid request: %w", err)
	}
	logger.Info("Request validated",
		"line", plan.Line().Len(),
		"levels", len(plan.Levels),
		"vertical", plan.Vertical,
		"frames", len(ex.Times()),
		"step", ex.Step())

	frames, err := ex.Run(ctx, plan, cfg.Concurrency)
	if err != nil {
		return err
	}

	loc := export.Zone(cfg.Output.Timezone, cfg.Output.UTCOffsetHours)
	for _, f := range frames {
		logger.Debug("Frame", "name", export.FrameName(f.Time, loc), "title", export.Title(f.Time, loc, plan.Start, plan.End))
	}

	meta := export.MetaOf(filepath.Base(cfg.File), plan)
	base := filepath.Join(cfg.Output.Dir, outputName(cfg.File, frames[0].Time, loc))
	if cfg.Output.NetCDF {
		path := base + export.NetCDFExt
		if err := export.WriteNetCDF(path, meta, frames); err != nil {
			return err
		}
		logger.Info("NetCDF written", "path", path)
	}
	if cfg.Output.Archive {
		path := base + export.ArchiveExt
		if err := export.WriteArchive(path, export.NewArchive(meta, frames, loc)); err != nil {
			return err
		}
		logger.Info("Archive written", "path", path)
	}

	if cfg.Push {
		return push(ctx, cfg, logger, vm.NewScanner(frames, meta.Points))
	}
	return nil
}

// outputName names the files of a run after the source file and its first
// frame.
func outputName(file string, first time.Time, loc *time.Location) string {
	stem := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	stem = strings.NewReplacer(":", "", " ", "_").Replace(stem)
	return stem + "_xsect_" + export.FrameName(first, loc)
}

// push inserts every cross-section cell into Victoria Metrics with
// cfg.Concurrency workers.
func push(ctx context.Context, cfg *config.Config, logger *log.Logger, s *vm.Scanner) error {
	vmCli, err := vm.NewClient(logger.Logger, cfg.VMInsertURL, cfg.Concurrency, cfg.MetricPrefix)
	if err != nil {
		return fmt.Errorf("could not create new VM client: %w", err)
	}

	recsCh := make(chan []vm.Record)
	progressCh := make(chan int)
	var wg sync.WaitGroup
	for range cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for recs := range recsCh {
				n := len(recs)
				for begin := 0; begin < n; begin += cfg.RecsPerInsert {
					limit := min(begin+cfg.RecsPerInsert, n)
					if err := vmCli.Insert(ctx, recs[begin:limit]); err != nil {
						logger.Error("Could not insert records", "err", err)
					}
				}
				progressCh <- n
			}
		}()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		var inserted, total float64
		total = float64(s.TotalRecCount())
		start := time.Now()
		for n := range progressCh {
			inserted += float64(n)
			percent := fmt.Sprintf("%.2f%%", 100*inserted/total)
			duration := time.Since(start).Round(1 * time.Second)
			logger.Info("progress", "inserted", percent, "in", duration)
		}
	}()
	for s.Scan() {
		select {
		case recsCh <- s.Records():
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(recsCh)
	wg.Wait()
	close(progressCh)
	<-done
	return ctx.Err()
}
