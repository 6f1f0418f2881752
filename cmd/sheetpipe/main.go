package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"sheetpipe/internal/config"
	"sheetpipe/internal/configstore"
	"sheetpipe/internal/engine"
	"sheetpipe/internal/expreval"
	"sheetpipe/internal/history"
	"sheetpipe/internal/history/pghist"
	"sheetpipe/internal/history/sqlitehist"
	"sheetpipe/internal/logging"
	"sheetpipe/internal/metrics"
	"sheetpipe/internal/metrics/prompush"
	"sheetpipe/internal/store"
	"sheetpipe/internal/webui"
	"sheetpipe/internal/workbook"
	"sheetpipe/pkg/rows"
)

// batchFile is the JSON batch input shape: the data map the engine consumes
// plus an optional message the msg scope binds to.
type batchFile struct {
	Msg  map[string]any `json:"msg"`
	Data rows.Book      `json:"data"`
}

// main is the entry point for the sheetpipe binary. It loads the pipeline
// document, optionally initializes a metrics backend and run history, and
// either processes one batch or serves the admin API with config hot
// reload.
func main() {
	var (
		configRoot        string
		configName        string
		inputFlg          string
		outFlg            string
		serveAddr         string
		validate          bool
		metricsBackendFlg string
		pushGatewayURLFlg string
		historyFlg        string
		logLevel          string
		logFormat         string
	)

	flag.StringVar(&configRoot, "config-root", "configs", "directory holding pipeline documents")
	flag.StringVar(&configName, "config", "pipeline.json", "pipeline document name within -config-root")
	flag.StringVar(&inputFlg, "input", "", "input batch: comma-separated .xlsx paths, or one .json batch file")
	flag.StringVar(&outFlg, "out", "-", "output path for the result JSON, or - for stdout")
	flag.StringVar(&serveAddr, "serve", "", "serve the admin API on this address and re-run on config changes")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "none", "metrics backend to use (pushgateway, none)")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&historyFlg, "history", "", "run history store: sqlite:<dsn>, postgres:<dsn>, or empty for none")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flag.Parse()

	// .env is optional; dev convenience only.
	_ = godotenv.Load()
	logging.Setup(logLevel, logFormat)
	log := slog.Default()

	ctx := context.Background()

	cfgStore, err := configstore.New(configRoot)
	if err != nil {
		fatalf("config store: %v", err)
	}
	cfg, err := cfgStore.Load(configName)
	if err != nil {
		if !validate && errors.Is(err, os.ErrNotExist) {
			log.Warn("no pipeline document found, using defaults", "doc", configName)
			cfg = config.Default()
		} else {
			fatalf("load config: %v", err)
		}
	}

	issues := config.Validate(cfg)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Error("configuration is invalid", "doc", configName)
		os.Exit(1)
	}
	if validate {
		log.Info("configuration is valid", "doc", configName)
		os.Exit(0)
	}

	// Decide metrics backend: flag → env → default.
	switch metricsBackendFlg {
	case "pushgateway":
		gwURL := pushGatewayURLFlg
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err := prompush.NewBackend(cfg.Job, gwURL)
		if err != nil {
			fatalf("metrics backend: %v", err)
		}
		metrics.SetBackend(b)
	case "none", "":
	default:
		fatalf("unknown metrics backend %q", metricsBackendFlg)
	}
	defer func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", "err", err)
		}
	}()

	hist, closeHist := openHistory(ctx, historyFlg)
	defer closeHist()

	ctxStore := store.New()
	eng := engine.New(expreval.New(), ctxStore, log)

	if serveAddr == "" && inputFlg == "" {
		fatalf("nothing to do: provide -input, -serve, or -validate")
	}

	var in *engine.Input
	if inputFlg != "" {
		batch, err := loadInput(ctx, inputFlg)
		if err != nil {
			fatalf("load input: %v", err)
		}
		in = batch
	}

	runOnce := func(cfg config.Pipeline) (history.Run, error) {
		started := time.Now()
		res, err := eng.Run(ctx, cfg, *in)
		if err != nil {
			return history.Run{}, err
		}
		run := history.Run{
			ID:  uuid.NewString(),
			Job: cfg.Job,
			At:  started,
		}
		if res.Summary != nil {
			run.FileCount = res.Summary.FileCount
			run.SheetCount = res.Summary.SheetCount
			run.RowIn = res.Summary.RowIn
			run.RowOut = res.Summary.RowOut
		}
		if err := hist.Record(ctx, run); err != nil {
			log.Warn("run history write failed", "run", run.ID, "err", err)
		}
		if err := writeResult(outFlg, res); err != nil {
			return run, err
		}
		return run, nil
	}

	if serveAddr == "" {
		if _, err := runOnce(cfg); err != nil {
			fatalf("run: %v", err)
		}
		return
	}

	srv := webui.New(webui.Config{Addr: serveAddr}, cfgStore, hist)
	if in != nil {
		run, err := runOnce(cfg)
		if err != nil {
			fatalf("run: %v", err)
		}
		srv.SetLastRun(run)
	}

	// Hot reload: cached config refreshed out-of-band; each change re-runs
	// the batch (when one was given) under the new configuration.
	updates, err := cfgStore.Watch(ctx, configName, configstore.DefaultDebounce, log)
	if err != nil {
		fatalf("config watch: %v", err)
	}
	go func() {
		for next := range updates {
			if iss := config.Validate(next); config.HasErrors(iss) {
				log.Warn("reloaded configuration is invalid, keeping previous", "doc", configName)
				continue
			}
			if in == nil {
				continue
			}
			run, err := runOnce(next)
			if err != nil {
				log.Error("re-run failed", "err", err)
				continue
			}
			srv.SetLastRun(run)
		}
	}()

	log.Info("admin API listening", "addr", serveAddr, "configRoot", cfgStore.Root())
	if err := srv.ListenAndServe(); err != nil {
		fatalf("serve: %v", err)
	}
}

// loadInput builds an engine input from either a JSON batch file or a list
// of workbook paths.
func loadInput(ctx context.Context, spec string) (*engine.Input, error) {
	if strings.HasSuffix(strings.ToLower(spec), ".json") {
		raw, err := os.ReadFile(spec)
		if err != nil {
			return nil, err
		}
		var b batchFile
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, fmt.Errorf("decode %s: %w", spec, err)
		}
		in := &engine.Input{Msg: b.Msg, Data: b.Data}
		if in.Msg == nil {
			in.Msg = map[string]any{}
		}
		return in, nil
	}

	paths := strings.Split(spec, ",")
	for i := range paths {
		paths[i] = strings.TrimSpace(paths[i])
	}
	book, err := workbook.Load(ctx, paths)
	if err != nil {
		return nil, err
	}
	return &engine.Input{Data: book, Msg: map[string]any{}}, nil
}

func writeResult(out string, res *engine.Result) error {
	raw, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')
	if out == "-" || out == "" {
		_, err = os.Stdout.Write(raw)
		return err
	}
	return os.WriteFile(out, raw, 0o644)
}

func openHistory(ctx context.Context, spec string) (history.Repository, func()) {
	if spec == "" {
		return history.Nop{}, func() {}
	}
	kind, dsn, ok := strings.Cut(spec, ":")
	if !ok {
		fatalf("invalid -history %q: want sqlite:<dsn> or postgres:<dsn>", spec)
	}
	switch kind {
	case "sqlite":
		repo, closeFn, err := sqlitehist.New(ctx, dsn)
		if err != nil {
			fatalf("history: %v", err)
		}
		return repo, closeFn
	case "postgres":
		repo, closeFn, err := pghist.New(ctx, dsn)
		if err != nil {
			fatalf("history: %v", err)
		}
		return repo, closeFn
	default:
		fatalf("unknown history store %q", kind)
		return nil, nil
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sheetpipe: "+format+"\n", args...)
	os.Exit(1)
}
