package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-bridge/bindgen"
	"github.com/wippyai/wasm-bridge/internal/config"
	"github.com/wippyai/wasm-bridge/internal/logging"
	"github.com/wippyai/wasm-bridge/runtime"
)

func main() {
	var (
		wasmFile     = flag.String("wasm", "", "Path to module wasm file (.wasm, .wasm.gz or .wasm.zst)")
		manifestFile = flag.String("manifest", "", "Path to glue manifest (YAML, optional)")
		timeout      = flag.Duration("timeout", 0, "Abort the run after this long (overrides BRIDGE_RUN_TIMEOUT)")
		list         = flag.Bool("list", false, "List exported functions and exit")
	)
	flag.Parse()

	if *wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: run -wasm <file.wasm> [-manifest glue.yaml] [-timeout 30s]")
		fmt.Fprintln(os.Stderr, "       run -wasm <file.wasm> -list")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *timeout > 0 {
		cfg.RunTimeout = *timeout
	}

	if err := run(cfg, *wasmFile, *manifestFile, *list); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, wasmFile, manifestFile string, listOnly bool) error {
	ctx := context.Background()

	logger, err := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		Development: cfg.LogDev,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	runtime.SetLogger(logger)
	bindgen.SetLogger(logger)

	wasm, err := runtime.ReadModule(wasmFile)
	if err != nil {
		return err
	}

	manifest := runtime.DefaultManifest()
	if manifestFile != "" {
		if manifest, err = runtime.LoadManifest(manifestFile); err != nil {
			return err
		}
	}

	var reg *prometheus.Registry
	rtCfg := runtime.Config{
		Logger:           logger,
		MemoryLimitPages: cfg.MemoryLimitPages,
		Services:         bindgen.Services{Log: newSink(os.Stdout).Log},
	}
	if cfg.Metrics {
		reg = prometheus.NewRegistry()
		rtCfg.Registerer = reg
	}

	rt, err := runtime.New(ctx, rtCfg)
	if err != nil {
		return fmt.Errorf("create runtime: %w", err)
	}
	defer rt.Close(ctx)

	mod, err := rt.LoadModule(ctx, wasm, manifest)
	if err != nil {
		return err
	}

	if listOnly {
		fmt.Println(titleStyle.Render(wasmFile))
		for _, e := range mod.Exports() {
			fmt.Printf("  %s\n", funcStyle.Render(e.Name))
		}
		return nil
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		return err
	}
	defer inst.Close(ctx)

	runCtx := ctx
	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	err = inst.Run(runCtx)
	logger.Info("run finished",
		zap.String("instance", inst.ID()),
		zap.Duration("elapsed", time.Since(start)),
		zap.Bool("ok", err == nil))

	if reg != nil {
		printMetrics(reg)
	}
	return err
}

// printMetrics writes counter and gauge values to stderr.
func printMetrics(reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue() + m.GetGauge().GetValue()
			label := ""
			for _, lp := range m.GetLabel() {
				label += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
			}
			fmt.Fprintf(os.Stderr, "%s %s\n", helpStyle.Render(mf.GetName()+label), valueStyle.Render(fmt.Sprint(v)))
		}
	}
}
