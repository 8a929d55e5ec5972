package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"faucetui/pkg/api"
	"faucetui/pkg/config"
	"faucetui/pkg/cooldown"
	"faucetui/pkg/faucet"
	"faucetui/pkg/logging"
	"faucetui/pkg/models"
	"faucetui/pkg/query"
	"faucetui/pkg/server"
	"faucetui/pkg/tui"
	"faucetui/pkg/utils"
	"faucetui/pkg/watcher"

	"github.com/benbjohnson/clock"
	"github.com/cockroachdb/errors"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	testFlag := flag.BoolP("test", "t", false, "Test configuration and service reachability")
	jsonFlag := flag.Bool("json", false, "Output results in JSON format (for --test and --request)")
	configFlag := flag.String("config", "", "Path to configuration file")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	serverFlag := flag.Bool("server", false, "Run in server mode (headless)")
	portFlag := flag.Int("port", 8080, "Port for the HTTP server")
	requestFlag := flag.String("request", "", "Request tokens for ADDRESS and exit")
	chainFlag := flag.String("chain", string(models.ChainSui), "Chain for --request (sui or solana)")
	networkFlag := flag.String("network", "", "Network for --request (defaults to the chain's default)")
	amountFlag := flag.String("amount", "", "Amount for --request (defaults to the chain's default)")
	initFlag := flag.Bool("init", false, "Write the default configuration and exit")
	restoreFlag := flag.Bool("restore", false, "Restore the most recent configuration backup and exit")
	waitFlag := flag.Bool("wait", false, "After a granted --request, count down the cooldown before exiting")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("faucetui version %s\n", Version)
		os.Exit(0)
	}

	if err := config.LoadEnv(); err != nil {
		fmt.Printf("Error loading .env: %v\n", err)
		os.Exit(1)
	}

	cfgInput := *configFlag
	if cfgInput == "" && flag.NArg() > 0 {
		cfgInput = flag.Arg(0)
	}
	path, err := config.GetConfigPath(cfgInput)
	if err != nil {
		fmt.Printf("Error resolving config path: %v\n", err)
		os.Exit(1)
	}

	if *initFlag {
		if err := config.SaveConfig(config.Default(), path); err != nil {
			fmt.Printf("Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", path)
		os.Exit(0)
	}

	if *restoreFlag {
		if err := config.RestoreLastBackup(path); err != nil {
			fmt.Printf("Failed to restore config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Configuration restored from the latest backup of %s\n", path)
		os.Exit(0)
	}

	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		fmt.Printf("Error applying environment: %v\n", err)
		os.Exit(1)
	}

	// The TUI owns the terminal, so it logs to a file.
	interactive := !*testFlag && !*serverFlag && *requestFlag == ""
	logPath := ""
	if interactive {
		logPath = cfg.Global.LogFile
		if logPath == "" {
			if logPath, err = logging.DefaultLogPath(); err != nil {
				fmt.Printf("Error resolving log path: %v\n", err)
				os.Exit(1)
			}
		}
	}
	log, err := logging.New(cfg.Global.LogLevel, logPath)
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	apiClient := api.NewClient(cfg.Global, cfg.Chains, log)
	queries, err := query.NewClient(apiClient, time.Duration(cfg.Global.CacheTTLSeconds)*time.Second, log)
	if err != nil {
		log.Fatal("failed to create query client", zap.Error(err))
	}
	defer func() { _ = queries.Close() }()

	if *testFlag {
		report := runTest(context.Background(), cfg, path, queries, os.Stdout, *jsonFlag)
		if !report.ValidStructure || !report.Reachable {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if *requestFlag != "" {
		req := requestOptions{
			Chain:   models.Chain(*chainFlag),
			Network: models.Network(*networkFlag),
			Amount:  *amountFlag,
			Address: *requestFlag,
			JSON:    *jsonFlag,
			Wait:    *waitFlag,
		}
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ok, err := runRequest(ctx, cfg, req, apiClient, queries, os.Stdout, log)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if !ok {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if len(cfg.Chains) == 0 {
		fmt.Println("Error: No chains found in configuration.")
		fmt.Printf("Run with --init to write a default config to %s.\n", path)
		os.Exit(1)
	}

	if *serverFlag {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w := watcher.NewWatcher(cfg.Chains, cfg.Global, queries, log)
		w.Start(ctx)
		defer w.Stop()

		fmt.Printf("Running in server mode on port %d...\n", *portFlag)
		srv := server.NewServer(w, Version, log)
		if err := srv.Start(ctx, *portFlag); err != nil {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
		return
	}

	deps := tui.Deps{Service: apiClient, Queries: queries, Log: log}
	if err := tui.Start(cfg, deps, Version); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// runTest checks the structure of cfg and fetches analytics for every
// chain/network pair, printing a text report or JSON to out.
func runTest(ctx context.Context, cfg config.Config, path string, queries *query.Client, out io.Writer, asJSON bool) models.TestReport {
	report := models.TestReport{
		ConfigPath: path,
		APIURL:     cfg.Global.APIURL,
		ChainCount: len(cfg.Chains),
	}

	if !asJSON {
		_, _ = fmt.Fprintf(out, "Testing configuration at %s\n", path)
		_, _ = fmt.Fprintf(out, "Service: %s\n", cfg.Global.APIURL)
	}

	report.StructureErrors = config.Validate(cfg)
	report.ValidStructure = len(report.StructureErrors) == 0
	if !asJSON {
		if report.ValidStructure {
			_, _ = fmt.Fprintln(out, "Structure: OK")
		} else {
			_, _ = fmt.Fprintln(out, "Structure: INVALID")
			for _, p := range report.StructureErrors {
				_, _ = fmt.Fprintf(out, " - %s\n", p)
			}
		}
	}

	report.Reachable = true
	for _, t := range watcher.Targets(cfg.Chains) {
		res := models.EndpointResult{Chain: t.Chain, Network: t.Network}
		if !asJSON {
			_, _ = fmt.Fprintf(out, "  Checking %s... ", t)
		}

		start := time.Now()
		reqCtx, cancel := context.WithTimeout(ctx, cfg.Global.Timeout())
		a, err := queries.Analytics(reqCtx, t.Chain, t.Network)
		cancel()
		res.LatencyMs = time.Since(start).Milliseconds()

		if err != nil {
			res.Status = "error"
			res.Error = err.Error()
			report.Reachable = false
			if !asJSON {
				_, _ = fmt.Fprintf(out, "FAILED (%v)\n", err)
			}
		} else {
			res.Status = "ok"
			if !asJSON {
				_, _ = fmt.Fprintf(out, "OK (%dms, %s requests)\n", res.LatencyMs, utils.AddCommas(fmt.Sprint(a.TotalRequests)))
			}
		}
		report.Endpoints = append(report.Endpoints, res)
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
	}
	return report
}

type requestOptions struct {
	Chain   models.Chain
	Network models.Network
	Amount  string
	Address string
	JSON    bool
	Wait    bool
	Clock   clock.Clock
}

type requestResult struct {
	Chain   models.Chain   `json:"chain"`
	Network models.Network `json:"network,omitempty"`
	Address string         `json:"address"`
	Amount  string         `json:"amount"`
	Success bool           `json:"success"`
	TxHash  string         `json:"tx_hash,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// runRequest submits one airdrop request. It reports whether tokens were
// granted; a non-nil error means the options could not be applied.
func runRequest(ctx context.Context, cfg config.Config, opts requestOptions, service faucet.Service, refresher faucet.Refresher, out io.Writer, log *zap.Logger) (bool, error) {
	chainCfg, ok := cfg.Chain(opts.Chain)
	if !ok {
		return false, errors.Newf("chain %q is not configured", opts.Chain)
	}
	profile, err := faucet.NewProfile(chainCfg)
	if err != nil {
		return false, err
	}

	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	m := faucet.NewMachine(profile, opts.Clock)
	if opts.Network != "" {
		if _, err := m.SelectNetwork(opts.Network); err != nil {
			return false, err
		}
	}
	if opts.Amount != "" {
		if err := m.SelectAmount(opts.Amount); err != nil {
			return false, err
		}
	}
	m.SetAddress(opts.Address)

	reqCtx, cancel := context.WithTimeout(ctx, cfg.Global.Timeout())
	defer cancel()
	st, submitErr := faucet.NewOrchestrator(m, service, refresher, log).Submit(reqCtx)

	res := requestResult{
		Chain:   profile.Chain,
		Network: m.RequestNetwork(),
		Address: opts.Address,
		Amount:  st.Amount,
		Success: st.Success,
		Error:   st.Error,
	}
	if st.Receipt != nil {
		res.TxHash = st.Receipt.TxHash
	}
	if submitErr != nil && res.Error == "" {
		res.Error = submitErr.Error()
	}

	if opts.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		_ = enc.Encode(res)
		return res.Success, nil
	}

	if res.Success && st.Receipt != nil {
		msg := fmt.Sprintf("Successfully sent %s %s to %s", utils.FormatAmount(st.Receipt.Amount), profile.Symbol, res.Address)
		if profile.MultiNetwork() {
			msg += " on " + profile.NetworkName(res.Network)
		}
		_, _ = fmt.Fprintln(out, msg)
		if res.TxHash != "" {
			_, _ = fmt.Fprintf(out, "Transaction: %s\n", res.TxHash)
		}
		if opts.Wait {
			waitCooldown(ctx, opts.Clock, profile.Cooldown(), out)
		}
	} else {
		_, _ = fmt.Fprintf(out, "Request failed: %s\n", res.Error)
	}
	return res.Success, nil
}

// waitCooldown prints the remaining cooldown once a second until it expires
// or ctx is cancelled.
func waitCooldown(ctx context.Context, c clock.Clock, d time.Duration, out io.Writer) {
	r := cooldown.NewRunner(c, func(remaining int) {
		_, _ = fmt.Fprintf(out, "\rNext request in %-12s", cooldown.Format(remaining))
	})
	r.Start(ctx, d)
	done := r.Done()
	if done == nil {
		return
	}
	select {
	case <-done:
		_, _ = fmt.Fprintln(out, "\rCooldown finished.         ")
	case <-ctx.Done():
		r.Stop()
		_, _ = fmt.Fprintln(out)
	}
}
