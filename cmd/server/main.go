package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	clobclient "github.com/polyterm/polyterm/clob/client"
	clobtypes "github.com/polyterm/polyterm/clob/types"
	"github.com/polyterm/polyterm/internal/api"
	"github.com/polyterm/polyterm/internal/chain"
	"github.com/polyterm/polyterm/internal/credstore"
	"github.com/polyterm/polyterm/internal/feepolicy"
	"github.com/polyterm/polyterm/internal/ledger"
	"github.com/polyterm/polyterm/internal/trading"
	"github.com/polyterm/polyterm/internal/vault"
	"github.com/polyterm/polyterm/internal/wallets"
	"github.com/polyterm/polyterm/pkg/config"
	"github.com/polyterm/polyterm/pkg/logger"
)

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("POLYTERM_CONFIG"), "YAML config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	}); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	mainLog := logger.WithComponent("server")

	v, err := vault.New(cfg.MasterSecret)
	if err != nil {
		log.Fatalf("init vault failed: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		log.Fatalf("mkdir db dir failed: %v", err)
	}
	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		log.Fatalf("open sqlite failed: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1) // SQLite: single connection is the stable mode
	db.SetMaxIdleConns(1)

	walletStore, err := wallets.NewStore(db)
	if err != nil {
		log.Fatalf("init wallet store failed: %v", err)
	}
	feeLedger, err := ledger.NewStore(db)
	if err != nil {
		log.Fatalf("init fee ledger failed: %v", err)
	}

	creds, err := credstore.Open(credstore.OpenOptions{
		Path:          cfg.CredStorePath,
		EncryptionKey: cfg.CredStoreKey,
	})
	if err != nil {
		log.Fatalf("open credstore failed: %v", err)
	}
	defer creds.Close()

	chainID := clobtypes.Chain(cfg.ChainID)
	clob := clobclient.NewClient(cfg.ClobHost, chainID)

	chainClient, err := chain.Dial(cfg.RPCURL, chainID)
	if err != nil {
		log.Fatalf("dial chain rpc failed: %v", err)
	}

	feeRate := decimal.Zero
	if cfg.FeeRate != "" {
		feeRate, err = decimal.NewFromString(cfg.FeeRate)
		if err != nil {
			log.Fatalf("bad fee rate %q: %v", cfg.FeeRate, err)
		}
	}
	policy := feepolicy.New(feeRate, cfg.FeeWallet)

	provisioner := wallets.NewProvisioner(walletStore, v, cfg.Mnemonic)

	signer, err := trading.NewSigner(walletStore, v, clob, chainID, logger.WithComponent("signer"))
	if err != nil {
		log.Fatalf("init signer failed: %v", err)
	}
	submitter := trading.NewSubmitter(clob, chainClient, policy, logger.WithComponent("submitter"))
	collector := trading.NewCollector(walletStore, v, chainClient, chainClient, feeLedger, policy, logger.WithComponent("collector"))

	srv := api.New(walletStore, provisioner, signer, submitter, collector, creds, feeLedger, logger.WithComponent("api"))

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		mainLog.Infof("listening on %s (chain %d, fees enabled: %v)", cfg.ListenAddr, cfg.ChainID, policy.Enabled())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			mainLog.WithError(err).Error("http server error")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)

	fmt.Println("server stopped")
}
