package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/awnumar/memguard"
	"go.uber.org/zap"

	"github.com/fahmaliyi/otpguard/cli"
	"github.com/fahmaliyi/otpguard/config"
	"github.com/fahmaliyi/otpguard/logger"
	"github.com/fahmaliyi/otpguard/otp"
	"github.com/fahmaliyi/otpguard/vault"
)

var (
	version   string
	buildDate string
)

func main() {
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		memguard.SafeExit(1)
	}
}

func run() error {
	opts, err := cli.ParseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	l, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	if err := cli.DisableCoreDumps(); err != nil {
		l.Warn("could not disable core dumps", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := vault.NewStore(cfg.VaultPath,
		vault.WithLogger(l),
		vault.WithLockRetry(cfg.LockRetries, cfg.LockRetryDelay),
	)

	app := cli.New(store,
		cli.WithLogger(l),
		cli.WithGenerator(otp.NewGenerator()),
		cli.WithClipboard(cli.SystemClipboard(), cfg.ClipboardTTL),
		cli.WithVersion(fmt.Sprintf("%s (built %s)", cmp.Or(version, "dev"), cmp.Or(buildDate, "unknown"))),
	)
	return app.Run(ctx, opts)
}
