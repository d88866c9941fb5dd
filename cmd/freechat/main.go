package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matheus3301/freechat/internal/app"
	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/client"
	"github.com/matheus3301/freechat/internal/errs"
	"github.com/matheus3301/freechat/internal/lock"
	"github.com/matheus3301/freechat/internal/tui"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.Parse()

	p, err := app.ResolveParams(*profileFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	p.Exclusive = true

	var (
		sess   *client.Session
		b      *bus.Bus
		logger *zap.Logger
	)
	fxApp := fx.New(
		app.Module(p),
		app.ZapEventLogger(),
		fx.Populate(&sess, &b, &logger),
	)

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", explain(err, p.Profile.Name))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui := tui.New(sess, b, logger.Named("tui"), tui.Options{
		Profile:        p.Profile.Name,
		Server:         p.Config.Server.BaseURL,
		MinQueryLength: p.Config.Search.MinLength,
	})
	runErr := ui.Run(ctx)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelStop()
	_ = fxApp.Stop(stopCtx)

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}

// explain adds the next step to well-known startup failures.
func explain(err error, profile string) error {
	var held *lock.HeldError
	switch {
	case errors.As(err, &held):
		return fmt.Errorf("%w (is freechat already running?)", err)
	case errors.Is(err, errs.ErrAuth):
		return fmt.Errorf("%w: sign in with `freechatctl login --profile %s --token <token>`", err, profile)
	}
	return err
}
