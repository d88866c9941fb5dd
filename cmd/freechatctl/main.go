package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matheus3301/freechat/internal/app"
	"github.com/matheus3301/freechat/internal/backend"
	"github.com/matheus3301/freechat/internal/bus"
	"github.com/matheus3301/freechat/internal/client"
	"github.com/matheus3301/freechat/internal/credential"
	"github.com/matheus3301/freechat/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var (
	profileFlag string
	jsonFlag    bool
	timeoutFlag time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "freechatctl",
	Short:         "Command line client for freechat",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 30*time.Second, "timeout for one-shot commands")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env is what one-shot commands need: the resolved profile and a REST client.
type env struct {
	params app.Params
	creds  *credential.FileStore
	api    *backend.Client
	logger *zap.Logger
}

func newEnv() (*env, error) {
	p, err := app.ResolveParams(profileFlag)
	if err != nil {
		return nil, err
	}
	if err := p.Profile.Ensure(); err != nil {
		return nil, err
	}
	logger, err := logging.New(logging.Options{
		Path:    p.Profile.LogPath(),
		Profile: p.Profile.Name,
		Level:   p.Config.Log.Level,
	})
	if err != nil {
		return nil, err
	}
	provider, creds, err := app.OpenCredentials(p)
	if err != nil {
		return nil, err
	}
	api := backend.New(backend.Options{
		BaseURL: p.Config.Server.BaseURL,
		Timeout: p.Config.Server.RequestTimeout.Duration,
	}, provider, logger.Named("backend"))
	return &env{params: p, creds: creds, api: api, logger: logger}, nil
}

// withSession runs fn against a started engine and stops it afterwards.
func withSession(ctx context.Context, configure func(*app.Params), fn func(ctx context.Context, sess *client.Session, b *bus.Bus) error) error {
	p, err := app.ResolveParams(profileFlag)
	if err != nil {
		return err
	}
	if configure != nil {
		configure(&p)
	}

	var (
		sess *client.Session
		b    *bus.Bus
	)
	fxApp := fx.New(app.Module(p), app.ZapEventLogger(), fx.Populate(&sess, &b))
	startCtx, cancel := context.WithTimeout(ctx, timeoutFlag)
	defer cancel()
	if err := fxApp.Start(startCtx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = fxApp.Stop(stopCtx)
	}()
	return fn(ctx, sess, b)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
