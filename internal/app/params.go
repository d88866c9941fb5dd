package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/matheus3301/freechat/internal/config"
	"github.com/matheus3301/freechat/internal/profile"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// ResolveParams loads ./.env, the config file and FREECHAT_* overrides, then
// resolves and validates the profile. profileFlag wins over the config default.
func ResolveParams(profileFlag string) (Params, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Params{}, fmt.Errorf("load .env: %w", err)
	}

	cfg, err := config.LoadOrDefault(profile.ConfigPath())
	if err != nil {
		return Params{}, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv(os.LookupEnv)

	prof, err := profile.Select(profileFlag, cfg)
	if err != nil {
		return Params{}, err
	}
	return Params{Profile: prof, Config: cfg}, nil
}

// ZapEventLogger routes fx's own lifecycle logging into the client log.
func ZapEventLogger() fx.Option {
	return fx.WithLogger(func(logger *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: logger.Named("fx")}
	})
}
