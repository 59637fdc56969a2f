package ratelimit

import (
	"context"

	"github.com/smallbiznis/billdesk/internal/config"
	invoicedomain "github.com/smallbiznis/billdesk/internal/invoice/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("rate.limit",
	fx.Provide(provideWriteLimiter),
	fx.Provide(provideSerialLocker),
)

func provideWriteLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*WriteLimiter, error) {
	limiter, err := New(cfg.RateLimit)
	if err != nil {
		return nil, err
	}
	if !limiter.Enabled() {
		log.Info("write rate limiting disabled")
		return nil, nil
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return limiter.Close()
		},
	})
	log.Info("write rate limiting enabled",
		zap.Float64("rate", cfg.RateLimit.WriteRate),
		zap.Int("burst", cfg.RateLimit.WriteBurst),
	)
	return limiter, nil
}

func provideSerialLocker(l *WriteLimiter) invoicedomain.SerialLocker {
	if !l.Enabled() {
		return nil
	}
	return l
}
