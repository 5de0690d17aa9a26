package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/Nordix/eredis"
)

func buildConfig(logger *zap.Logger) eredis.Config {
	opts := []eredis.Opt{
		eredis.Port(flagPort),
		eredis.Database(flagDB),
		eredis.ConnectTimeout(5 * time.Second),
		eredis.WithTrace(traceFor(logger)),
	}
	if flagSocket != "" {
		opts = append(opts, eredis.UnixSocket(flagSocket))
	} else {
		opts = append(opts, eredis.Host(flagHost))
	}
	if flagUsername != "" {
		opts = append(opts, eredis.Username(eredis.SecretString(flagUsername)))
	}
	if flagPassword != "" {
		opts = append(opts, eredis.Password(eredis.SecretString(flagPassword)))
	}
	if flagGroup != "" && len(flagSentinel) > 0 {
		opts = append(opts, eredis.WithSentinel(flagGroup, flagSentinel...))
	}
	return eredis.NewConfig(opts...)
}

// traceFor turns the library's Trace hooks into structured zap log lines;
// with a nop logger (the default, unless -v is passed) these cost a single
// disabled-level check per event.
func traceFor(logger *zap.Logger) eredis.Trace {
	return eredis.Trace{
		Connect: func(info eredis.ConnectTrace) {
			fields := []zap.Field{
				zap.String("address", info.Address),
				zap.String("step", info.Step.String()),
			}
			if info.Err != nil {
				logger.Warn("connect", append(fields, zap.Error(info.Err))...)
				return
			}
			logger.Info("connect", fields...)
		},
		Disconnect: func(info eredis.DisconnectTrace) {
			logger.Warn("disconnect",
				zap.String("address", info.Address),
				zap.Bool("reconnect", info.Reconnect),
				zap.Duration("sleep", info.Sleep),
				zap.Error(info.Err),
			)
		},
		Subscription: func(info eredis.SubscriptionTrace) {
			logger.Info("subscription",
				zap.Uint8("event", uint8(info.Event)),
				zap.Int("dropped", info.Dropped),
				zap.Error(info.Err),
			)
		},
	}
}
