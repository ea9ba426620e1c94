package telemetry

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisLogHook traces redis commands at trace level and failures at warn.
func RedisLogHook(logger zerolog.Logger) redis.Hook {
	return redisLog{logger: logger.With().Str("component", "redis").Logger()}
}

type redisLog struct {
	logger zerolog.Logger
}

func (h redisLog) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.logger.Warn().Err(err).Str("addr", addr).Msg("redis dial failed")
		}
		return conn, err
	}
}

func (h redisLog) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.log(cmd.Name(), start, err)
		return err
	}
}

func (h redisLog) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		h.log("pipeline", start, err)
		return err
	}
}

func (h redisLog) log(name string, start time.Time, err error) {
	// redis.Nil and aborted transactions are expected outcomes, not failures.
	if err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, redis.TxFailedErr) {
		h.logger.Warn().Err(err).Str("cmd", name).Msg("redis command failed")
		return
	}
	h.logger.Trace().Str("cmd", name).Dur("took", time.Since(start)).Msg("redis command")
}
