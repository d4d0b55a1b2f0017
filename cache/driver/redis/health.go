package redis

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
)

// healthHook watches every dial and command for connection-class failures.
// Non-fatal errors (cache misses, user errors, canceled contexts) pass
// through untouched.
type healthHook struct {
	d *Driver
}

var _ goredis.Hook = healthHook{}

func (h healthHook) DialHook(next goredis.DialHook) goredis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil && fatalConnErr(err) {
			h.d.fail(err)
		}
		return conn, err
	}
}

func (h healthHook) ProcessHook(next goredis.ProcessHook) goredis.ProcessHook {
	return func(ctx context.Context, cmd goredis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && fatalConnErr(err) {
			h.d.fail(err)
		}
		return err
	}
}

func (h healthHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []goredis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && fatalConnErr(err) {
			h.d.fail(err)
		}
		return err
	}
}

// fatalConnErr reports whether err belongs to the connection-refused /
// closed-store / timeout class that retires a driver.
func fatalConnErr(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, goredis.Nil),
		errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, goredis.ErrClosed),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.EOF),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
