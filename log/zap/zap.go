// Package zap adapts a zap logger to the cache.Logger contract.
package zap

import (
	"go.uber.org/zap"

	"github.com/harmonic-studioz/pouchfi-api/cache"
)

type Logger struct{ L *zap.Logger }

var _ cache.Logger = Logger{}

func (z Logger) Debug(msg string, f cache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z Logger) Info(msg string, f cache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z Logger) Warn(msg string, f cache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z Logger) Error(msg string, f cache.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f cache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for k, v := range f {
		out = append(out, zap.Any(k, v))
	}
	return out
}
