// Package logrus adapts a logrus entry to the cache.Logger contract.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/harmonic-studioz/pouchfi-api/cache"
)

type Logger struct{ E *logrus.Entry }

var _ cache.Logger = Logger{}

func (l Logger) Debug(msg string, f cache.Fields) { l.E.WithFields(logrus.Fields(f)).Debug(msg) }
func (l Logger) Info(msg string, f cache.Fields)  { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l Logger) Warn(msg string, f cache.Fields)  { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l Logger) Error(msg string, f cache.Fields) { l.E.WithFields(logrus.Fields(f)).Error(msg) }
