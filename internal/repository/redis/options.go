package redis

import (
	"time"

	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
)

const defaultMaxCommitAttempts = 5

// Options описывает общие зависимости хранилищ
type Options struct {
	Clock             func() time.Time
	MaxCommitAttempts int
	Logger            *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.MaxCommitAttempts < 1 {
		o.MaxCommitAttempts = defaultMaxCommitAttempts
	}
	o.Logger = logging.OrNop(o.Logger)
	return o
}

func (o Options) now() time.Time {
	return o.Clock().UTC()
}
