package scheduler

import (
	"context"
	"fmt"

	"github.com/okian/arena/pkg/logger"
)

// gocronLogger adapts logger.Logger to gocron.Logger.
type gocronLogger struct {
	log logger.Logger
}

func (g gocronLogger) Debug(msg string, args ...any) {
	g.log.Debug(context.Background(), msg, pairs(args)...)
}

func (g gocronLogger) Info(msg string, args ...any) {
	g.log.Info(context.Background(), msg, pairs(args)...)
}

func (g gocronLogger) Warn(msg string, args ...any) {
	g.log.Warn(context.Background(), msg, pairs(args)...)
}

func (g gocronLogger) Error(msg string, args ...any) {
	g.log.Error(context.Background(), msg, pairs(args)...)
}

// pairs turns gocron's alternating key/value args into fields.
func pairs(args []any) []logger.Field {
	fields := make([]logger.Field, 0, (len(args)+1)/2)
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			fields = append(fields, logger.Any("extra", args[i]))
			break
		}
		fields = append(fields, logger.Any(key, args[i+1]))
	}
	return fields
}
