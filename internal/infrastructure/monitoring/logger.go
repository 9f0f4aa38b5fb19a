package monitoring

import (
	"context"
	"os"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cloudsentry/posture/internal/config"
	"github.com/cloudsentry/posture/pkg/constants"
	"github.com/cloudsentry/posture/pkg/logger"
)

// zapLogger adapts a zap core to the service Logger interface, promoting
// request-scoped identifiers and trace context into fields.
type zapLogger struct {
	zl *zap.Logger
}

// NewZapLogger creates the production logger.
func NewZapLogger(cfg *config.LogConfig) (logger.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	return &zapLogger{zl: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))}, nil
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Debug(msg, l.convert(ctx, nil, fields)...)
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Info(msg, l.convert(ctx, nil, fields)...)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Warn(msg, l.convert(ctx, nil, fields)...)
}

func (l *zapLogger) Error(ctx context.Context, msg string, err error, fields ...logger.Field) {
	l.zl.Error(msg, l.convert(ctx, err, fields)...)
}

func (l *zapLogger) Fatal(ctx context.Context, msg string, err error, fields ...logger.Field) {
	l.zl.Fatal(msg, l.convert(ctx, err, fields)...)
}

func (l *zapLogger) WithFields(fields ...logger.Field) logger.Logger {
	zfields := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zfields = append(zfields, zap.Any(f.Key, logger.Sanitize(f.Key, f.Value)))
	}
	return &zapLogger{zl: l.zl.With(zfields...)}
}

func (l *zapLogger) WithComponent(component string) logger.Logger {
	return &zapLogger{zl: l.zl.With(zap.String("component", component))}
}

func (l *zapLogger) convert(ctx context.Context, err error, fields []logger.Field) []zap.Field {
	zfields := make([]zap.Field, 0, len(fields)+5)
	for _, f := range fields {
		zfields = append(zfields, zap.Any(f.Key, logger.Sanitize(f.Key, f.Value)))
	}
	if err != nil {
		zfields = append(zfields, zap.Error(err))
	}

	if ctx != nil {
		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			zfields = append(zfields,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}
		if v := ctx.Value(constants.ContextKeyRequestID); v != nil {
			zfields = append(zfields, zap.Any("request_id", v))
		}
		if v := ctx.Value(constants.ContextKeyTenantID); v != nil {
			zfields = append(zfields, zap.Any("tenant_id", v))
		}
		if v := ctx.Value(constants.ContextKeyCustomerID); v != nil {
			zfields = append(zfields, zap.Any("customer_id", v))
		}
	}
	return zfields
}
