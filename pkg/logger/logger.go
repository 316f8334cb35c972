package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
	ServiceKey   contextKey = "service"
)

var defaultLogger *zap.SugaredLogger

func init() {
	defaultLogger = New(os.Getenv("ENV"), os.Getenv("LOG_LEVEL")).Sugar()
}

// New builds a zap logger: JSON in production, console otherwise.
func New(env, level string) *zap.Logger {
	var cfg zap.Config
	if env == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.OutputPaths = []string{"stdout"}

	if level != "" {
		if lvl, err := zapcore.ParseLevel(level); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	return l
}

// SetDefault replaces the package logger, e.g. with zap.NewNop() in tests.
func SetDefault(l *zap.Logger) {
	defaultLogger = l.Sugar()
}

func Default() *zap.SugaredLogger {
	return defaultLogger
}

func Sync() {
	_ = defaultLogger.Sync()
}

func WithContext(ctx context.Context) *zap.SugaredLogger {
	l := defaultLogger

	if requestID := ctx.Value(RequestIDKey); requestID != nil {
		l = l.With("request_id", requestID)
	}

	if userID := ctx.Value(UserIDKey); userID != nil {
		l = l.With("user_id", userID)
	}

	if service := ctx.Value(ServiceKey); service != nil {
		l = l.With("service", service)
	}

	return l
}

func Info(msg string, args ...any) {
	defaultLogger.Infow(msg, args...)
}

func Error(msg string, args ...any) {
	defaultLogger.Errorw(msg, args...)
}

func Debug(msg string, args ...any) {
	defaultLogger.Debugw(msg, args...)
}

func Warn(msg string, args ...any) {
	defaultLogger.Warnw(msg, args...)
}

func InfoContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Infow(msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Errorw(msg, args...)
}

func DebugContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debugw(msg, args...)
}

func WarnContext(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warnw(msg, args...)
}
