package services

import "context"

type contextKey string

const (
	assetIDKey   contextKey = "asset_id"
	stageKey     contextKey = "stage"
	workerKey    contextKey = "worker"
	requestIDKey contextKey = "request_id"
)

// WithAssetID annotates context with the asset identifier.
func WithAssetID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, assetIDKey, id)
}

// AssetIDFromContext extracts the asset identifier if present.
func AssetIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(assetIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(stageKey)
	if str, ok := v.(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithWorker annotates context with the worker slot executing the job.
func WithWorker(ctx context.Context, worker int) context.Context {
	return context.WithValue(ctx, workerKey, worker)
}

// WorkerFromContext returns the worker slot if present.
func WorkerFromContext(ctx context.Context) (int, bool) {
	v, ok := ctx.Value(workerKey).(int)
	return v, ok
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
