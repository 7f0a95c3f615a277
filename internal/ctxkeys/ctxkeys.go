package ctxkeys

import "context"

// contextKey 用于在 context 中存储值的键类型
type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	agentIDKey contextKey = "agent_id"
	jobIDKey   contextKey = "job_id"
)

// WithTraceID 设置 TraceID
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID 获取 TraceID
func TraceID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(traceIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithAgentID 设置请求作用域内引用的 agent ID
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, agentIDKey, agentID)
}

// AgentID 获取请求作用域内的 agent ID
func AgentID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(agentIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// WithJobID 设置请求作用域内引用的 job ID
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// JobID 获取请求作用域内的 job ID
func JobID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(jobIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
