package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/courseflow/pkg/domain"
)

// LogHooks returns hooks that log every lifecycle event at debug level.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeActivate: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_activate", "session_id", e.SessionID, "node", e.Node)
		},
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.DebugContext(ctx, "transition",
				"session_id", e.SessionID,
				"function", e.Function,
				"from", e.From,
				"to", e.To,
				"outcome", e.Outcome,
			)
		},
		OnBroadcast: func(ctx context.Context, e *domain.BroadcastEvent) {
			logger.DebugContext(ctx, "broadcast", "session_id", e.SessionID, "outcome", e.Outcome)
		},
	}
}

// Combine returns hooks that call each non-nil hook of every set, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		if fn := h.OnNodeActivate; fn != nil {
			prev := out.OnNodeActivate
			out.OnNodeActivate = func(ctx context.Context, e *domain.NodeEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				fn(ctx, e)
			}
		}
		if fn := h.OnTransition; fn != nil {
			prev := out.OnTransition
			out.OnTransition = func(ctx context.Context, e *domain.TransitionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				fn(ctx, e)
			}
		}
		if fn := h.OnBroadcast; fn != nil {
			prev := out.OnBroadcast
			out.OnBroadcast = func(ctx context.Context, e *domain.BroadcastEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				fn(ctx, e)
			}
		}
	}
	return out
}
