package mcp

import (
	"context"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"

	"github.com/stefanprodan/kswitch-sub001/pkg/log"
)

// toolHandler is the raw handler shape the server methods implement.
type toolHandler[In, Out any] func(
	context.Context,
	*mcp.ServerSession,
	*mcp.CallToolParamsFor[In],
) (*mcp.CallToolResultFor[Out], error)

// traced wraps a tool handler in an OpenTelemetry span with structured
// logging. Log lines inside the handler carry the span's trace ID.
func traced[In, Out any](
	tracer trace.Tracer,
	handler toolHandler[In, Out],
) mcp.ToolHandlerFor[In, Out] {
	return func(
		ctx context.Context,
		session *mcp.ServerSession,
		params *mcp.CallToolParamsFor[In],
	) (*mcp.CallToolResultFor[Out], error) {
		ctx, span := tracer.Start(ctx, params.Name)
		defer span.End()

		logger := log.WithContext(ctx)

		logger.DebugContext(ctx, "handling tool call",
			slog.String("name", params.Name),
			slog.Any("progress_token", params.GetProgressToken()),
			slog.Any("args", params.Arguments),
		)

		result, err := handler(ctx, session, params)
		if err != nil {
			logger.ErrorContext(ctx, "tool call failed",
				slog.String("name", params.Name),
				slog.Any("error", err),
			)
			span.RecordError(err)

			return result, err
		}

		logger.DebugContext(ctx, "tool call completed")

		return result, nil
	}
}
