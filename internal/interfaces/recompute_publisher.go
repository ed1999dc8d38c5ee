package interfaces

import (
	"context"

	"shadowpaths-server/internal/messaging"
)

// RecomputePublisher enqueues derived-stat recomputation work after
// administrative edits. The worker consumes these tasks asynchronously so the
// denormalized aggregates self-heal without blocking the admin request.
type RecomputePublisher interface {
	PublishRecomputeTask(ctx context.Context, payload messaging.RecomputeTaskPayload) error
}
