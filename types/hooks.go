package types

import "context"

// Hooks defines callbacks for the Manager's assignment events.
//
// All hooks are optional. Hooks receive the context of the Manager's
// assignment watch loop, which is cancelled during shutdown.
//
// IMPORTANT: Hook execution behavior:
//   - OnAssignmentChanged runs in its own goroutine and may not complete before Stop() returns
//   - OnError runs on the goroutine that hit the error: inline in the watch
//     loop for an undecodable assignment, in the background task-consumer
//     update goroutine for a failed consumer update
//   - The context passed to hooks is cancelled when the Manager stops
//   - Hook errors are logged but don't fail Manager operations
//
// Best practices for hook implementation:
//   - Complete quickly (< 1 second recommended)
//   - Respect context cancellation
//   - Don't block on long I/O operations
//   - Make hooks idempotent (may be called multiple times)
//   - Handle errors gracefully (return error for logging)
type Hooks struct {
	// OnAssignmentChanged is called when a group's task assignment changes.
	// added: tasks newly present in the fleet assignment for the group
	// removed: tasks no longer present in the fleet assignment for the group
	OnAssignmentChanged func(ctx context.Context, added, removed []Task) error

	// OnError is called when a recoverable error occurs.
	OnError func(ctx context.Context, err error) error
}
