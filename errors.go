package brooklin

import (
	"errors"

	"github.com/Jyouping/brooklin/types"
)

// Sentinel errors returned by the Manager.
//
// These alias the canonical errors defined in the types package so callers
// can use either errors.Is(err, brooklin.ErrAlreadyStarted) or
// errors.Is(err, types.ErrAlreadyStarted) interchangeably.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrNATSConnectionRequired is returned when the NATS connection is nil.
	ErrNATSConnectionRequired = types.ErrNATSConnectionRequired

	// ErrPartitionSourceRequired is returned when the partition source is nil.
	ErrPartitionSourceRequired = types.ErrPartitionSourceRequired

	// ErrAssignmentStrategyRequired is returned when the base assignment
	// strategy is nil.
	ErrAssignmentStrategyRequired = types.ErrAssignmentStrategyRequired

	// ErrAlreadyStarted is returned when Start is called on an already
	// running manager.
	ErrAlreadyStarted = types.ErrAlreadyStarted

	// ErrNotStarted is returned when Stop is called on a manager that
	// hasn't been started.
	ErrNotStarted = types.ErrNotStarted

	// ErrNotImplemented is returned for functionality not yet implemented.
	ErrNotImplemented = types.ErrNotImplemented

	// ErrNoInstancesAvailable is returned when trying to assign tasks with
	// no instances.
	ErrNoInstancesAvailable = types.ErrNoInstancesAvailable

	// ErrInvalidInstanceID is returned when an instance ID is invalid.
	ErrInvalidInstanceID = types.ErrInvalidInstanceID

	// ErrAssignmentFailed is returned when assignment calculation or
	// distribution fails.
	ErrAssignmentFailed = types.ErrAssignmentFailed

	// ErrNoGroupsConfigured is returned when a Config names zero groups.
	ErrNoGroupsConfigured = errors.New("at least one group is required")
)
