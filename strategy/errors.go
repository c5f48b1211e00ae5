package strategy

import "errors"

// ErrNoInstances indicates that no instances were provided for assignment.
var ErrNoInstances = errors.New("no instances available for assignment")
