package digbridge

import "errors"

// ErrContainerNil is returned when a nil dig container is passed.
var ErrContainerNil = errors.New("dig container cannot be nil")
