package config

import "errors"

// ErrInvalidConfiguration is wrapped by every Validate/FromFlatMap failure
// so callers can errors.Is against it without matching message text.
var ErrInvalidConfiguration = errors.New("config: invalid configuration")
