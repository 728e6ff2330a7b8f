package database

import "errors"

// ErrNotReady indicates the startup ping has not succeeded.
var ErrNotReady = errors.New("database not ready")
