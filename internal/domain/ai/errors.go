package ai

import "errors"

// ErrUnavailable covers every inference transport failure (timeout, quota,
// malformed request). The wrapped cause carries the detail; callers only
// branch on this sentinel.
var ErrUnavailable = errors.New("inference service unavailable")
