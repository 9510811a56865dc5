package stats

import "errors"

var ErrInvalidFilter = errors.New("invalid stats filter")
