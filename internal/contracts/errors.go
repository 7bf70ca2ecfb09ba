package contracts

import "errors"

// ErrDataUnavailable marks a collaborator fetch that produced no usable data.
// The ranking engine degrades such results to neutral or absent values.
var ErrDataUnavailable = errors.New("data unavailable")
