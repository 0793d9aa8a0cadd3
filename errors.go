package framegraph

import "errors"

// ErrReleased is returned by Frame.Submit when the frame has already been
// submitted and must not be reused.
var ErrReleased = errors.New("framegraph: object has been released")
