package mock

import "github.com/rhizomegfx/framegraph/hal"

// init registers the mock backend with the HAL registry.
func init() {
	hal.RegisterBackend(API{})
}
