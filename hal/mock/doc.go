// Package mock provides a mock GPU backend for testing without real hardware.
//
// The mock backend implements all HAL interfaces but performs no actual GPU operations.
// It is useful for:
//   - Testing code without GPU hardware
//   - CI/CD environments without GPU access
//   - Reference implementation showing minimal HAL requirements
//   - Fallback when no real backend is available
//
// Operations succeed immediately and return placeholder resources, except
// query set and render bundle encoder creation, which return an error.
// The backend is identified as gputypes.BackendEmpty.
package mock
