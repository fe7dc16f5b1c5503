package buffer

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// This catches consumers left blocked on a buffer that was never closed.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
