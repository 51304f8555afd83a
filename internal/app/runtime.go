package app

import (
	"os"
	"sync"
)

const testModeEnv = "SHOPLEDGER_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether binaries should skip connecting to external services.
func InTestMode() bool {
	return testMode()
}
