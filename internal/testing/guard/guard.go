package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CADENZA_TEST_MODE") == "" {
			_ = os.Setenv("CADENZA_TEST_MODE", "1")
		}
	})
}
