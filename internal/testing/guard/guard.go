package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("NEXCELL_TEST_MODE") == "" {
			_ = os.Setenv("NEXCELL_TEST_MODE", "1")
		}
	})
}
