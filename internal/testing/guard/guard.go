package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("NOVADENT_TEST_MODE") == "" {
			_ = os.Setenv("NOVADENT_TEST_MODE", "1")
		}
	})
}
