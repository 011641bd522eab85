package treeset

import (
	"os"
	"strconv"

	"github.com/anacrolix/missinggo/v2/panicif"
	"golang.org/x/exp/constraints"
)

func initIntFromEnv[T constraints.Integer](key string, defaultValue T, bitSize int) T {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	i64, err := strconv.ParseInt(s, 10, bitSize)
	panicif.Err(err)
	return T(i64)
}

// Initial capacity of the buffers workers drain their inboxes into. The
// buffers grow as needed, this just picks where they start.
var drainBufCap = initIntFromEnv("TREESET_BATCH_CAP", 32, 32)
