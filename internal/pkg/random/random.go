package random

import (
	"crypto/rand"
	"math/big"
)

// Intn returns a uniform random value in [0, n). It panics on a non-positive
// parameter. crypto/rand keeps the draw unpredictable to participants, which
// is all the raffle needs.
func Intn(n int) int {
	r, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic(err)
	}

	return int(r.Int64())
}
