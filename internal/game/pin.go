package game

import (
	"fmt"
	"math/rand"
)

// NewPin generates a 6-digit numeric join code.
func NewPin() string {
	return fmt.Sprintf("%06d", 100000+rand.Intn(900000))
}
