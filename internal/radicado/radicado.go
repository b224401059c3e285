// Package radicado generates human-facing case numbers of the form
// PQRS-YYYYMMDD-NNNNN.
package radicado

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"
)

const Prefix = "PQRS"

var pattern = regexp.MustCompile(`^PQRS-\d{8}-\d{5}$`)

// Generate returns a case number for the given day with a random sequence.
// Uniqueness is enforced by the record store, callers retry on conflict.
func Generate(now time.Time) string {
	seq := rand.Intn(99999) + 1
	return fmt.Sprintf("%s-%s-%05d", Prefix, now.Format("20060102"), seq)
}

func Validate(s string) bool {
	return pattern.MatchString(s)
}
