// Package determinism provides the primitives every decision path in
// the engine must route through to stay reproducible from
// (agentId, marketId, index) across process restarts.
package determinism

import (
	"strings"

	"github.com/google/uuid"
)

// Seed builds the canonical cache/idempotency key from its components.
func Seed(parts ...string) string {
	return strings.Join(parts, ":")
}

// tradeIDNamespace is a fixed namespace UUID for deriving trade IDs;
// any stable UUID works since it only needs to be consistent across
// runs, not globally registered.
var tradeIDNamespace = uuid.MustParse("6f1b1a3e-0c1a-4e8a-9b2e-2e7b8e9a4c10")

// TradeID derives a deterministic uuid.UUID string from seed via
// uuid.NewSHA1, so the same (agentId, marketId, openedAt) always
// produces the same trade ID across restarts, matching spec.md §8
// property 1 while still using google/uuid's formatting.
func TradeID(seed string) string {
	return uuid.NewSHA1(tradeIDNamespace, []byte(seed)).String()
}

// hash32 is a 32-bit FNV-1a hash. Non-cryptographic, stable across
// processes and platforms for a given input.
const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

func Hash32(s string) uint32 {
	h := fnvOffset32
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return h
}

// Draw01 maps a seed deterministically onto [0,1).
func Draw01(seed string) float64 {
	return float64(Hash32(seed)) / 4294967296.0
}

func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func ClampInt(x, lo, hi int) int {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
