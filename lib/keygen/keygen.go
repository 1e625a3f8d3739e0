package keygen

import (
	"math"
	randv2 "math/rand/v2"
	"time"

	"github.com/samber/lo"

	"github.com/benz9527/xrbt/lib/infra"
)

// The candidates are materialized and shuffled if the range holds
// at most denseFactor times n keys, otherwise the keys are sampled
// and deduplicated.
const (
	denseFactor   = 4
	maxDenseRange = 1 << 22
)

type keyGen struct {
	rng *randv2.Rand
}

type KeyGenOption func(*keyGen) error

// WithSeed the same seed generates the same keys in the same order.
func WithSeed(seed uint64) KeyGenOption {
	return func(gen *keyGen) error {
		gen.rng = randv2.New(randv2.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		return nil
	}
}

func WithRand(rng *randv2.Rand) KeyGenOption {
	return func(gen *keyGen) error {
		if rng == nil {
			return infra.NewErrorStack("[keygen] nil random source")
		}
		gen.rng = rng
		return nil
	}
}

// span returns max-min, the key count of [min, max] minus one.
func span[K infra.Integer](min, max K) uint64 {
	return uint64(max) - uint64(min)
}

// UniqueKeys produces n distinct keys drawn uniformly from [min, max]
// (both inclusive) in random order.
func UniqueKeys[K infra.Integer](n int, min, max K, opts ...KeyGenOption) ([]K, error) {
	if n < 0 {
		return nil, infra.NewErrorStack("[keygen] negative key count")
	}
	if min > max {
		return nil, infra.NewErrorStack("[keygen] min key is greater than max key")
	}
	gen := &keyGen{}
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o(gen); err != nil {
			return nil, err
		}
	}
	if gen.rng == nil {
		now := uint64(time.Now().UnixNano())
		gen.rng = randv2.New(randv2.NewPCG(now, randv2.Uint64()))
	}
	if n == 0 {
		return []K{}, nil
	}

	s := span(min, max)
	if s != math.MaxUint64 && uint64(n) > s+1 {
		return nil, infra.NewErrorStack("[keygen] the key range is too narrow to produce unique keys")
	}
	if s < maxDenseRange && s+1 <= uint64(n)*denseFactor {
		return shuffle(gen.rng, n, min, int(s+1)), nil
	}
	return sample(gen.rng, n, min, s), nil
}

// Partial Fisher-Yates over the whole range.
func shuffle[K infra.Integer](rng *randv2.Rand, n int, min K, total int) []K {
	candidates := lo.RangeFrom(min, total)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(total-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:n:n]
}

// Rejection sampling, the range is at least denseFactor times wider than n,
// so a draw collides with probability below 1/denseFactor.
func sample[K infra.Integer](rng *randv2.Rand, n int, min K, s uint64) []K {
	keys := make([]K, 0, n)
	seen := make(map[K]struct{}, n)
	for len(keys) < n {
		var offset uint64
		if s == math.MaxUint64 {
			offset = rng.Uint64()
		} else {
			offset = rng.Uint64N(s + 1)
		}
		// Wraps around for the signed keys, min+offset stays in [min, max].
		key := min + K(offset)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
