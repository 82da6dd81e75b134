// Package intel holds the offline threat-intelligence machinery: a
// Bloom filter over known-bad domains and the signed bundle loader
// that distributes it.
package intel

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"
)

// Sizing bounds enforced both at creation and at deserialization so a
// hostile bundle cannot force huge allocations.
const (
	minBloomBits = 64
	maxBloomBits = 10_000_000
	minHashes    = 1
	maxHashes    = 16
)

// BloomFilter is a probabilistic set-membership structure: no false
// negatives, tunable false-positive rate. The bit array is never
// mutated after the filter is published; updates replace the whole
// filter.
type BloomFilter struct {
	m     uint32 // bit count
	k     uint8  // hash count
	count uint32 // items added
	bits  []uint64
}

// NewBloomFilter sizes a filter for the expected item count and target
// false-positive rate using the standard formulas, clamped to the
// allocation bounds.
func NewBloomFilter(expectedItems int, falsePositiveRate float64) *BloomFilter {
	if expectedItems < 1 {
		expectedItems = 1
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}

	ln2 := math.Ln2
	m := math.Ceil(-float64(expectedItems) * math.Log(falsePositiveRate) / (ln2 * ln2))
	if m < minBloomBits {
		m = minBloomBits
	}
	if m > maxBloomBits {
		m = maxBloomBits
	}

	k := math.Round(m / float64(expectedItems) * ln2)
	if k < minHashes {
		k = minHashes
	}
	if k > maxHashes {
		k = maxHashes
	}

	return &BloomFilter{
		m:    uint32(m),
		k:    uint8(k),
		bits: make([]uint64, (uint32(m)+63)/64),
	}
}

// hashPair derives two independent 64-bit hashes for double hashing:
// index_i = (h1 + i*h2) mod m.
func hashPair(item string) (uint64, uint64) {
	h := fnv.New64a()
	h.Write([]byte(item))
	h1 := h.Sum64()

	h.Reset()
	h.Write([]byte{0x9e})
	h.Write([]byte(item))
	h2 := h.Sum64() | 1 // odd, so it never degenerates to a single position

	return h1, h2
}

// Add inserts an item. Safe only during filter construction; published
// filters are read-only.
func (b *BloomFilter) Add(item string) {
	h1, h2 := hashPair(item)
	for i := uint64(0); i < uint64(b.k); i++ {
		pos := (h1 + i*h2) % uint64(b.m)
		b.bits[pos/64] |= 1 << (pos % 64)
	}
	b.count++
}

// MightContain reports set membership. False negatives never happen;
// false positives occur at roughly (bitsSet/m)^k.
func (b *BloomFilter) MightContain(item string) bool {
	h1, h2 := hashPair(item)
	for i := uint64(0); i < uint64(b.k); i++ {
		pos := (h1 + i*h2) % uint64(b.m)
		if b.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// Count returns the number of items added
func (b *BloomFilter) Count() uint32 { return b.count }

// EstimatedFalsePositiveRate approximates the current FP probability
func (b *BloomFilter) EstimatedFalsePositiveRate() float64 {
	var set int
	for _, w := range b.bits {
		set += popcount(w)
	}
	return math.Pow(float64(set)/float64(b.m), float64(b.k))
}

func popcount(w uint64) int {
	var n int
	for w != 0 {
		w &= w - 1
		n++
	}
	return n
}

// Wire format: size:u32 | k:u8 | itemCount:u32 | packed bitset.
const bloomHeaderSize = 4 + 1 + 4

// MarshalBinary serializes the filter
func (b *BloomFilter) MarshalBinary() []byte {
	out := make([]byte, bloomHeaderSize+len(b.bits)*8)
	binary.BigEndian.PutUint32(out[0:4], b.m)
	out[4] = b.k
	binary.BigEndian.PutUint32(out[5:9], b.count)
	for i, w := range b.bits {
		binary.BigEndian.PutUint64(out[bloomHeaderSize+i*8:], w)
	}
	return out
}

// UnmarshalBloomFilter validates header bounds before allocating, so a
// hostile bundle cannot cause memory exhaustion.
func UnmarshalBloomFilter(data []byte) (*BloomFilter, error) {
	if len(data) < bloomHeaderSize {
		return nil, fmt.Errorf("bloom data truncated: %d bytes", len(data))
	}
	m := binary.BigEndian.Uint32(data[0:4])
	k := data[4]
	count := binary.BigEndian.Uint32(data[5:9])

	if m < minBloomBits || m > maxBloomBits {
		return nil, fmt.Errorf("bloom size %d outside [%d, %d]", m, minBloomBits, maxBloomBits)
	}
	if k < minHashes || k > maxHashes {
		return nil, fmt.Errorf("bloom hash count %d outside [%d, %d]", k, minHashes, maxHashes)
	}
	words := (m + 63) / 64
	if uint32(len(data)-bloomHeaderSize) != words*8 {
		return nil, fmt.Errorf("bloom bitset length mismatch: got %d bytes, want %d", len(data)-bloomHeaderSize, words*8)
	}

	bits := make([]uint64, words)
	for i := range bits {
		bits[i] = binary.BigEndian.Uint64(data[bloomHeaderSize+i*8:])
	}
	return &BloomFilter{m: m, k: k, count: count, bits: bits}, nil
}
