package combat

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"
)

// RNG 由种子和字符串标签派生的确定性随机源。
// 同一 (Seed, label) 总是得到同一个值，重放和幂等重试因此得到完全相同的结果。
type RNG struct {
	Seed int64
}

// Float 返回 [0,1) 区间的值
func (r RNG) Float(label string) float64 {
	h := fnv.New64a()
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], uint64(r.Seed))
	_, _ = h.Write(seed[:])
	_, _ = h.Write([]byte(label))
	return rand.New(rand.NewSource(int64(h.Sum64()))).Float64()
}

// Intn 返回 [min,max] 闭区间内的整数
func (r RNG) Intn(label string, min, max int) int {
	if max <= min {
		return min
	}
	n := min + int(r.Float(label)*float64(max-min+1))
	if n > max {
		n = max
	}
	return n
}

// Pick 从 items 中确定性地选出一个元素，items 为空时返回 false
func Pick[T any](r RNG, label string, items []T) (T, bool) {
	var zero T
	if len(items) == 0 {
		return zero, false
	}
	return items[r.Intn(label, 0, len(items)-1)], true
}
