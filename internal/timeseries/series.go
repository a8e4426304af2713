// Package timeseries provides Series, a compact ordered map from epoch
// millisecond timestamps to float32 prices backed by two parallel sorted
// arrays.
//
// A Series has no internal synchronization. It supports one writer at a time;
// once loading is done it may be read concurrently by any number of readers.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Errors returned by Series operations.
var (
	// ErrConcurrentModification is returned by ForEach when the series
	// changes structurally while it is being visited.
	ErrConcurrentModification = errors.New("series modified during iteration")

	// ErrLengthMismatch is returned when key and value slices differ in length.
	ErrLengthMismatch = errors.New("keys and values must have the same length")
)

// Missing is the sentinel returned for absent timestamps.
// It is NaN, so compare with IsMissing rather than ==.
var Missing = float32(math.NaN())

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v float32) bool {
	return v != v
}

const (
	defaultCapacity = 10
	minGrowCapacity = 5
)

// Series is an ordered timestamp → price map.
// Keys are strictly ascending; putting an existing key overwrites its value.
type Series struct {
	keys     []int64
	values   []float32
	size     int
	modCount int
}

// New creates an empty series. Storage is allocated on the first Put.
func New() *Series {
	return &Series{}
}

// NewWithCapacity creates an empty series with room for n points.
// It panics if n is negative.
func NewWithCapacity(n int) *Series {
	if n < 0 {
		panic(fmt.Sprintf("timeseries: illegal capacity %d", n))
	}
	return &Series{
		keys:   make([]int64, n),
		values: make([]float32, n),
	}
}

// FromPairs builds a series from parallel key/value slices in any order.
func FromPairs(keys []int64, values []float32) (*Series, error) {
	if len(keys) != len(values) {
		return nil, ErrLengthMismatch
	}
	s := NewWithCapacity(len(keys))
	for i := range keys {
		s.Put(keys[i], values[i])
	}
	return s, nil
}

// Len returns the number of points.
func (s *Series) Len() int {
	return s.size
}

// Cap returns the current backing capacity.
func (s *Series) Cap() int {
	return len(s.keys)
}

// IsEmpty reports whether the series has no points.
func (s *Series) IsEmpty() bool {
	return s.size == 0
}

// Contains reports whether ts is a key of the series.
func (s *Series) Contains(ts int64) bool {
	return s.IndexOf(ts) >= 0
}

// ContainsValue reports whether any point has value v.
func (s *Series) ContainsValue(v float32) bool {
	for i := 0; i < s.size; i++ {
		if s.values[i] == v {
			return true
		}
	}
	return false
}

// Get returns the value at ts, or Missing if ts is absent.
func (s *Series) Get(ts int64) float32 {
	if i := s.IndexOf(ts); i >= 0 {
		return s.values[i]
	}
	return Missing
}

// Lookup returns the value at ts and whether it was present.
func (s *Series) Lookup(ts int64) (float32, bool) {
	if i := s.IndexOf(ts); i >= 0 {
		return s.values[i], true
	}
	return 0, false
}

// GetOrDefault returns the value at ts, or def if ts is absent.
func (s *Series) GetOrDefault(ts int64, def float32) float32 {
	if i := s.IndexOf(ts); i >= 0 {
		return s.values[i]
	}
	return def
}

// At returns the value at position i. It panics if i is out of range.
func (s *Series) At(i int) float32 {
	s.checkIndex(i)
	return s.values[i]
}

// KeyAt returns the timestamp at position i. It panics if i is out of range.
func (s *Series) KeyAt(i int) int64 {
	s.checkIndex(i)
	return s.keys[i]
}

// FirstKey returns the smallest timestamp. It panics on an empty series.
func (s *Series) FirstKey() int64 {
	return s.KeyAt(0)
}

// LastKey returns the largest timestamp. It panics on an empty series.
func (s *Series) LastKey() int64 {
	return s.KeyAt(s.size - 1)
}

func (s *Series) checkIndex(i int) {
	if i < 0 || i >= s.size {
		panic(fmt.Sprintf("timeseries: index %d out of range [0:%d]", i, s.size))
	}
}

// Put stores v at ts and returns v. An existing value at ts is overwritten.
func (s *Series) Put(ts int64, v float32) float32 {
	s.modCount++

	if i := s.IndexOf(ts); i >= 0 {
		s.values[i] = v
		return v
	}

	if s.size == len(s.keys) {
		s.grow()
	}

	i := s.NearestIndexOf(ts)
	if moved := s.size - i; moved > 0 {
		copy(s.keys[i+1:s.size+1], s.keys[i:s.size])
		copy(s.values[i+1:s.size+1], s.values[i:s.size])
	}
	s.keys[i] = ts
	s.values[i] = v
	s.size++

	return v
}

// PutAll stores every (keys[i], values[i]) pair.
func (s *Series) PutAll(keys []int64, values []float32) error {
	if len(keys) != len(values) {
		return ErrLengthMismatch
	}
	for i := range keys {
		s.Put(keys[i], values[i])
	}
	return nil
}

// PutIfAbsent stores v at ts only if ts is absent. It returns v when stored
// and Missing otherwise.
func (s *Series) PutIfAbsent(ts int64, v float32) float32 {
	if s.Contains(ts) {
		return Missing
	}
	return s.Put(ts, v)
}

// Replace overwrites the value at an existing ts and returns the old value,
// or Missing if ts is absent.
func (s *Series) Replace(ts int64, v float32) float32 {
	i := s.IndexOf(ts)
	if i < 0 {
		return Missing
	}
	s.modCount++
	old := s.values[i]
	s.values[i] = v
	return old
}

// CompareAndReplace overwrites the value at ts with newValue only if the
// current value equals oldValue.
func (s *Series) CompareAndReplace(ts int64, oldValue, newValue float32) bool {
	i := s.IndexOf(ts)
	if i < 0 || s.values[i] != oldValue {
		return false
	}
	s.modCount++
	s.values[i] = newValue
	return true
}

// Remove deletes ts and returns its value, or Missing if ts is absent.
func (s *Series) Remove(ts int64) float32 {
	i := s.IndexOf(ts)
	if i < 0 {
		return Missing
	}
	return s.removeAt(i)
}

// RemoveValue deletes ts only if its current value equals v.
func (s *Series) RemoveValue(ts int64, v float32) bool {
	i := s.IndexOf(ts)
	if i < 0 || s.values[i] != v {
		return false
	}
	s.removeAt(i)
	return true
}

// RemoveAt deletes the point at position i and returns its value.
// An out-of-range index returns Missing.
func (s *Series) RemoveAt(i int) float32 {
	if i < 0 || i >= s.size {
		return Missing
	}
	return s.removeAt(i)
}

func (s *Series) removeAt(i int) float32 {
	s.modCount++
	v := s.values[i]
	copy(s.keys[i:s.size-1], s.keys[i+1:s.size])
	copy(s.values[i:s.size-1], s.values[i+1:s.size])
	s.size--
	return v
}

// Clear removes all points. Capacity is kept.
func (s *Series) Clear() {
	s.modCount++
	s.size = 0
}

// IndexOf returns the position of ts, or -1 if absent.
func (s *Series) IndexOf(ts int64) int {
	lo, hi := 0, s.size-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch k := s.keys[mid]; {
		case k < ts:
			lo = mid + 1
		case k > ts:
			hi = mid - 1
		default:
			return mid
		}
	}
	return -1
}

// NearestIndexOf returns the lower-bound position of ts: the index of ts if
// present, otherwise the index at which ts would be inserted. The result is
// always in [0, Len()].
func (s *Series) NearestIndexOf(ts int64) int {
	lo, hi := 0, s.size-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch k := s.keys[mid]; {
		case k < ts:
			lo = mid + 1
		case k > ts:
			hi = mid - 1
		default:
			return mid
		}
	}
	return lo
}

// ValueAsOf returns the value of the last point at or before ts.
// It returns false if every point is after ts.
func (s *Series) ValueAsOf(ts int64) (float32, bool) {
	i := s.NearestIndexOf(ts)
	if i < s.size && s.keys[i] == ts {
		return s.values[i], true
	}
	if i == 0 {
		return 0, false
	}
	return s.values[i-1], true
}

// TrimToSize shrinks the backing arrays to the number of points.
func (s *Series) TrimToSize() {
	s.modCount++
	if s.size == len(s.keys) {
		return
	}
	if s.size == 0 {
		s.keys, s.values = nil, nil
		return
	}
	s.keys = append([]int64(nil), s.keys[:s.size]...)
	s.values = append([]float32(nil), s.values[:s.size]...)
}

// Keys returns a copy of the timestamps in ascending order.
func (s *Series) Keys() []int64 {
	return append([]int64(nil), s.keys[:s.size]...)
}

// Values returns a copy of the values in key order.
func (s *Series) Values() []float32 {
	return append([]float32(nil), s.values[:s.size]...)
}

// ForEach calls fn for every point in key order. It stops and returns
// ErrConcurrentModification as soon as fn changes the series structure.
func (s *Series) ForEach(fn func(ts int64, v float32)) error {
	mc := s.modCount
	for i := 0; i < s.size; i++ {
		fn(s.keys[i], s.values[i])
		if s.modCount != mc {
			return ErrConcurrentModification
		}
	}
	return nil
}

// Clone returns a deep copy sized exactly to the current points.
func (s *Series) Clone() *Series {
	return &Series{
		keys:   s.Keys(),
		values: s.Values(),
		size:   s.size,
	}
}

// Equal reports whether both series hold the same points.
func (s *Series) Equal(o *Series) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.size != o.size {
		return false
	}
	for i := 0; i < s.size; i++ {
		if s.keys[i] != o.keys[i] {
			return false
		}
		if s.values[i] != o.values[i] && !(IsMissing(s.values[i]) && IsMissing(o.values[i])) {
			return false
		}
	}
	return true
}

// String renders the series as {k1=v1, k2=v2}.
func (s *Series) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i := 0; i < s.size; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.FormatInt(s.keys[i], 10))
		sb.WriteByte('=')
		sb.WriteString(strconv.FormatFloat(float64(s.values[i]), 'g', -1, 32))
	}
	sb.WriteByte('}')
	return sb.String()
}

func (s *Series) grow() {
	old := len(s.keys)
	n := old + old>>1
	if old < minGrowCapacity {
		n = defaultCapacity
	}

	keys := make([]int64, n)
	values := make([]float32, n)
	copy(keys, s.keys[:s.size])
	copy(values, s.values[:s.size])
	s.keys, s.values = keys, values
}
