// Package wlsb implements RFC 3095 §4.5.1/§4.5.2 Least Significant Bits and
// Window-based LSB encoding: computing the smallest bit width that lets a
// decompressor recover a changing value unambiguously from a known window of
// reference values.
package wlsb

import "fmt"

// MaxWindowWidth bounds the window so bit-width search stays O(window) with a
// small constant; RFC 3095 deployments rarely need more than a handful of
// outstanding references.
const MaxWindowWidth = 64

// interpretationInterval returns [lower, upper] for a k-bit LSB field with
// interpretation offset p, relative to reference v_ref, per RFC 3095 §4.5.1:
//
//	lower = v_ref - p
//	upper = v_ref + (2^k - 1) - p
func interpretationInterval(vRef int64, k uint, p int64) (lower, upper int64) {
	span := int64(1)<<k - 1
	return vRef - p, vRef + span - p
}

// fits reports whether v falls inside the k-bit interpretation interval
// anchored at vRef with offset p, modulo the field's value space (2^fieldBits).
func fits(v, vRef int64, k uint, p int64, fieldBits uint) bool {
	mod := int64(1) << fieldBits
	lower, upper := interpretationInterval(vRef, k, p)
	// Normalize v into the interval's neighbourhood: try v, v+mod, v-mod so
	// wraparound values (e.g. SN 0xFFFF -> 0x0000) are still recognised.
	for _, cand := range [3]int64{v, v + mod, v - mod} {
		if cand >= lower && cand <= upper {
			return true
		}
	}
	return false
}

// MinBits returns the smallest k in [0, maxK] such that v lies in every
// reference value's k-bit interpretation interval (offset p, field width
// fieldBits bits). It returns ok=false if no such k exists within maxK.
func MinBits(v int64, refs []int64, p int64, fieldBits uint, maxK uint) (k uint, ok bool) {
	for k = 0; k <= maxK; k++ {
		all := true
		for _, r := range refs {
			if !fits(v, r, k, p, fieldBits) {
				all = false
				break
			}
		}
		if all {
			return k, true
		}
	}
	return maxK, false
}

// Window is a ring of up to `width` recent reference values used to compute
// the minimum LSB width that remains decodable against every outstanding
// reference (RFC 3095 §4.5.2). Width must be a power of two.
type Window struct {
	p         int64
	fieldBits uint
	width     int
	values    []int64
}

// NewWindow creates a W-LSB window. p is the field's fixed interpretation
// offset (e.g. -1 for SN, 0 for IP-ID offset); fieldBits is the bit width of
// the underlying value space (16 for a 16-bit SN); width must be a power of
// two in [1, MaxWindowWidth].
func NewWindow(p int64, fieldBits uint, width int) (*Window, error) {
	if width <= 0 || width > MaxWindowWidth || width&(width-1) != 0 {
		return nil, fmt.Errorf("wlsb: window width %d is not a power of two in [1,%d]", width, MaxWindowWidth)
	}
	return &Window{p: p, fieldBits: fieldBits, width: width}, nil
}

// Width returns the configured window width.
func (w *Window) Width() int { return w.width }

// SetWidth changes the window width; it must be called only before the
// window carries any references (mirrors the Compressor's sticky
// initialisation guard at the call site).
func (w *Window) SetWidth(width int) error {
	if width <= 0 || width > MaxWindowWidth || width&(width-1) != 0 {
		return fmt.Errorf("wlsb: window width %d is not a power of two in [1,%d]", width, MaxWindowWidth)
	}
	w.width = width
	return nil
}

// Add inserts a newly sent value as a reference, evicting the oldest entry
// once the window is full.
func (w *Window) Add(v int64) {
	w.values = append(w.values, v)
	if len(w.values) > w.width {
		w.values = w.values[len(w.values)-w.width:]
	}
}

// Purge drops references older than the given value's position, used when an
// O-mode ACK confirms the decompressor has moved its own reference forward.
// All references strictly less than upTo (in the field's linear space) are
// removed; at least one reference (the most recent) is always retained.
func (w *Window) Purge(upTo int64) {
	if len(w.values) <= 1 {
		return
	}
	kept := w.values[len(w.values)-1:]
	for i := 0; i < len(w.values)-1; i++ {
		if w.values[i] >= upTo {
			kept = append([]int64{w.values[i]}, kept...)
		}
	}
	w.values = kept
}

// Len reports the number of references currently held.
func (w *Window) Len() int { return len(w.values) }

// MinBitsFor returns the smallest k in [0, maxK] that keeps v decodable
// against every reference currently in the window. An empty window always
// returns k=0, ok=true (nothing to disambiguate against yet).
func (w *Window) MinBitsFor(v int64, maxK uint) (k uint, ok bool) {
	if len(w.values) == 0 {
		return 0, true
	}
	return MinBits(v, w.values, w.p, w.fieldBits, maxK)
}
