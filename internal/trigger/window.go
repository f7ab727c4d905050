package trigger

import "github.com/kimlab-seismo/detectQuake/internal/sampler"

// Window is a fixed-capacity ring of the most recent samples. Insertion order
// is temporal order; once full the oldest sample is overwritten.
type Window struct {
	data []sampler.Sample
	pos  int
	full bool
	size int
}

// NewWindow creates a Window holding up to size samples. Sizes below one are
// treated as one.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{
		data: make([]sampler.Sample, size),
		size: size,
	}
}

// Push appends s, evicting the oldest sample when the window is full.
func (w *Window) Push(s sampler.Sample) {
	w.data[w.pos] = s
	w.pos++
	if w.pos >= w.size {
		w.pos = 0
		w.full = true
	}
}

// Len returns the number of samples held.
func (w *Window) Len() int {
	if w.full {
		return w.size
	}
	return w.pos
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return w.size
}

// Full reports whether the window holds Cap samples.
func (w *Window) Full() bool {
	return w.full
}

// Recent returns the i-th most recent sample; Recent(0) is the newest.
// It panics if i is out of range.
func (w *Window) Recent(i int) sampler.Sample {
	if i < 0 || i >= w.Len() {
		panic("trigger: window index out of range")
	}
	return w.data[(w.pos-1-i+w.size)%w.size]
}

// Newest returns the most recently pushed sample, or false if empty.
func (w *Window) Newest() (sampler.Sample, bool) {
	if w.Len() == 0 {
		return sampler.Sample{}, false
	}
	return w.Recent(0), true
}
