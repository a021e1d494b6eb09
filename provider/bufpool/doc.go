// Package bufpool provides a sync.Pool-backed proction.Provider, plus
// Buffer, a reusable ring of samples for accumulation-style intermediate
// values such as a running sum or a windowed average.
package bufpool
