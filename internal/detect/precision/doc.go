// Package precision implements the dense sequential detection mode for
// clean, commercial-free sources. Windows are sampled at a fine interval
// and resolved in order; each boundary's error against its prediction is
// accumulated as drift and shifts every later window. An optional symbolic
// boundary pattern replaces clump selection with typed token matching.
package precision
