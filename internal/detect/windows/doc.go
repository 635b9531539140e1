// Package windows computes the boundary search windows for a
// multi-episode file. Window placement prefers, in order: authoritative
// episode chapter marks, expected runtimes plus observed commercial time,
// expected runtimes alone, commercial break positions, and finally equal
// division of the file duration.
package windows
