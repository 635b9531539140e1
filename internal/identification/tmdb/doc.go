// Package tmdb is the runtime-metadata service client. The window
// determiner uses per-episode runtimes from season details to predict
// boundary locations; precision mode uses them as its drift baseline.
package tmdb
