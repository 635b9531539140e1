// Package identification extracts structured metadata from multi-episode
// source files: title, season, and episode range from the filename, and
// expected per-episode runtimes from the TMDB service. Parse failures
// degrade to an unknown title instead of aborting.
package identification
