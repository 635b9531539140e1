// Package services holds the shared error taxonomy for detection and
// splitting components, plus helpers to classify failures at the CLI
// boundary.
package services
