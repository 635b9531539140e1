// Package cluster groups raw detections that fall within a temporal
// tolerance into candidate boundary clusters and scores them. Clustering
// is deterministic: identical input sets always produce identical
// clusters and scores.
package cluster
