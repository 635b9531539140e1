// Package vision talks to a local model host (Ollama-compatible API) to
// classify single video frames as credits, logo, outro, title card, or
// recap material. The service is treated as unstable: requests carry a
// bounded retry policy and detector callers degrade to empty results when
// retries are exhausted.
package vision
