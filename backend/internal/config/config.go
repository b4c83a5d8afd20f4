/*
 * backend/internal/config/config.go
 *
 * Timing and sizing settings used across collectors, batch jobs and the API.
 */

package config

import "time"

// Timing knobs used across the backend.
const (
	// CollectionTimeout bounds a single namespace collection against a live cluster.
	CollectionTimeout = 30 * time.Second

	// CollectionConcurrency caps how many resource kinds are listed in parallel per namespace.
	CollectionConcurrency = 4

	// BatchConcurrency caps how many namespace pairs a batch compares at once.
	BatchConcurrency = 8

	// JobTimeout bounds a whole batch job, collection included.
	JobTimeout = 10 * time.Minute

	// JobMaxAttempts limits how many times snapshot resolution is retried for a pair.
	JobMaxAttempts = 3

	// JobRetryDelay is the base delay between resolution retries; it doubles per attempt.
	JobRetryDelay = 1 * time.Second

	// JobRetryMaxDelay caps the exponential retry delay.
	JobRetryMaxDelay = 30 * time.Second

	// JobQueueDepth is the number of jobs that can wait for a worker before Enqueue blocks.
	JobQueueDepth = 64

	// JobRetention is how long finished jobs stay queryable.
	JobRetention = time.Hour

	// IgnoreWatchDebounce coalesces bursts of writes to the ignore configuration.
	IgnoreWatchDebounce = 500 * time.Millisecond

	// WatchPollInterval is how often a job watch stream checks for state changes.
	WatchPollInterval = 250 * time.Millisecond

	// WatchWriteTimeout bounds websocket writes for job watch streams.
	WatchWriteTimeout = 10 * time.Second

	// WatchHandshakeTimeout bounds websocket upgrade handshakes.
	WatchHandshakeTimeout = 45 * time.Second

	// WatchReadBufferSize configures websocket read buffer sizing.
	WatchReadBufferSize = 4096

	// WatchWriteBufferSize configures websocket write buffer sizing.
	WatchWriteBufferSize = 4096

	// LogHistorySize caps the in-memory log history exposed by the API.
	LogHistorySize = 1000

	// ServerReadHeaderTimeout bounds request header reads on the API server.
	ServerReadHeaderTimeout = 10 * time.Second
)
