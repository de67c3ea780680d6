// Package constants holds configuration values shared across layers.
package constants

import "time"

// MaxSessionDuration bounds the requested length of a timed focus session.
const MaxSessionDuration = 30 * 24 * time.Hour

const (
	// EnvDevelop is the env.env value of local development.
	EnvDevelop = "develop"

	// PubSubProviderNoop disables event publishing.
	PubSubProviderNoop = "noop"
	// PubSubProviderLocal posts events to an HTTP endpoint.
	PubSubProviderLocal = "local"
	// PubSubProviderGoogle publishes events to Google Cloud Pub/Sub.
	PubSubProviderGoogle = "google"

	// StorageDriverMemory keeps all state in process memory.
	StorageDriverMemory = "memory"
)
