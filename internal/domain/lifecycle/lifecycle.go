// Package lifecycle holds shared values for component start and shutdown.
package lifecycle

import "time"

// DefaultTimeout bounds start-up checks and graceful shutdown of a component.
const DefaultTimeout = 10 * time.Second
