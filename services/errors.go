// services/errors.go
package services

import "errors"

// Error kinds surfaced by the core. The UI branches its remediation
// messaging on these, so they must stay distinguishable.
var (
	// ErrNoActiveSession: a mutating operation ran before CreateSession.
	ErrNoActiveSession = errors.New("no active session")

	// ErrNoCachedGames: offline game selection with an empty catalog cache.
	ErrNoCachedGames = errors.New("no cached games available offline")

	// ErrNoMatchingGames: the cache has games but none match the current
	// player-count/premium/material constraints.
	ErrNoMatchingGames = errors.New("no games match the selected items")

	// ErrNoPlayableGames: every candidate was dropped by the defensive
	// re-validation pass.
	ErrNoPlayableGames = errors.New("no playable games after validation")

	// ErrCatalogNotFound: a single-entity catalog lookup found nothing.
	// Distinct from transport errors so best-effort paths can mask it.
	ErrCatalogNotFound = errors.New("catalog record not found")
)
