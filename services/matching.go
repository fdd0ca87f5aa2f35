// services/matching.go
package services

import (
	"strings"

	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"

	"party-game-system/models"
)

// GameMatcher decides whether a game is playable with the items the players
// have on hand. Two tiers implement it: StructuredMatcher over fetched
// material-requirement data, and LegacyAliasMatcher over the declared alias
// table. Selection code is agnostic to which is active.
type GameMatcher interface {
	CanPlay(game models.Game, items []string, playerCount int) bool
}

// normalizeMaterial flattens a material/item name for comparison.
func normalizeMaterial(s string) string {
	return strings.ToLower(strings.TrimSpace(unidecode.Unidecode(s)))
}

// matchesMaterial reports whether one item name satisfies one material name.
// The two length thresholds are false-positive guards: a long item may
// contain a short material name ("Plastic Cup" has "Cup"), but a short item
// may only stand in for a slightly longer material ("Paper" must not satisfy
// "Paper Cup").
func matchesMaterial(item, material string) bool {
	it := normalizeMaterial(item)
	mat := normalizeMaterial(material)
	if it == "" || mat == "" {
		return false
	}
	if strings.Contains(it, mat) && len(it)-len(mat) <= 10 {
		return true
	}
	if strings.Contains(mat, it) && len(mat)-len(it) <= 3 {
		return true
	}
	return false
}

// countMatching returns how many of the supplied items satisfy the material.
func countMatching(items []string, material string) int {
	count := 0
	for _, item := range items {
		if matchesMaterial(item, material) {
			count++
		}
	}
	return count
}

// StructuredMatcher matches against fetched MaterialRequirement rows,
// including per-game alternative allow-flags.
type StructuredMatcher struct {
	// Requirements maps game id → its material requirements.
	Requirements map[string][]models.MaterialRequirement
}

func NewStructuredMatcher(reqs map[string][]models.MaterialRequirement) *StructuredMatcher {
	return &StructuredMatcher{Requirements: reqs}
}

// CanPlay checks every requirement of the game: the item set must cover the
// required quantity of the material itself, or of one explicitly-allowed
// alternative. A game with no requirement rows needs nothing.
func (m *StructuredMatcher) CanPlay(game models.Game, items []string, playerCount int) bool {
	reqs, ok := m.Requirements[game.ID]
	if !ok {
		return false
	}
	for _, req := range reqs {
		needed := req.Quantity
		if req.QuantityType == models.QuantityPerUser {
			needed = req.Quantity * playerCount
		}
		if needed <= 0 {
			continue
		}

		if countMatching(items, req.MaterialName) >= needed {
			continue
		}

		satisfied := false
		for _, alt := range req.Alternatives {
			if !alt.Allowed {
				continue
			}
			if countMatching(items, alt.MaterialName) >= needed {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}

// materialAliases is the declared table of common household substitutions,
// keyed by the slug of the canonical material name. Used when structured
// requirement data is unavailable (offline, or the materials fetch failed).
var materialAliases = map[string][]string{
	slug.Make("Pencil"):  {"pen", "marker", "crayon"},
	slug.Make("Pen"):     {"pencil", "marker"},
	slug.Make("Cup"):     {"mug", "glass", "tumbler"},
	slug.Make("Bowl"):    {"pot", "basin"},
	slug.Make("Spoon"):   {"tablespoon", "teaspoon"},
	slug.Make("Paper"):   {"notebook", "notepad", "sheet"},
	slug.Make("Tape"):    {"masking tape", "duct tape"},
	slug.Make("Towel"):   {"cloth", "rag"},
	slug.Make("String"):  {"yarn", "rope", "thread"},
	slug.Make("Ball"):    {"tennis ball", "sock ball"},
	slug.Make("Coin"):    {"bottle cap", "button"},
	slug.Make("Blanket"): {"bedsheet", "duvet"},
}

// LegacyAliasMatcher matches a game's plain material-name list against the
// item set, allowing alias-table substitutions. One of each material is
// enough; the legacy data carries no quantities.
type LegacyAliasMatcher struct {
	Aliases map[string][]string
}

func NewLegacyAliasMatcher() *LegacyAliasMatcher {
	return &LegacyAliasMatcher{Aliases: materialAliases}
}

func (m *LegacyAliasMatcher) CanPlay(game models.Game, items []string, playerCount int) bool {
	for _, material := range game.Materials {
		if countMatching(items, material) > 0 {
			continue
		}
		satisfied := false
		for _, alias := range m.Aliases[slug.Make(material)] {
			if countMatching(items, alias) > 0 {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}
