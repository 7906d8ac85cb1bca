package mission

import (
	"errors"
	"fmt"
	"strings"
)

// Phase is a named interval of the mission timeline, [Start, End) seconds
// relative to T-0.
type Phase struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Start       int64  `json:"startOffset"`
	End         int64  `json:"endOffset"`
}

// Contains reports whether t falls inside the phase window.
func (p Phase) Contains(t int64) bool {
	return t >= p.Start && t < p.End
}

const (
	PhasePreLaunch       = "pre_launch"
	PhaseTerminalCount   = "terminal_count"
	PhaseLiftoff         = "liftoff"
	PhaseMaxQ            = "max_q"
	PhaseFirstStage      = "first_stage"
	PhaseStageSeparation = "stage_separation"
	PhaseSecondStage     = "second_stage"
	PhaseOrbitInsertion  = "orbit_insertion"
	PhasePayloadDeploy   = "payload_deploy"
)

// Earliest and latest mission times covered by the catalog.
const (
	CatalogStart int64 = -3600
	CatalogEnd   int64 = 7200
)

var catalog = []Phase{
	{ID: PhasePreLaunch, Name: "Pre-Launch", Icon: "🛰️", Description: "Propellant load and vehicle checkouts", Start: -3600, End: -600},
	{ID: PhaseTerminalCount, Name: "Terminal Count", Icon: "⏱️", Description: "Final poll complete, auto-sequence running", Start: -600, End: 0},
	{ID: PhaseLiftoff, Name: "Liftoff", Icon: "🚀", Description: "Vehicle has cleared the tower", Start: 0, End: 60},
	{ID: PhaseMaxQ, Name: "Max-Q", Icon: "💨", Description: "Peak aerodynamic pressure", Start: 60, End: 90},
	{ID: PhaseFirstStage, Name: "First Stage Flight", Icon: "🔥", Description: "First stage burning toward MECO", Start: 90, End: 160},
	{ID: PhaseStageSeparation, Name: "Stage Separation", Icon: "✂️", Description: "MECO and stage separation", Start: 160, End: 175},
	{ID: PhaseSecondStage, Name: "Second Stage Burn", Icon: "🌌", Description: "Upper stage pushing to orbit", Start: 175, End: 540},
	{ID: PhaseOrbitInsertion, Name: "Orbit Insertion", Icon: "🌍", Description: "SECO and orbital coast", Start: 540, End: 3600},
	{ID: PhasePayloadDeploy, Name: "Payload Deployment", Icon: "📦", Description: "Payload separation and deployment", Start: 3600, End: 7200},
}

// Catalog returns a copy of the ordered phase catalog.
func Catalog() []Phase {
	out := make([]Phase, len(catalog))
	copy(out, catalog)
	return out
}

// LookupPhase finds a catalog entry by id.
func LookupPhase(id string) (Phase, bool) {
	id = strings.TrimSpace(id)
	for _, p := range catalog {
		if p.ID == id {
			return p, true
		}
	}
	return Phase{}, false
}

// CurrentPhase returns the first phase whose window contains t. Mission times
// outside the catalog have no phase.
func CurrentPhase(t int64) (Phase, bool) {
	for _, p := range catalog {
		if p.Contains(t) {
			return p, true
		}
	}
	return Phase{}, false
}

// ResolvePhase applies a manual override before falling back to the
// time-derived phase. Unknown override ids are ignored.
func ResolvePhase(t int64, override string) (Phase, bool) {
	if override != "" {
		if p, ok := LookupPhase(override); ok {
			return p, true
		}
	}
	return CurrentPhase(t)
}

// ValidateCatalog checks that phases are non-empty, ordered, contiguous and
// non-overlapping.
func ValidateCatalog(phases []Phase) error {
	if len(phases) == 0 {
		return errors.New("phase catalog is empty")
	}
	seen := make(map[string]struct{}, len(phases))
	for i, p := range phases {
		if p.ID == "" {
			return fmt.Errorf("phase %d: id required", i)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("phase %s: duplicate id", p.ID)
		}
		seen[p.ID] = struct{}{}
		if p.End <= p.Start {
			return fmt.Errorf("phase %s: empty window [%d, %d)", p.ID, p.Start, p.End)
		}
		if i > 0 && phases[i-1].End != p.Start {
			return fmt.Errorf("phase %s: starts at %d, previous ends at %d", p.ID, p.Start, phases[i-1].End)
		}
	}
	return nil
}
