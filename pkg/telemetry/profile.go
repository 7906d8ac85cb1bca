package telemetry

import (
	"slices"
	"strings"
	"unicode"
)

// Profile holds the flight constants the synthesizer shapes its curves with.
// Times are seconds after T-0, velocities m/s, altitudes meters.
type Profile struct {
	ID      string
	Name    string
	Aliases []string

	MaxQ            float64
	MECO            float64
	SeparationCoast float64
	SECO            float64

	SeparationVelocity float64
	OrbitalVelocity    float64
	OrbitalAltitude    float64

	// FirstStageExponent shapes the first-stage velocity curve; >1 means
	// acceleration grows as propellant mass drops.
	FirstStageExponent float64
	MaxQThrottle       float64
	ResidualPropellant float64
}

// SecondStageIgnition is when the upper stage lights after separation.
func (p Profile) SecondStageIgnition() float64 {
	return p.MECO + p.SeparationCoast
}

// DefaultProfileID names the profile used for unrecognized vehicles.
const DefaultProfileID = "falcon9"

var profiles = []Profile{
	{
		ID: "falcon9", Name: "Falcon 9", Aliases: []string{"falcon9", "f9"},
		MaxQ: 72, MECO: 162, SeparationCoast: 8, SECO: 522,
		SeparationVelocity: 2300, OrbitalVelocity: 7800, OrbitalAltitude: 210000,
		FirstStageExponent: 1.6, MaxQThrottle: 72, ResidualPropellant: 4,
	},
	{
		ID: "falconheavy", Name: "Falcon Heavy", Aliases: []string{"falconheavy", "fh"},
		MaxQ: 66, MECO: 184, SeparationCoast: 10, SECO: 510,
		SeparationVelocity: 2600, OrbitalVelocity: 7900, OrbitalAltitude: 250000,
		FirstStageExponent: 1.5, MaxQThrottle: 75, ResidualPropellant: 5,
	},
	{
		ID: "electron", Name: "Electron", Aliases: []string{"electron"},
		MaxQ: 70, MECO: 152, SeparationCoast: 4, SECO: 530,
		SeparationVelocity: 2100, OrbitalVelocity: 7600, OrbitalAltitude: 500000,
		FirstStageExponent: 1.7, MaxQThrottle: 80, ResidualPropellant: 3,
	},
	{
		ID: "atlasv", Name: "Atlas V", Aliases: []string{"atlasv", "atlas5", "atlas"},
		MaxQ: 80, MECO: 253, SeparationCoast: 10, SECO: 900,
		SeparationVelocity: 3700, OrbitalVelocity: 7800, OrbitalAltitude: 185000,
		FirstStageExponent: 1.4, MaxQThrottle: 78, ResidualPropellant: 6,
	},
	{
		ID: "starship", Name: "Starship", Aliases: []string{"starship", "superheavy"},
		MaxQ: 62, MECO: 160, SeparationCoast: 5, SECO: 520,
		SeparationVelocity: 1500, OrbitalVelocity: 7400, OrbitalAltitude: 150000,
		FirstStageExponent: 1.8, MaxQThrottle: 65, ResidualPropellant: 6,
	},
}

// Profiles returns a copy of the built-in vehicle profiles.
func Profiles() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// LookupProfile resolves a free-text vehicle name to a profile. Unknown
// vehicles fall back to the default profile and report false.
func LookupProfile(vehicle string) (Profile, bool) {
	key := normalizeVehicle(vehicle)
	if key == "" {
		return defaultProfile(), false
	}
	tokens := vehicleTokens(vehicle)
	for _, p := range profiles {
		if key == p.ID {
			return p, true
		}
	}
	for _, p := range profiles {
		for _, alias := range p.Aliases {
			if matchesAlias(key, tokens, alias) {
				return p, true
			}
		}
	}
	return defaultProfile(), false
}

// minSubstringAlias is the shortest alias matched anywhere in a name.
// Shorter aliases such as "f9" must stand alone as a word.
const minSubstringAlias = 5

func matchesAlias(key string, tokens []string, alias string) bool {
	if key == alias {
		return true
	}
	if len(alias) >= minSubstringAlias {
		return strings.Contains(key, alias)
	}
	return slices.Contains(tokens, alias)
}

func defaultProfile() Profile {
	for _, p := range profiles {
		if p.ID == DefaultProfileID {
			return p
		}
	}
	return profiles[0]
}

func normalizeVehicle(vehicle string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(vehicle) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func vehicleTokens(vehicle string) []string {
	return strings.FieldsFunc(strings.ToLower(vehicle), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
