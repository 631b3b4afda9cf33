package domain

import (
	"fmt"
	"strings"
)

// Software is a server flavour whose versions and builds can be enumerated.
type Software string

const (
	SoftwarePaperMC  Software = "PaperMC"
	SoftwareVelocity Software = "Velocity"
)

// ParseSoftware accepts the display name or the wire token in any casing.
func ParseSoftware(s string) (Software, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "papermc", "papertmc":
		return SoftwarePaperMC, nil
	case "velocity":
		return SoftwareVelocity, nil
	default:
		return "", fmt.Errorf("unknown software type '%s'", s)
	}
}

// Token is the upper-case form used inside protocol command names.
func (s Software) Token() string {
	return strings.ToUpper(string(s))
}

// Project is the PaperMC API project id.
func (s Software) Project() string {
	switch s {
	case SoftwarePaperMC:
		return "paper"
	case SoftwareVelocity:
		return "velocity"
	default:
		return strings.ToLower(string(s))
	}
}

// BuildField is the create payload key that carries the chosen build.
func (s Software) BuildField() string {
	if s == SoftwarePaperMC {
		return "paperBuild"
	}
	return "velocityBuild"
}

func Softwares() []Software {
	return []Software{SoftwarePaperMC, SoftwareVelocity}
}

type Verb string

const (
	VerbStart   Verb = "start"
	VerbStop    Verb = "stop"
	VerbRestart Verb = "restart"
)

func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case VerbStart, VerbStop, VerbRestart:
		return v, nil
	default:
		return "", fmt.Errorf("unknown action '%s'", s)
	}
}

// Disruptive reports whether the verb interrupts the server's connections.
func (v Verb) Disruptive() bool {
	return v == VerbStop || v == VerbRestart
}

func Verbs() []Verb {
	return []Verb{VerbStart, VerbStop, VerbRestart}
}
