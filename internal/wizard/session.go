// Package wizard collects the parameters for a new server through a short
// chat-style conversation. Step is a pure function: it takes a session and one
// input and returns the next session plus the effects the caller must perform.
package wizard

import (
	"fmt"
	"strings"

	"vmanager/internal/domain"
	"vmanager/internal/protocol"
)

type Step int

const (
	StepName Step = iota
	StepPort
	StepType
	StepVersion
	StepBuild
	StepConfirmation
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepName:
		return "NAME"
	case StepPort:
		return "PORT"
	case StepType:
		return "TYPE"
	case StepVersion:
		return "VERSION"
	case StepBuild:
		return "BUILD"
	case StepConfirmation:
		return "CONFIRMATION"
	case StepDone:
		return "DONE"
	default:
		return fmt.Sprintf("Step(%d)", int(s))
	}
}

// Flow selects the full conversation or the reduced one that skips BUILD.
type Flow int

const (
	FlowFull Flow = iota
	FlowReduced
)

func ParseFlow(s string) (Flow, error) {
	switch strings.ToLower(s) {
	case "", "full":
		return FlowFull, nil
	case "reduced":
		return FlowReduced, nil
	default:
		return FlowFull, fmt.Errorf("unknown wizard flow '%s'", s)
	}
}

const LatestBuild = "latest"

type Session struct {
	ID        string
	Flow      Flow
	Correlate bool
	Step      Step

	Name     string
	Port     int
	Software domain.Software
	Version  string
	Build    string

	// Newest first.
	Versions []string
	Builds   []int

	// Awaiting is the response kind the session is waiting for, Pending its token.
	Awaiting protocol.Kind
	Pending  string
	seq      int
}

func (s Session) Active() bool {
	return s.Step != StepDone
}

func (s *Session) nextToken() string {
	if !s.Correlate {
		return ""
	}
	s.seq++
	return fmt.Sprintf("%s.%d", s.ID, s.seq)
}

// request returns the payload of the final CREATE_SERVER command.
func (s Session) request() protocol.CreateRequest {
	req := protocol.CreateRequest{
		ServerName:    s.Name,
		Port:          fmt.Sprint(s.Port),
		ServerType:    string(s.Software),
		ServerVersion: s.Version,
	}
	if s.Build == LatestBuild || s.Build == "" {
		return req
	}
	if s.Software == domain.SoftwarePaperMC {
		req.PaperBuild = s.Build
	} else {
		req.VelocityBuild = s.Build
	}
	return req
}
