package wizard

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"vmanager/internal/domain"
	"vmanager/internal/protocol"
)

const (
	minNameLength = 3
	minPort       = 1025
	maxPort       = 65535

	msgCancelled  = "Server creation cancelled."
	msgBadData    = "Failed to process server data. Please try again."
	msgSent       = "Creation request sent to proxy..."
	promptConfirm = "Type 'yes' to create or 'no' to cancel."
)

// Start opens a session at NAME.
func Start(id string, flow Flow, correlate bool) (Session, []Effect) {
	s := Session{ID: id, Flow: flow, Correlate: correlate, Step: StepName}
	return s, prompt(&s)
}

// Apply applies one input. A session at DONE ignores everything.
func Apply(s Session, in Input) (Session, []Effect) {
	if !s.Active() {
		return s, nil
	}

	switch in := in.(type) {
	case Text:
		return onText(s, strings.TrimSpace(in.Value))
	case VersionsArrived:
		return onVersions(s, in)
	case BuildsArrived:
		return onBuilds(s, in)
	case Malformed:
		if !s.expects(in.Kind, "", in.Corr) {
			return s, nil
		}
		return fail(s, msgBadData)
	default:
		return s, nil
	}
}

func onText(s Session, input string) (Session, []Effect) {
	if strings.EqualFold(input, "cancel") {
		s.Step = StepDone
		return s, []Effect{Say{Text: msgCancelled, Tone: ToneError}, End{Reason: EndCancelled}}
	}

	switch s.Step {
	case StepName:
		if len([]rune(input)) < minNameLength {
			return reject(s, "Name must be at least 3 characters.")
		}
		s.Name = input
		return advance(s, StepPort)

	case StepPort:
		p, err := strconv.Atoi(input)
		if err != nil || p < minPort || p > maxPort {
			return reject(s, "Invalid port. Must be a number between 1025-65535.")
		}
		s.Port = p
		return advance(s, StepType)

	case StepType:
		sw, ok := matchSoftware(input)
		if !ok {
			return reject(s, "Invalid type. Please enter 'PaperMC' or 'Velocity'.")
		}
		s.Software = sw
		return advance(s, StepVersion)

	case StepVersion:
		if !slices.Contains(s.Versions, input) {
			return s, append([]Effect{Say{Text: "Invalid version. Please select one from the list.", Tone: ToneError}}, versionChoices(s)...)
		}
		s.Version = input
		if s.Flow == FlowReduced {
			s.Build = LatestBuild
			return advance(s, StepConfirmation)
		}
		return advance(s, StepBuild)

	case StepBuild:
		b, err := strconv.Atoi(input)
		if err != nil || !slices.Contains(s.Builds, b) {
			return s, append([]Effect{Say{Text: "Invalid build number. Please select one from the list.", Tone: ToneError}}, buildChoices(s)...)
		}
		s.Build = input
		return advance(s, StepConfirmation)

	case StepConfirmation:
		switch strings.ToLower(input) {
		case "yes":
			create, err := protocol.NewCreateServer(s.request())
			if err != nil {
				return fail(s, msgBadData)
			}
			s.Step = StepDone
			return s, []Effect{
				Send{Frame: protocol.Frame{Body: create}},
				Say{Text: msgSent, Tone: ToneStatus},
				End{Reason: EndCompleted},
			}
		case "no":
			s.Step = StepDone
			return s, []Effect{Say{Text: msgCancelled, Tone: ToneError}, End{Reason: EndDeclined}}
		default:
			return s, []Effect{
				Say{Text: "Please type 'yes' or 'no'.", Tone: ToneError},
				Say{Text: promptConfirm, Tone: TonePrompt},
			}
		}
	}

	return s, nil
}

func onVersions(s Session, in VersionsArrived) (Session, []Effect) {
	if !s.expects(protocol.KindVersions, in.Msg.Software, in.Corr) {
		return s, nil
	}
	s.Awaiting, s.Pending = "", ""

	if in.Msg.Error != "" {
		return fail(s, "Could not fetch versions: "+in.Msg.Error)
	}
	if len(in.Msg.List) == 0 {
		return fail(s, fmt.Sprintf("No versions available for %s.", s.Software))
	}

	s.Versions = reversed(in.Msg.List)
	return s, append([]Effect{Say{Text: "Please choose a version from the list:", Tone: TonePrompt}}, versionChoices(s)...)
}

func onBuilds(s Session, in BuildsArrived) (Session, []Effect) {
	if !s.expects(protocol.KindBuilds, in.Msg.Software, in.Corr) {
		return s, nil
	}
	s.Awaiting, s.Pending = "", ""

	if in.Msg.Error != "" {
		return fail(s, "Could not fetch builds: "+in.Msg.Error)
	}
	if len(in.Msg.List) == 0 {
		return fail(s, fmt.Sprintf("No builds available for %s.", s.Version))
	}

	s.Builds = reversed(in.Msg.List)
	latest := strconv.Itoa(s.Builds[0])
	return s, append([]Effect{Say{Text: fmt.Sprintf("Please choose a build (latest is %s):", latest), Tone: TonePrompt}}, buildChoices(s)...)
}

// expects reports whether a catalog response belongs to the request this session
// is waiting on. sw may be empty when the software is unknown.
func (s Session) expects(kind protocol.Kind, sw domain.Software, corr string) bool {
	if s.Awaiting != kind {
		return false
	}
	if sw != "" && sw != s.Software {
		return false
	}
	return corr == "" || s.Pending == "" || corr == s.Pending
}

func advance(s Session, next Step) (Session, []Effect) {
	s.Step = next
	return s, prompt(&s)
}

func reject(s Session, msg string) (Session, []Effect) {
	return s, append([]Effect{Say{Text: msg, Tone: ToneError}}, prompt(&s)...)
}

func fail(s Session, msg string) (Session, []Effect) {
	s.Step = StepDone
	s.Awaiting, s.Pending = "", ""
	return s, []Effect{Say{Text: msg, Tone: ToneError}, End{Reason: EndFailed}}
}

// prompt renders the question for the current step. Entering VERSION or BUILD
// also issues the catalog request, so it mutates the pending token.
func prompt(s *Session) []Effect {
	switch s.Step {
	case StepName:
		return []Effect{Say{Text: "Enter a name for the new server:", Tone: TonePrompt}}
	case StepPort:
		return []Effect{Say{Text: "Enter a port number (1025-65535):", Tone: TonePrompt}}
	case StepType:
		return []Effect{Say{Text: "Enter server type (PaperMC or Velocity):", Tone: TonePrompt}}
	case StepVersion:
		s.Versions = nil
		s.Awaiting, s.Pending = protocol.KindVersions, s.nextToken()
		return []Effect{
			Say{Text: "Fetching available versions...", Tone: ToneStatus},
			Send{Frame: protocol.Frame{Corr: s.Pending, Body: protocol.GetVersions{Software: s.Software}}},
		}
	case StepBuild:
		s.Builds = nil
		s.Awaiting, s.Pending = protocol.KindBuilds, s.nextToken()
		return []Effect{
			Say{Text: fmt.Sprintf("Fetching available builds for %s...", s.Version), Tone: ToneStatus},
			Send{Frame: protocol.Frame{Corr: s.Pending, Body: protocol.GetBuilds{Software: s.Software, Version: s.Version}}},
		}
	case StepConfirmation:
		return []Effect{
			Say{Text: "--- Server Configuration ---", Tone: ToneHeading},
			Say{Text: "Name: " + s.Name, Tone: ToneDetail},
			Say{Text: "Port: " + strconv.Itoa(s.Port), Tone: ToneDetail},
			Say{Text: "Type: " + string(s.Software), Tone: ToneDetail},
			Say{Text: "Version: " + s.Version, Tone: ToneDetail},
			Say{Text: "Build: " + s.Build, Tone: ToneDetail},
			Say{Text: promptConfirm, Tone: TonePrompt},
		}
	default:
		return nil
	}
}

func versionChoices(s Session) []Effect {
	if len(s.Versions) == 0 {
		return nil
	}
	return []Effect{Choices{Options: slices.Clone(s.Versions)}}
}

func buildChoices(s Session) []Effect {
	if len(s.Builds) == 0 {
		return nil
	}
	options := make([]string, len(s.Builds))
	for i, b := range s.Builds {
		options[i] = strconv.Itoa(b)
	}
	return []Effect{Choices{Options: options, Default: options[0]}}
}

func matchSoftware(input string) (domain.Software, bool) {
	for _, sw := range domain.Softwares() {
		if strings.EqualFold(input, string(sw)) {
			return sw, true
		}
	}
	return "", false
}

func reversed[T any](in []T) []T {
	out := slices.Clone(in)
	slices.Reverse(out)
	return out
}
