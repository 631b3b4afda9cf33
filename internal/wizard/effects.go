package wizard

import "vmanager/internal/protocol"

type Input interface{ isInput() }

// Text is one line typed by the user.
type Text struct {
	Value string
}

// VersionsArrived carries a decoded <TYPE>_VERSIONS response.
type VersionsArrived struct {
	Corr string
	Msg  protocol.Versions
}

// BuildsArrived carries a decoded <TYPE>_BUILDS response.
type BuildsArrived struct {
	Corr string
	Msg  protocol.Builds
}

// Malformed reports a versions or builds response whose payload failed to parse.
type Malformed struct {
	Corr string
	Kind protocol.Kind
	Err  error
}

func (Text) isInput()            {}
func (VersionsArrived) isInput() {}
func (BuildsArrived) isInput()   {}
func (Malformed) isInput()       {}

type Tone int

const (
	TonePrompt Tone = iota
	ToneStatus
	ToneError
	ToneHeading
	ToneDetail
)

type Effect interface{ isEffect() }

// Say shows a line of text to the user.
type Say struct {
	Text string
	Tone Tone
}

// Choices offers selectable values. Default, when set, is the suggested one.
type Choices struct {
	Options []string
	Default string
}

// Send asks the caller to put a frame on the channel.
type Send struct {
	Frame protocol.Frame
}

type EndReason int

const (
	EndCompleted EndReason = iota
	EndDeclined
	EndCancelled
	EndFailed
)

func (r EndReason) String() string {
	switch r {
	case EndCompleted:
		return "completed"
	case EndDeclined:
		return "declined"
	case EndCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// End means the session is finished and must be removed.
type End struct {
	Reason EndReason
}

func (Say) isEffect()     {}
func (Choices) isEffect() {}
func (Send) isEffect()    {}
func (End) isEffect()     {}
