package wizard

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vmanager/internal/domain"
	"vmanager/internal/protocol"
)

func texts(effects []Effect) []string {
	var out []string
	for _, e := range effects {
		if s, ok := e.(Say); ok {
			out = append(out, s.Text)
		}
	}
	return out
}

func sends(effects []Effect) []protocol.Frame {
	var out []protocol.Frame
	for _, e := range effects {
		if s, ok := e.(Send); ok {
			out = append(out, s.Frame)
		}
	}
	return out
}

func choices(effects []Effect) (Choices, bool) {
	for _, e := range effects {
		if c, ok := e.(Choices); ok {
			return c, true
		}
	}
	return Choices{}, false
}

func ended(effects []Effect) (EndReason, bool) {
	for _, e := range effects {
		if end, ok := e.(End); ok {
			return end.Reason, true
		}
	}
	return 0, false
}

// feed applies inputs in order and returns the final session and the last effects.
func feed(t *testing.T, s Session, inputs ...Input) (Session, []Effect) {
	t.Helper()
	var effects []Effect
	for _, in := range inputs {
		s, effects = Apply(s, in)
	}
	return s, effects
}

func atVersion(t *testing.T, flow Flow) Session {
	t.Helper()
	s, _ := Start("w1", flow, true)
	s, _ = feed(t, s, Text{"lobby"}, Text{"25566"}, Text{"papermc"})
	require.Equal(t, StepVersion, s.Step)
	return s
}

func atBuild(t *testing.T) Session {
	t.Helper()
	s := atVersion(t, FlowFull)
	s, _ = Apply(s, VersionsArrived{Corr: s.Pending, Msg: protocol.Versions{Software: domain.SoftwarePaperMC, List: []string{"1.20.4", "1.21"}}})
	s, _ = Apply(s, Text{"1.20.4"})
	require.Equal(t, StepBuild, s.Step)
	return s
}

func TestStartPromptsForName(t *testing.T) {
	s, effects := Start("w1", FlowFull, true)
	assert.Equal(t, StepName, s.Step)
	assert.Equal(t, []string{"Enter a name for the new server:"}, texts(effects))
}

func TestNameNeedsThreeCharacters(t *testing.T) {
	s, _ := Start("w1", FlowFull, true)

	s, effects := Apply(s, Text{"ab"})
	assert.Equal(t, StepName, s.Step)
	assert.Equal(t, "Name must be at least 3 characters.", texts(effects)[0])

	s, effects = Apply(s, Text{"abc"})
	assert.Equal(t, StepPort, s.Step)
	assert.Equal(t, "abc", s.Name)
	assert.Equal(t, []string{"Enter a port number (1025-65535):"}, texts(effects))
}

func TestPortRange(t *testing.T) {
	cases := []struct {
		input string
		ok    bool
	}{
		{"1024", false},
		{"65536", false},
		{"1025", true},
		{"65535", true},
		{"twenty", false},
		{"", false},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			s, _ := Start("w1", FlowFull, true)
			s, _ = Apply(s, Text{"lobby"})

			s, effects := Apply(s, Text{tc.input})
			if tc.ok {
				assert.Equal(t, StepType, s.Step)
				return
			}
			assert.Equal(t, StepPort, s.Step)
			assert.Equal(t, "Invalid port. Must be a number between 1025-65535.", texts(effects)[0])
		})
	}
}

func TestTypeNormalizesAndRequestsVersions(t *testing.T) {
	s, _ := Start("w1", FlowFull, true)
	s, _ = feed(t, s, Text{"lobby"}, Text{"25566"})

	s, effects := Apply(s, Text{"forge"})
	assert.Equal(t, StepType, s.Step)
	assert.Equal(t, "Invalid type. Please enter 'PaperMC' or 'Velocity'.", texts(effects)[0])
	assert.Empty(t, sends(effects))

	s, effects = Apply(s, Text{"VELOCITY"})
	assert.Equal(t, StepVersion, s.Step)
	assert.Equal(t, domain.SoftwareVelocity, s.Software)
	assert.Equal(t, []string{"Fetching available versions..."}, texts(effects))

	frames := sends(effects)
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.GetVersions{Software: domain.SoftwareVelocity}, frames[0].Body)
	assert.Equal(t, "w1.1", frames[0].Corr)
	assert.Equal(t, protocol.KindVersions, s.Awaiting)
}

func TestVersionsArePresentedNewestFirst(t *testing.T) {
	s := atVersion(t, FlowFull)

	s, effects := Apply(s, VersionsArrived{Corr: s.Pending, Msg: protocol.Versions{Software: domain.SoftwarePaperMC, List: []string{"1.20.4", "1.21", "1.21.1"}}})

	assert.Equal(t, []string{"1.21.1", "1.21", "1.20.4"}, s.Versions)
	c, ok := choices(effects)
	require.True(t, ok)
	assert.Equal(t, []string{"1.21.1", "1.21", "1.20.4"}, c.Options)
	assert.Empty(t, s.Awaiting)
}

func TestVersionMatchIsExactAndCaseSensitive(t *testing.T) {
	s := atVersion(t, FlowFull)
	s, _ = Apply(s, VersionsArrived{Corr: s.Pending, Msg: protocol.Versions{Software: domain.SoftwarePaperMC, List: []string{"1.20.4-R0", "1.21"}}})

	s, effects := Apply(s, Text{"1.20.4-r0"})
	assert.Equal(t, StepVersion, s.Step)
	assert.Equal(t, "Invalid version. Please select one from the list.", texts(effects)[0])
	assert.Empty(t, sends(effects), "a rejected version must not refetch")

	s, effects = Apply(s, Text{"1.20.4-R0"})
	assert.Equal(t, StepBuild, s.Step)
	frames := sends(effects)
	require.Len(t, frames, 1)
	assert.Equal(t, protocol.GetBuilds{Software: domain.SoftwarePaperMC, Version: "1.20.4-R0"}, frames[0].Body)
	assert.Equal(t, "w1.2", frames[0].Corr)
	assert.Equal(t, []string{"Fetching available builds for 1.20.4-R0..."}, texts(effects))
}

func TestAnswerBeforeVersionsArriveIsRejected(t *testing.T) {
	s := atVersion(t, FlowFull)

	s, effects := Apply(s, Text{"1.21"})
	assert.Equal(t, StepVersion, s.Step)
	assert.Equal(t, []string{"Invalid version. Please select one from the list."}, texts(effects))
	assert.Equal(t, protocol.KindVersions, s.Awaiting, "still waiting for the list")
}

func TestFirstDisplayedBuildIsTheMaximum(t *testing.T) {
	s := atBuild(t)

	s, effects := Apply(s, BuildsArrived{Corr: s.Pending, Msg: protocol.Builds{Software: domain.SoftwarePaperMC, List: []int{494, 495, 496}}})

	assert.Equal(t, []int{496, 495, 494}, s.Builds)
	assert.Equal(t, "Please choose a build (latest is 496):", texts(effects)[0])
	c, ok := choices(effects)
	require.True(t, ok)
	assert.Equal(t, "496", c.Default)
	assert.Equal(t, "496", c.Options[0])
}

func TestBuildMustBeListed(t *testing.T) {
	s := atBuild(t)
	s, _ = Apply(s, BuildsArrived{Corr: s.Pending, Msg: protocol.Builds{Software: domain.SoftwarePaperMC, List: []int{494, 495, 496}}})

	for _, bad := range []string{"497", "latest", "-1"} {
		var effects []Effect
		s, effects = Apply(s, Text{bad})
		assert.Equal(t, StepBuild, s.Step, bad)
		assert.Equal(t, "Invalid build number. Please select one from the list.", texts(effects)[0])
	}

	s, effects := Apply(s, Text{"495"})
	assert.Equal(t, StepConfirmation, s.Step)
	assert.Equal(t, []string{
		"--- Server Configuration ---",
		"Name: lobby",
		"Port: 25566",
		"Type: PaperMC",
		"Version: 1.20.4",
		"Build: 495",
		"Type 'yes' to create or 'no' to cancel.",
	}, texts(effects))
}

func TestConfirmYesSendsCreate(t *testing.T) {
	s := atBuild(t)
	s, _ = feed(t, s,
		BuildsArrived{Corr: s.Pending, Msg: protocol.Builds{Software: domain.SoftwarePaperMC, List: []int{494, 495, 496}}},
		Text{"496"},
	)

	s, effects := Apply(s, Text{"maybe"})
	assert.Equal(t, StepConfirmation, s.Step)
	assert.Equal(t, "Please type 'yes' or 'no'.", texts(effects)[0])

	s, effects = Apply(s, Text{"YES"})
	assert.Equal(t, StepDone, s.Step)
	reason, ok := ended(effects)
	require.True(t, ok)
	assert.Equal(t, EndCompleted, reason)
	assert.Contains(t, texts(effects), "Creation request sent to proxy...")

	frames := sends(effects)
	require.Len(t, frames, 1)
	create, ok := frames[0].Body.(protocol.CreateServer)
	require.True(t, ok)
	assert.JSONEq(t, `{"serverName":"lobby","port":"25566","serverType":"PaperMC","serverVersion":"1.20.4","paperBuild":"496"}`, string(create.Payload))
}

func TestConfirmNoEndsWithoutCreating(t *testing.T) {
	s := atBuild(t)
	s, _ = feed(t, s,
		BuildsArrived{Corr: s.Pending, Msg: protocol.Builds{Software: domain.SoftwarePaperMC, List: []int{1}}},
		Text{"1"},
	)

	s, effects := Apply(s, Text{"no"})
	assert.Equal(t, StepDone, s.Step)
	assert.Empty(t, sends(effects))
	reason, _ := ended(effects)
	assert.Equal(t, EndDeclined, reason)
	assert.Equal(t, []string{"Server creation cancelled."}, texts(effects))
}

func TestCancelAtEveryState(t *testing.T) {
	states := map[Step]func(t *testing.T) Session{
		StepName: func(t *testing.T) Session { s, _ := Start("w1", FlowFull, true); return s },
		StepPort: func(t *testing.T) Session {
			s, _ := Start("w1", FlowFull, true)
			s, _ = Apply(s, Text{"lobby"})
			return s
		},
		StepType: func(t *testing.T) Session {
			s, _ := Start("w1", FlowFull, true)
			s, _ = feed(t, s, Text{"lobby"}, Text{"30000"})
			return s
		},
		StepVersion: func(t *testing.T) Session { return atVersion(t, FlowFull) },
		StepBuild:   atBuild,
		StepConfirmation: func(t *testing.T) Session {
			s := atVersion(t, FlowReduced)
			s, _ = feed(t, s, VersionsArrived{Corr: s.Pending, Msg: protocol.Versions{Software: domain.SoftwarePaperMC, List: []string{"1.21"}}}, Text{"1.21"})
			return s
		},
	}

	for step, setup := range states {
		t.Run(step.String(), func(t *testing.T) {
			s := setup(t)
			require.Equal(t, step, s.Step)

			s, effects := Apply(s, Text{"CaNcEl"})
			assert.Equal(t, StepDone, s.Step)
			assert.Equal(t, []string{"Server creation cancelled."}, texts(effects))
			assert.Empty(t, sends(effects))
			reason, ok := ended(effects)
			require.True(t, ok)
			assert.Equal(t, EndCancelled, reason)
		})
	}
}

func TestDoneIgnoresInput(t *testing.T) {
	s, _ := Start("w1", FlowFull, true)
	s, _ = Apply(s, Text{"cancel"})

	s, effects := Apply(s, Text{"lobby"})
	assert.Equal(t, StepDone, s.Step)
	assert.Empty(t, effects)
}

func TestReducedFlowSkipsBuild(t *testing.T) {
	s := atVersion(t, FlowReduced)
	s, _ = Apply(s, VersionsArrived{Corr: s.Pending, Msg: protocol.Versions{Software: domain.SoftwarePaperMC, List: []string{"1.21"}}})

	s, effects := Apply(s, Text{"1.21"})
	assert.Equal(t, StepConfirmation, s.Step)
	assert.Empty(t, sends(effects), "reduced flow never asks for builds")
	assert.Contains(t, texts(effects), "Build: latest")

	_, effects = Apply(s, Text{"yes"})
	frames := sends(effects)
	require.Len(t, frames, 1)
	create := frames[0].Body.(protocol.CreateServer)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(create.Payload, &payload))
	assert.NotContains(t, payload, "paperBuild")
	assert.Equal(t, "1.21", payload["serverVersion"])
}

func TestStaleResponsesAreIgnored(t *testing.T) {
	s := atVersion(t, FlowFull)

	cases := map[string]Input{
		"wrong token":     VersionsArrived{Corr: "other.1", Msg: protocol.Versions{Software: domain.SoftwarePaperMC, List: []string{"1.21"}}},
		"wrong software":  VersionsArrived{Corr: s.Pending, Msg: protocol.Versions{Software: domain.SoftwareVelocity, List: []string{"3.3.0"}}},
		"wrong kind":      BuildsArrived{Corr: s.Pending, Msg: protocol.Builds{Software: domain.SoftwarePaperMC, List: []int{1}}},
		"malformed other": Malformed{Corr: s.Pending, Kind: protocol.KindBuilds, Err: errors.New("bad")},
	}

	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			next, effects := Apply(s, in)
			assert.Empty(t, effects)
			assert.Equal(t, s, next)
		})
	}
}

func TestUncorrelatedResponseIsAccepted(t *testing.T) {
	s := atVersion(t, FlowFull)

	s, _ = Apply(s, VersionsArrived{Msg: protocol.Versions{Software: domain.SoftwarePaperMC, List: []string{"1.21"}}})
	assert.Equal(t, []string{"1.21"}, s.Versions)
}

func TestMalformedResponseAbortsSession(t *testing.T) {
	s := atBuild(t)

	s, effects := Apply(s, Malformed{Corr: s.Pending, Kind: protocol.KindBuilds, Err: errors.New("invalid character")})
	assert.Equal(t, StepDone, s.Step)
	assert.Equal(t, []string{"Failed to process server data. Please try again."}, texts(effects))
	reason, _ := ended(effects)
	assert.Equal(t, EndFailed, reason)
}

func TestEmptyAndFailedListsAbort(t *testing.T) {
	s := atBuild(t)
	done, effects := Apply(s, BuildsArrived{Corr: s.Pending, Msg: protocol.Builds{Software: domain.SoftwarePaperMC, List: []int{}}})
	assert.Equal(t, StepDone, done.Step)
	assert.Equal(t, []string{"No builds available for 1.20.4."}, texts(effects))

	v := atVersion(t, FlowFull)
	done, effects = Apply(v, VersionsArrived{Corr: v.Pending, Msg: protocol.Versions{Software: domain.SoftwarePaperMC, Error: "API responded with status 503"}})
	assert.Equal(t, StepDone, done.Step)
	assert.Equal(t, []string{"Could not fetch versions: API responded with status 503"}, texts(effects))
}

func TestUncorrelatedSessionsSendNoToken(t *testing.T) {
	s, _ := Start("w1", FlowFull, false)
	_, effects := feed(t, s, Text{"lobby"}, Text{"25566"}, Text{"velocity"})

	frames := sends(effects)
	require.Len(t, frames, 1)
	assert.Empty(t, frames[0].Corr)
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(FlowFull, true, time.Minute)

	_, ok := r.Feed("steve", Text{"lobby"})
	assert.False(t, ok, "no session yet")

	effects := r.Begin("steve")
	assert.Equal(t, []string{"Enter a name for the new server:"}, texts(effects))
	require.True(t, r.Active("steve"))

	_, ok = r.Feed("steve", Text{"lobby"})
	require.True(t, ok)
	s, _ := r.Get("steve")
	assert.Equal(t, StepPort, s.Step)

	r.Begin("steve")
	s, _ = r.Get("steve")
	assert.Equal(t, StepName, s.Step, "begin replaces the old session")
	assert.Empty(t, s.Name)

	_, ok = r.Feed("steve", Text{"cancel"})
	require.True(t, ok)
	assert.False(t, r.Active("steve"))
	assert.Equal(t, 0, r.Len())
}

func TestRegistrySessionsAreIndependent(t *testing.T) {
	r := NewRegistry(FlowFull, true, time.Minute)
	r.Begin("steve")
	r.Begin("alex")

	r.Feed("steve", Text{"cancel"})

	assert.False(t, r.Active("steve"))
	assert.True(t, r.Active("alex"))
}

func TestRegistryExpiresIdleSessions(t *testing.T) {
	r := NewRegistry(FlowFull, true, 20*time.Millisecond)
	r.Begin("steve")

	require.Eventually(t, func() bool { return !r.Active("steve") }, time.Second, 5*time.Millisecond)
	_, ok := r.Feed("steve", Text{"lobby"})
	assert.False(t, ok)
}
