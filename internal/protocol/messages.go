// Package protocol is the wire format shared by the front-end and the proxy.
//
// A frame is UTF-8 text shaped COMMAND[:ARG]. ACTION and the two *_RESPONSE commands
// carry a second-level SUBTOKEN:REST argument, list payloads are JSON arrays after the
// final colon. A frame may be prefixed with "@<token>|" to correlate a response with
// the request that caused it; peers that never send a token never receive one.
package protocol

import (
	"encoding/json"

	"vmanager/internal/domain"
)

type Kind string

const (
	KindGetServers       Kind = "GET_SERVERS"
	KindServers          Kind = "SERVERS"
	KindAction           Kind = "ACTION"
	KindActionResponse   Kind = "ACTION_RESPONSE"
	KindCreateServer     Kind = "CREATE_SERVER"
	KindCreationResponse Kind = "CREATION_RESPONSE"
	KindGetVersions      Kind = "GET_VERSIONS"
	KindVersions         Kind = "VERSIONS"
	KindGetBuilds        Kind = "GET_BUILDS"
	KindBuilds           Kind = "BUILDS"
)

// Message is one decoded command. The concrete types below are the whole vocabulary.
type Message interface {
	Kind() Kind
	isMessage()
}

// Frame is a message plus its optional correlation token.
type Frame struct {
	Corr string
	Body Message
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

func (s Status) OK() bool { return s == StatusSuccess }

type GetServers struct{}

type Servers struct {
	List  []domain.ServerDescriptor
	Error string
}

type Action struct {
	Verb domain.Verb
	Name string
}

type ActionResponse struct {
	Status Status
	Detail string
}

type CreateServer struct {
	Payload json.RawMessage
}

type CreationResponse struct {
	Status Status
	Detail string
}

type GetVersions struct {
	Software domain.Software
}

type Versions struct {
	Software domain.Software
	List     []string
	Error    string
}

type GetBuilds struct {
	Software domain.Software
	Version  string
}

type Builds struct {
	Software domain.Software
	List     []int
	Error    string
}

func (GetServers) Kind() Kind       { return KindGetServers }
func (Servers) Kind() Kind          { return KindServers }
func (Action) Kind() Kind           { return KindAction }
func (ActionResponse) Kind() Kind   { return KindActionResponse }
func (CreateServer) Kind() Kind     { return KindCreateServer }
func (CreationResponse) Kind() Kind { return KindCreationResponse }
func (GetVersions) Kind() Kind      { return KindGetVersions }
func (Versions) Kind() Kind         { return KindVersions }
func (GetBuilds) Kind() Kind        { return KindGetBuilds }
func (Builds) Kind() Kind           { return KindBuilds }

func (GetServers) isMessage()       {}
func (Servers) isMessage()          {}
func (Action) isMessage()           {}
func (ActionResponse) isMessage()   {}
func (CreateServer) isMessage()     {}
func (CreationResponse) isMessage() {}
func (GetVersions) isMessage()      {}
func (Versions) isMessage()         {}
func (GetBuilds) isMessage()        {}
func (Builds) isMessage()           {}

// CreateRequest is the JSON object carried by CREATE_SERVER.
type CreateRequest struct {
	ServerName    string `json:"serverName"`
	Port          string `json:"port"`
	ServerType    string `json:"serverType"`
	ServerVersion string `json:"serverVersion"`
	PaperBuild    string `json:"paperBuild,omitempty"`
	VelocityBuild string `json:"velocityBuild,omitempty"`
}

func NewCreateServer(req CreateRequest) (CreateServer, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return CreateServer{}, err
	}
	return CreateServer{Payload: data}, nil
}
