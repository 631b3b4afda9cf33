package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"vmanager/internal/domain"
)

const (
	corrPrefix    = "@"
	corrSeparator = "|"
)

var (
	ErrEmptyFrame     = errors.New("empty frame")
	ErrUnknownCommand = errors.New("unknown command")
)

// PayloadError reports a recognised command whose argument could not be parsed.
type PayloadError struct {
	Kind     Kind
	Software domain.Software
	Err      error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.Kind, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

type errorBody struct {
	Error string `json:"error"`
}

// Encode renders a frame in wire form.
func Encode(f Frame) ([]byte, error) {
	if f.Body == nil {
		return nil, ErrEmptyFrame
	}
	if !validCorr(f.Corr) {
		return nil, fmt.Errorf("correlation token %q contains a reserved character", f.Corr)
	}

	command, arg, err := encodeBody(f.Body)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", f.Body.Kind(), err)
	}

	var buf bytes.Buffer
	if f.Corr != "" {
		buf.WriteString(corrPrefix)
		buf.WriteString(f.Corr)
		buf.WriteString(corrSeparator)
	}
	buf.WriteString(command)
	if arg != "" {
		buf.WriteByte(':')
		buf.WriteString(arg)
	}
	return buf.Bytes(), nil
}

// EncodeMessage is Encode for an uncorrelated message.
func EncodeMessage(m Message) ([]byte, error) {
	return Encode(Frame{Body: m})
}

func encodeBody(m Message) (string, string, error) {
	switch msg := m.(type) {
	case GetServers:
		return string(KindGetServers), "", nil
	case Servers:
		arg, err := listOrError(msg.List, msg.Error)
		return string(KindServers), arg, err
	case Action:
		if msg.Verb == "" || msg.Name == "" {
			return "", "", errors.New("action needs a verb and a server name")
		}
		return string(KindAction), string(msg.Verb) + ":" + msg.Name, nil
	case ActionResponse:
		return string(KindActionResponse), string(msg.Status) + ":" + msg.Detail, nil
	case CreateServer:
		if !isJSONObject(msg.Payload) {
			return "", "", errors.New("create payload must be a JSON object")
		}
		return string(KindCreateServer), string(msg.Payload), nil
	case CreationResponse:
		return string(KindCreationResponse), string(msg.Status) + ":" + msg.Detail, nil
	case GetVersions:
		return "GET_" + msg.Software.Token() + "_VERSIONS", "", nil
	case Versions:
		arg, err := listOrError(msg.List, msg.Error)
		return msg.Software.Token() + "_VERSIONS", arg, err
	case GetBuilds:
		if msg.Version == "" {
			return "", "", errors.New("builds request needs a version")
		}
		return "GET_" + msg.Software.Token() + "_BUILDS", msg.Version, nil
	case Builds:
		arg, err := listOrError(msg.List, msg.Error)
		return msg.Software.Token() + "_BUILDS", arg, err
	default:
		return "", "", fmt.Errorf("unsupported message %T", m)
	}
}

func listOrError[T any](list []T, errMsg string) (string, error) {
	var (
		data []byte
		err  error
	)
	switch {
	case errMsg != "":
		data, err = json.Marshal(errorBody{Error: errMsg})
	case list == nil:
		data, err = json.Marshal([]T{})
	default:
		data, err = json.Marshal(list)
	}
	return string(data), err
}

// Decode parses one wire frame. Unrecognised commands yield ErrUnknownCommand and
// callers drop them. A recognised command with a bad argument yields *PayloadError; the
// returned frame still carries the correlation token so the error can be answered.
func Decode(data []byte) (Frame, error) {
	raw := string(data)
	if strings.TrimSpace(raw) == "" {
		return Frame{}, ErrEmptyFrame
	}

	var f Frame
	if strings.HasPrefix(raw, corrPrefix) {
		if token, rest, ok := strings.Cut(raw[len(corrPrefix):], corrSeparator); ok {
			// A token that could not be echoed back is dropped; the command is still served.
			if validCorr(token) {
				f.Corr = token
			}
			raw = rest
		}
	}

	command, arg, _ := strings.Cut(raw, ":")
	body, err := decodeBody(command, arg)
	f.Body = body
	return f, err
}

func decodeBody(command, arg string) (Message, error) {
	switch Kind(command) {
	case KindGetServers:
		return GetServers{}, nil
	case KindServers:
		list, errMsg, err := decodeList[domain.ServerDescriptor](arg)
		if err != nil {
			return nil, &PayloadError{Kind: KindServers, Err: err}
		}
		return Servers{List: list, Error: errMsg}, nil
	case KindAction:
		verb, name, ok := strings.Cut(arg, ":")
		if !ok || verb == "" || name == "" {
			return nil, &PayloadError{Kind: KindAction, Err: fmt.Errorf("expected <verb>:<name>, got %q", arg)}
		}
		return Action{Verb: domain.Verb(verb), Name: name}, nil
	case KindActionResponse:
		status, detail := splitStatus(arg)
		return ActionResponse{Status: status, Detail: detail}, nil
	case KindCreateServer:
		if !isJSONObject([]byte(arg)) {
			return nil, &PayloadError{Kind: KindCreateServer, Err: errors.New("payload is not a JSON object")}
		}
		return CreateServer{Payload: json.RawMessage(arg)}, nil
	case KindCreationResponse:
		status, detail := splitStatus(arg)
		return CreationResponse{Status: status, Detail: detail}, nil
	}

	return decodeSoftwareCommand(command, arg)
}

// decodeSoftwareCommand handles GET_<TYPE>_VERSIONS, <TYPE>_VERSIONS and the builds pair.
func decodeSoftwareCommand(command, arg string) (Message, error) {
	request := strings.HasPrefix(command, "GET_")
	name := strings.TrimPrefix(command, "GET_")

	var kind Kind
	switch {
	case strings.HasSuffix(name, "_VERSIONS"):
		name = strings.TrimSuffix(name, "_VERSIONS")
		kind = KindVersions
	case strings.HasSuffix(name, "_BUILDS"):
		name = strings.TrimSuffix(name, "_BUILDS")
		kind = KindBuilds
	default:
		return nil, ErrUnknownCommand
	}

	sw, err := domain.ParseSoftware(name)
	if err != nil {
		return nil, ErrUnknownCommand
	}

	switch {
	case request && kind == KindVersions:
		return GetVersions{Software: sw}, nil
	case request && kind == KindBuilds:
		if arg == "" {
			return nil, &PayloadError{Kind: KindGetBuilds, Software: sw, Err: errors.New("missing version")}
		}
		return GetBuilds{Software: sw, Version: arg}, nil
	case kind == KindVersions:
		list, errMsg, err := decodeList[string](arg)
		if err != nil {
			return nil, &PayloadError{Kind: KindVersions, Software: sw, Err: err}
		}
		return Versions{Software: sw, List: list, Error: errMsg}, nil
	default:
		list, errMsg, err := decodeList[int](arg)
		if err != nil {
			return nil, &PayloadError{Kind: KindBuilds, Software: sw, Err: err}
		}
		return Builds{Software: sw, List: list, Error: errMsg}, nil
	}
}

// decodeList accepts a JSON array, or an {"error": "..."} object in its place.
func decodeList[T any](arg string) ([]T, string, error) {
	trimmed := strings.TrimSpace(arg)
	if strings.HasPrefix(trimmed, "{") {
		var body errorBody
		if err := json.Unmarshal([]byte(trimmed), &body); err != nil {
			return nil, "", err
		}
		if body.Error == "" {
			return nil, "", errors.New("object payload without an error message")
		}
		return nil, body.Error, nil
	}

	var list []T
	if err := json.Unmarshal([]byte(trimmed), &list); err != nil {
		return nil, "", err
	}
	if list == nil {
		list = []T{}
	}
	return list, "", nil
}

func validCorr(token string) bool {
	return !strings.ContainsAny(token, corrSeparator+":")
}

func splitStatus(arg string) (Status, string) {
	status, detail, _ := strings.Cut(arg, ":")
	return Status(status), detail
}

func isJSONObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{' && json.Valid(trimmed)
}
