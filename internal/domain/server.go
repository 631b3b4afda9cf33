package domain

import (
	"net"
	"strconv"
	"strings"
)

type Status string

const (
	StatusOnline     Status = "Online"
	StatusOffline    Status = "Offline"
	StatusStarting   Status = "Starting"
	StatusStopping   Status = "Stopping"
	StatusRestarting Status = "Restarting"
	StatusUnknown    Status = "Unknown"
)

var knownStatuses = []Status{StatusOnline, StatusOffline, StatusStarting, StatusStopping, StatusRestarting}

// Normalize maps the raw backend value onto the known set, case-insensitively.
// The raw value itself is never rewritten on the descriptor.
func (s Status) Normalize() Status {
	for _, k := range knownStatuses {
		if strings.EqualFold(string(s), string(k)) {
			return k
		}
	}
	return StatusUnknown
}

// ServerDescriptor is the snapshot of one managed server as the backend reports it.
type ServerDescriptor struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          Status `json:"status"`
	Port            int    `json:"port"`
	IP              string `json:"ip"`
	SoftwareType    string `json:"softwareType"`
	SoftwareVersion string `json:"serverVersion"`
}

func (s ServerDescriptor) Address() string {
	return net.JoinHostPort(s.IP, strconv.Itoa(s.Port))
}
