package sdk

import "vmanager/internal/domain"

type actionPayload struct {
	ServerName    string `json:"serverName"`
	ServerVersion string `json:"serverVersion"`
	ServerType    string `json:"serverType"`
}

type actionResponse struct {
	Message string                   `json:"message"`
	Server  *domain.ServerDescriptor `json:"server,omitempty"`
}
