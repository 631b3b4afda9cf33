package sdk

import (
	"context"
	"encoding/json"

	"vmanager/internal/domain"
)

func (c *Client) ListServers(ctx context.Context) ([]domain.ServerDescriptor, error) {
	var servers []domain.ServerDescriptor
	err := c.get(ctx, "/minecraft/servers", &servers)
	return servers, err
}

// PerformAction posts a lifecycle verb for srv and returns the backend's message.
func (c *Client) PerformAction(ctx context.Context, srv domain.ServerDescriptor, verb domain.Verb) (string, error) {
	body, err := json.Marshal(actionPayload{
		ServerName:    srv.Name,
		ServerVersion: srv.SoftwareVersion,
		ServerType:    srv.SoftwareType,
	})
	if err != nil {
		return "", err
	}

	var resp actionResponse
	if err := c.post(ctx, "/minecraft/"+string(verb), body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// CreateServer forwards a JSON create payload unchanged.
func (c *Client) CreateServer(ctx context.Context, payload json.RawMessage) (string, error) {
	var resp actionResponse
	if err := c.post(ctx, "/minecraft/servers", payload, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
