package external

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"safirnotify/internal/types"
)

// NovaClient implements InventoryClient against the OpenStack compute API.
type NovaClient struct {
	svc serviceClient
}

// NovaClientConfig configures a NovaClient.
type NovaClientConfig struct {
	// Endpoint overrides catalog discovery when set.
	Endpoint string
}

// NewNovaClient creates a NovaClient sharing auth with other OpenStack clients.
func NewNovaClient(base *BaseClient, auth *KeystoneAuth, cfg NovaClientConfig) *NovaClient {
	return &NovaClient{svc: serviceClient{
		base:         base,
		auth:         auth,
		serviceTypes: []string{"compute"},
		endpoint:     cfg.Endpoint,
		upstreamCode: types.ErrCodeUpstreamInventory,
	}}
}

// GetResourceName returns the server's display name.
func (c *NovaClient) GetResourceName(ctx context.Context, resourceID string) (string, error) {
	var out struct {
		Server struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"server"`
	}

	status, err := c.svc.getJSON(ctx, "/servers/"+url.PathEscape(resourceID), &out)
	if err != nil {
		return "", err
	}
	if status == http.StatusNotFound {
		return "", types.NewAppError(types.ErrCodeNotFoundResource,
			fmt.Sprintf("server %s not found", resourceID), nil)
	}
	return out.Server.Name, nil
}

var _ InventoryClient = (*NovaClient)(nil)
