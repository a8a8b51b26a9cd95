package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"safirnotify/internal/types"
)

// serviceClient performs token-authenticated GETs against one OpenStack
// service resolved from the Keystone catalog.
type serviceClient struct {
	base         *BaseClient
	auth         *KeystoneAuth
	serviceTypes []string
	// endpoint, when set, bypasses catalog discovery.
	endpoint     string
	upstreamCode types.ErrorCode
}

func (s *serviceClient) resolveEndpoint(ctx context.Context) (string, error) {
	if s.endpoint != "" {
		return strings.TrimRight(s.endpoint, "/"), nil
	}
	return s.auth.Endpoint(ctx, s.serviceTypes...)
}

// getJSON fetches path and decodes a 200 body into out. It returns the HTTP
// status so callers can map 404 onto their own not-found code. A 401 drops
// the cached token and the request is repeated once with a fresh one.
func (s *serviceClient) getJSON(ctx context.Context, path string, out any) (int, error) {
	status, err := s.doGet(ctx, path, out)
	if err == nil && status == http.StatusUnauthorized {
		s.auth.Invalidate()
		status, err = s.doGet(ctx, path, out)
	}
	if err != nil {
		return status, err
	}

	switch {
	case status == http.StatusOK:
		return status, nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return status, types.NewAppError(types.ErrCodeAuthTokenExpired,
			fmt.Sprintf("%s rejected token with %d", s.serviceTypes[0], status), nil)
	case status == http.StatusNotFound:
		return status, nil
	default:
		return status, types.NewAppError(s.upstreamCode,
			fmt.Sprintf("%s returned %d", s.serviceTypes[0], status), nil)
	}
}

func (s *serviceClient) doGet(ctx context.Context, path string, out any) (int, error) {
	token, err := s.auth.Token(ctx)
	if err != nil {
		return 0, err
	}
	endpoint, err := s.resolveEndpoint(ctx)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+path, nil)
	if err != nil {
		return 0, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build request", err)
	}
	req.Header.Set("X-Auth-Token", token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.base.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, types.NewAppError(s.upstreamCode, "failed to decode response", err)
	}
	return resp.StatusCode, nil
}
