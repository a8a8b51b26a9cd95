package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"safirnotify/internal/types"
)

// tokenRefreshSkew renews tokens slightly before Keystone expires them.
const tokenRefreshSkew = time.Minute

// KeystoneConfig holds the password credentials for Keystone v3.
type KeystoneConfig struct {
	AuthURL           string
	Username          string
	Password          string
	ProjectName       string
	UserDomainName    string
	ProjectDomainName string
	// Region and Interface filter service catalog endpoints. Empty Region
	// matches any region; Interface defaults to "public".
	Region    string
	Interface string
}

type catalogEndpoint struct {
	Interface string `json:"interface"`
	Region    string `json:"region"`
	RegionID  string `json:"region_id"`
	URL       string `json:"url"`
}

type catalogEntry struct {
	Type      string            `json:"type"`
	Name      string            `json:"name"`
	Endpoints []catalogEndpoint `json:"endpoints"`
}

type keystoneToken struct {
	id        string
	expiresAt time.Time
	catalog   []catalogEntry
}

// KeystoneAuth issues and caches a scoped Keystone token. The token and its
// service catalog are shared by every OpenStack client. Concurrent callers
// wait for one in-flight authentication, but each stops waiting when its own
// context is done.
type KeystoneAuth struct {
	base  *BaseClient
	cfg   KeystoneConfig
	clock types.Clock

	// authSem is a one-slot semaphore serializing authentication.
	authSem chan struct{}

	mu    sync.Mutex
	token *keystoneToken
}

// NewKeystoneAuth creates a KeystoneAuth. clock may be nil.
func NewKeystoneAuth(base *BaseClient, cfg KeystoneConfig, clock types.Clock) *KeystoneAuth {
	if cfg.Interface == "" {
		cfg.Interface = "public"
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &KeystoneAuth{base: base, cfg: cfg, clock: clock, authSem: make(chan struct{}, 1)}
}

// Token returns a valid token ID, authenticating if the cached one is
// missing or about to expire.
func (k *KeystoneAuth) Token(ctx context.Context) (string, error) {
	tok, err := k.current(ctx)
	if err != nil {
		return "", err
	}
	return tok.id, nil
}

// Endpoint returns the catalog URL of the first service matching one of
// serviceTypes, filtered by the configured interface and region.
func (k *KeystoneAuth) Endpoint(ctx context.Context, serviceTypes ...string) (string, error) {
	tok, err := k.current(ctx)
	if err != nil {
		return "", err
	}
	for _, st := range serviceTypes {
		for _, entry := range tok.catalog {
			if entry.Type != st {
				continue
			}
			for _, ep := range entry.Endpoints {
				if ep.Interface != k.cfg.Interface {
					continue
				}
				if k.cfg.Region != "" && ep.Region != k.cfg.Region && ep.RegionID != k.cfg.Region {
					continue
				}
				return strings.TrimRight(ep.URL, "/"), nil
			}
		}
	}
	return "", types.NewAppError(types.ErrCodeNotFoundEndpoint,
		fmt.Sprintf("no %s endpoint for service types %v", k.cfg.Interface, serviceTypes), nil)
}

// Invalidate drops the cached token. Service clients call it after a 401.
func (k *KeystoneAuth) Invalidate() {
	k.mu.Lock()
	k.token = nil
	k.mu.Unlock()
}

func (k *KeystoneAuth) current(ctx context.Context) (*keystoneToken, error) {
	if tok := k.cached(); tok != nil {
		return tok, nil
	}

	select {
	case k.authSem <- struct{}{}:
	case <-ctx.Done():
		return nil, waitError(ctx.Err())
	}
	defer func() { <-k.authSem }()

	// Another caller may have refreshed the token while this one waited.
	if tok := k.cached(); tok != nil {
		return tok, nil
	}

	tok, err := k.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	k.mu.Lock()
	k.token = tok
	k.mu.Unlock()
	return tok, nil
}

// cached returns the token unless it is missing or about to expire.
func (k *KeystoneAuth) cached() *keystoneToken {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.token != nil && k.clock.Now().Add(tokenRefreshSkew).Before(k.token.expiresAt) {
		return k.token
	}
	return nil
}

func waitError(err error) *types.AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewAppError(types.ErrCodeUpstreamTimeout, "timed out waiting for keystone token", err)
	}
	return types.NewAppError(types.ErrCodeUpstreamIdentity, "cancelled waiting for keystone token", err)
}

type authRequest struct {
	Auth struct {
		Identity struct {
			Methods  []string `json:"methods"`
			Password struct {
				User struct {
					Name     string     `json:"name"`
					Domain   domainName `json:"domain"`
					Password string     `json:"password"`
				} `json:"user"`
			} `json:"password"`
		} `json:"identity"`
		Scope struct {
			Project struct {
				Name   string     `json:"name"`
				Domain domainName `json:"domain"`
			} `json:"project"`
		} `json:"scope"`
	} `json:"auth"`
}

type domainName struct {
	Name string `json:"name"`
}

type authResponse struct {
	Token struct {
		ExpiresAt time.Time      `json:"expires_at"`
		Catalog   []catalogEntry `json:"catalog"`
	} `json:"token"`
}

func (k *KeystoneAuth) authenticate(ctx context.Context) (*keystoneToken, error) {
	var body authRequest
	body.Auth.Identity.Methods = []string{"password"}
	body.Auth.Identity.Password.User.Name = k.cfg.Username
	body.Auth.Identity.Password.User.Domain.Name = k.cfg.UserDomainName
	body.Auth.Identity.Password.User.Password = k.cfg.Password
	body.Auth.Scope.Project.Name = k.cfg.ProjectName
	body.Auth.Scope.Project.Domain.Name = k.cfg.ProjectDomainName

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode auth request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokensURL(k.cfg.AuthURL), bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build auth request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := k.base.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, types.NewAppError(types.ErrCodeAuthInvalidCreds, "keystone rejected credentials", nil)
	case resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK:
		return nil, types.NewAppError(types.ErrCodeUpstreamIdentity,
			fmt.Sprintf("keystone returned %d", resp.StatusCode), nil)
	}

	id := resp.Header.Get("X-Subject-Token")
	if id == "" {
		return nil, types.NewAppError(types.ErrCodeUpstreamIdentity, "keystone response has no X-Subject-Token", nil)
	}

	var out authResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamIdentity, "failed to decode keystone token", err)
	}

	return &keystoneToken{
		id:        id,
		expiresAt: out.Token.ExpiresAt,
		catalog:   out.Token.Catalog,
	}, nil
}

// tokensURL accepts auth URLs with or without the /v3 suffix.
func tokensURL(authURL string) string {
	u := strings.TrimRight(authURL, "/")
	if !strings.HasSuffix(u, "/v3") {
		u += "/v3"
	}
	return u + "/auth/tokens"
}
