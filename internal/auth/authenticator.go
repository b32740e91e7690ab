package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// Trusted identity headers used when AUTH_MODE=header.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	HeaderUserName = "X-User-Name"
)

var (
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrUnknownRole        = errors.New("unknown role")
)

// Identity is the caller resolved from a request.
type Identity struct {
	UserID string
	Name   string
	Email  string
	Role   models.UserRole
}

// User returns the directory record for the identity.
func (i *Identity) User() *models.User {
	return &models.User{
		ID:       i.UserID,
		FullName: i.Name,
		Email:    i.Email,
		Role:     i.Role,
	}
}

// Authenticator resolves the caller of an HTTP request.
type Authenticator interface {
	Authenticate(r *http.Request) (*Identity, error)
}

// NewAuthenticator picks the authenticator for the configured AUTH_MODE.
func NewAuthenticator(cfg *config.Config) Authenticator {
	if cfg.AuthMode == config.AuthModeCasdoor {
		return NewCasdoorAuthenticator(cfg.Casdoor)
	}
	return NewHeaderAuthenticator()
}

// ===== CASDOOR =====

type tokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

type casdoorAuthenticator struct {
	parser tokenParser
}

// NewCasdoorAuthenticator verifies bearer tokens issued by the configured
// Casdoor application.
func NewCasdoorAuthenticator(cfg config.CasdoorConfig) Authenticator {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Certificate,
		cfg.OrganizationName,
		cfg.ApplicationName,
	)
	return &casdoorAuthenticator{parser: client}
}

func (a *casdoorAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := a.parser.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Id == "" {
		return nil, fmt.Errorf("%w: token carries no user id", ErrInvalidToken)
	}

	name := claims.DisplayName
	if name == "" {
		name = claims.Name
	}
	return &Identity{
		UserID: claims.Id,
		Name:   name,
		Email:  claims.Email,
		Role:   casdoorRole(claims.User),
	}, nil
}

// casdoorRole maps an account to a role. Organisation admins are admins;
// everyone else carries their role in the user tag and defaults to student.
func casdoorRole(u casdoorsdk.User) models.UserRole {
	if u.IsAdmin {
		return models.RoleAdmin
	}
	role := models.UserRole(strings.ToLower(strings.TrimSpace(u.Tag)))
	if role.Valid() {
		return role
	}
	return models.RoleStudent
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingCredentials
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: expected a bearer token", ErrInvalidToken)
	}
	return strings.TrimSpace(parts[1]), nil
}

// ===== TRUSTED HEADERS =====

type headerAuthenticator struct{}

// NewHeaderAuthenticator trusts identity headers set by an upstream gateway.
// It is meant for development and tests.
func NewHeaderAuthenticator() Authenticator {
	return headerAuthenticator{}
}

func (headerAuthenticator) Authenticate(r *http.Request) (*Identity, error) {
	userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if userID == "" {
		return nil, ErrMissingCredentials
	}
	role := models.UserRole(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, r.Header.Get(HeaderUserRole))
	}
	return &Identity{
		UserID: userID,
		Name:   strings.TrimSpace(r.Header.Get(HeaderUserName)),
		Role:   role,
	}, nil
}
