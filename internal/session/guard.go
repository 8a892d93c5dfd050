// Package session owns the authenticated-session lifecycle: the persisted
// credential, the login/logout flows and the sentinel check every API
// response goes through before anything else looks at it.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/crra-tempo/tempo-client/internal/apiclient"
	"github.com/crra-tempo/tempo-client/internal/models"
	"github.com/crra-tempo/tempo-client/internal/protocol"
)

// Navigation routes, mirroring the historical client's screen paths.
const (
	RouteLogin         = "/auth"
	RouteAdminHome     = "/admin"
	RouteChercheurHome = "/chercheur"
)

// Localized user-facing messages.
const (
	MsgFillAllFields  = "Veuillez remplir tous les champs"
	MsgLoginFailed    = "Échec de la connexion"
	MsgGenericFailure = "Une erreur est survenue. Veuillez réessayer."
)

// ErrNoSession is returned when an operation needs a session and none is
// available (or the server just rejected it). Callers must abort their
// operation; the redirect side effect has already happened.
var ErrNoSession = errors.New("no active session")

// Navigator receives the navigation side effects of the guard. The CLI
// prints the target route; tests record it.
type Navigator interface {
	Navigate(route string)
}

// Credential is the client-side view of the session. A non-empty token
// only means the client believes the session is valid; the server
// confirms lazily, on the next call it rejects.
type Credential struct {
	Token       string
	UserID      string
	DisplayName string
	Role        models.Role
}

type Guard struct {
	store Store
	api   *apiclient.Client
	nav   Navigator
	log   *logrus.Logger
}

func NewGuard(store Store, api *apiclient.Client, nav Navigator, log *logrus.Logger) *Guard {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Guard{store: store, api: api, nav: nav, log: log}
}

// RequireSession resolves the persisted credential. When no token is
// stored it navigates to the login route and reports ErrNoSession.
func (g *Guard) RequireSession() (*Credential, error) {
	token, err := g.store.Get(KeyAuthToken)
	if err != nil {
		return nil, err
	}
	if token == "" {
		g.nav.Navigate(RouteLogin)
		return nil, ErrNoSession
	}

	userID, err := g.store.Get(KeyID)
	if err != nil {
		return nil, err
	}
	fullName, err := g.store.Get(KeyFullName)
	if err != nil {
		return nil, err
	}

	cred := &Credential{Token: token, UserID: userID, DisplayName: fullName}
	if userID != "" {
		cred.Role = models.RoleChercheur
	} else {
		cred.Role = models.RoleAdmin
	}
	return cred, nil
}

// InterpretResponse inspects a server message for the auth sentinels.
// The check is independent of the HTTP status code: a 200 body carrying
// "User not found" still wipes the credential and redirects. Callers must
// short-circuit on ErrNoSession and apply no further state.
func (g *Guard) InterpretResponse(message string) error {
	if !protocol.IsAuthSentinel(message) {
		return nil
	}
	g.log.WithField("message", message).Info("session rejected by server")
	if err := g.clear(); err != nil {
		g.log.WithError(err).Warn("failed to clear session store")
	}
	g.nav.Navigate(RouteLogin)
	return ErrNoSession
}

type loginRequest struct {
	FullName string `json:"fullName"`
	Password string `json:"password"`
}

// Login authenticates against /users/login. Rejected credentials surface
// the server-provided reason and leave the store untouched, as does any
// transport failure. On success the token is persisted, plus the user id
// and display name for researchers, and the role home route is pushed.
func (g *Guard) Login(ctx context.Context, fullName, password string) (*Credential, error) {
	if fullName == "" || password == "" {
		return nil, errors.New(MsgFillAllFields)
	}

	resp, err := g.api.Do(ctx, http.MethodPost, "/users/login", "", loginRequest{
		FullName: fullName,
		Password: password,
	})
	if err != nil {
		g.log.WithError(err).Error("login request failed")
		return nil, errors.New(MsgGenericFailure)
	}

	var body models.LoginResponse
	if err := resp.Decode(&body); err != nil {
		return nil, errors.New(MsgGenericFailure)
	}

	if body.Status == protocol.StatusNonLoged {
		if body.Message != "" {
			return nil, errors.New(body.Message)
		}
		return nil, errors.New(MsgLoginFailed)
	}
	if resp.Status < 200 || resp.Status >= 300 || body.AuthToken == "" {
		return nil, errors.New(MsgLoginFailed)
	}

	if err := g.store.Set(KeyAuthToken, body.AuthToken); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	cred := &Credential{Token: body.AuthToken, Role: body.Role}
	switch body.Role {
	case models.RoleChercheur:
		if err := g.store.Set(KeyFullName, fullName); err != nil {
			return nil, fmt.Errorf("persist session: %w", err)
		}
		if err := g.store.Set(KeyID, body.ID); err != nil {
			return nil, fmt.Errorf("persist session: %w", err)
		}
		cred.UserID = body.ID
		cred.DisplayName = fullName
		g.nav.Navigate(RouteChercheurHome)
	case models.RoleAdmin:
		g.nav.Navigate(RouteAdminHome)
	}

	g.log.WithField("role", body.Role).Info("login succeeded")
	return cred, nil
}

// ValidateSession confirms the persisted token with the server, the
// check the entry screen runs at startup. Only a "logged" status keeps
// the session: anything else, including a transport failure, wipes the
// stored keys and routes to login. On success the server's role wins
// over the locally inferred one and the role home route is pushed.
func (g *Guard) ValidateSession(ctx context.Context) (*Credential, error) {
	cred, err := g.RequireSession()
	if err != nil {
		return nil, err
	}

	resp, err := g.api.Do(ctx, http.MethodGet, "/users/validate-token", cred.Token, nil)
	if err != nil {
		g.log.WithError(err).Warn("token validation unreachable")
		return nil, g.rejectSession()
	}

	var body struct {
		Status string      `json:"status"`
		Role   models.Role `json:"role"`
	}
	if err := resp.Decode(&body); err != nil || body.Status != protocol.StatusLogged {
		return nil, g.rejectSession()
	}

	cred.Role = body.Role
	switch body.Role {
	case models.RoleChercheur:
		g.nav.Navigate(RouteChercheurHome)
	case models.RoleAdmin:
		g.nav.Navigate(RouteAdminHome)
	default:
		return nil, g.rejectSession()
	}
	return cred, nil
}

func (g *Guard) rejectSession() error {
	if err := g.clear(); err != nil {
		g.log.WithError(err).Warn("failed to clear session store")
	}
	g.nav.Navigate(RouteLogin)
	return ErrNoSession
}

// RedirectLogin pushes the login route without touching the store. Used
// when the server answers 401 outside the sentinel protocol.
func (g *Guard) RedirectLogin() {
	g.nav.Navigate(RouteLogin)
}

// Logout clears every persisted session key and routes back to login.
func (g *Guard) Logout() error {
	if err := g.clear(); err != nil {
		return err
	}
	g.nav.Navigate(RouteLogin)
	return nil
}

func (g *Guard) clear() error {
	for _, key := range []string{KeyAuthToken, KeyID, KeyFullName} {
		if err := g.store.Delete(key); err != nil {
			return err
		}
	}
	return nil
}
