// Package logs covers the researcher side of the system: the date-gated
// hour entry and the log history views.
package logs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/crra-tempo/tempo-client/internal/apiclient"
	"github.com/crra-tempo/tempo-client/internal/protocol"
	"github.com/crra-tempo/tempo-client/internal/session"
)

// Localized messages.
const (
	MsgCheckFailed   = "Erreur lors de la vérification."
	MsgSubmitFailed  = "Erreur lors de la soumission des données."
	MsgInvalidHours  = "La valeur des heures doit être un nombre valide."
	MsgHoursAdded    = "Heures ajoutées avec succès"
	MsgHoursRejected = "Échec de l'ajout des heures"
)

// ErrNotAllowed reports a submit attempt while the entry is gated; it is
// a client-side convenience only, the server stays authoritative.
var ErrNotAllowed = errors.New("entry not allowed for this day")

// EntryState is what a caller renders: whether the input is enabled, and
// the already-recorded value shown read-only when it is not.
type EntryState struct {
	Day      string
	Allowed  bool
	Existing float64
}

// Entry drives the hour entry for one activity. Every day change re-runs
// the admission check; each check is stamped with the day it targets and
// a reply for a superseded day is discarded instead of overwriting the
// state of a newer one.
type Entry struct {
	guard *session.Guard
	api   *apiclient.Client
	log   *logrus.Logger

	ActiviteID   string
	AxeID        string
	MegaprojetID string

	mu    sync.Mutex
	state EntryState
}

func NewEntry(guard *session.Guard, api *apiclient.Client, log *logrus.Logger, megaprojetID, axeID, activiteID string) *Entry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Entry{
		guard:        guard,
		api:          api,
		log:          log,
		ActiviteID:   activiteID,
		AxeID:        axeID,
		MegaprojetID: megaprojetID,
	}
}

type checkPayload struct {
	Value float64 `json:"value"`
}

// SetDay targets a new day and runs the admission check for it. The
// returned state reflects the most recent day targeted, which may not be
// the one this call checked if a newer SetDay superseded it meanwhile.
func (e *Entry) SetDay(ctx context.Context, day string) (EntryState, error) {
	e.mu.Lock()
	e.state = EntryState{Day: day}
	e.mu.Unlock()

	cred, err := e.guard.RequireSession()
	if err != nil {
		return EntryState{}, session.ErrNoSession
	}

	query := url.Values{}
	query.Set("activite_id", e.ActiviteID)
	query.Set("day", day)
	query.Set("user_id", cred.UserID)
	query.Set("megaprojet_id", e.MegaprojetID)
	query.Set("axe_id", e.AxeID)

	resp, err := e.api.Do(ctx, http.MethodGet, "/logs/activity-log/check?"+query.Encode(), cred.Token, nil)
	if err != nil {
		return e.State(), errors.New(MsgCheckFailed)
	}

	env := resp.Envelope()
	if err := e.guard.InterpretResponse(env.Message); err != nil {
		return EntryState{}, err
	}

	next := EntryState{Day: day}
	if env.Message == protocol.MsgAllowed {
		next.Allowed = true
	} else {
		var payload checkPayload
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &payload); err != nil {
				e.log.WithError(err).Warn("malformed check payload")
			}
		}
		next.Existing = payload.Value
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	// Discard a reply whose day has been superseded by a newer check.
	if e.state.Day != day {
		return e.state, nil
	}
	e.state = next
	return e.state, nil
}

// State returns the current entry state.
func (e *Entry) State() EntryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

type submitRequest struct {
	ActiviteID   string  `json:"activite_id"`
	MegaprojetID string  `json:"megaprojet_id"`
	AxeID        string  `json:"axe_id"`
	UserID       string  `json:"user_id"`
	UserFullName string  `json:"user_full_name"`
	Value        float64 `json:"value"`
	Day          string  `json:"day"`
}

// Submit posts the hours for the currently targeted day. It is a no-op
// unless the last applied check for that day answered "allowed".
func (e *Entry) Submit(ctx context.Context, hours float64) (string, error) {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	if !state.Allowed {
		return "", ErrNotAllowed
	}
	if hours < 0 {
		return "", errors.New(MsgInvalidHours)
	}

	cred, err := e.guard.RequireSession()
	if err != nil {
		return "", session.ErrNoSession
	}

	resp, err := e.api.Do(ctx, http.MethodPost, "/logs/activity-log", cred.Token, submitRequest{
		ActiviteID:   e.ActiviteID,
		MegaprojetID: e.MegaprojetID,
		AxeID:        e.AxeID,
		UserID:       cred.UserID,
		UserFullName: cred.DisplayName,
		Value:        hours,
		Day:          state.Day,
	})
	if err != nil {
		return "", errors.New(MsgSubmitFailed)
	}

	env := resp.Envelope()
	if err := e.guard.InterpretResponse(env.Message); err != nil {
		return "", err
	}
	if env.Message != protocol.MsgLogCreated {
		return "", errors.New(MsgHoursRejected)
	}
	return MsgHoursAdded, nil
}
