// Package fetch implements the request/response cycle every list and
// detail command shares: one guarded HTTP call, sentinel interpretation,
// and a loading/ready/error tri-state result. There is no shared cache;
// every invocation re-fetches.
package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crra-tempo/tempo-client/internal/apiclient"
	"github.com/crra-tempo/tempo-client/internal/protocol"
	"github.com/crra-tempo/tempo-client/internal/session"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
	StateError
)

// Default localized failure message for list loads.
const MsgLoadFailed = "Erreur lors de la récupération des données."

// SuccessPause is the deliberate UX pause after a successful mutation,
// kept from the historical clients so the confirmation stays visible
// before navigating back. It is not a retry or a backoff.
const SuccessPause = time.Second

// Result is the screen-local outcome of one load.
type Result[T any] struct {
	State   State
	Data    []T
	Message string
}

// Request describes one list load. When Success is set, only a reply
// carrying that exact sentinel unwraps its payload; otherwise any 2xx
// reply does.
type Request struct {
	Path    string
	Success string
	Failure string
}

// Mutation describes one create/update/toggle/delete call.
type Mutation struct {
	Method  string
	Path    string
	Body    any
	Success string
	Failure string
}

type Fetcher struct {
	guard *session.Guard
	api   *apiclient.Client
	log   *logrus.Logger
	sleep func(time.Duration)
}

type Option func(*Fetcher)

// WithSleep replaces the pause taken after a successful mutation. Tests
// use it to skip the real SuccessPause.
func WithSleep(sleep func(time.Duration)) Option {
	return func(f *Fetcher) {
		f.sleep = sleep
	}
}

func New(guard *session.Guard, api *apiclient.Client, log *logrus.Logger, opts ...Option) *Fetcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	f := &Fetcher{guard: guard, api: api, log: log, sleep: time.Sleep}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// LoadList performs one guarded GET and maps the reply onto the
// tri-state. An absent or malformed payload yields an empty collection,
// never a panic. The only returned error is session.ErrNoSession, after
// the guard has already redirected; callers must abort on it.
func LoadList[T any](ctx context.Context, f *Fetcher, req Request) (Result[T], error) {
	cred, err := f.guard.RequireSession()
	if err != nil {
		return Result[T]{State: StateError}, session.ErrNoSession
	}

	failure := req.Failure
	if failure == "" {
		failure = MsgLoadFailed
	}

	resp, err := f.api.Do(ctx, http.MethodGet, req.Path, cred.Token, nil)
	if err != nil {
		return Result[T]{State: StateError, Message: failure}, nil
	}

	env := resp.Envelope()
	if err := f.guard.InterpretResponse(env.Message); err != nil {
		return Result[T]{State: StateError}, err
	}

	if req.Success != "" && env.Message != req.Success {
		return Result[T]{State: StateError, Message: failure}, nil
	}
	if req.Success == "" && (resp.Status < 200 || resp.Status >= 300) {
		return Result[T]{State: StateError, Message: failure}, nil
	}

	items := []T{}
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &items); err != nil {
			f.log.WithField("path", req.Path).WithError(err).Warn("malformed payload, defaulting to empty list")
			items = []T{}
		}
	}
	return Result[T]{State: StateReady, Data: items}, nil
}

// LoadInto performs one guarded GET and decodes the whole body into out,
// for the few endpoints that do not use the {message, data} envelope.
func (f *Fetcher) LoadInto(ctx context.Context, path string, out any) error {
	cred, err := f.guard.RequireSession()
	if err != nil {
		return session.ErrNoSession
	}

	resp, err := f.api.Do(ctx, http.MethodGet, path, cred.Token, nil)
	if err != nil {
		return &Error{Message: MsgLoadFailed}
	}
	if err := f.guard.InterpretResponse(resp.Envelope().Message); err != nil {
		return err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return &Error{Message: MsgLoadFailed}
	}
	if err := resp.Decode(out); err != nil {
		return &Error{Message: MsgLoadFailed}
	}
	return nil
}

// Mutate performs one guarded mutating call. Conflict sentinels are
// surfaced verbatim; unrecognized failures fall back to the localized
// failure message. A confirmed success pauses briefly so the caller's
// confirmation stays visible before it navigates back.
func (f *Fetcher) Mutate(ctx context.Context, m Mutation) (string, error) {
	cred, err := f.guard.RequireSession()
	if err != nil {
		return "", session.ErrNoSession
	}

	failure := m.Failure
	if failure == "" {
		failure = MsgLoadFailed
	}

	resp, err := f.api.Do(ctx, m.Method, m.Path, cred.Token, m.Body)
	if err != nil {
		return "", &Error{Message: failure}
	}

	env := resp.Envelope()
	if err := f.guard.InterpretResponse(env.Message); err != nil {
		return "", err
	}

	if protocol.Classify(env.Message) == protocol.KindConflict {
		return "", &Error{Message: env.Message, Conflict: true}
	}

	if m.Success != "" && env.Message != m.Success {
		return "", &Error{Message: failure}
	}
	if m.Success == "" && (resp.Status < 200 || resp.Status >= 300) {
		return "", &Error{Message: failure}
	}

	f.sleep(SuccessPause)
	return env.Message, nil
}

// Error is a screen-local failure: either a domain conflict carrying the
// server's exact message, or a generic localized transport failure.
type Error struct {
	Message  string
	Conflict bool
}

func (e *Error) Error() string {
	return e.Message
}

// Filter returns the elements whose display field contains the query,
// case-insensitively. It is pure: the source collection is never
// reordered or mutated, and an empty query keeps everything.
func Filter[T any](items []T, query string, display func(T) string) []T {
	if query == "" {
		return items
	}
	needle := strings.ToLower(query)
	matched := make([]T, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(display(item)), needle) {
			matched = append(matched, item)
		}
	}
	return matched
}
