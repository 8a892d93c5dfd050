// Package admin exposes the administrator operations: the megaprojet →
// axe → activité hierarchy and researcher management. Every operation is
// one guarded fetch or mutation; there is no client-side state beyond
// the result of the current call.
package admin

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/crra-tempo/tempo-client/internal/fetch"
	"github.com/crra-tempo/tempo-client/internal/models"
	"github.com/crra-tempo/tempo-client/internal/protocol"
)

// MsgMissingFields blocks submission before any request leaves the
// client, like the historical form screens did.
const MsgMissingFields = "Veuillez remplir tous les champs"

var validate = validator.New()

type Service struct {
	fetcher *fetch.Fetcher
}

func NewService(f *fetch.Fetcher) *Service {
	return &Service{fetcher: f}
}

// ---- hierarchy reads ----

func (s *Service) ListMegaprojets(ctx context.Context) (fetch.Result[models.Megaprojet], error) {
	return fetch.LoadList[models.Megaprojet](ctx, s.fetcher, fetch.Request{
		Path: "/projets/megaprojets",
	})
}

func (s *Service) ListAxes(ctx context.Context, megaprojetID string) (fetch.Result[models.Axe], error) {
	return fetch.LoadList[models.Axe](ctx, s.fetcher, fetch.Request{
		Path:    "/projets/megaprojets/" + megaprojetID + "/axes",
		Success: protocol.MsgAxesRetrieved,
	})
}

func (s *Service) ListActivites(ctx context.Context, axeID string) (fetch.Result[models.Activite], error) {
	return fetch.LoadList[models.Activite](ctx, s.fetcher, fetch.Request{
		Path:    "/projets/megaprojets/axe/" + axeID + "/activites",
		Success: protocol.MsgActivitesRetrieved,
	})
}

// FindActivite looks one activity up by its unique code.
func (s *Service) FindActivite(ctx context.Context, code string) (*models.Activite, error) {
	var body struct {
		Activite *models.Activite `json:"data"`
	}
	if err := s.fetcher.LoadInto(ctx, "/projets/activite/"+code, &body); err != nil {
		return nil, err
	}
	if body.Activite == nil {
		return nil, &fetch.Error{Message: "Aucune activité trouvée avec ce code."}
	}
	return body.Activite, nil
}

// ---- hierarchy writes ----

type CreateMegaprojetInput struct {
	Name        string `json:"name" validate:"required"`
	Sector      string `json:"sector"`
	Coordinator string `json:"coordinator"`
}

func (s *Service) CreateMegaprojet(ctx context.Context, in CreateMegaprojetInput) (string, error) {
	if err := validate.Struct(in); err != nil {
		return "", errors.New(MsgMissingFields)
	}
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodPost,
		Path:   "/projets/megaprojet",
		Body:   in,
	})
}

type UpdateMegaprojetInput struct {
	Name        string `json:"name" validate:"required"`
	Sector      string `json:"sector"`
	Coordinator string `json:"coordinator"`
}

func (s *Service) UpdateMegaprojet(ctx context.Context, id string, in UpdateMegaprojetInput) (string, error) {
	if err := validate.Struct(in); err != nil {
		return "", errors.New(MsgMissingFields)
	}
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodPut,
		Path:   "/projets/megaprojets/" + id,
		Body:   in,
	})
}

func (s *Service) ToggleMegaprojet(ctx context.Context, id string) (string, error) {
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodPatch,
		Path:   "/projets/megaprojets/" + id + "/toggle-status",
	})
}

func (s *Service) DeleteMegaprojet(ctx context.Context, id string) (string, error) {
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodDelete,
		Path:   "/projets/megaprojets/" + id,
	})
}

type CreateAxeInput struct {
	Name         string `json:"name" validate:"required"`
	MegaprojetID string `json:"megaprojet_id" validate:"required"`
}

func (s *Service) CreateAxe(ctx context.Context, in CreateAxeInput) (string, error) {
	if err := validate.Struct(in); err != nil {
		return "", errors.New(MsgMissingFields)
	}
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodPost,
		Path:   "/projets/axe",
		Body:   in,
	})
}

type UpdateAxeInput struct {
	Name string `json:"name" validate:"required"`
}

func (s *Service) UpdateAxe(ctx context.Context, id string, in UpdateAxeInput) (string, error) {
	if err := validate.Struct(in); err != nil {
		return "", errors.New(MsgMissingFields)
	}
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodPut,
		Path:   "/projets/axes/" + id,
		Body:   in,
	})
}

func (s *Service) ToggleAxe(ctx context.Context, id string) (string, error) {
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodPatch,
		Path:   "/projets/axes/" + id + "/toggle-status",
	})
}

func (s *Service) DeleteAxe(ctx context.Context, id string) (string, error) {
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodDelete,
		Path:   "/projets/axes/" + id,
	})
}

type ActiviteInput struct {
	MegaprojetID string `json:"megaprojet_id,omitempty" validate:"required"`
	AxeID        string `json:"axe_id,omitempty" validate:"required"`
	Name         string `json:"ACTIVITE" validate:"required"`
	Code         string `json:"CodeActivite" validate:"required"`
	CRRA         string `json:"CRRA"`
}

// CreateActivite submits a new activity. A duplicate code comes back as
// the server's exact conflict message and must not navigate anywhere.
func (s *Service) CreateActivite(ctx context.Context, in ActiviteInput) (string, error) {
	if err := validate.Struct(in); err != nil {
		return "", errors.New(MsgMissingFields)
	}
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodPost,
		Path:   "/projets/activite",
		Body:   in,
	})
}

type UpdateActiviteInput struct {
	Name string `json:"ACTIVITE" validate:"required"`
	Code string `json:"CodeActivite" validate:"required"`
	CRRA string `json:"CRRA"`
}

func (s *Service) UpdateActivite(ctx context.Context, id string, in UpdateActiviteInput) (string, error) {
	if err := validate.Struct(in); err != nil {
		return "", errors.New(MsgMissingFields)
	}
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodPut,
		Path:   "/projets/activites/" + id,
		Body:   in,
	})
}

func (s *Service) ToggleActivite(ctx context.Context, id string) (string, error) {
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodPatch,
		Path:   "/projets/activites/" + id + "/toggle-status",
	})
}

func (s *Service) DeleteActivite(ctx context.Context, id string) (string, error) {
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodDelete,
		Path:   "/projets/activites/" + id,
	})
}

// ---- researchers ----

func (s *Service) ListChercheurs(ctx context.Context) (fetch.Result[models.Chercheur], error) {
	return fetch.LoadList[models.Chercheur](ctx, s.fetcher, fetch.Request{
		Path: "/users/chercheurs",
	})
}

type CreateChercheurInput struct {
	FullName   string `json:"fullName" validate:"required"`
	Password   string `json:"password" validate:"required"`
	CodeCentre string `json:"codeCentre" validate:"required"`
	Code       string `json:"code" validate:"required"`
}

func (s *Service) CreateChercheur(ctx context.Context, in CreateChercheurInput) (string, error) {
	if err := validate.Struct(in); err != nil {
		return "", errors.New(MsgMissingFields)
	}
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method:  http.MethodPost,
		Path:    "/users/chercheurs",
		Body:    in,
		Success: protocol.MsgChercheurCreated,
	})
}

// GetChercheur fetches one researcher profile. The server answers with
// the bare record, not the {message, data} envelope.
func (s *Service) GetChercheur(ctx context.Context, id string) (*models.Chercheur, error) {
	var chercheur models.Chercheur
	if err := s.fetcher.LoadInto(ctx, "/users/chercheurs/"+id, &chercheur); err != nil {
		return nil, err
	}
	return &chercheur, nil
}

func (s *Service) ActivateChercheur(ctx context.Context, id string) (string, error) {
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodPatch,
		Path:   "/users/chercheurs/" + id + "/activate",
	})
}

func (s *Service) DeactivateChercheur(ctx context.Context, id string) (string, error) {
	return s.fetcher.Mutate(ctx, fetch.Mutation{
		Method: http.MethodPatch,
		Path:   "/users/chercheurs/" + id + "/deactivate",
	})
}

// CodeCentres feeds the general-report center filter.
func (s *Service) CodeCentres(ctx context.Context) ([]string, error) {
	var body models.CodeCentresResponse
	if err := s.fetcher.LoadInto(ctx, "/users/codeCentres", &body); err != nil {
		return nil, err
	}
	if body.CodeCentres == nil {
		return []string{}, nil
	}
	return body.CodeCentres, nil
}
