// Package export implements the report-export pipeline: period
// validation, endpoint selection, binary retrieval and platform-specific
// persistence of the spreadsheet the server produces.
package export

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/crra-tempo/tempo-client/internal/apiclient"
	"github.com/crra-tempo/tempo-client/internal/session"
)

const SpreadsheetMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Localized messages, kept verbatim from the historical clients.
const (
	MsgInvalidPeriod = "Le format de la date est invalide. Veuillez entrer un format valide (YYYY ou YYYY-MM)."
	MsgSelectSub     = "Veuillez sélectionner une option (Par Mois ou Par Jour)."
	MsgInvalidValue  = "Veuillez entrer une valeur valide pour l'année ou le mois."
	MsgExportFailed  = "Une erreur s'est produite lors de l'exportation du fichier."
	MsgNoData        = "Aucune donnée disponible pour cette période. Vérifiez la période ou contactez l'administrateur."
	MsgAccessDenied  = "Accès refusé. Vérifiez vos autorisations ou reconnectez-vous."
	MsgBadRequest    = "Requête invalide. Vérifiez le format de la période (YYYY ou YYYY-MM)."
)

type Scope string

const (
	ScopeResearcher Scope = "researcher"
	ScopeGeneral    Scope = "general"
)

type Granularity string

const (
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// SubGranularity refines a per-researcher yearly report.
type SubGranularity string

const (
	SubNone    SubGranularity = ""
	SubByMonth SubGranularity = "month"
	SubByDay   SubGranularity = "day"
)

var (
	monthPeriodRe = regexp.MustCompile(`^\d{4}-\d{2}$`)
	yearPeriodRe  = regexp.MustCompile(`^\d{4}$`)
)

// ValidatePeriod checks the exact period pattern for the granularity:
// YYYY-MM for monthly, YYYY for yearly. No calendar-range checks.
func ValidatePeriod(text string, g Granularity) bool {
	if g == GranularityMonth {
		return monthPeriodRe.MatchString(text)
	}
	return yearPeriodRe.MatchString(text)
}

// Job is one export request; it lives only for the duration of the
// attempt and is never persisted.
type Job struct {
	Scope          Scope
	Granularity    Granularity
	Sub            SubGranularity
	Period         string
	Centers        []string
	ResearcherID   string
	ResearcherName string
}

// allCenters reports whether the center filter means "everything".
func (j Job) allCenters() bool {
	if len(j.Centers) == 0 {
		return true
	}
	for _, center := range j.Centers {
		if center == "all" {
			return true
		}
	}
	return false
}

// ResolveEndpoint maps the (scope, granularity, sub-granularity) tuple to
// the server path, relative to /exports. A per-researcher yearly report
// without a sub-option is a validation error.
func (j Job) ResolveEndpoint() (string, error) {
	if !ValidatePeriod(j.Period, j.Granularity) {
		return "", errors.New(MsgInvalidPeriod)
	}

	switch j.Scope {
	case ScopeResearcher:
		switch j.Granularity {
		case GranularityMonth:
			return "/month/" + j.ResearcherID + "/" + j.Period, nil
		case GranularityYear:
			switch j.Sub {
			case SubByMonth:
				return "/monthlyrecap/" + j.ResearcherID + "/" + j.Period, nil
			case SubByDay:
				return "/year/" + j.ResearcherID + "/" + j.Period, nil
			default:
				return "", errors.New(MsgSelectSub)
			}
		}
	case ScopeGeneral:
		var endpoint string
		switch j.Granularity {
		case GranularityMonth:
			endpoint = "/monthlygeneral/" + j.Period
		case GranularityYear:
			endpoint = "/yearlygeneral/" + j.Period
		}
		if endpoint != "" {
			if !j.allCenters() {
				endpoint += "/" + strings.Join(j.Centers, ",")
			}
			return endpoint, nil
		}
	}
	return "", errors.New(MsgInvalidValue)
}

// Filename builds the deterministic output name: scope prefix, sanitized
// researcher name, period components, and the sub-granularity or center
// suffix, always ending in the spreadsheet extension.
func (j Job) Filename() string {
	if j.Scope == ScopeResearcher {
		name := "rapport_"
		if j.ResearcherName != "" {
			name += strings.Join(strings.Fields(j.ResearcherName), "_")
		}
		if j.Granularity == GranularityMonth {
			parts := strings.SplitN(j.Period, "-", 2)
			if len(parts) == 2 {
				name += "_" + parts[1] + "_" + parts[0]
			}
		} else {
			switch j.Sub {
			case SubByMonth:
				name += "_" + j.Period + "_parmois"
			case SubByDay:
				name += "_" + j.Period + "_parjours"
			}
		}
		return name + ".xlsx"
	}

	suffix := "annuel"
	if j.Granularity == GranularityMonth {
		suffix = "mensuel"
	}
	name := "recap_general_" + suffix + "_" + strings.ReplaceAll(j.Period, "-", "_")
	if !j.allCenters() {
		name += "_centres_" + strings.Join(j.Centers, "-")
	}
	return name + ".xlsx"
}

// Outcome reports a finished export.
type Outcome struct {
	Filename string
	Location string
	Size     int
}

type Pipeline struct {
	guard     *session.Guard
	api       *apiclient.Client
	persister Persister
	log       *logrus.Logger
}

func NewPipeline(guard *session.Guard, api *apiclient.Client, persister Persister, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Pipeline{guard: guard, api: api, persister: persister, log: log}
}

// Export runs one attempt end to end. Every failure is terminal for the
// attempt: the user corrects the input and re-triggers.
func (p *Pipeline) Export(ctx context.Context, job Job) (*Outcome, error) {
	cred, err := p.guard.RequireSession()
	if err != nil {
		return nil, session.ErrNoSession
	}

	endpoint, err := job.ResolveEndpoint()
	if err != nil {
		return nil, err
	}

	data, err := p.fetchBinary(ctx, "/exports"+endpoint, cred.Token)
	if err != nil {
		return nil, err
	}

	filename := job.Filename()
	location, err := p.persister.Persist(data, filename)
	if err != nil {
		return nil, err
	}

	p.log.WithFields(logrus.Fields{
		"filename": filename,
		"location": location,
		"bytes":    len(data),
	}).Info("export saved")
	return &Outcome{Filename: filename, Location: location, Size: len(data)}, nil
}

// fetchBinary retrieves the spreadsheet. A 404 means the period holds no
// data and is reported distinctly; a 401 triggers the login redirect.
func (p *Pipeline) fetchBinary(ctx context.Context, path, token string) ([]byte, error) {
	resp, err := p.api.GetBinary(ctx, path, token)
	if err != nil {
		return nil, errors.New(MsgExportFailed)
	}

	switch resp.Status {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		return nil, errors.New(MsgNoData)
	case http.StatusUnauthorized:
		p.guard.RedirectLogin()
		return nil, errors.New(MsgAccessDenied)
	case http.StatusBadRequest:
		return nil, errors.New(MsgBadRequest)
	default:
		return nil, errors.New(MsgExportFailed)
	}
}
