package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/crra-tempo/tempo-client/internal/admin"
	"github.com/crra-tempo/tempo-client/internal/apiclient"
	"github.com/crra-tempo/tempo-client/internal/export"
	"github.com/crra-tempo/tempo-client/internal/fetch"
	"github.com/crra-tempo/tempo-client/internal/logs"
	"github.com/crra-tempo/tempo-client/internal/models"
	"github.com/crra-tempo/tempo-client/internal/session"
	"github.com/crra-tempo/tempo-client/pkg/config"
)

const usage = `Usage: tempo [-config file] <command> [options]

Commands:
  login        -name <fullName> -password <password>
  logout
  whoami
  megaprojets  [-filter text] | -add ... | -update <id> ... | -toggle <id> | -delete <id>
  axes         -megaprojet <id> | -add ... | -update <id> -name x | -toggle <id> | -delete <id>
  activites    -axe <id> [-filter text]
  activite     -code <code> | -add|-update|-toggle|-delete ...
  chercheurs   [-filter text] | -id <id> | -add ... | -activate <id> | -deactivate <id>
  log          -megaprojet <id> -axe <id> -activite <id> -day YYYY-MM-DD [-hours n]
  history      [-window all|last7days|last15days] [-totals]
  export       -scope general|researcher [options]
`

// consoleNavigator prints the navigation side effects the screens of the
// historical clients performed.
type consoleNavigator struct{}

func (consoleNavigator) Navigate(route string) {
	fmt.Printf("-> %s\n", route)
}

type app struct {
	guard    *session.Guard
	api      *apiclient.Client
	fetcher  *fetch.Fetcher
	admin    *admin.Service
	pipeline *export.Pipeline
	log      *logrus.Logger
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to optional config file (env vars take precedence)")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	store, err := session.NewSQLiteStore(cfg.Data.Dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open session store: %v\n", err)
		os.Exit(1)
	}

	api := apiclient.New(cfg.API.BaseURL, cfg.API.HTTPTimeout(), logger)
	guard := session.NewGuard(store, api, consoleNavigator{}, logger)
	fetcher := fetch.New(guard, api, logger)

	a := &app{
		guard:    guard,
		api:      api,
		fetcher:  fetcher,
		admin:    admin.NewService(fetcher),
		pipeline: export.NewPipeline(guard, api, export.ForPlatform(cfg.Export), logger),
		log:      logger,
	}

	ctx := context.Background()
	if err := a.run(ctx, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.guard.Logout()
	case "whoami":
		return a.cmdWhoami(ctx)
	case "megaprojets":
		return a.cmdMegaprojets(ctx, args)
	case "axes":
		return a.cmdAxes(ctx, args)
	case "activites":
		return a.cmdActivites(ctx, args)
	case "activite":
		return a.cmdActivite(ctx, args)
	case "chercheurs":
		return a.cmdChercheurs(ctx, args)
	case "log":
		return a.cmdLog(ctx, args)
	case "history":
		return a.cmdHistory(ctx, args)
	case "export":
		return a.cmdExport(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	name := fs.String("name", "", "Full name")
	password := fs.String("password", "", "Password")
	fs.Parse(args)

	cred, err := a.guard.Login(ctx, *name, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Bienvenue, %s (%s)\n", *name, cred.Role)
	return nil
}

func (a *app) cmdWhoami(ctx context.Context) error {
	cred, err := a.guard.ValidateSession(ctx)
	if err != nil {
		return err
	}
	claims, err := session.PeekClaims(cred.Token)
	if err != nil {
		fmt.Printf("role: %s\n", cred.Role)
		return nil
	}
	fmt.Printf("role: %s\n", cred.Role)
	if cred.DisplayName != "" {
		fmt.Printf("nom: %s\n", cred.DisplayName)
	}
	if remaining := claims.ExpiresIn(time.Now()); remaining > 0 {
		fmt.Printf("session expire dans: %s\n", remaining.Round(time.Minute))
	}
	return nil
}

func (a *app) cmdMegaprojets(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("megaprojets", flag.ExitOnError)
	filter := fs.String("filter", "", "Filter by name")
	toggleID := fs.String("toggle", "", "Toggle the status of a megaprojet")
	addName := fs.String("add", "", "Create a megaprojet with this name")
	updateID := fs.String("update", "", "Update the megaprojet with this id")
	deleteID := fs.String("delete", "", "Delete the megaprojet with this id")
	name := fs.String("name", "", "Megaprojet name (with -update)")
	sector := fs.String("sector", "", "Sector (with -add or -update)")
	coordinator := fs.String("coordinator", "", "Coordinator (with -add or -update)")
	fs.Parse(args)

	if *addName != "" {
		msg, err := a.admin.CreateMegaprojet(ctx, admin.CreateMegaprojetInput{
			Name: *addName, Sector: *sector, Coordinator: *coordinator,
		})
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	}
	if *updateID != "" {
		msg, err := a.admin.UpdateMegaprojet(ctx, *updateID, admin.UpdateMegaprojetInput{
			Name: *name, Sector: *sector, Coordinator: *coordinator,
		})
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	}
	if *toggleID != "" {
		msg, err := a.admin.ToggleMegaprojet(ctx, *toggleID)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	}
	if *deleteID != "" {
		msg, err := a.admin.DeleteMegaprojet(ctx, *deleteID)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	}

	result, err := a.admin.ListMegaprojets(ctx)
	if err != nil {
		return err
	}
	if result.State != fetch.StateReady {
		return fmt.Errorf("%s", result.Message)
	}
	items := fetch.Filter(result.Data, *filter, func(m models.Megaprojet) string { return m.Name })
	for _, m := range items {
		fmt.Printf("%s\t%s\t%s\n", m.ID, m.Name, m.Status)
	}
	return nil
}

func (a *app) cmdAxes(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("axes", flag.ExitOnError)
	megaprojetID := fs.String("megaprojet", "", "Parent megaprojet id")
	addName := fs.String("add", "", "Create an axe with this name")
	updateID := fs.String("update", "", "Update the axe with this id")
	name := fs.String("name", "", "Axe name (with -update)")
	toggleID := fs.String("toggle", "", "Toggle the status of an axe")
	deleteID := fs.String("delete", "", "Delete the axe with this id")
	fs.Parse(args)

	if *addName != "" {
		msg, err := a.admin.CreateAxe(ctx, admin.CreateAxeInput{Name: *addName, MegaprojetID: *megaprojetID})
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	}
	if *updateID != "" {
		msg, err := a.admin.UpdateAxe(ctx, *updateID, admin.UpdateAxeInput{Name: *name})
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	}
	if *toggleID != "" {
		msg, err := a.admin.ToggleAxe(ctx, *toggleID)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	}
	if *deleteID != "" {
		msg, err := a.admin.DeleteAxe(ctx, *deleteID)
		if err != nil {
			return err
		}
		fmt.Println(msg)
		return nil
	}

	result, err := a.admin.ListAxes(ctx, *megaprojetID)
	if err != nil {
		return err
	}
	if result.State != fetch.StateReady {
		return fmt.Errorf("%s", result.Message)
	}
	for _, axe := range result.Data {
		fmt.Printf("%s\t%s\t%s\n", axe.ID, axe.Name, axe.Status)
	}
	return nil
}

func (a *app) cmdActivites(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("activites", flag.ExitOnError)
	axeID := fs.String("axe", "", "Parent axe id")
	filter := fs.String("filter", "", "Filter by name")
	fs.Parse(args)

	result, err := a.admin.ListActivites(ctx, *axeID)
	if err != nil {
		return err
	}
	if result.State != fetch.StateReady {
		return fmt.Errorf("%s", result.Message)
	}
	items := fetch.Filter(result.Data, *filter, func(act models.Activite) string { return act.Name })
	for _, act := range items {
		fmt.Printf("%s\t%s\t%s\t%s\n", act.ID, act.Code, act.Name, act.Status)
	}
	return nil
}

func (a *app) cmdActivite(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("activite", flag.ExitOnError)
	code := fs.String("code", "", "Look an activity up by code")
	add := fs.Bool("add", false, "Create an activity")
	update := fs.String("update", "", "Update the activity with this id")
	toggleID := fs.String("toggle", "", "Toggle the status of an activity")
	deleteID := fs.String("delete", "", "Delete the activity with this id")
	megaprojetID := fs.String("megaprojet", "", "Parent megaprojet id (with -add)")
	axeID := fs.String("axe", "", "Parent axe id (with -add)")
	name := fs.String("name", "", "Activity name")
	actCode := fs.String("activity-code", "", "Unique activity code")
	crra := fs.String("crra", "", "CRRA code")
	fs.Parse(args)

	switch {
	case *add:
		msg, err := a.admin.CreateActivite(ctx, admin.ActiviteInput{
			MegaprojetID: *megaprojetID, AxeID: *axeID,
			Name: *name, Code: *actCode, CRRA: *crra,
		})
		if err != nil {
			return err
		}
		fmt.Println(msg)
	case *update != "":
		msg, err := a.admin.UpdateActivite(ctx, *update, admin.UpdateActiviteInput{
			Name: *name, Code: *actCode, CRRA: *crra,
		})
		if err != nil {
			return err
		}
		fmt.Println(msg)
	case *toggleID != "":
		msg, err := a.admin.ToggleActivite(ctx, *toggleID)
		if err != nil {
			return err
		}
		fmt.Println(msg)
	case *deleteID != "":
		msg, err := a.admin.DeleteActivite(ctx, *deleteID)
		if err != nil {
			return err
		}
		fmt.Println(msg)
	case *code != "":
		act, err := a.admin.FindActivite(ctx, *code)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", act.ID, act.Code, act.Name, act.Status)
	default:
		return fmt.Errorf("activite: nothing to do")
	}
	return nil
}

func (a *app) cmdChercheurs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("chercheurs", flag.ExitOnError)
	filter := fs.String("filter", "", "Filter by full name")
	profileID := fs.String("id", "", "Show one researcher profile")
	add := fs.Bool("add", false, "Create a researcher")
	name := fs.String("name", "", "Full name (with -add)")
	password := fs.String("password", "", "Password (with -add)")
	codeCentre := fs.String("code-centre", "", "Center code (with -add)")
	code := fs.String("code", "", "Researcher code (with -add)")
	activate := fs.String("activate", "", "Activate the researcher with this id")
	deactivate := fs.String("deactivate", "", "Deactivate the researcher with this id")
	fs.Parse(args)

	switch {
	case *profileID != "":
		c, err := a.admin.GetChercheur(ctx, *profileID)
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%s/%s\t%s\n", c.ID, c.FullName, c.CenterCode, c.ResearcherCode, c.Status)
	case *add:
		msg, err := a.admin.CreateChercheur(ctx, admin.CreateChercheurInput{
			FullName: *name, Password: *password, CodeCentre: *codeCentre, Code: *code,
		})
		if err != nil {
			return err
		}
		fmt.Println(msg)
	case *activate != "":
		msg, err := a.admin.ActivateChercheur(ctx, *activate)
		if err != nil {
			return err
		}
		fmt.Println(msg)
	case *deactivate != "":
		msg, err := a.admin.DeactivateChercheur(ctx, *deactivate)
		if err != nil {
			return err
		}
		fmt.Println(msg)
	default:
		result, err := a.admin.ListChercheurs(ctx)
		if err != nil {
			return err
		}
		if result.State != fetch.StateReady {
			return fmt.Errorf("%s", result.Message)
		}
		items := fetch.Filter(result.Data, *filter, func(c models.Chercheur) string { return c.FullName })
		for _, c := range items {
			fmt.Printf("%s\t%s\t%s/%s\t%s\n", c.ID, c.FullName, c.CenterCode, c.ResearcherCode, c.Status)
		}
	}
	return nil
}

func (a *app) cmdLog(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("log", flag.ExitOnError)
	megaprojetID := fs.String("megaprojet", "", "Megaprojet id")
	axeID := fs.String("axe", "", "Axe id")
	activiteID := fs.String("activite", "", "Activite id")
	day := fs.String("day", time.Now().Format("2006-01-02"), "Day (YYYY-MM-DD)")
	hours := fs.String("hours", "", "Hours to record; omit to only check")
	fs.Parse(args)

	entry := logs.NewEntry(a.guard, a.api, a.log, *megaprojetID, *axeID, *activiteID)
	state, err := entry.SetDay(ctx, *day)
	if err != nil {
		return err
	}

	if !state.Allowed {
		fmt.Printf("Saisie indisponible pour le %s : %.1fh déjà enregistrées.\n", state.Day, state.Existing)
		return nil
	}
	if *hours == "" {
		fmt.Printf("Saisie autorisée pour le %s.\n", state.Day)
		return nil
	}

	value, err := strconv.ParseFloat(*hours, 64)
	if err != nil {
		return fmt.Errorf("%s", logs.MsgInvalidHours)
	}
	msg, err := entry.Submit(ctx, value)
	if err != nil {
		return err
	}
	fmt.Println(msg)
	return nil
}

func (a *app) cmdHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	window := fs.String("window", "all", "all, last7days or last15days")
	totals := fs.Bool("totals", false, "Show the 7-day per-day totals instead of the log list")
	fs.Parse(args)

	cred, err := a.guard.RequireSession()
	if err != nil {
		return err
	}

	if *totals {
		week, err := logs.LoadWeekTotals(ctx, a.fetcher, cred.UserID, time.Now())
		if err != nil {
			return err
		}
		for _, bucket := range week {
			fmt.Printf("%s\t%.1fh\n", bucket.Day, bucket.TotalHours)
		}
		return nil
	}

	result, err := logs.LoadHistory(ctx, a.fetcher, cred.UserID, logs.HistoryFilter(*window))
	if err != nil {
		return err
	}
	if result.State != fetch.StateReady {
		return fmt.Errorf("%s", result.Message)
	}
	for _, group := range logs.GroupByDay(result.Data) {
		fmt.Println(group.Day)
		for _, entry := range group.Logs {
			fmt.Printf("  %.1fh\t%s\n", entry.Value, entry.ActiviteName)
		}
	}
	return nil
}

func (a *app) cmdExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	scope := fs.String("scope", "general", "general or researcher")
	granularity := fs.String("granularity", "month", "month or year")
	sub := fs.String("sub", "", "month or day (researcher yearly reports)")
	period := fs.String("period", "", "YYYY-MM or YYYY")
	centres := fs.String("centres", "all", "Comma-separated center codes, or all")
	researcherID := fs.String("researcher", "", "Researcher id (researcher scope)")
	researcherName := fs.String("researcher-name", "", "Researcher name (researcher scope)")
	fs.Parse(args)

	job := export.Job{
		Granularity:    export.Granularity(*granularity),
		Sub:            export.SubGranularity(*sub),
		Period:         *period,
		ResearcherID:   *researcherID,
		ResearcherName: *researcherName,
	}
	if *scope == "researcher" {
		job.Scope = export.ScopeResearcher
	} else {
		job.Scope = export.ScopeGeneral
		if *centres != "" && *centres != "all" {
			job.Centers = splitCentres(*centres)
		}
	}

	outcome, err := a.pipeline.Export(ctx, job)
	if err != nil {
		return err
	}
	fmt.Printf("Fichier \"%s\" enregistré (%d octets): %s\n", outcome.Filename, outcome.Size, outcome.Location)
	return nil
}

func splitCentres(raw string) []string {
	var centres []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			centres = append(centres, part)
		}
	}
	return centres
}
