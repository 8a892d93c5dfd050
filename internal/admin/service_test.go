package admin_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crra-tempo/tempo-client/internal/admin"
	"github.com/crra-tempo/tempo-client/internal/apiclient"
	"github.com/crra-tempo/tempo-client/internal/apitest"
	"github.com/crra-tempo/tempo-client/internal/fetch"
	"github.com/crra-tempo/tempo-client/internal/models"
	"github.com/crra-tempo/tempo-client/internal/protocol"
	"github.com/crra-tempo/tempo-client/internal/session"
)

type recordingNavigator struct {
	routes []string
}

func (n *recordingNavigator) Navigate(route string) {
	n.routes = append(n.routes, route)
}

type adminEnv struct {
	service *admin.Service
	stub    *apitest.Server
	nav     *recordingNavigator
}

func setupService(t *testing.T) *adminEnv {
	t.Helper()

	stub := apitest.NewServer()
	server := httptest.NewServer(stub.Handler())
	t.Cleanup(server.Close)

	store, err := session.NewSQLiteStore(t.TempDir())
	require.NoError(t, err)

	nav := &recordingNavigator{}
	api := apiclient.New(server.URL, 0, nil)
	guard := session.NewGuard(store, api, nav, nil)

	stub.SeedAdmin("Admin", "admin123")
	_, err = guard.Login(context.Background(), "Admin", "admin123")
	require.NoError(t, err)
	nav.routes = nil

	fetcher := fetch.New(guard, api, nil, fetch.WithSleep(func(time.Duration) {}))
	return &adminEnv{
		service: admin.NewService(fetcher),
		stub:    stub,
		nav:     nav,
	}
}

func TestHierarchyReads(t *testing.T) {
	e := setupService(t)
	mp := e.stub.SeedMegaprojet("Gestion durable de l'eau")
	axe := e.stub.SeedAxe(mp, "Irrigation")
	e.stub.SeedActivite(mp, axe, "Suivi des parcelles", "ACT-001", "CRRA-01")

	ctx := context.Background()

	megaprojets, err := e.service.ListMegaprojets(ctx)
	require.NoError(t, err)
	require.Len(t, megaprojets.Data, 1)
	assert.Equal(t, "Gestion durable de l'eau", megaprojets.Data[0].Name)

	axes, err := e.service.ListAxes(ctx, mp)
	require.NoError(t, err)
	require.Len(t, axes.Data, 1)
	assert.Equal(t, "Irrigation", axes.Data[0].Name)

	activites, err := e.service.ListActivites(ctx, axe)
	require.NoError(t, err)
	require.Len(t, activites.Data, 1)
	assert.Equal(t, "ACT-001", activites.Data[0].Code)

	found, err := e.service.FindActivite(ctx, "ACT-001")
	require.NoError(t, err)
	assert.Equal(t, "Suivi des parcelles", found.Name)

	_, err = e.service.FindActivite(ctx, "ACT-404")
	require.Error(t, err)
}

func TestHierarchyWrites(t *testing.T) {
	e := setupService(t)
	mp := e.stub.SeedMegaprojet("Gestion durable de l'eau")
	axe := e.stub.SeedAxe(mp, "Irrigation")
	ctx := context.Background()

	msg, err := e.service.CreateActivite(ctx, admin.ActiviteInput{
		MegaprojetID: mp, AxeID: axe,
		Name: "Suivi des parcelles", Code: "ACT-001", CRRA: "CRRA-01",
	})
	require.NoError(t, err)
	assert.Equal(t, "Activite created successfully", msg)

	activites, err := e.service.ListActivites(ctx, axe)
	require.NoError(t, err)
	require.Len(t, activites.Data, 1)
	id := activites.Data[0].ID

	_, err = e.service.UpdateActivite(ctx, id, admin.UpdateActiviteInput{
		Name: "Suivi renforcé", Code: "ACT-001", CRRA: "CRRA-01",
	})
	require.NoError(t, err)

	_, err = e.service.ToggleActivite(ctx, id)
	require.NoError(t, err)

	_, err = e.service.DeleteActivite(ctx, id)
	require.NoError(t, err)

	activites, err = e.service.ListActivites(ctx, axe)
	require.NoError(t, err)
	assert.Empty(t, activites.Data)
}

func TestMegaprojetLifecycle(t *testing.T) {
	e := setupService(t)
	mp := e.stub.SeedMegaprojet("Eau")
	ctx := context.Background()

	msg, err := e.service.UpdateMegaprojet(ctx, mp, admin.UpdateMegaprojetInput{
		Name: "Gestion durable de l'eau", Sector: "Agriculture", Coordinator: "K. Alaoui",
	})
	require.NoError(t, err)
	assert.Equal(t, "Megaprojet updated successfully", msg)

	list, err := e.service.ListMegaprojets(ctx)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Gestion durable de l'eau", list.Data[0].Name)
	assert.Equal(t, "Agriculture", list.Data[0].Sector)

	_, err = e.service.ToggleMegaprojet(ctx, mp)
	require.NoError(t, err)
	list, err = e.service.ListMegaprojets(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisabled, list.Data[0].Status)

	_, err = e.service.DeleteMegaprojet(ctx, mp)
	require.NoError(t, err)
	list, err = e.service.ListMegaprojets(ctx)
	require.NoError(t, err)
	assert.Empty(t, list.Data)
}

func TestAxeLifecycle(t *testing.T) {
	e := setupService(t)
	mp := e.stub.SeedMegaprojet("Eau")
	axe := e.stub.SeedAxe(mp, "Irrigation")
	ctx := context.Background()

	msg, err := e.service.UpdateAxe(ctx, axe, admin.UpdateAxeInput{Name: "Irrigation localisée"})
	require.NoError(t, err)
	assert.Equal(t, "Axe updated successfully", msg)

	list, err := e.service.ListAxes(ctx, mp)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Irrigation localisée", list.Data[0].Name)

	_, err = e.service.ToggleAxe(ctx, axe)
	require.NoError(t, err)
	list, err = e.service.ListAxes(ctx, mp)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisabled, list.Data[0].Status)

	_, err = e.service.DeleteAxe(ctx, axe)
	require.NoError(t, err)
	list, err = e.service.ListAxes(ctx, mp)
	require.NoError(t, err)
	assert.Empty(t, list.Data)
}

func TestGetChercheur(t *testing.T) {
	e := setupService(t)
	id := e.stub.SeedChercheur("Nadia Benali", "secret123", "C1", "R001")

	chercheur, err := e.service.GetChercheur(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Nadia Benali", chercheur.FullName)
	assert.Equal(t, "C1", chercheur.CenterCode)
	assert.Equal(t, models.StatusActive, chercheur.Status)

	_, err = e.service.GetChercheur(context.Background(), "id9999")
	require.Error(t, err)
}

func TestValidationBlocksLocally(t *testing.T) {
	e := setupService(t)
	ctx := context.Background()

	_, err := e.service.CreateMegaprojet(ctx, admin.CreateMegaprojetInput{})
	require.Error(t, err)
	assert.Equal(t, admin.MsgMissingFields, err.Error())

	_, err = e.service.CreateActivite(ctx, admin.ActiviteInput{Name: "Suivi"})
	require.Error(t, err)
	assert.Equal(t, admin.MsgMissingFields, err.Error())

	_, err = e.service.UpdateMegaprojet(ctx, "id0001", admin.UpdateMegaprojetInput{Sector: "Agriculture"})
	require.Error(t, err)
	assert.Equal(t, admin.MsgMissingFields, err.Error())

	_, err = e.service.UpdateAxe(ctx, "id0001", admin.UpdateAxeInput{})
	require.Error(t, err)
	assert.Equal(t, admin.MsgMissingFields, err.Error())

	_, err = e.service.CreateChercheur(ctx, admin.CreateChercheurInput{FullName: "Nadia"})
	require.Error(t, err)
	assert.Equal(t, admin.MsgMissingFields, err.Error())
}

func TestDuplicateSentinels(t *testing.T) {
	t.Run("ActiviteCode", func(t *testing.T) {
		e := setupService(t)
		mp := e.stub.SeedMegaprojet("Eau")
		axe := e.stub.SeedAxe(mp, "Irrigation")
		e.stub.SeedActivite(mp, axe, "Suivi", "ACT-001", "CRRA-01")

		_, err := e.service.CreateActivite(context.Background(), admin.ActiviteInput{
			MegaprojetID: mp, AxeID: axe, Name: "Autre", Code: "ACT-001",
		})
		require.Error(t, err)
		var fe *fetch.Error
		require.ErrorAs(t, err, &fe)
		assert.True(t, fe.Conflict)
		assert.Equal(t, protocol.MsgDuplicateCode, fe.Message)
		assert.Empty(t, e.nav.routes)
	})

	t.Run("ChercheurName", func(t *testing.T) {
		e := setupService(t)
		e.stub.SeedChercheur("Nadia Benali", "secret123", "C1", "R001")

		_, err := e.service.CreateChercheur(context.Background(), admin.CreateChercheurInput{
			FullName: "Nadia Benali", Password: "pw", CodeCentre: "C2", Code: "R002",
		})
		require.Error(t, err)
		var fe *fetch.Error
		require.ErrorAs(t, err, &fe)
		assert.True(t, fe.Conflict)
		assert.Equal(t, protocol.MsgDuplicateName, fe.Message)
	})

	t.Run("ChercheurCodeAndCentre", func(t *testing.T) {
		e := setupService(t)
		e.stub.SeedChercheur("Nadia Benali", "secret123", "C1", "R001")

		_, err := e.service.CreateChercheur(context.Background(), admin.CreateChercheurInput{
			FullName: "Karim Alaoui", Password: "pw", CodeCentre: "C1", Code: "R001",
		})
		require.Error(t, err)
		var fe *fetch.Error
		require.ErrorAs(t, err, &fe)
		assert.True(t, fe.Conflict)
		assert.Equal(t, protocol.MsgDuplicatePair, fe.Message)
	})
}

func TestChercheurs(t *testing.T) {
	e := setupService(t)
	ctx := context.Background()

	msg, err := e.service.CreateChercheur(ctx, admin.CreateChercheurInput{
		FullName: "Nadia Benali", Password: "secret123", CodeCentre: "C1", Code: "R001",
	})
	require.NoError(t, err)
	assert.Equal(t, protocol.MsgChercheurCreated, msg)

	list, err := e.service.ListChercheurs(ctx)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Nadia Benali", list.Data[0].FullName)
	assert.Equal(t, models.StatusActive, list.Data[0].Status)
	id := list.Data[0].ID

	_, err = e.service.DeactivateChercheur(ctx, id)
	require.NoError(t, err)

	list, err = e.service.ListChercheurs(ctx)
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, models.StatusDisabled, list.Data[0].Status)
}

func TestCodeCentres(t *testing.T) {
	t.Run("SeededCenters", func(t *testing.T) {
		e := setupService(t)
		e.stub.SeedCodeCentres("C1", "C2", "C3")

		centres, err := e.service.CodeCentres(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"C1", "C2", "C3"}, centres)
	})

	t.Run("EmptyIsNotNil", func(t *testing.T) {
		e := setupService(t)
		centres, err := e.service.CodeCentres(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, centres)
		assert.Empty(t, centres)
	})
}
