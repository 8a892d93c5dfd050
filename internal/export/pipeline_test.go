package export_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crra-tempo/tempo-client/internal/apiclient"
	"github.com/crra-tempo/tempo-client/internal/apitest"
	"github.com/crra-tempo/tempo-client/internal/export"
	"github.com/crra-tempo/tempo-client/internal/session"
)

type recordingNavigator struct {
	routes []string
}

func (n *recordingNavigator) Navigate(route string) {
	n.routes = append(n.routes, route)
}

func TestValidatePeriod(t *testing.T) {
	cases := []struct {
		text        string
		granularity export.Granularity
		want        bool
	}{
		{"2024-05", export.GranularityMonth, true},
		{"2024-5", export.GranularityMonth, false},
		{"2024", export.GranularityMonth, false},
		{"2024-05-01", export.GranularityMonth, false},
		{"2024", export.GranularityYear, true},
		{"24", export.GranularityYear, false},
		{"2024-05", export.GranularityYear, false},
		{"", export.GranularityYear, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, export.ValidatePeriod(tc.text, tc.granularity),
			"%q as %s", tc.text, tc.granularity)
	}
}

func TestResolveEndpoint(t *testing.T) {
	t.Run("ResearcherMonthly", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeResearcher, Granularity: export.GranularityMonth,
			Period: "2024-05", ResearcherID: "abc123",
		}
		endpoint, err := job.ResolveEndpoint()
		require.NoError(t, err)
		assert.Equal(t, "/month/abc123/2024-05", endpoint)
	})

	t.Run("ResearcherYearlyByMonth", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeResearcher, Granularity: export.GranularityYear,
			Sub: export.SubByMonth, Period: "2024", ResearcherID: "abc123",
		}
		endpoint, err := job.ResolveEndpoint()
		require.NoError(t, err)
		assert.Equal(t, "/monthlyrecap/abc123/2024", endpoint)
	})

	t.Run("ResearcherYearlyByDay", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeResearcher, Granularity: export.GranularityYear,
			Sub: export.SubByDay, Period: "2024", ResearcherID: "abc123",
		}
		endpoint, err := job.ResolveEndpoint()
		require.NoError(t, err)
		assert.Equal(t, "/year/abc123/2024", endpoint)
	})

	t.Run("ResearcherYearlyWithoutSubOption", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeResearcher, Granularity: export.GranularityYear,
			Period: "2024", ResearcherID: "abc123",
		}
		_, err := job.ResolveEndpoint()
		require.Error(t, err)
		assert.Equal(t, export.MsgSelectSub, err.Error())
	})

	t.Run("GeneralMonthlyAllCenters", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeGeneral, Granularity: export.GranularityMonth,
			Period: "2024-05", Centers: []string{"all"},
		}
		endpoint, err := job.ResolveEndpoint()
		require.NoError(t, err)
		assert.Equal(t, "/monthlygeneral/2024-05", endpoint)
	})

	t.Run("GeneralYearlyWithCenterFilter", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeGeneral, Granularity: export.GranularityYear,
			Period: "2024", Centers: []string{"C1", "C2"},
		}
		endpoint, err := job.ResolveEndpoint()
		require.NoError(t, err)
		assert.Equal(t, "/yearlygeneral/2024/C1,C2", endpoint)
	})

	t.Run("BadPeriodRejectedBeforeAnythingElse", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeResearcher, Granularity: export.GranularityMonth,
			Period: "2024", ResearcherID: "abc123",
		}
		_, err := job.ResolveEndpoint()
		require.Error(t, err)
		assert.Equal(t, export.MsgInvalidPeriod, err.Error())
	})
}

func TestFilename(t *testing.T) {
	t.Run("ResearcherMonthly", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeResearcher, Granularity: export.GranularityMonth,
			Period: "2024-05", ResearcherName: "Nadia Benali",
		}
		assert.Equal(t, "rapport_Nadia_Benali_05_2024.xlsx", job.Filename())
	})

	t.Run("ResearcherYearlyByMonth", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeResearcher, Granularity: export.GranularityYear,
			Sub: export.SubByMonth, Period: "2024", ResearcherName: "Nadia Benali",
		}
		assert.Equal(t, "rapport_Nadia_Benali_2024_parmois.xlsx", job.Filename())
	})

	t.Run("ResearcherYearlyByDay", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeResearcher, Granularity: export.GranularityYear,
			Sub: export.SubByDay, Period: "2024", ResearcherName: "Nadia Benali",
		}
		assert.Equal(t, "rapport_Nadia_Benali_2024_parjours.xlsx", job.Filename())
	})

	t.Run("GeneralMonthly", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeGeneral, Granularity: export.GranularityMonth,
			Period: "2024-05",
		}
		assert.Equal(t, "recap_general_mensuel_2024_05.xlsx", job.Filename())
	})

	t.Run("GeneralYearlyWithCenters", func(t *testing.T) {
		job := export.Job{
			Scope: export.ScopeGeneral, Granularity: export.GranularityYear,
			Period: "2024", Centers: []string{"C1", "C2"},
		}
		assert.Equal(t, "recap_general_annuel_2024_centres_C1-C2.xlsx", job.Filename())
	})
}

func setupPipeline(t *testing.T) (*export.Pipeline, *apitest.Server, *recordingNavigator, string) {
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

	outDir := t.TempDir()
	pipeline := export.NewPipeline(guard, api, export.NewDownloadPersister(outDir), nil)
	return pipeline, stub, nav, outDir
}

func TestExport(t *testing.T) {
	t.Run("EndToEnd", func(t *testing.T) {
		pipeline, stub, _, outDir := setupPipeline(t)
		payload := []byte("spreadsheet-bytes")
		stub.SeedExport("/monthlygeneral/2024-05", payload)

		outcome, err := pipeline.Export(context.Background(), export.Job{
			Scope: export.ScopeGeneral, Granularity: export.GranularityMonth,
			Period: "2024-05",
		})
		require.NoError(t, err)
		assert.Equal(t, "recap_general_mensuel_2024_05.xlsx", outcome.Filename)
		assert.Equal(t, len(payload), outcome.Size)

		written, err := os.ReadFile(filepath.Join(outDir, outcome.Filename))
		require.NoError(t, err)
		assert.Equal(t, payload, written)
		assert.Equal(t, filepath.Join(outDir, outcome.Filename), outcome.Location)
	})

	t.Run("EmptyPeriodReportsNoData", func(t *testing.T) {
		pipeline, _, nav, _ := setupPipeline(t)

		_, err := pipeline.Export(context.Background(), export.Job{
			Scope: export.ScopeGeneral, Granularity: export.GranularityMonth,
			Period: "1999-01",
		})
		require.Error(t, err)
		assert.Equal(t, export.MsgNoData, err.Error())
		assert.Empty(t, nav.routes)
	})

	t.Run("UnauthorizedRedirectsToLogin", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		store, err := session.NewSQLiteStore(t.TempDir())
		require.NoError(t, err)
		require.NoError(t, store.Set(session.KeyAuthToken, "tok"))

		nav := &recordingNavigator{}
		api := apiclient.New(server.URL, 0, nil)
		guard := session.NewGuard(store, api, nav, nil)
		pipeline := export.NewPipeline(guard, api, export.NewDownloadPersister(t.TempDir()), nil)

		_, err = pipeline.Export(context.Background(), export.Job{
			Scope: export.ScopeGeneral, Granularity: export.GranularityYear,
			Period: "2024",
		})
		require.Error(t, err)
		assert.Equal(t, export.MsgAccessDenied, err.Error())
		assert.Equal(t, []string{session.RouteLogin}, nav.routes)
	})

	t.Run("InvalidPeriodNeverReachesTheServer", func(t *testing.T) {
		pipeline, _, _, outDir := setupPipeline(t)

		_, err := pipeline.Export(context.Background(), export.Job{
			Scope: export.ScopeGeneral, Granularity: export.GranularityMonth,
			Period: "2024",
		})
		require.Error(t, err)
		assert.Equal(t, export.MsgInvalidPeriod, err.Error())

		entries, err := os.ReadDir(outDir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("NoSessionShortCircuits", func(t *testing.T) {
		store, err := session.NewSQLiteStore(t.TempDir())
		require.NoError(t, err)
		nav := &recordingNavigator{}
		api := apiclient.New("http://127.0.0.1:1", 0, nil)
		guard := session.NewGuard(store, api, nav, nil)
		pipeline := export.NewPipeline(guard, api, export.NewDownloadPersister(t.TempDir()), nil)

		_, err = pipeline.Export(context.Background(), export.Job{
			Scope: export.ScopeGeneral, Granularity: export.GranularityYear,
			Period: "2024",
		})
		assert.ErrorIs(t, err, session.ErrNoSession)
		assert.Equal(t, []string{session.RouteLogin}, nav.routes)
	})
}
