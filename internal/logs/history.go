package logs

import (
	"context"
	"net/url"
	"sort"
	"time"

	"github.com/crra-tempo/tempo-client/internal/fetch"
	"github.com/crra-tempo/tempo-client/internal/models"
)

// HistoryFilter selects the log window shown in the history view.
type HistoryFilter string

const (
	FilterAll        HistoryFilter = "all"
	FilterLast7Days  HistoryFilter = "last7days"
	FilterLast15Days HistoryFilter = "last15days"
)

func (f HistoryFilter) path() string {
	switch f {
	case FilterLast7Days:
		return "/logs/last-7-days"
	case FilterLast15Days:
		return "/logs/last-15-days"
	default:
		return "/logs/user-logs"
	}
}

// LoadHistory fetches the researcher's logs for the given window.
func LoadHistory(ctx context.Context, f *fetch.Fetcher, userID string, filter HistoryFilter) (fetch.Result[models.ActivityLog], error) {
	query := url.Values{}
	query.Set("user_id", userID)
	return fetch.LoadList[models.ActivityLog](ctx, f, fetch.Request{
		Path:    filter.path() + "?" + query.Encode(),
		Failure: "Impossible de récupérer l'historique des activités.",
	})
}

// DayGroup is one display bucket of the grouped-by-date viewer.
type DayGroup struct {
	Day  string
	Logs []models.ActivityLog
}

// GroupByDay buckets logs by their day, newest day first. Order of logs
// within a day follows the server order.
func GroupByDay(entries []models.ActivityLog) []DayGroup {
	byDay := map[string][]models.ActivityLog{}
	for _, entry := range entries {
		byDay[entry.Day] = append(byDay[entry.Day], entry)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	groups := make([]DayGroup, 0, len(days))
	for _, day := range days {
		groups = append(groups, DayGroup{Day: day, Logs: byDay[day]})
	}
	return groups
}

// LoadWeekTotals fetches the per-day hour totals and zero-fills the last
// seven days ending today, oldest first, for charting.
func LoadWeekTotals(ctx context.Context, f *fetch.Fetcher, userID string, now time.Time) ([]models.DayTotal, error) {
	query := url.Values{}
	query.Set("user_id", userID)
	result, err := fetch.LoadList[models.DayTotal](ctx, f, fetch.Request{
		Path:    "/logs/total-hours-7-days?" + query.Encode(),
		Failure: "Impossible de récupérer le total des heures.",
	})
	if err != nil {
		return nil, err
	}
	if result.State != fetch.StateReady {
		return nil, &fetch.Error{Message: result.Message}
	}

	totals := map[string]float64{}
	for _, bucket := range result.Data {
		totals[bucket.Day] = bucket.TotalHours
	}

	window := make([]models.DayTotal, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		window = append(window, models.DayTotal{Day: day, TotalHours: totals[day]})
	}
	return window, nil
}
