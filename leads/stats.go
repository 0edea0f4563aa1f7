package leads

import (
	"time"
)

// DailyCount is one bar of the dashboard's registrations-per-day chart.
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Stats is the aggregate view behind the admin dashboard. Rates are
// percentages; ConversionRate is visited-over-called.
type Stats struct {
	TotalLeads          int            `json:"totalLeads"`
	TotalCalled         int            `json:"totalCalled"`
	TotalVisited        int            `json:"totalVisited"`
	CallRate            float64        `json:"callRate"`
	VisitRate           float64        `json:"visitRate"`
	ConversionRate      float64        `json:"conversionRate"`
	TodayLeads          int            `json:"todayLeads"`
	ThisWeekLeads       int            `json:"thisWeekLeads"`
	ThisMonthLeads      int            `json:"thisMonthLeads"`
	OccupationBreakdown map[string]int `json:"occupationBreakdown"`
	DailyRegistrations  []DailyCount   `json:"dailyRegistrations"`
}

// Stats computes the dashboard aggregates from the current lead table.
func (r *Repository) Stats() (Stats, error) {
	all, err := r.GetAll()
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(all, time.Now().UTC()), nil
}

// ComputeStats derives the dashboard aggregates in one pass. The week
// window is the last 7 days and the month window the last 30, both
// measured from midnight UTC of the given reference time. Leads whose
// created_at fails to parse still count toward totals but are excluded
// from the date-based buckets.
func ComputeStats(all []Lead, now time.Time) Stats {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekAgo := today.AddDate(0, 0, -7)
	monthAgo := today.AddDate(0, 0, -30)
	chartStart := today.AddDate(0, 0, -13)

	stats := Stats{
		TotalLeads:          len(all),
		OccupationBreakdown: make(map[string]int),
	}
	daily := make(map[string]int)

	for _, lead := range all {
		if lead.CallDatetime != nil {
			stats.TotalCalled++
		}
		if lead.VisitDatetime != nil {
			stats.TotalVisited++
		}
		stats.OccupationBreakdown[lead.Occupation]++

		createdAt, err := time.Parse(time.RFC3339, lead.CreatedAt)
		if err != nil {
			continue
		}
		createdAt = createdAt.UTC()

		if !createdAt.Before(today) {
			stats.TodayLeads++
		}
		if !createdAt.Before(weekAgo) {
			stats.ThisWeekLeads++
		}
		if !createdAt.Before(monthAgo) {
			stats.ThisMonthLeads++
		}
		if !createdAt.Before(chartStart) {
			daily[createdAt.Format("2006-01-02")]++
		}
	}

	if stats.TotalLeads > 0 {
		stats.CallRate = float64(stats.TotalCalled) / float64(stats.TotalLeads) * 100
		stats.VisitRate = float64(stats.TotalVisited) / float64(stats.TotalLeads) * 100
	}
	if stats.TotalCalled > 0 {
		stats.ConversionRate = float64(stats.TotalVisited) / float64(stats.TotalCalled) * 100
	}

	// Last 14 days, oldest first, zero-filled.
	stats.DailyRegistrations = make([]DailyCount, 0, 14)
	for i := 13; i >= 0; i-- {
		date := today.AddDate(0, 0, -i).Format("2006-01-02")
		stats.DailyRegistrations = append(stats.DailyRegistrations, DailyCount{
			Date:  date,
			Count: daily[date],
		})
	}

	return stats
}
