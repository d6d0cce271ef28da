package analytics

import "time"

// Collector aggregates engagement metrics over the tracked events.
type Collector struct {
	analytics *Service
	now       func() time.Time
}

func NewCollector(analytics *Service) *Collector {
	return &Collector{
		analytics: analytics,
		now:       time.Now,
	}
}

func uniqueUsersBetween(events []Event, start, end time.Time) int {
	users := make(map[string]struct{})
	for _, event := range events {
		if event.Timestamp.Before(start) || !event.Timestamp.Before(end) {
			continue
		}
		users[event.UserID] = struct{}{}
	}
	return len(users)
}

// DailyActiveUsers counts unique users with any activity on the
// calendar day containing date (UTC).
func (c *Collector) DailyActiveUsers(date time.Time) int {
	start := date.UTC().Truncate(24 * time.Hour)
	end := start.Add(24 * time.Hour)
	return uniqueUsersBetween(c.analytics.snapshot(), start, end)
}

// WeeklyActiveUsers counts unique users active in the 7 days before
// date.
func (c *Collector) WeeklyActiveUsers(date time.Time) int {
	return uniqueUsersBetween(c.analytics.snapshot(), date.Add(-7*24*time.Hour), date)
}

// MonthlyActiveUsers counts unique users active in the 30 days before
// date.
func (c *Collector) MonthlyActiveUsers(date time.Time) int {
	return uniqueUsersBetween(c.analytics.snapshot(), date.Add(-30*24*time.Hour), date)
}

// ConversionFunnel counts unique users per step. Steps are event names
// in funnel order; a zero start includes all history.
func (c *Collector) ConversionFunnel(steps []string, start time.Time) map[string]int {
	events := c.analytics.snapshot()

	funnel := make(map[string]int, len(steps))
	for _, step := range steps {
		users := make(map[string]struct{})
		for _, event := range events {
			if event.EventName != step {
				continue
			}
			if !start.IsZero() && event.Timestamp.Before(start) {
				continue
			}
			users[event.UserID] = struct{}{}
		}
		funnel[step] = len(users)
	}
	return funnel
}

// FeatureAdoption describes usage of one feature over a period.
type FeatureAdoption struct {
	TotalUsers   int     `json:"total_users"`
	FeatureUsers int     `json:"feature_users"`
	AdoptionRate float64 `json:"adoption_rate"`
	TotalUses    int     `json:"total_uses"`
}

// Adoption measures how many active users triggered featureEvent in
// the trailing periodDays.
func (c *Collector) Adoption(featureEvent string, periodDays int) FeatureAdoption {
	if periodDays <= 0 {
		periodDays = 30
	}
	start := c.now().Add(-time.Duration(periodDays) * 24 * time.Hour)

	allUsers := make(map[string]struct{})
	featureUsers := make(map[string]struct{})
	totalUses := 0

	for _, event := range c.analytics.snapshot() {
		if event.Timestamp.Before(start) {
			continue
		}
		allUsers[event.UserID] = struct{}{}
		if event.EventName == featureEvent {
			featureUsers[event.UserID] = struct{}{}
			totalUses++
		}
	}

	adoption := FeatureAdoption{
		TotalUsers:   len(allUsers),
		FeatureUsers: len(featureUsers),
		TotalUses:    totalUses,
	}
	if adoption.TotalUsers > 0 {
		adoption.AdoptionRate = float64(adoption.FeatureUsers) / float64(adoption.TotalUsers)
	}
	return adoption
}
