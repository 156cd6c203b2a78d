package cleanup

// DefaultSchedule runs the purge every five minutes.
const DefaultSchedule = "*/5 * * * *"

// Config holds cleanup worker configuration.
type Config struct {
	// Schedule is a standard five-field cron expression.
	Schedule         string
	VerboseReporting bool
}

// NewConfig falls back to DefaultSchedule when schedule is empty.
func NewConfig(schedule string, verbose bool) *Config {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	return &Config{Schedule: schedule, VerboseReporting: verbose}
}
