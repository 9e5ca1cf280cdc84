package models

import "time"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig
	Challenges ChallengesConfig
	Scheduler  SchedulerConfig
	Metrics    MetricsConfig
	Formance   FormanceConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	BusyTimeout      time.Duration
	CreateDummyUsers bool
}

// ChallengesConfig holds engine settings
type ChallengesConfig struct {
	PlansFile string
	TimeZone  string
}

// SchedulerConfig holds cron settings for the background sweep
type SchedulerConfig struct {
	SweepSchedule       string
	RewardRetrySchedule string
	RewardRetryBatch    int
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled    bool
	ListenAddr string
}

// FormanceConfig holds the optional Formance Stack settings for mirroring reward points.
// Mirroring is off when StackURL is empty.
type FormanceConfig struct {
	StackURL     string
	ClientID     string
	ClientSecret string
	LedgerName   string
}

// PlanQuotas maps a plan to the number of ACTIVE challenges a user on it may create
type PlanQuotas map[Plan]int

// DefaultPlanQuotas is used when no plans file is configured.
func DefaultPlanQuotas() PlanQuotas {
	return PlanQuotas{
		PlanFree:     0,
		PlanStandard: 3,
		PlanPlus:     6,
	}
}
