package config

// Features toggles optional integrations. Everything defaults to off except
// the ones the public site cannot work without.
type Features struct {
	ChatEnabled      bool `env:"CHAT_ENABLED,default=true"`
	SchedulerEnabled bool `env:"SCHEDULER_ENABLED,default=false"`
	SlackEnabled     bool `env:"SLACK_ENABLED,default=false"`
	EventsEnabled    bool `env:"EVENTS_ENABLED,default=false"`
	CacheEnabled     bool `env:"CACHE_ENABLED,default=false"`
}
