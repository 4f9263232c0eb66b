package endpoints

import (
	"github.com/jackzampolin/chaptermark/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Job endpoints
		&CreateJobEndpoint{},
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&CancelJobEndpoint{},

		// Grouping preview
		&SegmentsEndpoint{},
	}
}

// NewRegistry returns an api.Registry holding every endpoint plus the
// CLI-only job commands.
func NewRegistry() *api.Registry {
	reg := api.NewRegistry()
	for _, ep := range All() {
		reg.Register(ep)
	}
	reg.RegisterCommand("jobs", WaitJobCommand)
	return reg
}
