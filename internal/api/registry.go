package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// groupShort describes the command groups derived from route paths.
var groupShort = map[string]string{
	"jobs": "Chapter generation job commands",
}

// Registry holds all registered endpoints.
type Registry struct {
	endpoints []Endpoint
	commands  map[string][]CommandFunc
}

// NewRegistry creates a new endpoint registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string][]CommandFunc)}
}

// Register adds an endpoint to the registry.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// RegisterCommand adds a CLI-only command under group ("" for top level).
func (r *Registry) RegisterCommand(group string, fn CommandFunc) {
	r.commands[group] = append(r.commands[group], fn)
}

// RegisterRoutes registers all endpoint HTTP routes with the given mux.
// initMiddleware wraps handlers that require full server initialization.
func (r *Registry) RegisterRoutes(mux *http.ServeMux, initMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	for _, ep := range r.endpoints {
		method, path, handler := ep.Route()
		if ep.RequiresInit() {
			handler = initMiddleware(handler)
		}
		mux.HandleFunc(method+" "+path, handler)
	}
}

// CommandGroup returns the CLI group for a route path: the first segment
// after /api/, or "" for top-level routes such as /health.
func CommandGroup(path string) string {
	rest, ok := strings.CutPrefix(path, "/api/")
	if !ok {
		return ""
	}
	group, _, _ := strings.Cut(rest, "/")
	if strings.HasPrefix(group, "{") {
		return ""
	}
	// Singleton collections like /api/segments stay at the top level.
	if _, known := groupShort[group]; !known {
		return ""
	}
	return group
}

// BuildCommands returns a cobra.Command tree for all registered endpoints.
// Commands are organized by their URL path structure.
// getServerURL is called at runtime to get the server URL.
func (r *Registry) BuildCommands(getServerURL func() string) *cobra.Command {
	apiCmd := &cobra.Command{
		Use:   "api",
		Short: "Commands that call the running server",
		Long: `API commands call the running chaptermark server via HTTP.

These commands require a running server (chaptermark serve).
Use --server to specify a custom server URL.

Examples:
  chaptermark api health                  # Check server health
  chaptermark api jobs submit talk.json   # Submit a transcript
  chaptermark api jobs wait <id>          # Poll until the job finishes`,
	}

	groups := make(map[string]*cobra.Command)
	attach := func(group string, cmd *cobra.Command) {
		if group == "" {
			apiCmd.AddCommand(cmd)
			return
		}
		parent, ok := groups[group]
		if !ok {
			short := groupShort[group]
			if short == "" {
				short = group + " commands"
			}
			parent = &cobra.Command{Use: group, Short: short}
			groups[group] = parent
			apiCmd.AddCommand(parent)
		}
		parent.AddCommand(cmd)
	}

	for _, ep := range r.endpoints {
		_, path, _ := ep.Route()
		attach(CommandGroup(path), ep.Command(getServerURL))
	}

	names := make([]string, 0, len(r.commands))
	for group := range r.commands {
		names = append(names, group)
	}
	sort.Strings(names)
	for _, group := range names {
		for _, fn := range r.commands[group] {
			attach(group, fn(getServerURL))
		}
	}

	return apiCmd
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}
