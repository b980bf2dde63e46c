package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/printbridge/backend/internal/infrastructure/auth"
	"github.com/printbridge/backend/internal/interfaces/http/middleware"
)

// APIPrefix is prepended to every Route path
const APIPrefix = "/api/v1"

// Route is one API endpoint. An empty Scope makes the route public: it is
// served without a bearer token even when authentication is enabled.
type Route struct {
	Method  string
	Path    string
	Scope   string
	Handler gin.HandlerFunc
}

// FullPath returns the path including APIPrefix
func (r Route) FullPath() string {
	return APIPrefix + r.Path
}

// Routes returns the printbridge API
func Routes(h Handlers) []Route {
	return []Route{
		{http.MethodGet, "/health", "", h.System.Health},
		{http.MethodGet, "/ping", "", h.System.Ping},

		{http.MethodPost, "/temp-files", auth.ScopeFiles, h.Print.CreateTempFile},
		{http.MethodDelete, "/temp-files/:filename", auth.ScopeFiles, h.Print.RemoveTempFile},

		{http.MethodGet, "/printers", auth.ScopePrint, h.Print.ListPrinters},
		{http.MethodGet, "/printers/:name", auth.ScopePrint, h.Print.GetPrinter},
		{http.MethodGet, "/paper-sizes", auth.ScopePrint, h.Print.PaperSizes},
		{http.MethodPost, "/print-jobs", auth.ScopePrint, h.Print.PrintPDF},
		{http.MethodPost, "/print-jobs/html", auth.ScopePrint, h.Print.PrintHTML},

		{http.MethodGet, "/jobs", auth.ScopeJobs, h.Print.ListAllJobs},
		{http.MethodGet, "/jobs/ref/:ref", auth.ScopeJobs, h.Print.GetJobByRef},
		{http.MethodPost, "/jobs/:action", auth.ScopeJobs, h.Print.ControlAllJobs},
		{http.MethodGet, "/printers/:name/jobs", auth.ScopeJobs, h.Print.ListJobs},
		{http.MethodGet, "/printers/:name/jobs/:jobId", auth.ScopeJobs, h.Print.GetJob},
		{http.MethodPost, "/printers/:name/jobs/:jobId/:action", auth.ScopeJobs, h.Print.ControlJob},
		{http.MethodDelete, "/printers/:name/jobs/:jobId", auth.ScopeJobs, h.Print.RemoveJob},

		{http.MethodGet, "/commands", auth.ScopeCommand, h.Command.ListCommands},
		{http.MethodPost, "/commands/:name", auth.ScopeCommand, h.Command.Invoke},
	}
}

// Mount registers routes on group. Scoped routes get a RequireScope guard.
func Mount(group *gin.RouterGroup, routes []Route) {
	for _, r := range routes {
		if r.Scope == "" {
			group.Handle(r.Method, r.Path, r.Handler)
			continue
		}
		group.Handle(r.Method, r.Path, middleware.RequireScope(r.Scope), r.Handler)
	}
}

// PublicPaths lists the full paths of routes without a scope. Parameterized
// paths are skipped since the token check matches paths literally.
func PublicPaths(routes []Route) []string {
	var out []string
	for _, r := range routes {
		if r.Scope == "" && !strings.Contains(r.Path, ":") {
			out = append(out, r.FullPath())
		}
	}
	return out
}
