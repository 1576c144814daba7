package endpoints

import (
	"github.com/halyard-advisory/halyard/pkg/server"
)

// RegisterAll registers all API endpoints on the server
func RegisterAll(srv *server.Server) {
	RegisterStatusEndpoints(srv)
	RegisterBlogEndpoints(srv)
	RegisterNewsEndpoints(srv)
	RegisterAssessmentsEndpoints(srv)
	RegisterJobsEndpoints(srv)
	RegisterBookingsEndpoints(srv)
	RegisterWhoamiEndpoints(srv)
	RegisterProjectsEndpoints(srv)
	RegisterRequestsEndpoints(srv)
}
