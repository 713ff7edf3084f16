package server

import "net/http"

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Submission and polling
	mux.HandleFunc("/analyze", s.withRateLimit(s.app.AnalyzeHandler.AnalyzeHandler))
	mux.HandleFunc("/scan/", s.withRateLimit(s.app.ScanHandler.ScanRoutes))
	mux.HandleFunc("/scans", s.withRateLimit(s.app.ScanHandler.ListScansHandler))

	// Event stream
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// Operational
	mux.HandleFunc("/health", s.app.StatusHandler.HealthHandler)
	mux.HandleFunc("/metrics", s.app.StatusHandler.MetricsHandler)
	mux.Handle("/metrics/prometheus", s.app.Metrics.Handler())
	mux.HandleFunc("/version", s.app.StatusHandler.VersionHandler)

	return mux
}
