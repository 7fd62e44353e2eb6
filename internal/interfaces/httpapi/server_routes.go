package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerImportRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/providers/{provider}/imports", handler.StartImport)
	mux.HandleFunc("GET /v1/users/{userID}/imports", handler.ListImportRuns)
}

func registerReadRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/users/{userID}/leagues", handler.ListUserLeagues)
	mux.HandleFunc("GET /v1/leagues/{leagueID}/teams", handler.ListLeagueTeams)
}
