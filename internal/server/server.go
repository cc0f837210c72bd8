// Package server exposes the audit trail and document store over a small
// JSON API for the research dashboard to consume.
package server

import (
	"log"
	"net/http"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/audit"
	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/storage"
)

type Server struct {
	Auditor  *audit.Logger
	DB       *storage.DB
	Username string
	Password string
}

func New(auditor *audit.Logger, db *storage.DB, user, pass string) *Server {
	return &Server{
		Auditor:  auditor,
		DB:       db,
		Username: user,
		Password: pass,
	}
}

func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/summary", s.basicAuth(s.handleSummary))
	mux.HandleFunc("GET /api/pending", s.basicAuth(s.handlePending))
	mux.HandleFunc("GET /api/records", s.basicAuth(s.handleRecords))
	mux.HandleFunc("GET /api/stats", s.basicAuth(s.handleStats))

	log.Printf("Starting audit API server on %s", addr)
	return http.ListenAndServe(addr, mux)
}

func (s *Server) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Username == "" && s.Password == "" {
			next(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.Username || pass != s.Password {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
