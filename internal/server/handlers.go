package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmv7zero3/marketbrewer-earning-calls-sub000/pkg/dates"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var start, end *time.Time
	if v := q.Get("start"); v != "" {
		t, err := dates.Parse(v)
		if err != nil {
			http.Error(w, "bad start date: "+err.Error(), http.StatusBadRequest)
			return
		}
		start = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := dates.Parse(v)
		if err != nil {
			http.Error(w, "bad end date: "+err.Error(), http.StatusBadRequest)
			return
		}
		end = &t
	}

	summary, err := s.Auditor.GenerateSummary(start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(summary)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.Auditor.PendingReview()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(pending)
}

type recordSummary struct {
	ID          int64  `json:"id"`
	EventID     string `json:"eventId"`
	CompanyName string `json:"companyName"`
	Ticker      string `json:"ticker"`
	Quarter     string `json:"quarter"`
	FiscalYear  int    `json:"fiscalYear"`
	CallDate    string `json:"callDate,omitempty"`
	WordCount   int    `json:"wordCount"`
	ContentHash string `json:"contentHash"`
	Confidence  int    `json:"confidence"`
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no document store configured", http.StatusServiceUnavailable)
		return
	}
	eventID := r.URL.Query().Get("event")
	if eventID == "" {
		http.Error(w, "missing event query parameter", http.StatusBadRequest)
		return
	}
	records, err := s.DB.ListRecordsForEvent(r.Context(), eventID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]recordSummary, 0, len(records))
	for _, rec := range records {
		out = append(out, recordSummary{
			ID:          rec.ID,
			EventID:     rec.EventID,
			CompanyName: rec.CompanyName,
			Ticker:      rec.Ticker,
			Quarter:     rec.Quarter,
			FiscalYear:  rec.FiscalYear,
			CallDate:    rec.CallDate,
			WordCount:   rec.WordCount,
			ContentHash: rec.ContentHash,
			Confidence:  rec.Confidence,
		})
	}
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no document store configured", http.StatusServiceUnavailable)
		return
	}
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(stats)
}
