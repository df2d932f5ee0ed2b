package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/blongworth/locness-dash/internal/dataset"
	"github.com/blongworth/locness-dash/internal/ingest"
)

// recordJSON flattens a record into one object per row, the table shape
// the dashboard plots from.
func recordJSON(rec ingest.Record) map[string]any {
	row := make(map[string]any, len(rec.Fields)+3)
	row["datetime_utc"] = rec.Time.Format(time.RFC3339Nano)
	if rec.Latitude != nil {
		row["latitude"] = *rec.Latitude
	}
	if rec.Longitude != nil {
		row["longitude"] = *rec.Longitude
	}
	for name, v := range rec.Fields {
		row[name] = v
	}
	return row
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// getFieldsHandler returns the current measurement field catalog.
func (s *Server) getFieldsHandler(w http.ResponseWriter, r *http.Request) {
	fields := s.store.Fields()
	if fields == nil {
		fields = []string{}
	}
	writeJSON(w, http.StatusOK, fields)
}

// getDataHandler returns a time-windowed, optionally resampled view.
// Query params: start, end (RFC3339, default full range) and resample
// (duration string, default from config).
func (s *Server) getDataHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()

	start, end, ok := snap.TimeRange()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"count": 0, "records": []any{}})
		return
	}

	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid start: "+err.Error(), http.StatusBadRequest)
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid end: "+err.Error(), http.StatusBadRequest)
			return
		}
		end = t
	}

	resample := s.defaultResample
	if v := r.URL.Query().Get("resample"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			http.Error(w, "invalid resample: "+err.Error(), http.StatusBadRequest)
			return
		}
		resample = d
	}

	view := dataset.View(snap, start, end, resample)
	records := make([]map[string]any, 0, view.Len())
	for _, rec := range view.Records {
		records = append(records, recordJSON(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

// getNewDataHandler drains and returns the records merged since the
// previous call. The dashboard polls it on its refresh interval to
// decide whether anything changed; draining here also keeps the store's
// pending buffer from growing for the life of the daemon.
func (s *Server) getNewDataHandler(w http.ResponseWriter, r *http.Request) {
	newRecords := s.store.GetNewData()
	records := make([]map[string]any, 0, len(newRecords))
	for _, rec := range newRecords {
		records = append(records, recordJSON(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(records),
		"records": records,
	})
}

// getLatestHandler returns the newest record.
func (s *Server) getLatestHandler(w http.ResponseWriter, r *http.Request) {
	rec, ok := s.store.Snapshot().Latest()
	if !ok {
		http.Error(w, "no data", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, recordJSON(rec))
}

// getStatusHandler reports ingestion state: a stalled backend shows up
// here as an unchanging cursor, not as an error.
func (s *Server) getStatusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"backend": s.store.Backend(),
		"records": s.store.Snapshot().Len(),
	}
	if cursor, ok := s.store.Cursor(); ok {
		status["cursor"] = cursor.Format(time.RFC3339Nano)
	} else {
		status["cursor"] = nil
	}
	if t := s.store.LastRefresh(); !t.IsZero() {
		status["last_refresh"] = t.Format(time.RFC3339Nano)
	}
	writeJSON(w, http.StatusOK, status)
}
