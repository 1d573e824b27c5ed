// internal/controller/profile_controller.go
package controller

import (
	"encoding/csv"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/linkreach-backend/internal/importer"
	"github.com/unclebandit/linkreach-backend/internal/model"
	"github.com/unclebandit/linkreach-backend/internal/queue"
	"github.com/unclebandit/linkreach-backend/internal/repository"
)

// ProfileController exposes the profile store and run queue over HTTP. The
// browser itself never runs in this process; run requests are queued for
// the worker.
type ProfileController struct {
	Repo      repository.ProfileRepositoryInterface
	Publisher queue.RunPublisher
}

// RegisterRoutes mounts all endpoints on the router.
func (c *ProfileController) RegisterRoutes(r chi.Router) {
	r.Post("/profiles/import", c.ImportProfiles)
	r.Get("/profiles", c.ListProfiles)
	r.Get("/profiles/summary", c.GetSummary)
	r.Get("/profiles/export", c.ExportProfiles)
	r.Post("/profiles/reset-errors", c.ResetErrors)
	r.Get("/stats/daily", c.GetDailyStats)
	r.Post("/campaigns/run", c.EnqueueRun)
}

// ImportProfiles accepts a CSV upload (multipart field "file") and loads
// every valid profile URL. Duplicates are counted, never overwritten.
func (c *ProfileController) ImportProfiles(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file upload", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rows, skipped, err := importer.ProduceURLList(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(rows) == 0 {
		http.Error(w, "no valid profile URLs in file", http.StatusBadRequest)
		return
	}

	result, err := c.Repo.ImportURLs(rows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"imported":   result.Imported,
		"duplicates": result.Duplicates,
		"total":      result.Total,
		"skipped":    skipped,
	})
}

func (c *ProfileController) ListProfiles(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 100
	}

	var (
		profiles []model.Profile
		err      error
	)
	if status == "" {
		profiles, err = c.Repo.GetAllProfiles()
	} else {
		if !validStatus(status) {
			http.Error(w, "unknown status: "+status, http.StatusBadRequest)
			return
		}
		profiles, err = c.Repo.GetProfilesByStatus(status, limit)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":  profiles,
		"count": len(profiles),
	})
}

// ExportProfiles streams the full store as CSV.
func (c *ProfileController) ExportProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := c.Repo.GetAllProfiles()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="profiles.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"url", "name", "status", "error", "updated_at"})
	for _, p := range profiles {
		name, errMsg := "", ""
		if p.Name != nil {
			name = *p.Name
		}
		if p.ErrorMsg != nil {
			errMsg = *p.ErrorMsg
		}
		_ = cw.Write([]string{p.URL, name, p.Status, errMsg, p.UpdatedAt.Format("2006-01-02 15:04:05")})
	}
	cw.Flush()
}

// ResetErrors flips every errored profile back to pending for a retry pass.
func (c *ProfileController) ResetErrors(w http.ResponseWriter, r *http.Request) {
	n, err := c.Repo.ResetErrors()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"reset": n})
}

func (c *ProfileController) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := c.Repo.GetSummary()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	connections, err := c.Repo.GetDailyCount(model.CounterConnections)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	messages, err := c.Repo.GetDailyCount(model.CounterMessages)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"statuses": summary,
		"today": map[string]int{
			model.CounterConnections: connections,
			model.CounterMessages:    messages,
		},
	})
}

func (c *ProfileController) GetDailyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Repo.GetDailyStats()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{"data": stats})
}

// EnqueueRun queues one campaign pass for the worker.
func (c *ProfileController) EnqueueRun(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Mode   string `json:"mode"`
		DryRun bool   `json:"dry_run"`
		Cap    int    `json:"cap"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	switch body.Mode {
	case model.ModeConnect, model.ModeMessage, model.ModeBoth:
	default:
		http.Error(w, "mode must be connect, message, or both", http.StatusBadRequest)
		return
	}
	if body.Cap < 0 {
		http.Error(w, "cap must be non-negative", http.StatusBadRequest)
		return
	}

	job := queue.NewRunJob(body.Mode, body.DryRun, body.Cap)
	if err := c.Publisher.PublishRun(job); err != nil {
		log.Println("⚠️ Failed to queue run:", err)
		http.Error(w, "failed to queue run", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"job_id":  job.JobID,
		"mode":    job.Mode,
		"dry_run": job.DryRun,
		"status":  "queued",
	})
}

func validStatus(status string) bool {
	for _, s := range model.AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}
