package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/velichkin/newsgrab/app/database"
	"github.com/velichkin/newsgrab/app/pipeline"
	"github.com/velichkin/newsgrab/app/sources"
)

func NewHandler(registry *sources.Registry, sourceRepo database.SourceRepository,
	storyRepo database.StoryRepository, orchestrator *pipeline.Orchestrator) *Handler {
	return &Handler{
		registry:     registry,
		sourceRepo:   sourceRepo,
		storyRepo:    storyRepo,
		orchestrator: orchestrator,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if sourceCount, err := h.sourceRepo.GetSourceCount(); err == nil {
		health["sources"] = sourceCount
	}

	health["loaded_rules"] = h.registry.Count()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"loaded_rules": h.registry.Count(),
	}

	if storyCount, err := h.storyRepo.GetStoryCount(); err == nil {
		stats["stories"] = storyCount
	}

	perSource := make([]map[string]interface{}, 0)
	for _, source := range h.registry.List() {
		info := map[string]interface{}{
			"source":  source.Name,
			"enabled": source.Settings.Enabled,
		}

		if total, archived, err := h.storyRepo.GetStoryStats(source.Name); err == nil {
			info["stories"] = total
			info["archived"] = archived
		}
		if record, err := h.sourceRepo.GetSource(source.Name); err == nil && record != nil {
			info["last_scraped_at"] = record.LastScrapedAt
		}

		perSource = append(perSource, info)
	}
	stats["sources"] = perSource

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListSources(c *gin.Context) {
	list := h.registry.List()

	out := make([]map[string]interface{}, 0, len(list))
	for _, source := range list {
		info := map[string]interface{}{
			"name":             source.Name,
			"homepage":         source.Homepage,
			"kind":             source.Scrape.Kind,
			"enabled":          source.Settings.Enabled,
			"refresh_interval": (time.Duration(source.Settings.RefreshInterval) * time.Second).String(),
		}

		if record, err := h.sourceRepo.GetSource(source.Name); err == nil && record != nil {
			info["last_scraped_at"] = record.LastScrapedAt
		}
		if total, archived, err := h.storyRepo.GetStoryStats(source.Name); err == nil {
			info["stories"] = total
			info["archived"] = archived
		}

		out = append(out, info)
	}

	c.JSON(http.StatusOK, gin.H{"sources": out, "count": len(out)})
}

// APIScrapeSource runs the pipeline for exactly one source. A failed scrape
// is still a completed request: the outcome travels in the report body.
func (h *Handler) APIScrapeSource(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	report, err := h.orchestrator.RunSource(c.Request.Context(), name)
	if err != nil {
		slog.Error("Source not found", "source", name, "error", err)
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source", "source": name})
		return
	}

	c.JSON(http.StatusOK, reportResponse(report))
}

// APIScrapeAll runs a bulk pass over all enabled sources; force=true
// bypasses the staleness check. Partial failures produce a 200 with the
// failures in the report; only an unobtainable source list is a 5xx.
func (h *Handler) APIScrapeAll(c *gin.Context) {
	force := c.Query("force") == "true"

	report, err := h.orchestrator.RunBulk(c.Request.Context(), force)
	if err != nil {
		slog.Error("Bulk scrape failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to run scrape"})
		return
	}

	c.JSON(http.StatusOK, reportResponse(report))
}

func reportResponse(report *pipeline.Report) gin.H {
	return gin.H{
		"started_at":  report.StartedAt.Format(time.RFC3339),
		"finished_at": report.FinishedAt.Format(time.RFC3339),
		"duration":    report.Duration().String(),
		"succeeded":   report.Succeeded(),
		"failed":      report.Failed(),
		"skipped":     report.Skipped(),
		"created":     report.TotalCreated(),
		"updated":     report.TotalUpdated(),
		"results":     report.Results,
	}
}
