package api

import (
	"github.com/velichkin/newsgrab/app/database"
	"github.com/velichkin/newsgrab/app/pipeline"
	"github.com/velichkin/newsgrab/app/sources"
)

type Handler struct {
	registry     *sources.Registry
	sourceRepo   database.SourceRepository
	storyRepo    database.StoryRepository
	orchestrator *pipeline.Orchestrator
}
