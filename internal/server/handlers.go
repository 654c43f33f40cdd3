package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/crucible-labs/crucible/internal/chat"
	"github.com/crucible-labs/crucible/internal/core"
	"github.com/crucible-labs/crucible/internal/core/model"
)

type sectionInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type roleInput struct {
	Name         string         `json:"name" binding:"required"`
	Sections     []sectionInput `json:"sections"`
	Placeholders []string       `json:"placeholders"`
}

type createExperimentRequest struct {
	StartingMessage    string         `json:"starting_message" binding:"required"`
	Note               string         `json:"note"`
	Favourite          bool           `json:"favourite"`
	LLMs               []string       `json:"llms"`
	Roles              []roleInput    `json:"roles" binding:"required"`
	SharedSections     []sectionInput `json:"shared_sections"`
	SummarizerSections []sectionInput `json:"summarizer_sections"`
	Placeholders       []string       `json:"placeholders"`
}

// buildSections runs the section-authoring workflow for one ordered list of
// titled fragments: the synthetic starting-prompt section is prepended and
// each section's content is set afterwards, as iterative authoring does.
func buildSections(inputs []sectionInput, typ model.SectionType, role string) ([]*model.Section, error) {
	titles := make([]string, 0, len(inputs))
	for _, in := range inputs {
		titles = append(titles, in.Title)
	}
	sections, err := model.NewSectionList(titles, typ, role)
	if err != nil {
		return nil, err
	}
	for i, in := range inputs {
		sections[i+1].SetContent(in.Content)
	}
	return sections, nil
}

func buildPlaceholders(tags []string) ([]*model.Placeholder, error) {
	placeholders := make([]*model.Placeholder, 0, len(tags))
	for _, tag := range tags {
		p, err := model.NewPlaceholder(tag)
		if err != nil {
			return nil, err
		}
		placeholders = append(placeholders, p)
	}
	return placeholders, nil
}

func (req *createExperimentRequest) toParams(creator string) (model.ExperimentParams, error) {
	params := model.ExperimentParams{
		StartingMessage: req.StartingMessage,
		Note:            req.Note,
		Favourite:       req.Favourite,
		Creator:         creator,
	}
	for _, name := range req.LLMs {
		l, err := model.NewLLM(name)
		if err != nil {
			return params, err
		}
		params.LLMs = append(params.LLMs, l)
	}
	for _, in := range req.Roles {
		sections, err := buildSections(in.Sections, model.SectionPrivate, in.Name)
		if err != nil {
			return params, err
		}
		placeholders, err := buildPlaceholders(in.Placeholders)
		if err != nil {
			return params, err
		}
		role, err := model.NewRole(in.Name, sections, placeholders)
		if err != nil {
			return params, err
		}
		params.Roles = append(params.Roles, role)
	}
	for i, in := range req.SharedSections {
		s, err := model.NewSection(i+1, in.Title, in.Content, model.SectionShared, "")
		if err != nil {
			return params, err
		}
		params.SharedSections = append(params.SharedSections, s)
	}
	var err error
	params.SummarizerSections, err = buildSections(req.SummarizerSections, model.SectionSummarizer, "")
	if err != nil {
		return params, err
	}
	params.Placeholders, err = buildPlaceholders(req.Placeholders)
	return params, err
}

func (s *Server) objectID(c *gin.Context, param string) (bson.ObjectID, bool) {
	id, err := bson.ObjectIDFromHex(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return bson.ObjectID{}, false
	}
	return id, true
}

func (s *Server) CreateExperiment(c *gin.Context) {
	var req createExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	params, err := req.toParams(identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	exp, err := s.Lab.CreateExperiment(c.Request.Context(), params)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, exp.ToDocument())
}

func (s *Server) ListExperiments(c *gin.Context) {
	experiments, err := s.Lab.Experiments(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	docs := make([]*model.ExperimentDocument, 0, len(experiments))
	for _, exp := range experiments {
		docs = append(docs, exp.ToDocument())
	}
	c.JSON(http.StatusOK, gin.H{"experiments": docs})
}

func (s *Server) GetExperiment(c *gin.Context) {
	id, ok := s.objectID(c, "id")
	if !ok {
		return
	}
	exp, err := s.Lab.Experiment(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exp.ToDocument())
}

type updateExperimentRequest struct {
	Note      *string `json:"note"`
	Favourite *bool   `json:"favourite"`
}

func (s *Server) UpdateExperiment(c *gin.Context) {
	id, ok := s.objectID(c, "id")
	if !ok {
		return
	}
	var req updateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	exp, err := s.Lab.UpdateExperiment(c.Request.Context(), id, identity(c), req.Note, req.Favourite)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exp.ToDocument())
}

func (s *Server) DeleteExperiment(c *gin.Context) {
	id, ok := s.objectID(c, "id")
	if !ok {
		return
	}
	if err := s.Lab.DeleteExperiment(c.Request.Context(), id, identity(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type duplicateExperimentRequest struct {
	StartingMessage *string `json:"starting_message"`
	Note            *string `json:"note"`
}

func (s *Server) DuplicateExperiment(c *gin.Context) {
	id, ok := s.objectID(c, "id")
	if !ok {
		return
	}
	var req duplicateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	exp, err := s.Lab.DuplicateExperiment(c.Request.Context(), id, identity(c), req.StartingMessage, req.Note)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, exp.ToDocument())
}

type runRequest struct {
	Counts     []model.RoleCount `json:"counts" binding:"required"`
	Exhaustive bool              `json:"exhaustive"`
	Days       int               `json:"days"`
	Rounds     int               `json:"rounds"`
	Policy     string            `json:"policy"`
}

func (s *Server) RunConversations(c *gin.Context) {
	id, ok := s.objectID(c, "id")
	if !ok {
		return
	}
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	conversations, err := s.Lab.RunConversations(c.Request.Context(), id, identity(c), core.RunRequest{
		Counts:     req.Counts,
		Exhaustive: req.Exhaustive,
		Days:       req.Days,
		Rounds:     req.Rounds,
		Policy:     chat.SelectionPolicy(req.Policy),
	})
	if err != nil && len(conversations) == 0 {
		s.fail(c, err)
		return
	}

	docs := make([]*model.ConversationDocument, 0, len(conversations))
	for _, conv := range conversations {
		docs = append(docs, conv.ToDocument())
	}
	resp := gin.H{"conversations": docs}
	if err != nil {
		// Partial success: some combinations completed, others are
		// retryable by re-running them from day 1.
		resp["failed"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListConversations(c *gin.Context) {
	id, ok := s.objectID(c, "id")
	if !ok {
		return
	}
	conversations, err := s.Lab.Conversations(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	docs := make([]*model.ConversationDocument, 0, len(conversations))
	for _, conv := range conversations {
		docs = append(docs, conv.ToDocument())
	}
	c.JSON(http.StatusOK, gin.H{"conversations": docs})
}

func (s *Server) ToggleConversationFavourite(c *gin.Context) {
	id, ok := s.objectID(c, "id")
	if !ok {
		return
	}
	conv, err := s.Lab.ToggleConversationFavourite(c.Request.Context(), id, identity(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, conv.ToDocument())
}

func (s *Server) DeleteConversation(c *gin.Context) {
	experimentID, ok := s.objectID(c, "id")
	if !ok {
		return
	}
	conversationID, ok := s.objectID(c, "conversation_id")
	if !ok {
		return
	}
	if err := s.Lab.DeleteConversation(c.Request.Context(), experimentID, conversationID, identity(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
