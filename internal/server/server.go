package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crucible-labs/crucible/internal/chat"
	"github.com/crucible-labs/crucible/internal/config"
	"github.com/crucible-labs/crucible/internal/core"
	"github.com/crucible-labs/crucible/internal/core/model"
	"github.com/crucible-labs/crucible/internal/driver"
)

// Server is the thin HTTP surface over the Lab: every handler is a direct
// pass-through to a core operation.
type Server struct {
	Lab    *core.Lab
	Store  driver.Store
	Auth   config.AuthConfig
	logger *zap.Logger
}

func NewServer(lab *core.Lab, store driver.Store, auth config.AuthConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		Lab:    lab,
		Store:  store,
		Auth:   auth,
		logger: logger.With(zap.String("component", "server")),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.Default()

	r.POST("/register", s.Register)
	r.POST("/login", s.Login)

	authed := r.Group("/", s.AuthRequired())
	authed.GET("/experiments", s.ListExperiments)
	authed.POST("/experiments", s.CreateExperiment)
	authed.GET("/experiments/:id", s.GetExperiment)
	authed.PATCH("/experiments/:id", s.UpdateExperiment)
	authed.DELETE("/experiments/:id", s.DeleteExperiment)
	authed.POST("/experiments/:id/duplicate", s.DuplicateExperiment)
	authed.POST("/experiments/:id/run", s.RunConversations)
	authed.GET("/experiments/:id/conversations", s.ListConversations)
	authed.POST("/conversations/:id/favourite", s.ToggleConversationFavourite)
	authed.DELETE("/experiments/:id/conversations/:conversation_id", s.DeleteConversation)

	return r
}

// fail maps the core error kinds onto HTTP statuses.
func (s *Server) fail(c *gin.Context, err error) {
	var (
		validation *model.ValidationError
		missing    *model.MissingPlaceholderError
		notFound   *model.NotFoundError
		permission *model.PermissionError
		driverErr  *chat.DriverError
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &missing):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &permission):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.As(err, &driverErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.logger.Error("request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
