package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/monocle-dev/taskforge/internal/apperr"
	"github.com/monocle-dev/taskforge/internal/auth"
	"github.com/monocle-dev/taskforge/internal/realtime"
	"github.com/monocle-dev/taskforge/internal/services"
	log "github.com/sirupsen/logrus"
)

type Options struct {
	Users          *services.UserService
	Projects       *services.ProjectService
	Tasks          *services.TaskService
	Notifications  *services.Notifier
	Issuer         *auth.Issuer
	Hub            *realtime.Hub
	CookieDomain   string
	AllowedOrigins []string
}

// Handler serves the HTTP API on top of the service layer.
type Handler struct {
	users         *services.UserService
	projects      *services.ProjectService
	tasks         *services.TaskService
	notifications *services.Notifier
	issuer        *auth.Issuer
	hub           *realtime.Hub
	cookieDomain  string
	upgrader      websocket.Upgrader
}

func New(opts Options) *Handler {
	allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
	for _, origin := range opts.AllowedOrigins {
		allowed[origin] = struct{}{}
	}

	return &Handler{
		users:         opts.Users,
		projects:      opts.Projects,
		tasks:         opts.Tasks,
		notifications: opts.Notifications,
		issuer:        opts.Issuer,
		hub:           opts.Hub,
		cookieDomain:  opts.CookieDomain,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no Origin
				if origin == "" {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}
}

func respondError(ctx *gin.Context, err error) {
	status := apperr.HTTPStatus(err)

	if status >= http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": ctx.Request.Method,
			"path":   ctx.Request.URL.Path,
		}).Error("Request failed")
	}

	ctx.JSON(status, gin.H{"error": apperr.PublicMessage(err)})
}

func badRequest(ctx *gin.Context, err error) {
	log.WithError(err).Debug("Failed to bind request")
	ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
}
