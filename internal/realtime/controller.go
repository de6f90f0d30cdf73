package realtime

import (
	"context"
	"io"
	"net/http"
	"time"

	"slotify/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const heartbeatInterval = 15 * time.Second

// ScopeResolver confirms a subscription scope refers to something that exists
type ScopeResolver interface {
	ActivityExists(ctx context.Context, id uuid.UUID) (bool, error)
	VenueExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Controller struct {
	bus      *Bus
	resolver ScopeResolver
}

func NewController(bus *Bus, resolver ScopeResolver) *Controller {
	return &Controller{bus: bus, resolver: resolver}
}

// StreamActivity handles GET /api/v1/realtime/activities/:id/stream
func (c *Controller) StreamActivity(ctx *gin.Context) {
	c.stream(ctx, ScopeActivity)
}

// StreamVenue handles GET /api/v1/realtime/venues/:id/stream
func (c *Controller) StreamVenue(ctx *gin.Context) {
	c.stream(ctx, ScopeVenue)
}

func (c *Controller) stream(ctx *gin.Context, kind ScopeKind) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid scope ID", nil, err.Error())
		return
	}

	var exists bool
	switch kind {
	case ScopeVenue:
		exists, err = c.resolver.VenueExists(ctx.Request.Context(), id)
	default:
		exists, err = c.resolver.ActivityExists(ctx.Request.Context(), id)
	}
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusServiceUnavailable, "Failed to resolve subscription scope", nil, err.Error())
		return
	}
	if !exists {
		response.RespondJSON(ctx, "error", http.StatusNotFound, "Subscription scope not found", nil, nil)
		return
	}

	events := make(chan Event, 8)
	states := make(chan stateChange, 4)

	sub := c.bus.Subscribe(Scope{Kind: kind, ID: id},
		func(e Event) {
			select {
			case events <- e:
			default:
				// the client is behind; it only needs one "changed" signal to refetch
			}
		},
		WithStateHandler(func(state ConnectionState, err error) {
			select {
			case states <- stateChange{state: state, err: err}:
			default:
			}
		}),
	)
	defer c.bus.Unsubscribe(sub)

	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")
	ctx.Header("X-Accel-Buffering", "no")

	// a stream outlives the server's WriteTimeout
	if err := http.NewResponseController(ctx.Writer).SetWriteDeadline(time.Time{}); err != nil {
		c.bus.logger.WithError(err).Warn("Failed to clear stream write deadline", "scope", kind, "id", id.String())
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Request.Context().Done():
			return false
		case change := <-states:
			payload := gin.H{"state": change.state}
			if change.err != nil {
				payload["error"] = change.err.Error()
			}
			ctx.SSEvent("status", payload)
			return !change.state.IsTerminal()
		case e := <-events:
			ctx.SSEvent("availability", e)
			return true
		case t := <-heartbeat.C:
			ctx.SSEvent("ping", t.Unix())
			return true
		}
	})
}

type stateChange struct {
	state ConnectionState
	err   error
}
