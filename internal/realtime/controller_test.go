package realtime

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type knownScopes struct {
	activityID uuid.UUID
}

func (k knownScopes) ActivityExists(_ context.Context, id uuid.UUID) (bool, error) {
	return id == k.activityID, nil
}

func (k knownScopes) VenueExists(context.Context, uuid.UUID) (bool, error) {
	return false, nil
}

func streamServer(t *testing.T, bus *Bus, resolver ScopeResolver, writeTimeout time.Duration) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRealtimeRoutes(router.Group("/api/v1"), NewController(bus, resolver))

	srv := httptest.NewUnstartedServer(router)
	srv.Config.WriteTimeout = writeTimeout
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

func TestStream_DeliversEventsPastWriteTimeout(t *testing.T) {
	bus := startedBus(t)
	activityID := uuid.New()
	srv := streamServer(t, bus, knownScopes{activityID: activityID}, 200*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/realtime/activities/"+activityID.String()+"/stream", nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	go func() {
		time.Sleep(500 * time.Millisecond)
		_ = bus.Publish(context.Background(), NewActivityEvent(TableReservations, EventInsert, activityID, uuid.Nil, "2026-10-20"))
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed before the availability event arrived")
			if strings.HasPrefix(line, "event:availability") {
				return
			}
		case <-ctx.Done():
			t.Fatal("no availability event on the stream")
		}
	}
}

func TestStream_UnknownScope(t *testing.T) {
	bus := startedBus(t)
	srv := streamServer(t, bus, knownScopes{activityID: uuid.New()}, time.Second)

	resp, err := srv.Client().Get(srv.URL + "/api/v1/realtime/activities/" + uuid.NewString() + "/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
