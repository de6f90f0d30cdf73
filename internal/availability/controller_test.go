package availability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func newTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	SetupAvailabilityRoutes(r.Group("/api/v1"), NewController(f.svc))
	return r
}

func get(t *testing.T, r http.Handler, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestController_GetAvailableSlots(t *testing.T) {
	f := newFixture(t)
	f.book(t, "2026-10-20", "10:00")
	r := newTestRouter(f)

	w, body := get(t, r, "/api/v1/activities/"+f.activity.ID.String()+"/slots?date=2026-10-20")
	require.Equal(t, http.StatusOK, w.Code)

	var day DaySlots
	require.NoError(t, json.Unmarshal(body.Data, &day))
	require.Len(t, day.Slots, 21)
	assert.Equal(t, ReasonBooked, day.Slots[0].Reason)
	assert.Equal(t, "10:00", day.Slots[0].StartTime.String())
}

func TestController_GetAvailableSlots_BadInput(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)

	w, _ := get(t, r, "/api/v1/activities/not-a-uuid/slots?date=2026-10-20")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = get(t, r, "/api/v1/activities/"+f.activity.ID.String()+"/slots?date=20-10-2026")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = get(t, r, "/api/v1/activities/"+uuid.NewString()+"/slots?date=2026-10-20")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestController_CheckSlot(t *testing.T) {
	f := newFixture(t)
	f.book(t, "2026-10-20", "16:00")
	r := newTestRouter(f)
	base := "/api/v1/activities/" + f.activity.ID.String() + "/slots/check?date=2026-10-20"

	cases := []struct {
		query     string
		available bool
	}{
		{"&start=16:30", false},
		{"&start=17:00", true},
		{"&start=15:00&end=16:00", true},
		{"&start=15:00&end=16:01", false},
	}
	for _, tc := range cases {
		w, body := get(t, r, base+tc.query)
		require.Equal(t, http.StatusOK, w.Code, tc.query)
		var result CheckResult
		require.NoError(t, json.Unmarshal(body.Data, &result))
		assert.Equal(t, tc.available, result.Available, tc.query)
	}

	w, _ := get(t, r, base+"&start=17:00&end=16:00")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = get(t, r, base+"&start=17:10")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestController_GetNextAvailableDate(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(f)
	base := "/api/v1/activities/" + f.activity.ID.String() + "/next-available-date"

	w, body := get(t, r, base+"?from=2026-10-20&maxDays=5")
	require.Equal(t, http.StatusOK, w.Code)
	var result NextDateResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.True(t, result.Found)
	assert.Equal(t, "2026-10-20", result.Date)

	w, _ = get(t, r, base+"?from=2026-10-20&maxDays=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
