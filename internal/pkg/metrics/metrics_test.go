package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(storageTimeouts.WithLabelValues("find_room"))
	RecordStorageTimeout("find_room")
	assert.Equal(t, before+1, testutil.ToFloat64(storageTimeouts.WithLabelValues("find_room")))

	beforeSys := testutil.ToFloat64(messagesAppended.WithLabelValues("true"))
	RecordMessageAppended(true)
	assert.Equal(t, beforeSys+1, testutil.ToFloat64(messagesAppended.WithLabelValues("true")))
}

func TestSessionGauge(t *testing.T) {
	before := testutil.ToFloat64(activeSessions)
	SessionOpened()
	SessionOpened()
	SessionClosed()
	assert.Equal(t, before+1, testutil.ToFloat64(activeSessions))
	SessionClosed()
}

func TestHandler_ExposesNamespace(t *testing.T) {
	RecordRoomCreated()

	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "verification_rooms_created_total")
}
