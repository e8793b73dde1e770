package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"pickplan/internal/model"
)

func TestEventsWebSocketReceivesPlanCompleted(t *testing.T) {
	_, h := newTestServer(t, testConfig())
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stores/s1/events/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Store-Id": {"s1"}, "X-Role": {"viewer"}})
	require.NoError(t, err)
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello model.PlanEvent
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "connected", hello.Type)

	post := func(path, body string) int {
		resp, err := srv.Client().Post(srv.URL+path, "application/json", bytes.NewReader([]byte(body)))
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}
	require.Equal(t, http.StatusOK, func() int {
		req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/stores/s1/config", strings.NewReader(`{"pickers":["P1"],"pickingStartTime":"09:00","pickingEndTime":"10:00"}`))
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}())
	require.Equal(t, http.StatusAccepted, post("/v1/stores/s1/orders?date=2024-05-01", `[
		{"orderId":"a","pickingTime":"PT60M","completeBy":"10:00"},
		{"orderId":"b","pickingTime":"PT60M","completeBy":"10:00"}
	]`))
	require.Equal(t, http.StatusCreated, post("/v1/stores/s1/plans", `{"planDate":"2024-05-01"}`))

	var evt model.PlanEvent
	require.NoError(t, conn.ReadJSON(&evt))
	require.Equal(t, "plan.completed", evt.Type)
	require.Equal(t, "2024-05-01", evt.Data["planDate"])
	// a fills the only picker's window and b is no shorter, so nothing is evicted.
	require.Equal(t, []any{"b"}, evt.Data["unscheduled"])
	require.Equal(t, []any{}, evt.Data["evicted"])
}

func TestEventsWebSocketRejectsOtherStore(t *testing.T) {
	_, h := newTestServer(t, testConfig())
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/stores/s1/events/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Store-Id": {"s2"}})
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
