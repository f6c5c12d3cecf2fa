package server_test

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/example/go-piper-phonemize/internal/server"
)

func dialWS(t *testing.T, h http.Handler) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}

	if resp.Header.Get(server.RequestIDHeader) == "" {
		t.Error("want request id header on the upgrade response")
	}

	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestWS_RequestsAnsweredInOrder(t *testing.T) {
	conn := dialWS(t, server.NewHandler(newPipeline(t)))

	frames := []string{
		`{"id":"a","text":"ab.","voice":"en-us"}`,
		`{"id":"b","text":"ab","voice":"nope"}`,
		`not json`,
		`{"id":"c","text":"ba"}`,
	}

	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	want := []struct {
		id     string
		status int
	}{
		{"a", http.StatusOK},
		{"b", http.StatusBadRequest},
		{"", http.StatusBadRequest},
		{"c", http.StatusOK},
	}

	for i, w := range want {
		var resp server.Response
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}

		if resp.ID != w.id || resp.Status != w.status {
			t.Errorf("response %d = (%q, %d); want (%q, %d)", i, resp.ID, resp.Status, w.id, w.status)
		}

		if w.status == http.StatusOK && resp.Result == nil {
			t.Errorf("response %d has no result", i)
		}

		if w.status != http.StatusOK && resp.Error == "" {
			t.Errorf("response %d has no error message", i)
		}
	}
}

func TestWS_ResultMatchesHTTP(t *testing.T) {
	conn := dialWS(t, server.NewHandler(newPipeline(t)))

	text := "ab, ba."
	if err := conn.WriteJSON(server.Request{Text: &text, Voice: "en-us"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp server.Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	want := []int64{1, 5, 0, 6, 4, 6, 0, 5, 2}
	if resp.Result == nil || !reflect.DeepEqual(resp.Result.IDs, want) {
		t.Fatalf("result = %+v; want ids %v", resp.Result, want)
	}
}

func TestWS_BinaryFrameRejected(t *testing.T) {
	conn := dialWS(t, server.NewHandler(newPipeline(t)))

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3}); err != nil {
		t.Fatalf("write: %v", err)
	}

	var resp server.Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}

	if resp.Status != http.StatusBadRequest {
		t.Errorf("status = %d; want 400", resp.Status)
	}
}
