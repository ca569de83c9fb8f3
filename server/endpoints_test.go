package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/peak-tender/analysis"
	"github.com/onnwee/peak-tender/testutil"
)

func newTestServer(t *testing.T) (*httptest.Server, func(query string, args ...any)) {
	t.Helper()
	// Make sure admin endpoints stay open and rate limits don't flake the run.
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_TOKEN", "")
	t.Setenv("RATE_LIMIT_ENABLED", "0")

	dbx := testutil.SetupTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv := httptest.NewServer(NewMux(ctx, dbx, analysis.DefaultOptions()))
	t.Cleanup(srv.Close)

	exec := func(query string, args ...any) {
		t.Helper()
		if _, err := dbx.Exec(query, args...); err != nil {
			t.Fatalf("exec %q: %v", query, err)
		}
	}
	return srv, exec
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
}

func TestReadyz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("GET /readyz: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("readyz status = %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ready" {
		t.Errorf("status = %q, want ready", body["status"])
	}
}

func TestVodAnalyzeFlow(t *testing.T) {
	srv, exec := newTestServer(t)

	vodID := "server-test-vod"
	exec(`DELETE FROM chat_peaks WHERE vod_id=$1`, vodID)
	exec(`DELETE FROM chat_messages WHERE vod_id=$1`, vodID)
	exec(`DELETE FROM vods WHERE twitch_vod_id=$1`, vodID)
	exec(`INSERT INTO vods (twitch_vod_id, title, date, duration_seconds, chat_imported) VALUES ($1,'Server Test',NOW(),60,TRUE)`, vodID)
	for _, ts := range []float64{0, 0, 5, 5, 5, 20, 20, 20, 20} {
		exec(`INSERT INTO chat_messages (vod_id, username, message, abs_timestamp, rel_timestamp, badges, emotes, color)
			VALUES ($1,'u','m',$2,$3,'','','')`, vodID, time.Now(), ts)
	}

	// Trigger analysis
	resp, err := http.Post(srv.URL+"/vods/"+vodID+"/analyze?peaks=1", "application/json", nil)
	if err != nil {
		t.Fatalf("POST analyze: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analyze status = %d", resp.StatusCode)
	}
	var analyzeBody struct {
		VodID string `json:"vod_id"`
		Peaks int    `json:"peaks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&analyzeBody); err != nil {
		t.Fatalf("decode analyze: %v", err)
	}
	if analyzeBody.Peaks != 1 {
		t.Errorf("analyze peaks = %d, want 1", analyzeBody.Peaks)
	}

	// Peaks endpoint returns the stored record
	resp2, err := http.Get(srv.URL + "/vods/" + vodID + "/peaks")
	if err != nil {
		t.Fatalf("GET peaks: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	var peaksBody []struct {
		Before struct {
			Time  float64 `json:"time"`
			Count int     `json:"count"`
		} `json:"before"`
		Top struct {
			Time  float64 `json:"time"`
			Count int     `json:"count"`
		} `json:"top"`
		Slope  float64 `json:"slope"`
		Policy string  `json:"policy"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&peaksBody); err != nil {
		t.Fatalf("decode peaks: %v", err)
	}
	if len(peaksBody) != 1 {
		t.Fatalf("peaks len = %d, want 1", len(peaksBody))
	}
	if peaksBody[0].Top.Time != 20 || peaksBody[0].Top.Count != 4 {
		t.Errorf("top = %+v", peaksBody[0].Top)
	}
	if peaksBody[0].Before.Time != 10 || peaksBody[0].Before.Count != 0 {
		t.Errorf("before = %+v", peaksBody[0].Before)
	}

	// VOD detail reflects analysis state
	resp3, err := http.Get(srv.URL + "/vods/" + vodID)
	if err != nil {
		t.Fatalf("GET detail: %v", err)
	}
	defer func() { _ = resp3.Body.Close() }()
	var detail struct {
		Analyzed  bool `json:"analyzed"`
		PeakCount int  `json:"peak_count"`
	}
	if err := json.NewDecoder(resp3.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if !detail.Analyzed || detail.PeakCount != 1 {
		t.Errorf("detail = %+v", detail)
	}
}

func TestVodActivity(t *testing.T) {
	srv, exec := newTestServer(t)

	vodID := "server-activity-vod"
	exec(`DELETE FROM chat_messages WHERE vod_id=$1`, vodID)
	exec(`DELETE FROM vods WHERE twitch_vod_id=$1`, vodID)
	exec(`INSERT INTO vods (twitch_vod_id, title, date, chat_imported) VALUES ($1,'Activity Test',NOW(),TRUE)`, vodID)
	for _, ts := range []float64{1, 2, 15, 16, 17} {
		exec(`INSERT INTO chat_messages (vod_id, username, message, abs_timestamp, rel_timestamp, badges, emotes, color)
			VALUES ($1,'u','m',$2,$3,'','','')`, vodID, time.Now(), ts)
	}

	resp, err := http.Get(srv.URL + "/vods/" + vodID + "/activity?window=10")
	if err != nil {
		t.Fatalf("GET activity: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("activity status = %d", resp.StatusCode)
	}
	var body struct {
		Windows []struct {
			Time  float64 `json:"time"`
			Count int     `json:"count"`
		} `json:"windows"`
		Slopes []float64 `json:"slopes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	if len(body.Windows) != 2 {
		t.Fatalf("windows = %d, want 2", len(body.Windows))
	}
	if body.Windows[0].Count != 2 || body.Windows[1].Count != 3 {
		t.Errorf("counts = %+v", body.Windows)
	}
	if len(body.Slopes) != 1 || body.Slopes[0] != 1 {
		t.Errorf("slopes = %v", body.Slopes)
	}
}

func TestVodActivityBadPolicy(t *testing.T) {
	srv, exec := newTestServer(t)

	vodID := "server-badpolicy-vod"
	exec(`DELETE FROM vods WHERE twitch_vod_id=$1`, vodID)
	exec(`INSERT INTO vods (twitch_vod_id, title, date) VALUES ($1,'Bad Policy',NOW())`, vodID)

	resp, err := http.Get(srv.URL + "/vods/" + vodID + "/activity?policy=bogus")
	if err != nil {
		t.Fatalf("GET activity: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"pending", "analyzed", "analysis_config"} {
		if _, ok := body[key]; !ok {
			t.Errorf("status missing key %q", key)
		}
	}
}

func TestCorrelationIDHeader(t *testing.T) {
	srv, _ := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("X-Correlation-ID", "test-corr-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if got := resp.Header.Get("X-Correlation-ID"); got != "test-corr-123" {
		t.Errorf("corr header = %q, want test-corr-123", got)
	}
}

func TestVodsListPagination(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/vods?limit=5&offset=0")
	if err != nil {
		t.Fatalf("GET /vods: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("vods status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
}
