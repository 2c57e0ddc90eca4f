package debugserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ship-renderer/internal/profiling"
	"ship-renderer/internal/scene"

	"go.uber.org/zap"
)

func newServer() *Server {
	prof := profiling.New()
	prof.Count("world.draw_calls", 3)
	prof.Track("renderer.world")()
	prof.EndFrame()
	scenes := map[string]scene.Summary{
		"ship":            {Nodes: 4, Meshes: 2, NodeNames: []string{"hull", "mast", "deck", "wheel"}},
		"room/navigation": {Nodes: 1, Lights: 2, Shared: true},
	}
	return New(prof, scenes, zap.NewNop())
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestFrame(t *testing.T) {
	rec := get(t, newServer().Handler(), "/frame")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var f frameJSON
	if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
		t.Fatalf("Expected JSON, got %v", err)
	}
	if f.Index != 1 || f.Counters["world.draw_calls"] != 3 {
		t.Errorf("Expected frame 1 with 3 draw calls, got %+v", f)
	}
	if _, ok := f.TimingsMs["renderer.world"]; !ok {
		t.Errorf("Expected world timing, got %v", f.TimingsMs)
	}
}

func TestTop(t *testing.T) {
	h := newServer().Handler()
	rec := get(t, h, "/frame/top/5")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Body.String(), "renderer.world:") {
		t.Errorf("Expected top timings, got %d %q", rec.Code, rec.Body.String())
	}
	if rec := get(t, h, "/frame/top/x"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a non-numeric count, got %d", rec.Code)
	}
}

func TestScenes(t *testing.T) {
	h := newServer().Handler()

	var names []string
	rec := get(t, h, "/scenes")
	if err := json.Unmarshal(rec.Body.Bytes(), &names); err != nil {
		t.Fatalf("Expected JSON, got %v", err)
	}
	if len(names) != 2 || names[0] != "room/navigation" || names[1] != "ship" {
		t.Errorf("Expected sorted scene names, got %v", names)
	}

	var sum scene.Summary
	rec = get(t, h, "/scenes/room/navigation")
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("Expected JSON, got %v", err)
	}
	if sum.Lights != 2 || !sum.Shared {
		t.Errorf("Expected 2 shared lights, got %+v", sum)
	}

	if rec := get(t, h, "/scenes/galley"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestDump(t *testing.T) {
	rec := get(t, newServer().Handler(), "/scenes/ship/dump")
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "NodeNames") || !strings.Contains(body, "\"wheel\"") {
		t.Errorf("Expected a spew dump of the ship summary, got %d %q", rec.Code, body)
	}
}

func TestStartAndShutdown(t *testing.T) {
	s := newServer()
	if err := s.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	resp, err := http.Get("http://" + s.Addr().String() + "/scenes")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ship") {
		t.Errorf("Expected scene list, got %d %q", resp.StatusCode, body)
	}
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
