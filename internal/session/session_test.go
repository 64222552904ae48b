package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
)

func TestBoundingBoxGrowsMonotonically(t *testing.T) {
	points := []Point{{500, 400}, {520, 410}, {100, 900}, {505, 405}, {1800, 20}}

	var box *BoundingBox
	for i, p := range points {
		prev := box
		box = box.Expand(p.X, p.Y, 50)

		if prev != nil && !box.Contains(*prev) {
			t.Fatalf("step %d: box %v shrank from %v", i, *box, *prev)
		}
		pad := BoundingBox{MinX: p.X - 50, MinY: p.Y - 50, MaxX: p.X + 50, MaxY: p.Y + 50}
		if !box.Contains(pad) {
			t.Fatalf("step %d: box %v does not cover padded point %v", i, *box, pad)
		}
	}

	want := BoundingBox{MinX: 50, MinY: -30, MaxX: 1850, MaxY: 950}
	if *box != want {
		t.Errorf("final box = %v, want %v", *box, want)
	}
}

func TestBoundingBoxJSON(t *testing.T) {
	s := Session{Elements: []Action{}}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"bounding_box":null`) {
		t.Errorf("nil box should encode as null: %s", data)
	}

	s.BoundingBox = &BoundingBox{MinX: 1, MinY: 2, MaxX: 30, MaxY: 40}
	data, _ = json.Marshal(s)
	if !strings.Contains(string(data), `"bounding_box":[1,2,30,40]`) {
		t.Errorf("box should encode as array: %s", data)
	}

	var bad BoundingBox
	if err := json.Unmarshal([]byte("[10,0,5,5]"), &bad); err == nil {
		t.Error("inverted box should not decode")
	}
}

func TestActionOmitsAbsentFields(t *testing.T) {
	a := Action{Kind: KindType, Text: "hi", MonitorIndex: 1, Timestamp: 0.5, Screenshot: "s.png"}
	data, _ := json.Marshal(a)
	for _, field := range []string{"coordinates", "button", "delta", "key", "region", "element", "expected_output"} {
		if strings.Contains(string(data), `"`+field+`"`) {
			t.Errorf("absent field %q was encoded: %s", field, data)
		}
	}
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSaveLoad(t *testing.T) {
	s := &Session{
		BoundingBox: &BoundingBox{MinX: 50, MinY: 50, MaxX: 150, MaxY: 150},
		Elements: []Action{
			{Kind: KindClick, Coordinates: &Point{100, 100}, Button: "left", MonitorIndex: 1, Timestamp: 0.2, Screenshot: "a.png", RegionScreenshot: "r.png", Region: &BoundingBox{MinX: 50, MinY: 50, MaxX: 150, MaxY: 150}},
			{Kind: KindKeyPress, Key: "enter", MonitorIndex: 1, Timestamp: 0.9, Screenshot: "b.png"},
		},
		Metadata: Metadata{StartTime: 1700000000, IdleTimeLimit: 5, TotalActions: 2, StopCause: StopIdleTimeout},
	}
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Elements) != 2 || got.Elements[0].Coordinates.X != 100 || *got.Elements[0].Region != *s.BoundingBox {
		t.Errorf("loaded elements = %+v", got.Elements)
	}
	if got.Metadata.StopCause != StopIdleTimeout {
		t.Errorf("stop cause = %q", got.Metadata.StopCause)
	}
}

func TestLoadRejectsInvalidSessions(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"elements": [`},
		{"click without coordinates", `{"elements":[{"kind":"click","monitor_index":1,"timestamp":0,"screenshot":"a.png"}]}`},
		{"scroll without coordinates", `{"elements":[{"kind":"scroll","delta":1,"monitor_index":1,"timestamp":0,"screenshot":"a.png"}]}`},
		{"monitor zero", `{"elements":[{"kind":"type","text":"x","monitor_index":0,"timestamp":0,"screenshot":"a.png"}]}`},
		{"missing screenshot", `{"elements":[{"kind":"key_press","key":"enter","monitor_index":1,"timestamp":0}]}`},
		{"unknown kind", `{"elements":[{"kind":"drag","monitor_index":1,"timestamp":0,"screenshot":"a.png"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "s.json", tt.body))
			if !apperr.IsCode(err, apperr.InvalidSession) {
				t.Errorf("err = %v, want InvalidSession", err)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !apperr.IsCode(err, apperr.InvalidSession) {
		t.Errorf("missing file err = %v", err)
	}
}

func TestLoadScenario(t *testing.T) {
	body := `{"elements":[
		{"name":"open","type":"button","action":"click","element_image":"img/open.png","expected_output":"/abs/after.png","description":"Open file"},
		{"name":"name","type":"field","action":"type","text":"report.txt","description":"Type name"},
		{"name":"ok","type":"key","action":"key","key":"enter","description":"Confirm"}
	]}`
	path := writeFile(t, "scenario.json", body)

	sc, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if len(sc.Elements) != 3 {
		t.Fatalf("elements = %d", len(sc.Elements))
	}
	if want := filepath.Join(filepath.Dir(path), "img", "open.png"); sc.Elements[0].ElementImage != want {
		t.Errorf("element_image = %q, want %q", sc.Elements[0].ElementImage, want)
	}
	if sc.Elements[0].ExpectedOutput != "/abs/after.png" {
		t.Errorf("absolute path rewritten: %q", sc.Elements[0].ExpectedOutput)
	}
}

func TestLoadScenarioRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"click without descriptor", `{"elements":[{"name":"a","action":"click","description":"x"}]}`},
		{"key without key", `{"elements":[{"name":"a","action":"key","description":"x"}]}`},
		{"type without text", `{"elements":[{"name":"a","action":"type","description":"x"}]}`},
		{"unknown action", `{"elements":[{"name":"a","action":"drag","target_text":"x","description":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeFile(t, "s.json", tt.body))
			if !apperr.IsCode(err, apperr.InvalidSession) {
				t.Errorf("err = %v, want InvalidSession", err)
			}
		})
	}
}
