package diag

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeProvider struct{ snap Snapshot }

func (f fakeProvider) Status() Snapshot { return f.snap }

func TestStatusEndpointReturnsSnapshot(t *testing.T) {
	want := Snapshot{
		LEDMode: "BLINK_SLOWLY",
		Buttons: map[string]string{"next": "RELEASED"},
		Music:   MusicSnapshot{Connected: true, QueueLength: 3, CurrentIndex: 1},
	}
	s := New(":0", fakeProvider{snap: want})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.LEDMode != want.LEDMode || got.Music != want.Music {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}
