package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/james-see/chordlab/pkg/config"
	"github.com/james-see/chordlab/pkg/detector"
	"github.com/james-see/chordlab/pkg/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(config.DefaultConfig())
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	for _, path := range []string{"/health", "/api/v1/health"} {
		w := do(t, r, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "healthy")
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestCORSPreflight(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodOptions, "/api/v1/detect", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestListQualities(t *testing.T) {
	w := do(t, newTestRouter(t), http.MethodGet, "/api/v1/qualities", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Qualities []QualityResponse `json:"qualities"`
	}
	decode(t, w, &body)
	require.Len(t, body.Qualities, 4)
	assert.Equal(t, QualityResponse{Name: "Major", Code: "Maj", Intervals: []int{0, 4, 7}}, body.Qualities[0])
	assert.Equal(t, "Sus", body.Qualities[3].Code)
}

func TestGetNote(t *testing.T) {
	r := newTestRouter(t)
	tests := []struct {
		param string
		code  int
		want  NoteResponse
	}{
		{"60", http.StatusOK, NoteResponse{MIDI: 60, Name: "C4", PitchClass: 0}},
		{"F%233", http.StatusOK, NoteResponse{MIDI: 54, Name: "F#3", PitchClass: 6}},
		{"0", http.StatusOK, NoteResponse{MIDI: 0, Name: "C-1", PitchClass: 0}},
		{"X9", http.StatusBadRequest, NoteResponse{}},
	}

	for _, tt := range tests {
		t.Run(tt.param, func(t *testing.T) {
			w := do(t, r, http.MethodGet, "/api/v1/notes/"+tt.param, "")
			require.Equal(t, tt.code, w.Code)
			if tt.code != http.StatusOK {
				return
			}
			var got NoteResponse
			decode(t, w, &got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/detect", `{"notes":[52,55,60]}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Chord *detector.ChordInfo `json:"chord"`
	}
	decode(t, w, &body)
	require.NotNil(t, body.Chord)
	assert.Equal(t, "C Major", body.Chord.ChordName)
	assert.Equal(t, "1st", body.Chord.Inversion)
	assert.Equal(t, "E3", body.Chord.BassNote)

	w = do(t, r, http.MethodPost, "/api/v1/detect", `{"notes":[60,61]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"chord":null}`, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/v1/detect", `{"notes":"C E G"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/detect", `{"notes":[64,67,300]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoicingTable(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/voicings/A/Min", "")
	require.Equal(t, http.StatusOK, w.Code)
	var table struct {
		Note          string `json:"note"`
		Quality       string `json:"quality"`
		Voicings      []struct{ Voicing int }
		FirstPlayable *int `json:"firstPlayable"`
	}
	decode(t, w, &table)
	assert.Equal(t, "A", table.Note)
	assert.Equal(t, "Min", table.Quality)
	require.NotEmpty(t, table.Voicings)
	assert.Equal(t, -2, table.Voicings[0].Voicing)
	require.NotNil(t, table.FirstPlayable)
	assert.Equal(t, 1, *table.FirstPlayable)

	// unknown quality codes fall back to Major
	w = do(t, r, http.MethodGet, "/api/v1/voicings/C/Aug", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"quality":"Maj"`)

	// quality defaults to the configured one
	w = do(t, r, http.MethodGet, "/api/v1/voicings/G", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"quality":"Maj"`)

	w = do(t, r, http.MethodGet, "/api/v1/voicings/H/Maj", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVoicingNotes(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/v1/voicings/C/Maj/-11", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Notes string `json:"notes"`
	}
	decode(t, w, &body)
	assert.Equal(t, "E0 G0 C0", body.Notes)

	w = do(t, r, http.MethodGet, "/api/v1/voicings/C/Maj/3", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"notes":"-"`)

	w = do(t, r, http.MethodGet, "/api/v1/voicings/C/Maj/low", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseMessage(t *testing.T) {
	r := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/parse", `{"data":"92 3C 00","timestamp":"2024-01-02T03:04:05Z"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var msg struct {
		Timestamp  time.Time `json:"timestamp"`
		Channel    int       `json:"channel"`
		Type       string    `json:"type"`
		NoteNumber int       `json:"noteNumber"`
		NoteName   string    `json:"noteName"`
	}
	decode(t, w, &msg)
	assert.Equal(t, 3, msg.Channel)
	assert.Equal(t, "note-off", msg.Type)
	assert.Equal(t, 60, msg.NoteNumber)
	assert.Equal(t, "C4", msg.NoteName)
	assert.True(t, msg.Timestamp.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	w = do(t, r, http.MethodPost, "/api/v1/parse", `{"data":"3C 64"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/parse", `{"data":"zz"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/parse", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport(t *testing.T) {
	r := newTestRouter(t)
	body := `{"chords":[[60,64,67],[60,61],[57,60,64]]}`

	w := do(t, r, http.MethodPost, "/api/v1/export", body)
	require.Equal(t, http.StatusOK, w.Code)
	var snaps []export.Snapshot
	decode(t, w, &snaps)
	require.Len(t, snaps, 2)
	assert.Equal(t, "A Minor", snaps[1].ChordName)

	w = do(t, r, http.MethodPost, "/api/v1/export?format=mid", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/midi", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "chords.mid")
	assert.Equal(t, export.FormatMIDI, export.DetectFormatFromContent(w.Body.Bytes()))

	w = do(t, r, http.MethodPost, "/api/v1/export?format=txt", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "C Major")

	w = do(t, r, http.MethodPost, "/api/v1/export?format=pdf", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/export", `{"chords":[[60,61]]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	for _, bad := range []string{`{"chords":[[200,64,67]]}`, `{"chords":[[60,64,67],[-5,64,67]]}`} {
		w = do(t, r, http.MethodPost, "/api/v1/export?format=mid", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}
}

func TestScan(t *testing.T) {
	r := newTestRouter(t)

	snaps := export.CaptureAll(detector.New(nil), [][]int{{62, 65, 69}, {55, 59, 62}}, time.Now())
	midiData, err := export.New().Export(snaps, export.FormatMIDI)
	require.NoError(t, err)

	upload := func(data []byte) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "song.mid")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/scan", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := upload(midiData)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		File   string            `json:"file"`
		Chords []export.Snapshot `json:"chords"`
	}
	decode(t, w, &body)
	assert.Equal(t, "song.mid", body.File)
	require.Len(t, body.Chords, 2)
	assert.Equal(t, "D Minor", body.Chords[0].ChordName)
	assert.Equal(t, "G Major", body.Chords[1].ChordName)

	w = upload([]byte("garbage"))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, r, http.MethodPost, "/api/v1/scan", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
