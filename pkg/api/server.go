// Package api provides the REST API server for chordlab
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/james-see/chordlab/pkg/config"
	"github.com/james-see/chordlab/pkg/detector"
	"github.com/james-see/chordlab/pkg/export"
	"github.com/james-see/chordlab/pkg/midimsg"
	"github.com/james-see/chordlab/pkg/theory"
	"github.com/james-see/chordlab/pkg/voicing"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Chordlab API
// @version 1.0
// @description API for chord detection, voicing tables and MIDI message decoding
// @host localhost:8080
// @BasePath /api/v1

type server struct {
	cfg      *config.Config
	lib      *theory.Library
	det      *detector.Detector
	gen      *voicing.Generator
	exporter *export.Exporter
	log      logrus.FieldLogger
}

// NewRouter builds the gin engine with every route registered
func NewRouter(cfg *config.Config) *gin.Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	lib := theory.DefaultLibrary()
	s := &server{
		cfg:      cfg,
		lib:      lib,
		det:      detector.New(lib),
		gen:      voicing.New(lib),
		exporter: export.New(),
		log:      logrus.WithField("component", "api"),
	}

	r := gin.Default()

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/qualities", s.listQualities)
		v1.GET("/notes/:midi", s.getNote)
		v1.POST("/detect", s.detect)
		v1.GET("/voicings/:note", s.voicingTable)
		v1.GET("/voicings/:note/:quality", s.voicingTable)
		v1.GET("/voicings/:note/:quality/:voicing", s.voicingNotes)
		v1.POST("/parse", s.parseMessage)
		v1.POST("/export", s.exportChords)
		v1.POST("/scan", s.scanFile)
		v1.GET("/formats", listFormats)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the configured port
func StartServer(cfg *config.Config) error {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	r := NewRouter(cfg)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logrus.WithField("addr", addr).Info("starting chordlab API server")
	return r.Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "chordlab",
	})
}

// listFormats godoc
// @Summary List export formats
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats": export.GetSupportedFormats(),
	})
}

// QualityResponse describes one chord quality
type QualityResponse struct {
	Name      string `json:"name"`
	Code      string `json:"code"`
	Intervals []int  `json:"intervals"`
}

// listQualities godoc
// @Summary List chord qualities
// @Description Returns the qualities of the pattern library in table order
// @Tags theory
// @Produce json
// @Success 200 {object} map[string][]QualityResponse
// @Router /api/v1/qualities [get]
func (s *server) listQualities(c *gin.Context) {
	qualities := s.lib.Qualities()
	res := make([]QualityResponse, 0, len(qualities))
	for _, q := range qualities {
		def, _ := s.lib.Def(q)
		res = append(res, QualityResponse{Name: def.Name, Code: def.Code, Intervals: def.Intervals})
	}
	c.JSON(http.StatusOK, gin.H{"qualities": res})
}

// NoteResponse names one MIDI note
type NoteResponse struct {
	MIDI       int    `json:"midi"`
	Name       string `json:"name"`
	PitchClass int    `json:"pitchClass"`
}

// getNote godoc
// @Summary Name a MIDI note
// @Description Accepts a note number ("60") or a name with octave ("C4")
// @Tags theory
// @Produce json
// @Param midi path string true "MIDI note number or name"
// @Success 200 {object} NoteResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/notes/{midi} [get]
func (s *server) getNote(c *gin.Context) {
	param := c.Param("midi")
	n, err := strconv.Atoi(param)
	if err != nil {
		n, err = theory.ParseNoteWithOctave(param)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, NoteResponse{
		MIDI:       n,
		Name:       theory.NoteNameWithOctave(n),
		PitchClass: theory.PitchClass(n),
	})
}

// DetectRequest carries the held notes
type DetectRequest struct {
	Notes []int `json:"notes" binding:"required,dive,min=0,max=127"`
}

// detect godoc
// @Summary Detect a chord
// @Description Identifies the chord formed by the notes. chord is null when they form none.
// @Tags detect
// @Accept json
// @Produce json
// @Param request body DetectRequest true "Held notes"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/detect [post]
func (s *server) detect(c *gin.Context) {
	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chord": s.det.Detect(req.Notes)})
}

// voicingTable godoc
// @Summary Voicing table
// @Description Returns every voicing of a natural root note. Unknown quality codes give the Major table.
// @Tags voicing
// @Produce json
// @Param note path string true "Root note (C, D, E, F, G, A, B)"
// @Param quality path string false "Quality code (Maj, Min, Dim, Sus)"
// @Success 200 {object} voicing.Table
// @Failure 400 {object} map[string]string
// @Router /api/v1/voicings/{note}/{quality} [get]
func (s *server) voicingTable(c *gin.Context) {
	table, err := s.lookup(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, table)
}

// voicingNotes godoc
// @Summary Chord notes of a voicing
// @Tags voicing
// @Produce json
// @Param note path string true "Root note"
// @Param quality path string true "Quality code"
// @Param voicing path int true "Voicing value"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/voicings/{note}/{quality}/{voicing} [get]
func (s *server) voicingNotes(c *gin.Context) {
	table, err := s.lookup(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	value, err := strconv.Atoi(c.Param("voicing"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "voicing must be an integer"})
		return
	}

	v, ok := voicing.FindVoicing(table.Voicings, value)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("no voicing %d for %s %s", value, table.NoteName, table.QualityCode),
			"notes": voicing.Invalid,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"note":    table.NoteName,
		"quality": table.QualityCode,
		"voicing": v,
		"notes":   s.gen.ChordNotesForVoicing(table.Note, v, table.Quality),
	})
}

func (s *server) lookup(c *gin.Context) (voicing.Table, error) {
	code := c.Param("quality")
	if code == "" {
		code = s.cfg.DefaultQuality().Code()
	}
	return s.gen.Lookup(c.Param("note"), code)
}

// ParseRequest carries raw message bytes in hex
type ParseRequest struct {
	Data      string     `json:"data" binding:"required"`
	Timestamp *time.Time `json:"timestamp"`
}

// parseMessage godoc
// @Summary Decode a MIDI channel message
// @Tags midi
// @Accept json
// @Produce json
// @Param request body ParseRequest true "Hex bytes, e.g. 90 3C 64"
// @Success 200 {object} midimsg.Message
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/parse [post]
func (s *server) parseMessage(c *gin.Context) {
	var req ParseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := midimsg.ParseHex(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ts := time.Now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}
	msg := midimsg.ParseChannelMessage(data, ts)
	if msg == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "not a MIDI channel message"})
		return
	}
	c.JSON(http.StatusOK, msg)
}

// ExportRequest carries the note sets to capture
type ExportRequest struct {
	Chords [][]int `json:"chords" binding:"required,dive,dive,min=0,max=127"`
}

// exportChords godoc
// @Summary Export a chord progression
// @Description Detects each note set and writes the chords as JSON, a text chart or a MIDI file
// @Tags export
// @Accept json
// @Produce application/octet-stream
// @Param request body ExportRequest true "Note sets"
// @Param format query string false "json, txt or mid (default: json)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/export [post]
func (s *server) exportChords(c *gin.Context) {
	f := export.ParseFormat(c.DefaultQuery("format", "json"))
	if f == export.FormatUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported format"})
		return
	}

	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	snaps := export.CaptureAll(s.det, req.Chords, time.Now())
	data, err := s.exporter.Export(snaps, f)
	if err != nil {
		if errors.Is(err, export.ErrNoChords) || errors.Is(err, export.ErrNoteRange) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		s.log.WithError(err).Error("export failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=chords%s", f.Extension()))
	c.Data(http.StatusOK, f.ContentType(), data)
}

// scanFile godoc
// @Summary Scan a MIDI file for chords
// @Tags export
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/scan [post]
func (s *server) scanFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	snaps, err := export.ScanSMF(data)
	if err != nil {
		s.log.WithError(err).WithField("file", header.Filename).Warn("scan failed")
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	if snaps == nil {
		snaps = []export.Snapshot{}
	}
	c.JSON(http.StatusOK, gin.H{
		"file":   header.Filename,
		"chords": snaps,
	})
}
