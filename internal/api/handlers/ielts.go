package handlers

import (
	"net/http"
	"strings"

	"github.com/felixgeelhaar/speakflow/internal/credits"
	"github.com/felixgeelhaar/speakflow/internal/domain"
	"github.com/felixgeelhaar/speakflow/internal/grading"
)

// IELTSHandler scores transcripts on the IELTS band scale
type IELTSHandler struct {
	grader grading.SpeechGrader
}

// NewIELTSHandler creates a new IELTS handler
func NewIELTSHandler(grader grading.SpeechGrader) *IELTSHandler {
	return &IELTSHandler{grader: grader}
}

// IELTSRequest is the body of an IELTS analysis
type IELTSRequest struct {
	Transcript string `json:"transcript"`
	Part       int    `json:"part"`
}

// IELTSResponse adds the band description and path to the analysis
type IELTSResponse struct {
	*domain.IELTSAnalysis
	BandDescription string          `json:"band_description"`
	Path            domain.BandPath `json:"band_path"`
	Suggestions     []string        `json:"suggestions"`
}

// Analyze handles POST /ielts/analyze
func (h *IELTSHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req IELTSRequest
	if !readJSON(w, r, maxJSONBody, &req) {
		return
	}
	if strings.TrimSpace(req.Transcript) == "" || req.Part == 0 {
		BadRequest(w, r, "missing transcript or part")
		return
	}
	if req.Part < 1 || req.Part > 3 {
		BadRequest(w, r, "part must be 1, 2 or 3")
		return
	}

	a, err := h.grader.GradeIELTS(r.Context(), req.Transcript, req.Part)
	if err != nil {
		WriteServiceError(w, r, err, "failed to analyze speech")
		return
	}

	WriteJSON(w, http.StatusOK, IELTSResponse{
		IELTSAnalysis:   a,
		BandDescription: domain.BandDescription(a.Overall),
		Path:            domain.NewBandPath(a.Overall),
		Suggestions:     domain.FeedbackSuggestions(*a),
	})
}

// CreditsHandler reports the voice provider quota
type CreditsHandler struct {
	credits *credits.Service
}

// NewCreditsHandler creates a new credits handler
func NewCreditsHandler(svc *credits.Service) *CreditsHandler {
	return &CreditsHandler{credits: svc}
}

// Get handles GET /credits
func (h *CreditsHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.credits.Get(r.Context())
	if err != nil {
		WriteServiceError(w, r, err, "failed to fetch credits")
		return
	}
	WriteJSON(w, http.StatusOK, info)
}
