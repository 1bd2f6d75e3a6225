package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/rxhuang/fp-null-pointer/internal/config"
	"github.com/rxhuang/fp-null-pointer/internal/ingest"
	"github.com/rxhuang/fp-null-pointer/internal/model"
	"github.com/rxhuang/fp-null-pointer/internal/overlay"
	"github.com/rxhuang/fp-null-pointer/internal/scorer"
	"github.com/rxhuang/fp-null-pointer/internal/store"
)

// assessRequest is a scene document plus per-request scoring overrides.
type assessRequest struct {
	ingest.SceneDoc
	AvgFaceWidth   *float64 `json:"avg_face_width,omitempty"`
	ShareEndpoints *bool    `json:"share_endpoints,omitempty"`
	Threshold      *float64 `json:"threshold,omitempty"`
	Save           bool     `json:"save,omitempty"`
}

type assessResponse struct {
	ID         string                `json:"id,omitempty"`
	Source     string                `json:"source,omitempty"`
	Assessment model.RiskAssessment  `json:"assessment"`
	Pairs      []model.PairDistance  `json:"pairs"`
	Detection  model.DetectionCounts `json:"detection"`
}

type whatIfResponse struct {
	ID       string               `json:"id,omitempty"`
	Source   string               `json:"source,omitempty"`
	Before   model.RiskAssessment `json:"before"`
	After    model.RiskAssessment `json:"after"`
	Adoption model.MaskAdoption   `json:"adoption"`
	Pairs    []model.PairDistance `json:"pairs"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// scoringInput is a decoded request ready to score.
type scoringInput struct {
	scene  model.Scene
	counts model.DetectionCounts
	cfg    config.ScorerConfig
	save   bool
}

// decodeScene reads an assessRequest, applies its overrides and filters the
// scene by detection threshold. On failure it has already written the
// response.
func (s *Server) decodeScene(w http.ResponseWriter, r *http.Request) (*scoringInput, bool) {
	var req assessRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}

	cfg := s.scorer
	if req.AvgFaceWidth != nil {
		cfg.AvgFaceWidth = *req.AvgFaceWidth
	}
	if req.ShareEndpoints != nil {
		cfg.ShareEndpoints = *req.ShareEndpoints
	}
	if err := scorer.ValidateConfig(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	threshold := s.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < 0 || threshold >= 1 {
		writeError(w, http.StatusBadRequest, "threshold must be in [0, 1)")
		return nil, false
	}

	scene, err := req.Scene()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	scene.Clamp()

	return &scoringInput{
		scene:  scene.Filter(threshold),
		counts: scene.DetectionCounts(threshold),
		cfg:    cfg,
		save:   req.Save,
	}, true
}

// scoreError writes the response for a scorer failure.
func scoreError(w http.ResponseWriter, err error) {
	if model.IsInvalidFaceRecord(err) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	zap.L().Error("api: scoring failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "scoring failed")
}

func (s *Server) save(w http.ResponseWriter, r *http.Request, run *model.AssessmentRun) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return false
	}
	if err := s.store.SaveRun(r.Context(), run); err != nil {
		zap.L().Error("api: save run failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save assessment")
		return false
	}
	return true
}

func (s *Server) assess(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeScene(w, r)
	if !ok {
		return
	}

	res, err := scorer.Assess(in.scene.Faces, in.cfg)
	if err != nil {
		scoreError(w, err)
		return
	}

	resp := assessResponse{
		Source:     in.scene.Source,
		Assessment: res.Assessment,
		Pairs:      res.Pairs,
		Detection:  in.counts,
	}
	if in.save {
		run := res.Run(in.scene.Source, in.cfg)
		if !s.save(w, r, run) {
			return
		}
		resp.ID = run.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) whatIf(w http.ResponseWriter, r *http.Request) {
	in, ok := s.decodeScene(w, r)
	if !ok {
		return
	}

	cf, err := scorer.Rescore(in.scene.Faces, in.cfg)
	if err != nil {
		scoreError(w, err)
		return
	}

	resp := whatIfResponse{
		Source:   in.scene.Source,
		Before:   cf.Before.Assessment,
		After:    cf.After.Assessment,
		Adoption: cf.Adoption,
		Pairs:    cf.Before.Pairs,
	}
	if in.save {
		run := cf.Run(in.scene.Source, in.cfg)
		if !s.save(w, r, run) {
			return
		}
		resp.ID = run.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	q := r.URL.Query()
	filter := store.RunFilter{Source: q.Get("source")}

	if v := q.Get("tier"); v != "" {
		tier, ok := model.ParseTier(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown tier: "+v)
			return
		}
		filter.Tier = tier
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid "+p.name)
			return
		}
		*p.dst = n
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list assessments")
		return
	}
	if runs == nil {
		runs = []model.AssessmentRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// loadRun fetches the run named in the URL. On failure it has already
// written the response.
func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (*model.AssessmentRun, bool) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return nil, false
	}

	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if store.IsNotFound(err) {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		zap.L().Error("api: get run failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load assessment")
		return nil, false
	}
	return run, true
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) getOverlay(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	data, err := overlay.Marshal(run.Faces, run.Pairs)
	if err != nil {
		zap.L().Error("api: overlay failed", zap.String("id", run.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to render overlay")
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}
