package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/qinglingtaxue/youtube--sub001/pkg/validation"
)

func (s *Server) handleRanking(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	req := &validation.RankingRequest{
		Dimension:  q.String("dimension"),
		Window:     q.String("window"),
		RankingKey: q.String("rankingKey"),
		Limit:      q.Int("limit"),
		Offset:     q.Int("offset"),
	}
	if err := q.Err(); err != nil {
		s.respondServiceError(w, r, err, "ranking")
		return
	}
	if err := validation.ValidateRankingRequest(req); err != nil {
		s.respondServiceError(w, r, err, "ranking")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	ranking, err := s.service.GetRanking(ctx, req.Query())
	if err != nil {
		s.respondServiceError(w, r, err, "ranking")
		return
	}
	s.respondJSON(w, http.StatusOK, ranking)
}

func (s *Server) handleQuadrants(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	req := &validation.QuadrantRequest{
		Dimension: q.String("dimension"),
		Window:    q.String("window"),
	}
	if err := validation.ValidateQuadrantRequest(req); err != nil {
		s.respondServiceError(w, r, err, "quadrants")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	matrix, err := s.service.GetQuadrants(ctx, req.Query())
	if err != nil {
		s.respondServiceError(w, r, err, "quadrants")
		return
	}
	s.respondJSON(w, http.StatusOK, matrix)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	req := &validation.ReportRequest{
		VideoID:   q.String("videoId"),
		ChannelID: q.String("channelId"),
		Window:    q.String("window"),
	}
	if err := validation.ValidateReportRequest(req); err != nil {
		s.respondServiceError(w, r, err, "report")
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	rep, err := s.service.GetReport(ctx, req.Query())
	if err != nil {
		s.respondServiceError(w, r, err, "report")
		return
	}
	s.respondJSON(w, http.StatusOK, rep)
}

func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	req := &validation.InvalidateRequest{Window: chi.URLParam(r, "window")}
	if err := validation.ValidateInvalidateRequest(req); err != nil {
		s.respondServiceError(w, r, err, "invalidate")
		return
	}

	resp := InvalidateResponse{Window: "*"}
	if req.All() {
		resp.Dropped = s.service.InvalidateAll()
	} else {
		resp.Window = string(req.TimeWindow())
		resp.Dropped = s.service.Invalidate(req.TimeWindow())
	}
	s.respondJSON(w, http.StatusOK, resp)
}
