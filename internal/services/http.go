package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dpup/prefab/logging"

	"github.com/dpup/meetpoint/server/internal/clients/isochrone"
	"github.com/dpup/meetpoint/server/internal/clients/places"
	"github.com/dpup/meetpoint/server/internal/export"
	"github.com/dpup/meetpoint/server/internal/lib/geo"
	"github.com/dpup/meetpoint/server/internal/lib/overlap"
	"github.com/dpup/meetpoint/server/internal/lib/ranking"
	"github.com/dpup/meetpoint/server/internal/lib/reachability"
)

// maxBodyBytes bounds request bodies; isochrone responses are rarely over a few MB
const maxBodyBytes = 16 << 20

// HTTPHandlers exposes MeetingService over JSON
type HTTPHandlers struct {
	service *MeetingService
	parser  *isochrone.Parser
}

// NewHTTPHandlers creates handlers that parse isochrones with parser
func NewHTTPHandlers(service *MeetingService, parser *isochrone.Parser) *HTTPHandlers {
	return &HTTPHandlers{service: service, parser: parser}
}

// reachabilityInput carries either a provider GeoJSON response or explicit contours
type reachabilityInput struct {
	Isochrones json.RawMessage        `json:"isochrones,omitempty"`
	Contours   []reachability.Contour `json:"contours,omitempty"`
}

func (h *HTTPHandlers) contours(in reachabilityInput) ([]reachability.Contour, error) {
	if len(in.Isochrones) > 0 {
		return h.parser.Parse(in.Isochrones)
	}
	if len(in.Contours) == 0 {
		return nil, errors.New("request needs isochrones or contours")
	}
	for i, c := range in.Contours {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("contour %d: %w", i, err)
		}
	}
	return in.Contours, nil
}

// OverlapResponse is returned by the overlap endpoint
type OverlapResponse struct {
	Region       overlap.Region  `json:"region"`
	Anchor       *geo.Coordinate `json:"anchor,omitempty"`
	EncodedRings []string        `json:"encoded_rings,omitempty"`
}

// HandleOverlap resolves the overlap region. ?format=geojson or ?format=kml
// return the region in that format instead of the JSON envelope.
func (h *HTTPHandlers) HandleOverlap(w http.ResponseWriter, r *http.Request) {
	var req reachabilityInput
	if !decodeRequest(w, r, &req) {
		return
	}
	contours, err := h.contours(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	region := h.service.ResolveContours(r.Context(), contours)

	switch format := r.URL.Query().Get("format"); format {
	case "geojson":
		data, err := export.GeoJSON(region)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, OverlapResponse{Region: region})
			return
		}
		w.Header().Set("Content-Type", "application/geo+json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case "kml":
		if !region.HasGeometry() {
			writeJSON(w, http.StatusUnprocessableEntity, OverlapResponse{Region: region})
			return
		}
		w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
		if err := export.KML(w, "Meeting area", region); err != nil {
			logging.Errorw(logging.EnsureLogger(r.Context()), "Failed to write KML", "error", err)
		}
	case "", "json":
		resp := OverlapResponse{Region: region}
		if anchor, ok := region.Anchor(); ok {
			resp.Anchor = &anchor
		}
		if rings, err := export.EncodedRings(region); err == nil {
			resp.EncodedRings = rings
		}
		writeJSON(w, http.StatusOK, resp)
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown format %q", format))
	}
}

type validateRequest struct {
	reachabilityInput
	Point geo.Coordinate `json:"point"`
}

// ValidateResponse is returned by the validate endpoint
type ValidateResponse struct {
	Valid  bool         `json:"valid"`
	Reason string       `json:"reason,omitempty"`
	Kind   overlap.Kind `json:"kind"`
}

// HandleValidate checks a manually picked meeting point against the overlap
func (h *HTTPHandlers) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	contours, err := h.contours(req.reachabilityInput)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	region := h.service.ResolveContours(r.Context(), contours)
	resp := ValidateResponse{Valid: true, Kind: region.Kind}
	if err := h.service.Validate(req.Point, region); err != nil {
		resp.Valid = false
		resp.Reason = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

type rankRequest struct {
	reachabilityInput
	Candidates json.RawMessage `json:"candidates"`
	Sort       string          `json:"sort,omitempty"`
}

// RankResponse is returned by the rank endpoint
type RankResponse struct {
	Kind    overlap.Kind              `json:"kind"`
	Message string                    `json:"message,omitempty"`
	Anchor  *geo.Coordinate           `json:"anchor,omitempty"`
	Results []ranking.RankedCandidate `json:"results"`

	// Dropped counts candidates rejected while parsing, before region filtering
	Dropped int `json:"dropped"`
}

// HandleRank filters places candidates to the overlap and sorts them
func (h *HTTPHandlers) HandleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	contours, err := h.contours(req.reachabilityInput)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Candidates) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("request needs candidates"))
		return
	}
	candidates, dropped, err := places.ParseCandidates(req.Candidates)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	region := h.service.ResolveContours(r.Context(), contours)
	ranked, err := h.service.Rank(r.Context(), candidates, region, ranking.SortKey(req.Sort))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp := RankResponse{Kind: region.Kind, Message: region.Message, Results: ranked, Dropped: dropped}
	if anchor, ok := region.Anchor(); ok {
		resp.Anchor = &anchor
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
