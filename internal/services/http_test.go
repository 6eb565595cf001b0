package services

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/meetpoint/server/internal/clients/isochrone"
	"github.com/dpup/meetpoint/server/internal/config"
	"github.com/dpup/meetpoint/server/internal/lib/overlap"
)

// Two origins in one provider response, tagged by group_index
const isochroneBody = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"group_index": 0, "value": 1200},
     "geometry": {"type": "Polygon", "coordinates": [[[106.80,-6.20],[106.80,-6.10],[106.90,-6.10],[106.90,-6.20],[106.80,-6.20]]]}},
    {"type": "Feature", "properties": {"group_index": 1, "value": 1200},
     "geometry": {"type": "Polygon", "coordinates": [[[106.85,-6.25],[106.85,-6.15],[106.95,-6.15],[106.95,-6.25],[106.85,-6.25]]]}}
  ]
}`

const disjointBody = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"group_index": 0, "value": 600},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[0,1],[1,1],[1,0],[0,0]]]}},
    {"type": "Feature", "properties": {"group_index": 1, "value": 900},
     "geometry": {"type": "Polygon", "coordinates": [[[5,5],[5,6],[6,6],[6,5],[5,5]]]}}
  ]
}`

func newTestHandlers(t *testing.T) *HTTPHandlers {
	t.Helper()
	cfg := config.DefaultConfig()
	svc, _ := newTestService(t, cfg)
	return NewHTTPHandlers(svc, isochrone.NewParser(cfg.Ingest.ParserOptions()))
}

func post(h http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	return rr
}

func TestHandleOverlap(t *testing.T) {
	h := newTestHandlers(t)

	rr := post(h.HandleOverlap, "/api/v1/overlap", `{"isochrones": `+isochroneBody+`}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp OverlapResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, overlap.Intersection, resp.Region.Kind)
	assert.Equal(t, 1200.0, resp.Region.TravelTime)
	require.NotNil(t, resp.Anchor)
	assert.InDelta(t, 106.875, resp.Anchor.Longitude, 0.01)
	assert.Len(t, resp.EncodedRings, 1)
}

func TestHandleOverlap_NoOverlap(t *testing.T) {
	h := newTestHandlers(t)

	rr := post(h.HandleOverlap, "/api/v1/overlap", `{"isochrones": `+disjointBody+`}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp OverlapResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, overlap.NoOverlap, resp.Region.Kind)
	assert.Equal(t, 900.0, resp.Region.TravelTime)
	assert.Nil(t, resp.Anchor)
	assert.Empty(t, resp.EncodedRings)
}

func TestHandleOverlap_Formats(t *testing.T) {
	h := newTestHandlers(t)
	body := `{"isochrones": ` + isochroneBody + `}`

	rr := post(h.HandleOverlap, "/api/v1/overlap?format=geojson", body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/geo+json", rr.Header().Get("Content-Type"))
	fc, err := geojson.UnmarshalFeatureCollection(rr.Body.Bytes())
	require.NoError(t, err)
	assert.Len(t, fc.Features, 1)

	rr = post(h.HandleOverlap, "/api/v1/overlap?format=kml", body)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "<Placemark>")

	rr = post(h.HandleOverlap, "/api/v1/overlap?format=kml", `{"isochrones": `+disjointBody+`}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, "No geometry to render")

	rr = post(h.HandleOverlap, "/api/v1/overlap?format=shapefile", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHandleOverlap_BadRequests(t *testing.T) {
	h := newTestHandlers(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"not json", `nope`, http.StatusBadRequest},
		{"no input", `{}`, http.StatusBadRequest},
		{"bad geojson", `{"isochrones": {"type": "FeatureCollection", "features": [{"type": "Feature", "properties": {}, "geometry": null}]}}`, http.StatusBadRequest},
		{"contour latitude out of range", `{"contours": [
		  {"value": 10, "owner_id": "A", "geometry": {"type": "Polygon", "polygons": [{"outer": [{"lng": 0, "lat": 0}, {"lng": 0, "lat": 500}, {"lng": 1, "lat": 1}]}]}},
		  {"value": 10, "owner_id": "B", "geometry": {"type": "Polygon", "polygons": [{"outer": [{"lng": 0, "lat": 0}, {"lng": 0, "lat": 1}, {"lng": 1, "lat": 1}]}]}}]}`, http.StatusBadRequest},
		{"contour hole longitude out of range", `{"contours": [
		  {"value": 10, "owner_id": "A", "geometry": {"type": "Polygon", "polygons": [{"outer": [{"lng": 0, "lat": 0}, {"lng": 0, "lat": 1}, {"lng": 1, "lat": 1}],
		   "holes": [[{"lng": 0.1, "lat": 0.1}, {"lng": 0.2, "lat": 0.2}, {"lng": 181, "lat": 0.1}]]}]}},
		  {"value": 10, "owner_id": "B", "geometry": {"type": "Polygon", "polygons": [{"outer": [{"lng": 0, "lat": 0}, {"lng": 0, "lat": 1}, {"lng": 1, "lat": 1}]}]}}]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := post(h.HandleOverlap, "/api/v1/overlap", tt.body)
			assert.Equal(t, tt.code, rr.Code)
			assert.Contains(t, rr.Body.String(), `"error"`)
		})
	}

	rr := httptest.NewRecorder()
	h.HandleOverlap(rr, httptest.NewRequest(http.MethodGet, "/api/v1/overlap", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandleOverlap_ErrorRegionInBody(t *testing.T) {
	h := newTestHandlers(t)

	// One owner only: the request parses but cannot be resolved
	body := `{"contours": [{"value": 10, "owner_id": "A", "geometry": {"type": "Polygon",
	  "polygons": [{"outer": [{"lng": 0, "lat": 0}, {"lng": 0, "lat": 1}, {"lng": 1, "lat": 1}]}]}}]}`
	rr := post(h.HandleOverlap, "/api/v1/overlap", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp OverlapResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, overlap.Error, resp.Region.Kind)
	assert.NotEmpty(t, resp.Region.Message)
}

func TestHandleOverlap_KMLWithoutLogger(t *testing.T) {
	h := newTestHandlers(t)

	// httptest requests carry no logger on their context
	assert.NotPanics(t, func() {
		rr := post(h.HandleOverlap, "/api/v1/overlap?format=kml", `{"isochrones": `+isochroneBody+`}`)
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestHandleValidate(t *testing.T) {
	h := newTestHandlers(t)

	rr := post(h.HandleValidate, "/api/v1/validate", `{"isochrones": `+isochroneBody+`, "point": {"lng": 106.87, "lat": -6.17}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var resp ValidateResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Valid)
	assert.Equal(t, overlap.Intersection, resp.Kind)

	rr = post(h.HandleValidate, "/api/v1/validate", `{"isochrones": `+isochroneBody+`, "point": {"lng": 106.81, "lat": -6.11}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = ValidateResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.NotEmpty(t, resp.Reason)

	rr = post(h.HandleValidate, "/api/v1/validate", `{"isochrones": `+disjointBody+`, "point": {"lng": 0.5, "lat": 0.5}}`)
	resp = ValidateResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Valid, "No overlap accepts no point")
	assert.Equal(t, overlap.NoOverlap, resp.Kind)
}

func TestHandleRank(t *testing.T) {
	h := newTestHandlers(t)

	body := `{"isochrones": ` + isochroneBody + `, "sort": "rating", "candidates": {"results": [
	  {"id": "a", "coordinates": {"lng": 106.86, "lat": -6.16}, "rating": 3.9},
	  {"id": "b", "coordinates": {"lng": 106.88, "lat": -6.18}, "rating": 4.7},
	  {"id": "c", "coordinates": {"lng": 106.81, "lat": -6.11}, "rating": 5.0},
	  {"coordinates": {"lng": 106.87, "lat": -6.17}}
	]}}`

	rr := post(h.HandleRank, "/api/v1/rank", body)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp RankResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, overlap.Intersection, resp.Kind)
	assert.Equal(t, 1, resp.Dropped, "Candidate without ID is dropped at parse time")
	require.Len(t, resp.Results, 2, "Candidate outside the region is filtered")
	assert.Equal(t, "b", resp.Results[0].ID)
	assert.Equal(t, "a", resp.Results[1].ID)
	assert.Greater(t, resp.Results[0].DistanceToAnchor, 0.0)
}

func TestHandleRank_BadRequests(t *testing.T) {
	h := newTestHandlers(t)

	rr := post(h.HandleRank, "/api/v1/rank", `{"isochrones": `+isochroneBody+`}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Candidates are required")

	rr = post(h.HandleRank, "/api/v1/rank", `{"isochrones": `+isochroneBody+`, "sort": "price", "candidates": []}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Unknown sort key")
}

func TestHandleRank_NoOverlapReturnsEmpty(t *testing.T) {
	h := newTestHandlers(t)

	rr := post(h.HandleRank, "/api/v1/rank", `{"isochrones": `+disjointBody+`, "candidates": [{"id": "x", "coordinates": {"lng": 0.5, "lat": 0.5}}]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp RankResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, overlap.NoOverlap, resp.Kind)
	assert.Empty(t, resp.Results)
	assert.Contains(t, rr.Body.String(), `"results":[]`)
}
