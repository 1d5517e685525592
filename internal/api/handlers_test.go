package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Andrew-Sencil/GBP/internal/analyzer"
	"github.com/Andrew-Sencil/GBP/internal/config"
	"github.com/Andrew-Sencil/GBP/internal/domain"
	"github.com/Andrew-Sencil/GBP/internal/monitoring"
	"github.com/Andrew-Sencil/GBP/internal/narrative"
)

type fakePipeline struct {
	bundle     *domain.AnalysisBundle
	analyzeErr error
	text       string
	textErr    error
	lastInput  analyzer.Input
	lastChoice narrative.ModelChoice
}

func (f *fakePipeline) Analyze(_ context.Context, in analyzer.Input) (*domain.AnalysisBundle, error) {
	f.lastInput = in
	return f.bundle, f.analyzeErr
}

func (f *fakePipeline) Narrative(_ context.Context, _ string, choice narrative.ModelChoice) (string, error) {
	f.lastChoice = choice
	return f.text, f.textErr
}

type fakeReader struct {
	bundle *domain.AnalysisBundle
	err    error
}

func (f *fakeReader) GetAnalysis(_ context.Context, _ string) (*domain.AnalysisBundle, error) {
	return f.bundle, f.err
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(_ context.Context) error { return f.err }

func newTestServer(p *fakePipeline, store *fakeReader, pgErr, redisErr error) *Server {
	cfg := &config.Config{ServerPort: "8080", ScrapeBudget: 300}
	return NewServer(cfg, p, store,
		&fakePinger{err: pgErr}, &fakePinger{err: redisErr},
		monitoring.NewMetrics(prometheus.NewRegistry()), zap.NewNop())
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeRequiresExactlyOneIdentifier(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"query only", `{"query":"blue bottle sf"}`, http.StatusOK},
		{"place_id only", `{"place_id":"p1"}`, http.StatusOK},
		{"both", `{"query":"blue bottle sf","place_id":"p1"}`, http.StatusBadRequest},
		{"neither", `{}`, http.StatusBadRequest},
		{"garbage body", `{"query":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{bundle: &domain.AnalysisBundle{RunID: "r1"}}
			s := newTestServer(p, &fakeReader{}, nil, nil)
			rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/analyze", tt.body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAnalyzeReturnsBundle(t *testing.T) {
	rating := 4.5
	p := &fakePipeline{bundle: &domain.AnalysisBundle{
		RunID: "r1",
		Score: domain.ScoreResult{FinalScore: 7.4},
	}}
	s := newTestServer(p, &fakeReader{}, nil, nil)

	body := `{"place_id":"p1","force":true,"include_narrative":true,` +
		`"narrative_model":"deep","overrides":{"rating":4.5}}`
	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/analyze", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.AnalysisBundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r1", got.RunID)
	assert.Equal(t, 7.4, got.Score.FinalScore)

	assert.True(t, p.lastInput.Force)
	assert.True(t, p.lastInput.IncludeNarrative)
	assert.Equal(t, narrative.ModelDeep, p.lastInput.NarrativeModel)
	require.NotNil(t, p.lastInput.Overrides.Rating)
	assert.Equal(t, rating, *p.lastInput.Overrides.Rating)
}

func TestAnalyzeErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"listing not found", domain.ErrListingNotFound, http.StatusNotFound},
		{"acquisition error", domain.NewAcquisitionError("no identity", nil), http.StatusUnprocessableEntity},
		{"internal error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePipeline{analyzeErr: tt.err}
			s := newTestServer(p, &fakeReader{}, nil, nil)
			rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/analyze", `{"place_id":"p1"}`)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetAnalysis(t *testing.T) {
	s := newTestServer(&fakePipeline{}, &fakeReader{
		bundle: &domain.AnalysisBundle{RunID: "r9"},
	}, nil, nil)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/analysis?place_id=p1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.AnalysisBundle
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "r9", got.RunID)
}

func TestGetAnalysisMissingParamAndNotFound(t *testing.T) {
	s := newTestServer(&fakePipeline{}, &fakeReader{err: domain.ErrNotFound}, nil, nil)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/v1/analysis", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/v1/analysis?place_id=p1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNarrativeEndpoint(t *testing.T) {
	p := &fakePipeline{text: "detailed prose"}
	s := newTestServer(p, &fakeReader{}, nil, nil)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/api/v1/narrative", `{"place_id":"p1","model":"deep"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, narrative.ModelDeep, p.lastChoice)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "detailed prose", got["narrative"])

	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/v1/narrative", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	p.textErr = domain.ErrNotFound
	rec = doJSON(t, s.Handler(), http.MethodPost, "/api/v1/narrative", `{"place_id":"p1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(&fakePipeline{}, &fakeReader{}, nil, nil)
	rec := doJSON(t, s.Handler(), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"healthy"`)

	s = newTestServer(&fakePipeline{}, &fakeReader{}, errors.New("down"), nil)
	rec = doJSON(t, s.Handler(), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"postgres":"unhealthy"`)
}
