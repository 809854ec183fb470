package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/logsense/backend/internal/model"
	"github.com/logsense/backend/internal/service"
)

type fakeIngestService struct {
	result model.IngestResult
	batch  *model.IngestBatchResponse
	err    error
}

func (f *fakeIngestService) Ingest(ctx context.Context, entry model.IngestEntry) model.IngestResult {
	return f.result
}

func (f *fakeIngestService) IngestBatch(ctx context.Context, entries []model.IngestEntry) (*model.IngestBatchResponse, error) {
	return f.batch, f.err
}

func (f *fakeIngestService) RecentLogs(ctx context.Context, limit int) ([]model.LogRecord, error) {
	return []model.LogRecord{}, nil
}

func setupIngestRouter(svc ingestService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewIngestHandler(svc)
	r.POST("/ingest", h.Ingest)
	r.POST("/ingest/batch", h.IngestBatch)
	return r
}

func TestIngestEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		result     model.IngestResult
		wantStatus int
	}{
		{
			name:       "ingested",
			body:       `{"log":"ERROR: boom"}`,
			result:     model.IngestResult{Status: model.IngestStatusIngested, LogID: "id1"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "skipped is not an error",
			body:       `{"log":"INFO: fine"}`,
			result:     model.IngestResult{Status: model.IngestStatusSkipped},
			wantStatus: http.StatusOK,
		},
		{
			name:       "rejected",
			body:       `{"log":""}`,
			result:     model.IngestResult{Status: model.IngestStatusRejected, Error: "malformed log input"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid json",
			body:       `{`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupIngestRouter(&fakeIngestService{result: tt.result})

			req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestIngestBatchEndpoint(t *testing.T) {
	svc := &fakeIngestService{batch: &model.IngestBatchResponse{Ingested: 2, Skipped: 1}}
	r := setupIngestRouter(svc)

	body := `{"logs":[{"log":"ERROR: a"},{"log":"ERROR: b"},{"log":"INFO: c"}]}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/batch", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", w.Code, w.Body.String())
	}
	var resp model.IngestBatchResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Ingested != 2 || resp.Skipped != 1 {
		t.Errorf("counts = %d/%d, want 2/1", resp.Ingested, resp.Skipped)
	}
}

func TestIngestBatchTooLarge(t *testing.T) {
	svc := &fakeIngestService{err: service.ErrBatchTooLarge}
	r := setupIngestRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/ingest/batch", strings.NewReader(`{"logs":[{"log":"x"}]}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
