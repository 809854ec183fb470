package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/logsense/backend/internal/model"
	"github.com/logsense/backend/internal/service"
)

type fakeAlertService struct {
	alert *model.Alert
	list  *model.AlertListResponse
	err   error
}

func (f *fakeAlertService) Get(ctx context.Context, id string) (*model.Alert, error) {
	if f.alert == nil {
		return nil, service.ErrAlertNotFound
	}
	return f.alert, nil
}

func (f *fakeAlertService) List(ctx context.Context, limit int, cursor string) (*model.AlertListResponse, error) {
	if cursor == "bad" {
		return nil, service.ErrBadCursor
	}
	return f.list, f.err
}

func (f *fakeAlertService) Stats(ctx context.Context) (*model.StatsResponse, error) {
	return &model.StatsResponse{TotalAlerts: 7}, nil
}

func (f *fakeAlertService) Related(ctx context.Context, id string, limit int) ([]model.RelatedAlert, error) {
	return []model.RelatedAlert{}, nil
}

type fakeHub struct {
	err error
}

func (f *fakeHub) Subscribe() (*service.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan model.Alert)
	close(ch)
	return &service.Subscription{ID: 1, C: ch}, nil
}

func (f *fakeHub) Unsubscribe(id int64) {}

func setupAlertRouter(svc alertService, hub subscriptionHub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewAlertHandler(svc, hub)
	r.GET("/alerts", h.List)
	r.GET("/alerts/stats", h.Stats)
	r.GET("/alerts/stream", h.Stream)
	r.GET("/alerts/:id", h.Get)
	return r
}

func TestAlertListBadCursor(t *testing.T) {
	r := setupAlertRouter(&fakeAlertService{}, &fakeHub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alerts?cursor=bad", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestAlertListOK(t *testing.T) {
	svc := &fakeAlertService{list: &model.AlertListResponse{Data: []model.Alert{}, Limit: 50}}
	r := setupAlertRouter(svc, &fakeHub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alerts", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAlertGetNotFound(t *testing.T) {
	r := setupAlertRouter(&fakeAlertService{}, &fakeHub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alerts/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestAlertStats(t *testing.T) {
	r := setupAlertRouter(&fakeAlertService{}, &fakeHub{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alerts/stats", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAlertStreamSubscriberLimit(t *testing.T) {
	r := setupAlertRouter(&fakeAlertService{}, &fakeHub{err: service.ErrTooManySubscribers})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alerts/stream", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}
