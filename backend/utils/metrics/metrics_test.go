package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_RecordsRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(Middleware("test-service"))
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	counter := HTTPRequestsTotal.WithLabelValues("test-service", "/items/{id}", http.MethodPost, "201")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items/42", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestHandlerExposesCollectors(t *testing.T) {
	DeadlineAlertsTotal.Add(0)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "taskboard_deadline_alerts_total")
}

func TestResult(t *testing.T) {
	assert.Equal(t, "success", Result(true))
	assert.Equal(t, "failure", Result(false))
}
