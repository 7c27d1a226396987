package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"taskboard/backend/utils"
	"taskboard/backend/utils/auth"
	"taskboard/backend/utils/config"
	"taskboard/backend/utils/httpx"
	"taskboard/backend/utils/logging"
	"taskboard/backend/utils/metrics"

	"github.com/gorilla/mux"
)

const breakerTimeout = 10 * time.Second

// reverseProxyURL proxies to target through a breaker named after the
// upstream. An open breaker answers 503, other transport failures 502.
func reverseProxyURL(name, target string) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid %s url %q", name, target)
	}

	proxy := httputil.NewSingleHostReverseProxy(u)
	proxy.Transport = utils.NewBreakerTransport(utils.NewBreaker(name+"-cb", breakerTimeout))

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.Host = u.Host
	}

	// The gateway's own CORS wrapper owns these headers.
	proxy.ModifyResponse = func(resp *http.Response) error {
		for k := range httpx.CORSHeaders {
			resp.Header.Del(k)
		}
		return nil
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		if errors.Is(err, utils.ErrUpstreamUnavailable) {
			logging.Logger.Warnf("Event ID: UPSTREAM_UNAVAILABLE, Description: %s %s: %v", r.Method, r.URL.Path, err)
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "Service temporarily unavailable"})
			return
		}
		logging.Logger.Errorf("Event ID: UPSTREAM_FAILED, Description: %s %s: %v", r.Method, r.URL.Path, err)
		httpx.WriteJSON(w, http.StatusBadGateway, map[string]string{"error": "Bad gateway"})
	}

	return proxy, nil
}

func newRouter(cfg config.GatewayConfig, tokens *auth.TokenIssuer) (*mux.Router, error) {
	tasks, err := reverseProxyURL("tasks-service", cfg.TasksServiceURL)
	if err != nil {
		return nil, err
	}
	users, err := reverseProxyURL("users-service", cfg.UsersServiceURL)
	if err != nil {
		return nil, err
	}
	notifications, err := reverseProxyURL("notifications-service", cfg.NotificationsServiceURL)
	if err != nil {
		return nil, err
	}

	r := mux.NewRouter()
	r.Use(metrics.Middleware("api-gateway"))

	r.Handle("/tasks", authMiddleware(tasks, tokens))
	r.Handle("/users", authMiddleware(users, tokens))
	r.PathPrefix("/notifications").Handler(authMiddleware(notifications, tokens))
	r.Handle("/auth/login", anonymous(users))
	r.Handle("/auth/change-password", authMiddleware(users, tokens))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("API gateway is running"))
	}).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	return r, nil
}
