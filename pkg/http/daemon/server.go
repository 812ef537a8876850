package daemon

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	stdprometheus "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	transport "github.com/zcamper/silver-scraper/pkg/http"
	silvermetrics "github.com/zcamper/silver-scraper/pkg/metrics"

	"github.com/zcamper/silver-scraper/pkg/api"
)

var (
	requestDuration = promauto.NewHistogramVec(stdprometheus.HistogramOpts{
		Namespace: "silver",
		Name:      "request_duration_seconds",
		Help:      "Time (in seconds) spent serving HTTP requests.",
		Buckets:   stdprometheus.DefBuckets,
	}, []string{silvermetrics.LabelMethod, silvermetrics.LabelRoute, "status_code"})
)

// An API server for the daemon
func NewRouter() *mux.Router {
	r := transport.NewAPIRouter()

	// We assume every request that doesn't match a route is a client
	// calling an old or hitherto unsupported API.
	r.NewRoute().Name("NotFound").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		transport.WriteError(w, r, http.StatusNotFound, transport.MakeAPINotFound(r.URL.Path))
	})

	return r
}

func NewHandler(s api.Server, r *mux.Router) http.Handler {
	handle := HTTPServer{s}

	r.Get(transport.Ping).HandlerFunc(handle.Ping)
	r.Get(transport.Version).HandlerFunc(handle.Version)
	r.Get(transport.ListTargets).HandlerFunc(handle.ListTargets)
	r.Get(transport.GetCatalog).HandlerFunc(handle.GetCatalog)
	r.Get(transport.GetProduct).HandlerFunc(handle.GetProduct)
	r.Get(transport.Refresh).HandlerFunc(handle.Refresh)

	return instrument(r)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func instrument(router *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		begin := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		router.ServeHTTP(sw, r)

		routeName := "unmatched"
		var match mux.RouteMatch
		if router.Match(r, &match) && match.Route != nil {
			if name := match.Route.GetName(); name != "" {
				routeName = name
			}
		}
		requestDuration.WithLabelValues(r.Method, routeName, strconv.Itoa(sw.status)).
			Observe(time.Since(begin).Seconds())
	})
}

type HTTPServer struct {
	server api.Server
}

func (s HTTPServer) Ping(w http.ResponseWriter, r *http.Request) {
	if err := s.server.Ping(r.Context()); err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s HTTPServer) Version(w http.ResponseWriter, r *http.Request) {
	version, err := s.server.Version(r.Context())
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, version)
}

func (s HTTPServer) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.server.ListTargets(r.Context())
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, targets)
}

func (s HTTPServer) GetCatalog(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["target"]
	catalog, err := s.server.Catalog(r.Context(), target)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, catalog)
}

func (s HTTPServer) GetProduct(w http.ResponseWriter, r *http.Request) {
	url := mux.Vars(r)["url"]
	info, err := s.server.Product(r.Context(), url)
	if err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	transport.JSONResponse(w, r, info)
}

func (s HTTPServer) Refresh(w http.ResponseWriter, r *http.Request) {
	target := mux.Vars(r)["target"]
	if err := s.server.Refresh(r.Context(), target); err != nil {
		transport.ErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
