// Package debugsrv serves a small HTTP diagnostics surface per process:
// /metrics (Prometheus exposition, via promhttp adapted to fasthttp) and
// /stats (a JSON snapshot of every registered table's resolved
// configuration).
package debugsrv

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/linuxfood/setab/internal/nlog"
	"github.com/linuxfood/setab/registry"
)

// configJSONer is satisfied by *vtab.Table without debugsrv importing
// vtab directly, so the diagnostics surface stays decoupled from the
// streaming engine itself.
type configJSONer interface {
	ConfigJSON() ([]byte, error)
}

// Server is a fasthttp listener exposing metrics and per-table config
// for a Registry.
type Server struct {
	Registry *registry.Registry
	srv      *fasthttp.Server
}

// New builds a Server. Call ListenAndServe to start it.
func New(reg *registry.Registry) *Server {
	s := &Server{Registry: reg}
	s.srv = &fasthttp.Server{Handler: s.handler}
	return s
}

// ListenAndServe blocks serving on addr (e.g. ":9100").
func (s *Server) ListenAndServe(addr string) error {
	nlog.Infoln("debugsrv: listening on", addr)
	return s.srv.ListenAndServe(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error { return s.srv.Shutdown() }

var metricsHandler = fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())

func (s *Server) handler(ctx *fasthttp.RequestCtx) {
	switch string(ctx.Path()) {
	case "/metrics":
		metricsHandler(ctx)
	case "/stats":
		s.serveStats(ctx)
	default:
		ctx.SetStatusCode(http.StatusNotFound)
	}
}

func (s *Server) serveStats(ctx *fasthttp.RequestCtx) {
	snapshots := make(map[string]jsoniter.RawMessage)
	s.Registry.Each(func(name string, t registry.Table) {
		cj, ok := t.(configJSONer)
		if !ok {
			return
		}
		body, err := cj.ConfigJSON()
		if err != nil {
			nlog.Warningln("debugsrv: config snapshot failed for", name, ":", err)
			return
		}
		snapshots[name] = body
	})

	body, err := jsoniter.Marshal(snapshots)
	if err != nil {
		ctx.SetStatusCode(http.StatusInternalServerError)
		return
	}
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}
