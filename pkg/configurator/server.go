// Package configurator serves the browser UI and JSON API used to remap
// channels to output lines.
package configurator

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	fx "github.com/robotalks/relayrx/pkg/framework"
	"github.com/robotalks/relayrx/pkg/receiver"
	"github.com/robotalks/relayrx/pkg/relay"
)

// Backend is the receiver side of the configurator.
type Backend interface {
	Replace(ctx context.Context, a relay.Assignment) error
	Snapshot(ctx context.Context) (receiver.Snapshot, error)
	Restart(ctx context.Context) error
}

// Response texts.
const (
	msgInvalid  = "invalid data"
	msgConflict = "conflict: the same GPIO is selected for several relays"
	msgNotFound = "404 Not Found"
	msgReboot   = "Rebooting..."
)

// RequestTimeout bounds every request sent to the Backend.
const RequestTimeout = 2 * time.Second

// Server implements http.Handler.
type Server struct {
	Backend Backend
	// Password enables basic auth when not empty, any user name is accepted.
	Password     string
	Hub          *Hub
	RestartDelay time.Duration

	mux *http.ServeMux
}

// New creates a Server.
func New(backend Backend, password string) *Server {
	s := &Server{
		Backend:      backend,
		Password:     password,
		Hub:          NewHub(),
		RestartDelay: receiver.RestartDelay,
		mux:          http.NewServeMux(),
	}
	s.mux.HandleFunc("/", s.route(http.MethodGet, s.handleRoot))
	s.mux.HandleFunc("/save", s.route(http.MethodPost, s.handleSave))
	s.mux.HandleFunc("/api/config", s.route(http.MethodGet, s.handleConfig))
	s.mux.HandleFunc("/api/state", s.route(http.MethodGet, s.handleState))
	s.mux.HandleFunc("/reboot", s.route(http.MethodGet, s.handleReboot))
	s.mux.Handle("/ws", websocket.Handler(s.Hub.Serve))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if s.Password != "" {
		_, pwd, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(pwd), []byte(s.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="relayrx"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}
	s.mux.ServeHTTP(w, r)
}

// route answers other methods like unknown paths.
func (s *Server) route(method string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			notFound(w)
			return
		}
		fn(w, r)
	}
}

func notFound(w http.ResponseWriter) {
	text(w, http.StatusNotFound, msgNotFound)
}

func text(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		glog.Warningf("configurator: write json: %v", err)
	}
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) (receiver.Snapshot, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
	defer cancel()
	snap, err := s.Backend.Snapshot(ctx)
	if err != nil {
		glog.Errorf("configurator: snapshot: %v", err)
		text(w, http.StatusServiceUnavailable, err.Error())
		return snap, false
	}
	return snap, true
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		notFound(w)
		return
	}
	snap, ok := s.snapshot(w, r)
	if !ok {
		return
	}
	renderPage(w, configPage(snap))
}

// assignmentFromForm reads pin_0 .. pin_12.
func assignmentFromForm(r *http.Request) ([]int, bool) {
	if err := r.ParseForm(); err != nil {
		return nil, false
	}
	lines := make([]int, relay.Channels)
	for i := range lines {
		name := "pin_" + strconv.Itoa(i)
		if _, ok := r.PostForm[name]; !ok {
			return nil, false
		}
		line, err := strconv.Atoi(r.PostForm.Get(name))
		if err != nil {
			return nil, false
		}
		lines[i] = line
	}
	return lines, true
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	lines, ok := assignmentFromForm(r)
	if !ok {
		text(w, http.StatusBadRequest, msgInvalid)
		return
	}
	a, err := relay.AssignmentFromInts(lines)
	if err == nil {
		ctx, cancel := context.WithTimeout(r.Context(), RequestTimeout)
		err = s.Backend.Replace(ctx, a)
		cancel()
	}
	switch {
	case err == nil:
		glog.Infof("configurator: saved %s", a)
		renderPage(w, savedPage())
	case errors.Is(err, relay.ErrDuplicateLine):
		text(w, http.StatusConflict, msgConflict)
	case errors.Is(err, relay.ErrLineNotAllowed), errors.Is(err, relay.ErrChannelCount):
		glog.V(1).Infof("configurator: rejected: %v", err)
		text(w, http.StatusBadRequest, msgInvalid)
	case errors.Is(err, receiver.ErrNotPersisted):
		text(w, http.StatusInternalServerError, err.Error())
	default:
		glog.Errorf("configurator: replace: %v", err)
		text(w, http.StatusServiceUnavailable, err.Error())
	}
}

type configDoc struct {
	Relays []relay.Channel `json:"relays"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if snap, ok := s.snapshot(w, r); ok {
		writeJSON(w, &configDoc{Relays: snap.Channels})
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if snap, ok := s.snapshot(w, r); ok {
		st := NewStateDoc(snap.State)
		st.Commands, st.Ignored, st.Expired, st.Overflows = snap.Commands, snap.Ignored, snap.Expired, snap.Overflow
		writeJSON(w, st)
	}
}

func (s *Server) handleReboot(w http.ResponseWriter, r *http.Request) {
	text(w, http.StatusOK, msgReboot)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	go func() {
		time.Sleep(s.RestartDelay)
		ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
		defer cancel()
		if err := s.Backend.Restart(ctx); err != nil {
			glog.Errorf("configurator: restart: %v", err)
		}
	}()
}

// Listener serves a Server on an address as a framework.Runnable.
type Listener struct {
	Addr   string
	Server *Server
}

// Name implements framework.Named.
func (l *Listener) Name() string {
	return "configurator"
}

// Run implements Runnable. A listen failure disables the configurator
// only, it is logged and Run returns nil.
func (l *Listener) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", l.Addr)
	if err != nil {
		glog.Errorf("configurator disabled: %v", err)
		return nil
	}
	glog.Infof("configurator: open http://%s for config", ln.Addr())
	srv := &http.Server{Handler: l.Server}
	err = fx.RunWithContextCancel(ctx, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}, func() error {
		return srv.Serve(ln)
	})
	l.Server.Hub.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
