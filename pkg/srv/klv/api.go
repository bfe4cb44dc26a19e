/*
 Licensed under the Apache License, Version 2.0 (the "License");
 you may not use this file except in compliance with the License.
 You may obtain a copy of the License at

     https://www.apache.org/licenses/LICENSE-2.0

 Unless required by applicable law or agreed to in writing, software
 distributed under the License is distributed on an "AS IS" BASIS,
 WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 See the License for the specific language governing permissions and
 limitations under the License.
*/

package klv

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jinr.ru/greenlab/go-klv/pkg/config"
	"jinr.ru/greenlab/go-klv/pkg/datachannel"
	"jinr.ru/greenlab/go-klv/pkg/log"
)

const (
	DefaultListLimit = 10
	OfferTimeout     = 15 * time.Second
	ShutdownTimeout  = 5 * time.Second
)

//go:embed swagger.json
var swaggerJSON []byte

//go:embed static/index.html
var indexHTML []byte

// SessionDescription is the signaling message exchanged with browsers
type SessionDescription struct {
	ID   string `json:"id"`
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}

type Persist struct {
	Dir        string `json:"dir"`
	FilePrefix string `json:"filePrefix"`
}

type PersistResult struct {
	Filename string `json:"filename"`
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router
	spec   *loads.Document
	stream *Server
}

func NewApiServer(ctx context.Context, cfg *config.Config, stream *Server) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s", cfg.ApiAddr())

	spec, err := loads.Analyzed(json.RawMessage(swaggerJSON), "")
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded API description: %s %s", spec.Spec().Info.Title, spec.Version())

	s := &ApiServer{
		Context: ctx,
		Config:  cfg,
		spec:    spec,
		stream:  stream,
	}
	s.configureRouter()
	return s, nil
}

// Run serves the API until the context is done
func (s *ApiServer) Run() error {
	log.Debug("Starting API server: address: %s", s.Config.ApiAddr())
	httpServer := &http.Server{
		Handler:           s.Handler(),
		Addr:              s.Config.ApiAddr(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-s.Context.Done()
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		httpServer.Shutdown(ctx)
	}()

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Handler wraps the router with CORS, access logging and panic recovery
func (s *ApiServer) Handler() http.Handler {
	var h http.Handler = s.Router
	h = handlers.CORS(
		handlers.AllowedOrigins(s.Config.Api.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)(h)
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	return handlers.CombinedLoggingHandler(log.Writer(), h)
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	s.Router.HandleFunc("/", s.handleIndex()).Methods("GET")
	s.Router.HandleFunc("/offer", s.handleOffer()).Methods("POST")
	s.Router.HandleFunc("/answer", s.handleAnswer()).Methods("POST")
	s.Router.Handle("/metrics", promhttp.HandlerFor(s.stream.Registry, promhttp.HandlerOpts{})).Methods("GET")
	s.Router.HandleFunc("/swagger.json", s.handleSwagger()).Methods("GET")
	s.Router.Handle("/docs", middleware.Redoc(middleware.RedocOpts{
		BasePath: "/",
		Path:     "docs",
		SpecURL:  "/swagger.json",
		Title:    s.spec.Spec().Info.Title,
	}, http.NotFoundHandler())).Methods("GET")

	subRouter := s.Router.PathPrefix("/api").Subrouter()
	subRouter.HandleFunc("/records/last", s.handleRecordsLast()).Methods("GET")
	subRouter.HandleFunc("/records", s.handleRecordsList()).Methods("GET")
	subRouter.HandleFunc("/sessions", s.handleSessions()).Methods("GET")
	subRouter.HandleFunc("/persist", s.handlePersist()).Methods("POST")
	subRouter.HandleFunc("/flush", s.handleFlush()).Methods("GET")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Error while writing response: %s", err)
	}
}

func (s *ApiServer) handleIndex() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(indexHTML)
	}
}

func (s *ApiServer) handleSwagger() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(s.spec.Raw())
	}
}

func (s *ApiServer) handleOffer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling offer request")
		ctx, cancel := context.WithTimeout(r.Context(), OfferTimeout)
		defer cancel()

		session, offer, err := s.stream.Hub.CreateOffer(ctx)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.As(err, &datachannel.ErrHubClosed{}) {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, &SessionDescription{
			ID:   session.ID,
			SDP:  offer.SDP,
			Type: offer.Type.String(),
		})
	}
}

func (s *ApiServer) handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answer := &SessionDescription{}
		if err := json.NewDecoder(r.Body).Decode(answer); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if answer.Type != "" && answer.Type != "answer" {
			http.Error(w, "Session description type must be answer", http.StatusBadRequest)
			return
		}
		if answer.SDP == "" {
			http.Error(w, "Session description is empty", http.StatusBadRequest)
			return
		}

		log.Debug("Handling answer request: session: %s", answer.ID)
		if err := s.stream.Hub.Answer(answer.ID, answer.SDP); err != nil {
			var notFound datachannel.ErrSessionNotFound
			if errors.As(err, &notFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
}

func (s *ApiServer) handleRecordsLast() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, err := s.stream.Archive.Last()
		if err != nil {
			var notFound ErrRecordNotFound
			if errors.As(err, &notFound) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, entry)
	}
}

func (s *ApiServer) handleRecordsList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := DefaultListLimit
		if value := r.URL.Query().Get("limit"); value != "" {
			parsed, err := strconv.Atoi(value)
			if err != nil || parsed <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		entries, err := s.stream.Archive.List(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, entries)
	}
}

func (s *ApiServer) handleSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, s.stream.Hub.Sessions())
	}
}

func (s *ApiServer) handlePersist() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		persist := &Persist{}
		err := json.NewDecoder(r.Body).Decode(persist)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		log.Debug("Handling persist request: dir: %s filePrefix: %s", persist.Dir, persist.FilePrefix)

		filename, err := s.stream.Persist(persist.Dir, persist.FilePrefix)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, &PersistResult{Filename: filename})
	}
}

func (s *ApiServer) handleFlush() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Handling flush request")
		if err := s.stream.Flush(); err != nil {
			var notPersisting ErrNotPersisting
			if errors.As(err, &notPersisting) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusBadGateway)
		}
	}
}
