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

// go-scan API
//
// # RESTful APIs to drive a Genesys based scanner through go-scan
//
// Terms Of Service:
//
// Schemes: http
// Host: localhost:8003
// Version: 1.0.0
// Contact:
//
//	Consumes:
//	- application/json
//
//	Produces:
//	- application/json
//	- image/x-portable-anymap
//
// swagger:meta
package srv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-openapi/loads"
	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"jinr.ru/greenlab/go-scan/pkg/capability"
	"jinr.ru/greenlab/go-scan/pkg/config"
	"jinr.ru/greenlab/go-scan/pkg/engine"
	"jinr.ru/greenlab/go-scan/pkg/geometry"
	"jinr.ru/greenlab/go-scan/pkg/log"
)

const (
	ShutdownTimeout = 5 * time.Second
	DocsPath        = "docs"
	SpecPath        = "/swagger.json"
)

// Success response
// swagger:response okResp
type RespOk struct {
	// in:body
	Body struct {
		// HTTP status code 200 - OK
		Code int `json:"code"`
	}
}

// InitRequest selects the scanner model
type InitRequest struct {
	Model string `json:"model"`
}

// CalibrateRequest selects the resolution and mode to calibrate
type CalibrateRequest struct {
	DPI   int  `json:"dpi"`
	Color bool `json:"color"`
}

// ModelInfo describes a model of the capability tables
type ModelInfo struct {
	capability.Model
	Gray  []int `json:"gray_dpi"`
	Color []int `json:"color_dpi"`
}

type ApiServer struct {
	context.Context
	*config.Config
	*mux.Router

	// mu serializes device operations, Cancel and a busy Status bypass it
	mu       sync.Mutex
	engine   *engine.Engine
	resolver *capability.Resolver
	spec     *loads.Document
}

func NewApiServer(ctx context.Context, cfg *config.Config, eng *engine.Engine, resolver *capability.Resolver) (*ApiServer, error) {
	log.Info("Initializing API server with address: %s port: %d", cfg.Api.Address, cfg.Api.Port)
	spec, err := loadSpec()
	if err != nil {
		return nil, err
	}
	s := &ApiServer{
		Context:  ctx,
		Config:   cfg,
		engine:   eng,
		resolver: resolver,
		spec:     spec,
	}
	s.configureRouter()
	return s, nil
}

// Handler wraps the router with docs, access log and panic recovery
func (s *ApiServer) Handler() http.Handler {
	docs := middleware.Redoc(middleware.RedocOpts{
		BasePath: "/",
		Path:     DocsPath,
		SpecURL:  SpecPath,
		Title:    "go-scan API",
	}, s.Router)
	recovery := handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))
	return recovery(handlers.LoggingHandler(log.Writer(), docs))
}

// Run serves the API until the context is done
func (s *ApiServer) Run() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Api.Address, s.Config.Api.Port)
	log.Info("Starting API server: %s", addr)
	httpServer := &http.Server{
		Handler: s.Handler(),
		Addr:    addr,
	}
	if s.Config.Api.Advertise {
		adv, err := Advertise(s.engine.Model().Name, s.Config.Api.Port)
		if err != nil {
			log.Warning("Unable to advertise the API: %s", err)
		} else {
			defer adv.Shutdown()
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- httpServer.ListenAndServe()
	}()
	select {
	case <-s.Context.Done():
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.engine.Cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			return err
		}
		return s.Context.Err()
	case err := <-errChan:
		return err
	}
}

func (s *ApiServer) configureRouter() {
	s.Router = mux.NewRouter()
	s.Router.HandleFunc(SpecPath, s.handleSpec()).Methods("GET")
	subRouter := s.Router.PathPrefix("/api").Subrouter()
	// swagger:operation GET /status status
	// ---
	// summary: engine state, selected model and calibrations
	subRouter.HandleFunc("/status", s.handleStatus()).Methods("GET")
	subRouter.HandleFunc("/models", s.handleModels()).Methods("GET")
	subRouter.HandleFunc("/init", s.handleInit()).Methods("POST")
	// swagger:operation POST /{action} action
	// ---
	// summary: park the head, load or eject a document
	// responses:
	//   "200":
	//     "$ref": "#/responses/okResp"
	subRouter.HandleFunc("/{action:park|load|eject}", s.handleAction()).Methods("POST")
	subRouter.HandleFunc("/search", s.handleSearch()).Methods("POST")
	subRouter.HandleFunc("/calibrate", s.handleCalibrate()).Methods("POST")
	subRouter.HandleFunc("/scan", s.handleScan()).Methods("POST")
	subRouter.HandleFunc("/cancel", s.handleCancel()).Methods("POST")
	subRouter.HandleFunc("/reg", s.handleRegReadAll()).Methods("GET")
	subRouter.HandleFunc("/reg/{addr:0x[0-9a-fA-F]{1,4}}", s.handleRegRead()).Methods("GET")
	subRouter.HandleFunc("/reg", s.handleRegWrite()).Methods("POST")
}

func (s *ApiServer) handleSpec() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(s.spec.Raw())
	}
}

func (s *ApiServer) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.mu.TryLock() {
			state := s.engine.State()
			writeJSON(w, engine.Status{State: state.String(), Scanning: state == engine.Scanning})
			return
		}
		defer s.mu.Unlock()
		writeJSON(w, s.engine.Status())
	}
}

func (s *ApiServer) handleModels() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var out []ModelInfo
		for _, name := range s.resolver.Models() {
			m, err := s.resolver.Model(name)
			if err != nil {
				writeError(w, err)
				return
			}
			out = append(out, ModelInfo{
				Model: m,
				Gray:  s.resolver.Resolutions(name, false),
				Color: s.resolver.Resolutions(name, true),
			})
		}
		writeJSON(w, out)
	}
}

func (s *ApiServer) handleInit() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &InitRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling init request: model: %s", req.Model)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.engine.Init(req.Model); err != nil {
			writeError(w, err)
			return
		}
		writeOk(w)
	}
}

func (s *ApiServer) handleAction() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		action := mux.Vars(r)["action"]
		log.Debug("Handling %s request", action)
		s.mu.Lock()
		defer s.mu.Unlock()
		var err error
		switch action {
		case "park":
			err = s.engine.ParkHead()
		case "load":
			err = s.engine.LoadDocument()
		case "eject":
			err = s.engine.EjectDocument()
		default:
			err = ErrUnknownOperation{What: action}
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeOk(w)
	}
}

func (s *ApiServer) handleSearch() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		ref, err := s.engine.SearchStartPosition()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, ref)
	}
}

func (s *ApiServer) handleCalibrate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := &CalibrateRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling calibrate request: %d dpi color %t", req.DPI, req.Color)
		s.mu.Lock()
		defer s.mu.Unlock()
		st, err := s.engine.Calibrate(req.DPI, req.Color)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, st)
	}
}

// handleScan runs a whole scan and answers with the image as PNM. The
// image is buffered since a document may end before the requested area.
func (s *ApiServer) handleScan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := geometry.Request{}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Debug("Handling scan request: %+v", req)
		s.mu.Lock()
		defer s.mu.Unlock()
		stream, err := s.engine.BeginScan(req)
		if err != nil {
			writeError(w, err)
			return
		}
		img := NewImage(stream.Setup)
		for {
			line, err := s.engine.ReadLine(stream)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				writeError(w, err)
				return
			}
			img.Add(line)
		}
		if err := s.engine.EndScan(stream); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", ImageContentType)
		w.Header().Set(LinesHeader, fmt.Sprint(img.Lines()))
		w.Header().Set(PaperOutHeader, fmt.Sprint(stream.PaperOut()))
		if _, err := img.WriteTo(w); err != nil {
			log.Warning("Unable to send the image: %s", err)
		}
	}
}

func (s *ApiServer) handleCancel() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.engine.Cancel()
		writeOk(w)
	}
}
