/*
webservice.go HTTP surface of the engine. Projects are POSTed as JSON
documents; snapshots are returned as JSON and streamed to /live subscribers.
*/

package webservice

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/ohowland/pdn_core/internal/pkg/database/sqldb"
	"github.com/ohowland/pdn_core/internal/pkg/efficiency"
	"github.com/ohowland/pdn_core/internal/pkg/msg"
	"github.com/ohowland/pdn_core/internal/pkg/project"
	"github.com/ohowland/pdn_core/internal/pkg/service"
)

// MaxBodyBytes bounds the size of a posted project.
const MaxBodyBytes = 8 << 20

// Config is the webservice configuration.
type Config struct {
	URL  string `json:"URL"`
	Port string `json:"Port"`
}

// Addr is the listen address.
func (c Config) Addr() string {
	port := c.Port
	if port == "" {
		port = "8080"
	}
	return c.URL + ":" + port
}

// App holds the dependencies of the HTTP handlers. Store is optional.
type App struct {
	Service *service.Engine
	Store   *sqldb.Store
	Config  Config

	upgrader websocket.Upgrader
}

// EtaRequest is the body of POST /eta.
type EtaRequest struct {
	Model   *project.EfficiencyModel `json:"model"`
	Ratings efficiency.Ratings       `json:"ratings"`
	POut    float64                  `json:"P_out"`
	IOut    float64                  `json:"I_out"`
}

// EtaResponse is the evaluated efficiency and the substitution reason, if any.
type EtaResponse struct {
	Eta     float64 `json:"eta"`
	Warning string  `json:"warning,omitempty"`
}

// Router returns the routes of the app.
func (app *App) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", app.BaseHandler)
	r.HandleFunc("/compute", app.ComputeHandler).Methods("POST")
	r.HandleFunc("/summary", app.SummaryHandler).Methods("POST")
	r.HandleFunc("/sweep", app.SweepHandler).Methods("POST")
	r.HandleFunc("/validate", app.ValidateHandler).Methods("POST")
	r.HandleFunc("/eta", app.EtaHandler).Methods("POST")
	r.HandleFunc("/snapshot/{pid}", app.SnapshotHandler).Methods("GET")
	r.HandleFunc("/live", app.LiveHandler).Methods("GET")
	return r
}

// Serve listens on the configured address until ctx is done.
func (app *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    app.Config.Addr(),
		Handler: app.Router(),
	}
	errs := make(chan error, 1)
	go func() {
		log.Println("[Webservice] Starting on", srv.Addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Println("[Webservice] Shutdown")
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Println("[Webservice] malformed JSON:", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Println("[Webservice] write:", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// readProject decodes the request body. The scenario query parameter, when
// present, overrides the project's current scenario.
func readProject(r *http.Request) (*project.Project, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return nil, err
	}
	p, err := project.Decode(body)
	if err != nil {
		return nil, err
	}
	if s := r.URL.Query().Get("scenario"); s != "" {
		p.CurrentScenario = project.Scenario(s)
	}
	return p, nil
}

func (app *App) BaseHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
}

func (app *App) ComputeHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	p, err := readProject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, app.Service.Compute(p))
}

func (app *App) SummaryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	p, err := readProject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, app.Service.Compute(p).Summary)
}

func (app *App) SweepHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	p, err := readProject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, app.Service.Sweep(p))
}

func (app *App) ValidateHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	p, err := readProject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	issues := append(append([]string{}, p.Issues...), project.Validate(p)...)
	writeJSON(w, http.StatusOK, map[string][]string{"issues": issues})
}

func (app *App) EtaHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	req := EtaRequest{}
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	eta, err := efficiency.Evaluate(req.Model, req.POut, req.IOut, req.Ratings)
	resp := EtaResponse{Eta: eta}
	if err != nil {
		resp.Warning = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (app *App) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	pid, err := uuid.Parse(vars["pid"])
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if snap, ok := app.Service.Snapshot(pid); ok {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	if app.Store != nil {
		data, err := app.Store.Get(r.Context(), pid)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusOK)
			w.Write(data)
			return
		case !errors.Is(err, sqldb.ErrNotFound):
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeError(w, http.StatusNotFound, sqldb.ErrNotFound)
}

// LiveHandler streams every snapshot computed after the connection is opened.
func (app *App) LiveHandler(w http.ResponseWriter, r *http.Request) {
	pid, err := uuid.NewUUID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	ch, err := app.Service.Subscribe(pid, msg.Result)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer app.Service.Unsubscribe(pid)

	conn, err := app.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Webservice] upgrade:", err)
		return
	}
	defer conn.Close()

	// The client only sends close frames; a read error ends the stream.
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				app.Service.Unsubscribe(pid)
				return
			}
		}
	}()

	for m := range ch {
		if err := conn.WriteJSON(m.Payload()); err != nil {
			log.Println("[Webservice] live:", err)
			return
		}
	}
}
