package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/aretw0/sprintboard/internal/settings"
	"github.com/aretw0/sprintboard/pkg/core"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose sync over HTTP",
	Long: `Serve a small HTTP API so other tools can trigger syncs:
  POST /api/sync[?dry_run=true]  run a sync and return its report
  GET  /api/board                the parsed board
  GET  /api/status               service and store state`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc := openService()
		load := func() (core.Settings, error) {
			s, _, err := settings.Load(configPath)
			if errors.Is(err, settings.ErrNotConfigured) {
				err = nil
			}
			return s, err
		}

		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           newRouter(svc, load, slog.Default()),
			ReadHeaderTimeout: 10 * time.Second,
		}

		done := make(chan error, 1)
		lifecycle.Go(ctx, func(ctx context.Context) error {
			err := srv.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			done <- err
			return err
		})
		printInfo("Listening on %s", styleAccent.Render(serveAddr))

		select {
		case err := <-done:
			if err != nil {
				fatal("Server failed", err)
			}
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				fatal("Shutdown failed", err)
			}
			printInfo("Stopped")
		}
	},
}

type settingsLoader func() (core.Settings, error)

type apiError struct {
	Error string    `json:"error"`
	Kind  core.Kind `json:"kind,omitempty"`
	Hint  string    `json:"hint,omitempty"`
}

type syncResponse struct {
	*core.Report
	Document string `json:"document,omitempty"`
}

type boardView struct {
	Path    string          `json:"path"`
	Sprint  core.SprintInfo `json:"sprint"`
	Columns []columnView    `json:"columns"`
}

type columnView struct {
	Name    string     `json:"name"`
	Managed bool       `json:"managed"`
	Cards   []cardView `json:"cards"`
}

type cardView struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
	Item    string `json:"item,omitempty"`
}

type statusView struct {
	Service any `json:"service"`
	Store   any `json:"store,omitempty"`
}

func newRouter(svc *core.Service, load settingsLoader, logger *slog.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/sync", func(w http.ResponseWriter, r *http.Request) {
		s, err := load()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
			return
		}

		dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))
		if dryRun {
			report, err := svc.Preview(r.Context(), s)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, syncResponse{Report: report, Document: string(report.Document)})
			return
		}

		select {
		case res := <-svc.RunSyncAsync(r.Context(), s):
			if res.Err != nil {
				logger.Warn("sync over http failed", "error", res.Err)
				writeError(w, res.Err)
				return
			}
			writeJSON(w, http.StatusOK, syncResponse{Report: res.Report})
		case <-r.Context().Done():
		}
	}).Methods("POST")

	r.HandleFunc("/api/board", func(w http.ResponseWriter, r *http.Request) {
		s, err := load()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, apiError{Error: err.Error()})
			return
		}
		board, err := svc.Load(r.Context(), s)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toBoardView(core.BoardPath(s), board))
	}).Methods("GET")

	r.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		view := statusView{Service: svc.State()}
		if store, ok := svc.Store().(introspection.Introspectable); ok {
			view.Store = store.State()
		}
		writeJSON(w, http.StatusOK, view)
	}).Methods("GET")

	return r
}

func toBoardView(path string, b *core.Board) boardView {
	view := boardView{Path: path, Sprint: b.Sprint, Columns: []columnView{}}
	for _, col := range b.Columns {
		cv := columnView{Name: col.Name, Managed: col.Managed, Cards: []cardView{}}
		for _, card := range col.Cards {
			c := cardView{Text: card.Text, Checked: card.Checked}
			if card.Linked() {
				c.Item = card.Ref.String()
			}
			cv.Cards = append(cv.Cards, c)
		}
		view.Columns = append(view.Columns, cv)
	}
	return view
}

// statusFor maps an error kind onto the closest HTTP status.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindAuthentication:
		return http.StatusUnauthorized
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindTransient:
		return http.StatusServiceUnavailable
	case core.KindBackendResponse:
		return http.StatusBadGateway
	case core.KindMalformedDocument:
		return http.StatusConflict
	case core.KindUnknownBackend:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	kind := core.KindOf(err)
	writeJSON(w, statusFor(kind), apiError{Error: err.Error(), Kind: kind, Hint: core.Hint(kind)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "Listen address")
}
