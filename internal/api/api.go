// Package api serves the panel's local introspection API: current tasks,
// desktops, memory samples, and a live event stream. Handlers run off the
// X event loop and only touch state published through the bus.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ItsNotGoodName/x-panel/internal/build"
	"github.com/ItsNotGoodName/x-panel/internal/bus"
	"github.com/ItsNotGoodName/x-panel/internal/config"
	"github.com/ItsNotGoodName/x-panel/internal/plugins/memchart"
	"github.com/ItsNotGoodName/x-panel/internal/taskbar"
	"github.com/ItsNotGoodName/x-panel/pkg/chiext"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// State caches the latest bus-published panel state for the HTTP
// handlers.
type State struct {
	mu    sync.RWMutex
	tasks []taskbar.TaskInfo

	hub *bus.Hub[taskbar.EventTasksChanged]
}

func NewState() *State {
	s := &State{
		hub: bus.NewHub[taskbar.EventTasksChanged]().Register(),
	}
	bus.Subscribe("api.State", func(ctx context.Context, event taskbar.EventTasksChanged) error {
		s.mu.Lock()
		s.tasks = event.Tasks
		s.mu.Unlock()
		return nil
	})
	return s
}

func (s *State) Tasks() []taskbar.TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks
}

type TasksOutput struct {
	Body struct {
		Tasks []taskbar.TaskInfo `json:"tasks"`
	}
}

type MemoryOutput struct {
	Body struct {
		Samples []float64 `json:"samples"`
	}
}

type ConfigOutput struct {
	Body config.Config
}

func NewHandler(state *State, cfg config.Config, chart *memchart.Chart) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(chiext.Logger())

	humaAPI := humachi.New(router, huma.DefaultConfig("x-panel", build.Current.Version))

	huma.Register(humaAPI, huma.Operation{
		OperationID: "list-tasks",
		Method:      http.MethodGet,
		Path:        "/api/tasks",
	}, func(ctx context.Context, input *struct{}) (*TasksOutput, error) {
		out := &TasksOutput{}
		out.Body.Tasks = state.Tasks()
		return out, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "get-memory",
		Method:      http.MethodGet,
		Path:        "/api/memory",
	}, func(ctx context.Context, input *struct{}) (*MemoryOutput, error) {
		out := &MemoryOutput{}
		if chart != nil {
			out.Body.Samples = chart.Samples()
		}
		return out, nil
	})

	huma.Register(humaAPI, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        "/api/config",
	}, func(ctx context.Context, input *struct{}) (*ConfigOutput, error) {
		return &ConfigOutput{Body: cfg}, nil
	})

	router.Get("/api/events", state.events)

	return router
}

// events streams task-set changes as server-sent events.
func (s *State) events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	eventC, unsubscribe := s.hub.Subscribe(r.Context())
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case event := <-eventC:
			b, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

// Server is the suture service running the HTTP listener.
type Server struct {
	address string
	handler http.Handler
}

func NewServer(address string, handler http.Handler) Server {
	return Server{
		address: address,
		handler: handler,
	}
}

func (s Server) String() string {
	return "api.Server"
}

func (s Server) Serve(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.address,
		Handler: s.handler,
	}

	errC := make(chan error, 1)
	go func() { errC <- server.ListenAndServe() }()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}
