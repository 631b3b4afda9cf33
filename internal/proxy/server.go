package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"vmanager/internal/channel"
)

type Server struct {
	dispatcher *Dispatcher
	links      *LinkManager
	httpServer *http.Server
}

func NewServer(dispatcher *Dispatcher) *Server {
	return &Server{
		dispatcher: dispatcher,
		links:      NewLinkManager(),
	}
}

func (s *Server) Handler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channel", channel.Handler(func(c *channel.Conn) {
		s.links.Attach(c)
		defer s.links.Detach(c)

		_ = c.ReadLoop(func(data []byte) {
			s.dispatcher.Handle(ctx, c, data)
		})
	}))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// Start serves until ctx is cancelled, then drains in-flight responses.
func (s *Server) Start(ctx context.Context, listenAddr string) error {
	s.httpServer = &http.Server{
		Addr:              listenAddr,
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.links.CloseAll()
	err := s.httpServer.Shutdown(shutdownCtx)
	s.dispatcher.Close()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]int{"links": s.links.Count()})
}
