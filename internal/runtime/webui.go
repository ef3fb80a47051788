package runtime

import (
	"net/http"
	"strings"

	codecpkg "github.com/drblury/skinos/internal/runtime/codec"
)

// ConsumerInfo is one entry of the /api/consumers listing.
type ConsumerInfo struct {
	ID         int           `json:"id"`
	Exchange   string        `json:"exchange"`
	Queue      string        `json:"queue"`
	BindingKey string        `json:"binding_key"`
	Tasks      []string      `json:"tasks"`
	Accept     []string      `json:"accept"`
	Failure    bool          `json:"failure,omitempty"`
	Stats      StatsSnapshot `json:"stats"`
}

// ConsumersResponse is the body served by /api/consumers.
type ConsumersResponse struct {
	Mode      string         `json:"mode"`
	Consumers []ConsumerInfo `json:"consumers"`
	Resource  ResourceUsage  `json:"resource"`
}

func (s *Service) StartWebUIServer() {
	if !s.Conf.WebUIEnabled {
		return
	}

	port := s.Conf.WebUIPort
	if port == 0 {
		port = 8081
	}

	s.RegisterHTTPHandler(port, "/api/consumers", http.HandlerFunc(s.handleGetConsumers))
}

func (s *Service) consumersResponse() ConsumersResponse {
	regs := s.registry.Registrations()
	resp := ConsumersResponse{
		Mode:      s.registry.Mode().String(),
		Consumers: make([]ConsumerInfo, 0, len(regs)),
		Resource:  s.getResourceTracker().Snapshot(),
	}
	for _, reg := range regs {
		resp.Consumers = append(resp.Consumers, ConsumerInfo{
			ID:         reg.ID,
			Exchange:   reg.Exchange(),
			Queue:      reg.Queue.Name,
			BindingKey: reg.BindingKey,
			Tasks:      reg.Tasks(),
			Accept:     reg.Accept,
			Failure:    reg.Failure,
			Stats:      reg.Stats().Snapshot(),
		})
	}
	return resp
}

func (s *Service) handleGetConsumers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Set CORS headers based on configuration
	if s.Conf != nil && len(s.Conf.WebUICORSAllowedOrigins) > 0 {
		origin := r.Header.Get("Origin")
		allowedOrigin := s.getAllowedCORSOrigin(origin)
		if allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
	}

	// Handle preflight requests
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := codecpkg.Encode(w, s.consumersResponse()); err != nil {
		s.Logger.Error("Failed to encode consumers", err, nil)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// getAllowedCORSOrigin checks if the request origin is allowed and returns the appropriate
// Access-Control-Allow-Origin value.
func (s *Service) getAllowedCORSOrigin(requestOrigin string) string {
	if s.Conf == nil {
		return ""
	}
	for _, allowed := range s.Conf.WebUICORSAllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if strings.EqualFold(allowed, requestOrigin) {
			return requestOrigin
		}
	}
	return ""
}
