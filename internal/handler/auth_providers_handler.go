package handler

import (
	"encoding/json"
	"net/http"
)

// ProvidersConfig holds the configuration that determines which auth providers are enabled.
type ProvidersConfig struct {
	// GoogleClientID: include "google" when non-empty (GOOGLE_CLIENT_ID env var)
	GoogleClientID string
	// GitHubClientID: include "github" when non-empty (GITHUB_CLIENT_ID env var)
	GitHubClientID string
}

// ProvidersHandler handles GET /api/auth/providers
type ProvidersHandler struct {
	cfg ProvidersConfig
}

// NewProvidersHandler creates a ProvidersHandler with the given configuration.
func NewProvidersHandler(cfg ProvidersConfig) *ProvidersHandler {
	return &ProvidersHandler{cfg: cfg}
}

// providersResponse is the JSON response shape for GET /api/auth/providers.
type providersResponse struct {
	Providers []string `json:"providers"`
}

// Providers lists the configured login providers, Google first.
func (h *ProvidersHandler) Providers(w http.ResponseWriter, r *http.Request) {
	providers := []string{}
	if h.cfg.GoogleClientID != "" {
		providers = append(providers, "google")
	}
	if h.cfg.GitHubClientID != "" {
		providers = append(providers, "github")
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(providersResponse{Providers: providers})
}
