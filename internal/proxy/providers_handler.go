package proxy

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/omarluq/playground-relay/internal/chat"
	"github.com/omarluq/playground-relay/internal/health"
	"github.com/omarluq/playground-relay/internal/providers"
)

// ProviderLister exposes the live provider registry.
type ProviderLister interface {
	Providers() []providers.Info
	CircuitStates() map[chat.ProviderKind]health.State
}

// ProviderStatus is one entry of the providers listing.
type ProviderStatus struct {
	providers.Info
	Circuit string `json:"circuit"`
}

// ProvidersResponse represents the response format for the providers endpoint.
type ProvidersResponse struct {
	Object string           `json:"object"`
	Data   []ProviderStatus `json:"data"`
}

// ProvidersHandler handles GET /api/playground/providers.
type ProvidersHandler struct {
	lister ProviderLister
}

// NewProvidersHandler creates a providers handler over a live lister.
func NewProvidersHandler(lister ProviderLister) *ProvidersHandler {
	return &ProvidersHandler{lister: lister}
}

// ServeHTTP lists the registered providers with their breaker state.
// Providers that were never called report a closed breaker.
func (h *ProvidersHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	states := h.lister.CircuitStates()

	data := lo.Map(h.lister.Providers(), func(info providers.Info, _ int) ProviderStatus {
		state, ok := states[info.Kind]
		if !ok {
			state = health.StateClosed
		}
		return ProviderStatus{Info: info, Circuit: state.String()}
	})

	writeJSON(w, http.StatusOK, ProvidersResponse{
		Object: "list",
		Data:   data,
	})
}
