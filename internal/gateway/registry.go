package gateway

import "fmt"

// Registry manages the configured gateway instances.
type Registry struct {
	gateways map[Provider]Gateway
	primary  Provider
}

func NewRegistry() *Registry {
	return &Registry{
		gateways: make(map[Provider]Gateway),
	}
}

// Register adds a gateway instance. The first registered gateway becomes
// the primary.
func (r *Registry) Register(gw Gateway) {
	r.gateways[gw.Provider()] = gw
	if r.primary == "" {
		r.primary = gw.Provider()
	}
}

// Get returns a gateway by provider.
func (r *Registry) Get(provider Provider) (Gateway, error) {
	gw, exists := r.gateways[provider]
	if !exists {
		return nil, fmt.Errorf("gateway %s not registered", provider)
	}
	return gw, nil
}

// Fallback returns a registered gateway other than the given provider.
func (r *Registry) Fallback(provider Provider) (Gateway, error) {
	for p, gw := range r.gateways {
		if p != provider {
			return gw, nil
		}
	}
	return nil, fmt.Errorf("no fallback gateway for %s", provider)
}

// Providers returns the registered provider names.
func (r *Registry) Providers() []Provider {
	providers := make([]Provider, 0, len(r.gateways))
	for provider := range r.gateways {
		providers = append(providers, provider)
	}
	return providers
}
