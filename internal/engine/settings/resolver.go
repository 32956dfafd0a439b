package settings

import (
	"context"

	"pubhook/internal/platform/config"
)

const (
	OptionWebhookAddress = "webhook_address"
	OptionWebhookToken   = "webhook_token"
)

// Store is the read side of the option store.
type Store interface {
	Get(ctx context.Context, name string) (string, error)
}

// Overrides is the process-wide fallback pair. A value is defined when non-empty.
type Overrides struct {
	api   string
	token string
}

func NewOverrides(cfg config.OverridesConfig) Overrides {
	return Overrides{api: cfg.API, token: cfg.Token}
}

func (o Overrides) APIDefined() bool   { return o.api != "" }
func (o Overrides) TokenDefined() bool { return o.token != "" }

// Destination is where a dispatch goes and the credential it carries.
type Destination struct {
	URL   string
	Token string
}

type Resolver struct {
	store     Store
	overrides Overrides
}

func NewResolver(store Store, overrides Overrides) *Resolver {
	return &Resolver{store: store, overrides: overrides}
}

// Resolve returns the stored pair when both values are set, otherwise the
// override pair when both are defined. Values are never mixed across the two
// sources. A store read error counts as unset.
func (r *Resolver) Resolve(ctx context.Context) (Destination, bool, error) {
	address, addrErr := r.store.Get(ctx, OptionWebhookAddress)
	token, tokenErr := r.store.Get(ctx, OptionWebhookToken)

	err := addrErr
	if err == nil {
		err = tokenErr
	}

	if err == nil && address != "" && token != "" {
		return Destination{URL: address, Token: token}, true, nil
	}

	if r.overrides.APIDefined() && r.overrides.TokenDefined() {
		return Destination{URL: r.overrides.api, Token: r.overrides.token}, true, err
	}

	return Destination{}, false, err
}
