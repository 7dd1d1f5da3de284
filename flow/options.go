package flow

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/mdillavou/ueberauth-cognito/idtoken"
	"github.com/mdillavou/ueberauth-cognito/jwks"
	"github.com/mdillavou/ueberauth-cognito/token"
)

// Option defines a common functional options type which can be used in a
// variadic parameter pattern.
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		if o == nil { // ignore any nil Options
			continue
		}
		o(opts)
	}
}

// DefaultScopes is the scope set requested when WithScopes is not used.
// "openid" is required for oidc flows.
func DefaultScopes() []string {
	return []string{"openid", "profile", "email"}
}

// controllerOptions is the set of available options for New.
type controllerOptions struct {
	withScopes    []string
	withLogger    hclog.Logger
	withExchanger Exchanger
	withFetcher   KeySetFetcher
	withVerifier  IdentityVerifier
	withNowFunc   func() time.Time
}

// controllerDefaults is a handy way to get the defaults at runtime and
// during unit tests.
func controllerDefaults() controllerOptions {
	return controllerOptions{
		withScopes:    DefaultScopes(),
		withLogger:    hclog.NewNullLogger(),
		withExchanger: token.Exchanger{},
		withFetcher:   jwks.Fetcher{},
		withVerifier:  idtoken.New(),
		withNowFunc:   time.Now,
	}
}

// getControllerOpts gets the defaults and applies the opt overrides passed
// in.
func getControllerOpts(opt ...Option) controllerOptions {
	opts := controllerDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides an optional scope set to request from the provider,
// replacing DefaultScopes.
func WithScopes(scopes []string) Option {
	return func(o interface{}) {
		if o, ok := o.(*controllerOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithLogger provides an optional hclog.Logger for the controller. Defaults
// to a null logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*controllerOptions); ok {
			o.withLogger = l
		}
	}
}

// WithExchanger provides an optional token exchanger, replacing the HTTP
// implementation.
func WithExchanger(e Exchanger) Option {
	return func(o interface{}) {
		if o, ok := o.(*controllerOptions); ok {
			o.withExchanger = e
		}
	}
}

// WithKeySetFetcher provides an optional key set fetcher, replacing the HTTP
// implementation.
func WithKeySetFetcher(f KeySetFetcher) Option {
	return func(o interface{}) {
		if o, ok := o.(*controllerOptions); ok {
			o.withFetcher = f
		}
	}
}

// WithVerifier provides an optional identity verifier, replacing the default
// idtoken.Verifier.
func WithVerifier(v IdentityVerifier) Option {
	return func(o interface{}) {
		if o, ok := o.(*controllerOptions); ok {
			o.withVerifier = v
		}
	}
}

// WithNow provides an optional current-time function, used when deriving
// credential expiry. Defaults to time.Now.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*controllerOptions); ok {
			o.withNowFunc = now
		}
	}
}
