package config

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

// configOptions is the set of available options for New and FromEnv.
type configOptions struct {
	withProviderCA string
	withIssuerURL  string
	withAuthBase   string
	withDotEnv     string
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the defaults and applies the opt overrides passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithProviderCA provides an optional CA cert PEM to use when sending
// requests to the provider.
func WithProviderCA(pem string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = pem
		}
	}
}

// WithIssuerURL overrides the issuer URL derived from the region and user
// pool id. It is intended for pointing the client at a local stand-in for
// Cognito (cognito-local, localstack, a test provider).
func WithIssuerURL(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withIssuerURL = u
		}
	}
}

// WithAuthBase overrides the base URL ("https://" + auth domain) used for
// the authorize and token endpoints. It is intended for pointing the client
// at a local stand-in for Cognito.
func WithAuthBase(u string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAuthBase = u
		}
	}
}

// WithDotEnv makes FromEnv load the named dotenv file into the process
// environment before reading configuration from it.
func WithDotEnv(path string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withDotEnv = path
		}
	}
}
