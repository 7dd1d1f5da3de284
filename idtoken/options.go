package idtoken

import "time"

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

type verifierOptions struct {
	withNowFunc func() time.Time
}

func verifierDefaults() verifierOptions {
	return verifierOptions{}
}

// getVerifierOpts gets the defaults and applies the opt overrides passed in.
func getVerifierOpts(opt ...Option) verifierOptions {
	opts := verifierDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithNow provides an optional current-time function, used when validating
// the exp claim. Defaults to time.Now.
func WithNow(now func() time.Time) Option {
	return func(o interface{}) {
		if o, ok := o.(*verifierOptions); ok {
			o.withNowFunc = now
		}
	}
}
