package config

// Validator interface for configurations that need validation.
type Validator interface {
	Validate() error
}

// Defaulter fills zero values after a configuration is decoded.
type Defaulter interface {
	ApplyDefaults()
}
