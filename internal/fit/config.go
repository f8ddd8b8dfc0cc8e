package fit

// Config holds every option that affects a search. Blur fields are carried
// here so a run is described by one value, but are applied by the caller.
type Config struct {
	Iterations        int64   `json:"iterations"`
	MinSize           int     `json:"minSize"`
	MaxSize           int     `json:"maxSize"`
	Shapes            []Shape `json:"shapes"`
	UniformPalette    bool    `json:"uniformPalette,omitempty"`
	Adaptive          bool    `json:"adaptive,omitempty"`
	AdaptRate         int64   `json:"adaptRate"`
	AdaptCoeff        float64 `json:"adaptCoeff"`
	Biased            bool    `json:"biased,omitempty"`
	Animate           bool    `json:"animate,omitempty"`
	AnimationInterval int64   `json:"animationInterval"`
	Blur              bool    `json:"blur,omitempty"`
	BlurAmount        float64 `json:"blurAmount"`
	Quiet             bool    `json:"quiet,omitempty"`
}

// DefaultConfig returns the stock settings of the redraw command
func DefaultConfig() Config {
	return Config{
		Iterations:        500000,
		MinSize:           1,
		MaxSize:           20,
		Shapes:            []Shape{Line},
		AdaptRate:         100000,
		AdaptCoeff:        0.9,
		AnimationInterval: 1000,
		BlurAmount:        0.5,
	}
}

// Validate rejects configurations the search loop cannot run with
func (c Config) Validate() error {
	if c.Iterations < 0 {
		return &ConfigError{Field: "Iterations", Reason: "cannot be negative"}
	}
	if c.MinSize < 0 {
		return &ConfigError{Field: "MinSize", Reason: "cannot be negative"}
	}
	if c.MaxSize <= c.MinSize {
		return &ConfigError{Field: "MaxSize", Reason: "must be greater than MinSize"}
	}
	if len(c.Shapes) == 0 {
		return &ConfigError{Field: "Shapes", Reason: "cannot be empty"}
	}
	for _, s := range c.Shapes {
		if s != Line && s != Rectangle {
			return &ConfigError{Field: "Shapes", Reason: "contains unknown shape " + s.String()}
		}
	}
	if c.Adaptive {
		if c.AdaptRate <= 0 {
			return &ConfigError{Field: "AdaptRate", Reason: "must be positive"}
		}
		if c.AdaptCoeff <= 0 || c.AdaptCoeff >= 1 {
			return &ConfigError{Field: "AdaptCoeff", Reason: "must be in (0, 1)"}
		}
	}
	if c.Animate && c.AnimationInterval <= 0 {
		return &ConfigError{Field: "AnimationInterval", Reason: "must be positive"}
	}
	if c.Blur && c.BlurAmount < 0 {
		return &ConfigError{Field: "BlurAmount", Reason: "cannot be negative"}
	}
	return nil
}

// ConfigError reports an invalid configuration field
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " " + e.Reason
}
