package prompt

import "github.com/rs/zerolog"

// Option configures a Collector.
type Option func(*Collector)

// WithDriver overrides the prompt driver.
func WithDriver(driver Driver) Option {
	return func(c *Collector) {
		if driver != nil {
			c.driver = driver
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Collector) {
		c.logger = logger
	}
}

// WithMaxItems caps how many entries an array of objects collects.
func WithMaxItems(n int) Option {
	return func(c *Collector) {
		if n > 0 {
			c.maxItems = n
		}
	}
}
