package ticketimagepin

import (
	"fmt"
	"time"

	"ticketpin-workers/internal/pipeline"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Pipeline      pipeline.Config
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		Pipeline: pipeline.Config{
			ImageModel:     pipeline.DefaultImageModel,
			ImageSize:      pipeline.DefaultImageSize,
			PinningBaseURL: pipeline.DefaultPinningBaseURL,
			Encoding:       pipeline.EncodingUTF8,
			CallTimeout:    pipeline.DefaultCallTimeout,
		},
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	// Both upstream calls must fit inside the job lock.
	if c.Pipeline.CallTimeout > 0 && 2*c.Pipeline.CallTimeout >= c.Timeout {
		return fmt.Errorf("timeout %v must exceed twice the call timeout %v", c.Timeout, c.Pipeline.CallTimeout)
	}
	if _, err := pipeline.NewEncoder(c.Pipeline.Encoding); err != nil {
		return err
	}
	return nil
}
