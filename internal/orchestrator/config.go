// internal/orchestrator/config.go
package orchestrator

import "workflow-submit/internal/common/config"

type Config struct {
	SmallDatasetThreshold int
}

func LoadConfig(cfg config.SubmissionConfig) *Config {
	threshold := cfg.SmallDatasetThreshold
	if threshold <= 0 {
		threshold = config.DefaultSmallDatasetThreshold
	}
	return &Config{SmallDatasetThreshold: threshold}
}
