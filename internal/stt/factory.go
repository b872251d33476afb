package stt

import (
	"fmt"

	"github.com/nikhilbhutani/speechtotext/internal/config"
)

// NewFromConfig builds the backend selected by STT_BACKEND.
func NewFromConfig(cfg config.STTConfig) (Provider, error) {
	switch cfg.Backend {
	case config.BackendAssemblyAI:
		return NewAssemblyAI(AssemblyAIConfig{
			APIKey:       cfg.AssemblyAIKey,
			BaseURL:      cfg.AssemblyAIBaseURL,
			PollInterval: cfg.PollInterval,
		}), nil
	case config.BackendOpenAI:
		return NewWhisper(WhisperConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}), nil
	default:
		return nil, fmt.Errorf("unknown STT backend %q", cfg.Backend)
	}
}
