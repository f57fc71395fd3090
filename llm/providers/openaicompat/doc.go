// Package openaicompat provides a shared base implementation for
// OpenAI-compatible LLM providers.
//
// Vendor packages share the same API format (OpenAI Chat Completions). They
// embed openaicompat.Provider and only override what differs:
//
//   - Provider name and default model
//   - Base URL
//   - Custom headers (if any)
//   - Request hooks for provider-specific fields
//
// Usage:
//
//	p := openaicompat.New(openaicompat.Config{
//	    ProviderName:  "groq",
//	    APIKey:        cfg.APIKey,
//	    BaseURL:       "https://api.groq.com/openai",
//	    FallbackModel: "llama3-8b-8192",
//	    RequireAPIKey: true,
//	}, logger)
package openaicompat
