package together

// Config contains Together AI provider configuration. Together exposes an
// OpenAI-compatible API, so the fields map to openai-go SDK options:
//   - APIKey: option.WithAPIKey()
//   - BaseURL: option.WithBaseURL()
//   - Timeout: option.WithRequestTimeout() (in seconds)
type Config struct {
	APIKey  string `env:"TOGETHER_API_KEY"`
	BaseURL string `env:"TOGETHER_BASE_URL" envDefault:"https://api.together.xyz/v1"`
	Timeout int    `env:"TOGETHER_TIMEOUT"  envDefault:"120"`
}
