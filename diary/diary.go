// Package diary holds application-wide defaults shared by the config,
// harness and api packages.
package diary

const (
	DefaultAppName     = "intern-diary"
	DefaultServiceName = "Internship Diary Generator API"
	Version            = "1.0.0"

	DefaultConfigPath = "$HOME/.config/" + DefaultAppName
	DefaultEnvFile    = ".env"

	// DefaultAPIKeyEnv is the environment variable consulted when a request
	// carries no api_key of its own.
	DefaultAPIKeyEnv = "OPENAI_API_KEY"
)
