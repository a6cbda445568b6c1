package env

import "os"

// Get reads an environment variable, falling back when it is unset or
// blank. Used for the handful of overrides read outside envconfig, like
// the PORT a PaaS injects.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
