package services

import (
	"os"
	"strings"
)

// Base URLs of the try-on inference service per deployment environment.
// Absent ENV means development; unknown values fall back to the
// production host.
var tryOnBaseURLs = map[string]string{
	"development": "http://localhost:8000",
	"production":  "https://uwear-ai-virtual-try-on-clothes.onrender.com",
}

const defaultTryOnEnvironment = "production"

// ResolveTryOnBaseURL picks the try-on service host. TRYON_BASE_URL, when
// set, wins over the ENV-keyed table; setting it to the empty string means
// frontend and backend share this process's origin and the workflow calls
// the local processor instead of going over the wire.
func ResolveTryOnBaseURL() string {
	if value, ok := os.LookupEnv("TRYON_BASE_URL"); ok {
		return strings.TrimSpace(value)
	}
	env := strings.ToLower(strings.TrimSpace(GetEnv("ENV", "development")))
	if base, ok := tryOnBaseURLs[env]; ok {
		return base
	}
	return tryOnBaseURLs[defaultTryOnEnvironment]
}
