package telemetry

import (
	"os"
	"strings"
)

// ciVars are environment variables set by common CI systems.
var ciVars = []string{
	"CI",
	"CONTINUOUS_INTEGRATION",
	"GITHUB_ACTIONS",
	"GITLAB_CI",
	"JENKINS_URL",
	"TRAVIS",
	"CIRCLECI",
	"BUILDKITE",
	"DRONE",
	"TEAMCITY_VERSION",
	"SEMAPHORE",
}

// DetectEnvironment classifies where the process runs.
// Priority order: ci > kubernetes > docker > local.
func DetectEnvironment() string {
	if IsCI() {
		return "ci"
	}
	if isKubernetes() {
		return "kubernetes"
	}
	if isDocker() {
		return "docker"
	}
	return "local"
}

// IsCI reports whether a CI environment variable is set.
func IsCI() bool {
	for _, key := range ciVars {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

func isKubernetes() bool {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}
	_, err := os.Stat("/var/run/secrets/kubernetes.io")
	return err == nil
}

func isDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	data, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}
	return strings.Contains(string(data), "docker")
}

func envDisabled() bool {
	for _, key := range []string{"AUGMENTKIT_NO_TELEMETRY", "AUGMENTKIT_OFFLINE"} {
		switch strings.ToLower(os.Getenv(key)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}
