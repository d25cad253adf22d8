package classify

import "github.com/smashingtags/homelabarr-containers/internal/core/domain"

// Troubleshooting lists likely causes and remedies for a diagnosis.
type Troubleshooting struct {
	PossibleCauses     []string         `json:"possible_causes"`
	SuggestedActions   []string         `json:"suggested_actions"`
	DocumentationLinks []string         `json:"documentation_links,omitempty"`
	Transport          domain.Transport `json:"transport"`
}

// Troubleshoot returns the troubleshooting guide for d.
func Troubleshoot(d domain.Diagnosis) Troubleshooting {
	t := Troubleshooting{Transport: d.Transport}

	switch d.Kind {
	case domain.KindPipeNotFound:
		t.PossibleCauses = []string{
			"Docker Desktop not installed",
			"Docker Desktop not running",
			"Docker Desktop starting up",
			"Windows container mode vs Linux container mode mismatch",
		}
		t.SuggestedActions = []string{
			"Install Docker Desktop for Windows",
			"Start Docker Desktop application",
			"Wait for Docker Desktop to fully initialize",
			"Check Docker Desktop is in correct container mode (Linux containers)",
		}
		t.DocumentationLinks = []string{
			"https://docs.docker.com/desktop/windows/install/",
			"https://docs.docker.com/desktop/windows/troubleshoot/",
		}
	case domain.KindPipePermissionDenied:
		t.PossibleCauses = []string{
			"User not in docker-users group",
			"Docker Desktop permission settings",
			"Windows user account control restrictions",
		}
		t.SuggestedActions = []string{
			"Add user to docker-users Windows group",
			"Run Docker Desktop as administrator",
			"Restart Windows session after group changes",
		}
	case domain.KindHypervisorUnavailable:
		t.PossibleCauses = []string{
			"Hyper-V not enabled",
			"Hyper-V service not running",
			"Conflicting virtualization software",
		}
		t.SuggestedActions = []string{
			"Enable Hyper-V Windows feature",
			"Ensure virtualization is enabled in BIOS",
			"Disable conflicting virtualization software (VirtualBox, VMware)",
		}
	case domain.KindSocketPermissionDenied:
		t.PossibleCauses = []string{
			"Container user not in docker group",
			"Docker socket permissions too restrictive",
			"Docker group ID mismatch between host and container",
		}
		t.SuggestedActions = []string{
			"Check docker-compose.yml group_add configuration",
			"Verify Docker socket is mounted correctly",
			"Ensure container user has docker group membership",
		}
		t.DocumentationLinks = []string{
			"https://docs.docker.com/engine/install/linux-postinstall/",
		}
	case domain.KindSocketNotFound:
		t.PossibleCauses = []string{
			"Docker daemon not running",
			"Docker socket not mounted in container",
			"Incorrect socket path configuration",
		}
		t.SuggestedActions = []string{
			"Verify Docker daemon is running on host: systemctl status docker",
			"Check docker-compose.yml volume mounts for /var/run/docker.sock",
			"Confirm DOCKER_SOCKET environment variable is correct",
		}
	case domain.KindDaemonNotRunning:
		if d.Transport == domain.TransportPipe {
			t.PossibleCauses = []string{
				"Docker Desktop service stopped",
				"Docker Desktop crashed",
			}
			t.SuggestedActions = []string{
				"Start Docker Desktop from Start Menu",
				"Check Windows Services for Docker Desktop Service",
			}
		} else {
			t.PossibleCauses = []string{
				"Docker daemon starting up",
				"Docker daemon crashed or stopped",
				"Docker service not enabled",
			}
			t.SuggestedActions = []string{
				"Start Docker daemon: sudo systemctl start docker",
				"Check Docker daemon logs: journalctl -u docker",
			}
		}
	case domain.KindHostNotFound:
		t.PossibleCauses = []string{
			"Incorrect DOCKER_HOST environment variable",
			"DNS resolution problems",
		}
		t.SuggestedActions = []string{
			"Check DOCKER_HOST environment variable",
			"Try using IP address instead of hostname",
		}
	case domain.KindTimeout:
		t.PossibleCauses = []string{
			"Docker daemon overloaded",
			"System resource constraints",
		}
		t.SuggestedActions = []string{
			"Check system resource usage (CPU, memory, disk)",
			"Increase timeout configuration if needed",
		}
	case domain.KindBrokenPipe, domain.KindSocketHangup:
		t.PossibleCauses = []string{
			"Docker daemon restart during operation",
			"System resource exhaustion",
		}
		t.SuggestedActions = []string{
			"Monitor Docker daemon status",
			"Verify system resources are adequate",
		}
	case domain.KindClientError:
		t.PossibleCauses = []string{
			"Invalid API request parameters",
			"Unsupported Docker API version",
		}
		t.SuggestedActions = []string{
			"Review request parameters",
			"Check Docker API compatibility",
		}
	case domain.KindServerError:
		t.PossibleCauses = []string{
			"Docker daemon internal error",
			"System resource exhaustion",
		}
		t.SuggestedActions = []string{
			"Check Docker daemon logs",
			"Restart Docker daemon",
		}
	default:
		t.PossibleCauses = []string{"Unrecognised Docker failure"}
		t.SuggestedActions = []string{"Check Docker daemon status and container configuration"}
	}

	return t
}

var resolutions = map[domain.Kind]string{
	domain.KindPipeNotFound:           "Install and start Docker Desktop for Windows. Ensure it is fully initialized.",
	domain.KindPipePermissionDenied:   "Add your user to the docker-users Windows group and restart your session.",
	domain.KindHypervisorUnavailable:  "Enable Hyper-V Windows feature and ensure virtualization is enabled in BIOS.",
	domain.KindSocketPermissionDenied: "Add the container user to the docker group and ensure proper group_add configuration.",
	domain.KindSocketNotFound:         "Install Docker and ensure the socket is mounted correctly in the container.",
	domain.KindDaemonNotRunning:       "Verify Docker daemon is running and accessible.",
	domain.KindHostNotFound:           "Check DOCKER_HOST environment variable and network connectivity.",
	domain.KindTimeout:                "Check system resources and consider increasing timeout values.",
	domain.KindClientError:            "Review the request parameters and ensure they are valid.",
	domain.KindServerError:            "Check Docker daemon logs and consider restarting the Docker service.",
}

// Resolution returns a one-line fix suggestion for kind.
func Resolution(kind domain.Kind) string {
	if r, ok := resolutions[kind]; ok {
		return r
	}
	return "Check Docker daemon status and container configuration."
}
