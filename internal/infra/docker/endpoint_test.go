package docker

import (
	"errors"
	"runtime"
	"testing"

	"github.com/smashingtags/homelabarr-containers/internal/core/domain"
)

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		raw       string
		transport domain.Transport
		address   string
	}{
		{"unix:///var/run/docker.sock", domain.TransportSocket, "/var/run/docker.sock"},
		{"/run/user/1000/docker.sock", domain.TransportSocket, "/run/user/1000/docker.sock"},
		{"npipe:////./pipe/docker_engine", domain.TransportPipe, `\\.\pipe\docker_engine`},
		{`\\.\pipe\docker_engine`, domain.TransportPipe, `\\.\pipe\docker_engine`},
	}
	for _, tt := range tests {
		ep, err := ParseEndpoint(tt.raw)
		if err != nil {
			t.Fatalf("ParseEndpoint(%q): %v", tt.raw, err)
		}
		if ep.Transport != tt.transport || ep.Address != tt.address {
			t.Errorf("ParseEndpoint(%q) = %+v", tt.raw, ep)
		}
	}
}

func TestParseEndpoint_Invalid(t *testing.T) {
	for _, raw := range []string{"tcp://localhost:2375", "unix://", "npipe://docker"} {
		if _, err := ParseEndpoint(raw); err == nil {
			t.Errorf("ParseEndpoint(%q) should fail", raw)
		}
	}
}

func TestParseEndpoint_Default(t *testing.T) {
	ep, err := ParseEndpoint("")
	if err != nil {
		t.Fatal(err)
	}
	if ep != DefaultEndpoint() {
		t.Errorf("expected default endpoint, got %+v", ep)
	}
}

func TestEndpoint_CheckPlatform(t *testing.T) {
	sock := Endpoint{Transport: domain.TransportSocket, Address: "/var/run/docker.sock"}
	if err := sock.CheckPlatform(); err != nil {
		t.Errorf("socket endpoint rejected: %v", err)
	}

	pipe := Endpoint{Transport: domain.TransportPipe, Address: DefaultPipePath}
	err := pipe.CheckPlatform()
	if runtime.GOOS == "windows" {
		if err != nil {
			t.Errorf("pipe endpoint rejected on windows: %v", err)
		}
		return
	}
	if !errors.Is(err, ErrPipeUnsupported) {
		t.Errorf("expected ErrPipeUnsupported, got %v", err)
	}
}
