//go:build integration
// +build integration

package integration

import (
	"context"
	"os"
	"os/exec"
	"testing"
)

// restartStorefront restarts the storefront compose service and blocks until
// it reports ready again. Sessions are stateless tokens, so the caller's
// token stays valid across the restart; whether the cart does depends on the
// backend (redis keeps it, memory starts empty).
//
// E2E_COMPOSE_FILE and E2E_STOREFRONT_SERVICE override the compose file and
// the service name.
func restartStorefront(t *testing.T, ctx context.Context, readyURL string) {
	t.Helper()

	service := os.Getenv("E2E_STOREFRONT_SERVICE")
	if service == "" {
		service = "storefront"
	}
	args := []string{"compose"}
	if f := os.Getenv("E2E_COMPOSE_FILE"); f != "" {
		args = append(args, "-f", f)
	}
	args = append(args, "restart", service)

	out, err := exec.CommandContext(ctx, "docker", args...).CombinedOutput()
	if err != nil {
		t.Fatalf("restart %s: %v\n%s", service, err, out)
	}
	waitReady(t, ctx, readyURL)
}
