// Package main provides a minimal HTTP healthcheck binary for container
// probes. It performs a GET request against the migration server's
// readiness endpoint and exits with code 0 on success (2xx) or code 1 on
// failure.
// Usage: healthcheck [url]
// Without an argument the URL defaults to MIGRATOR_HEALTHCHECK_URL or
// http://localhost:8080/readyz.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

func main() {
	url := "http://localhost:8080/readyz"
	if env := os.Getenv("MIGRATOR_HEALTHCHECK_URL"); env != "" {
		url = env
	}
	if len(os.Args) > 1 {
		url = os.Args[1]
	}

	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		fmt.Fprintf(os.Stderr, "healthcheck failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		os.Exit(0)
	}

	fmt.Fprintf(os.Stderr, "healthcheck failed: status %d\n", resp.StatusCode)
	os.Exit(1)
}
