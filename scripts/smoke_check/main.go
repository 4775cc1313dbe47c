// Command smoke_check probes a running pengajuan-sa-api deployment and
// verifies that each configured endpoint answers with the expected status.
// Intended for post-deploy checks; exits non-zero when a critical probe fails.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type probe struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Expect   int    `json:"expect"`
	Auth     bool   `json:"auth"`
	Critical bool   `json:"critical"`
}

type probeFile struct {
	Probes []probe `json:"probes"`
}

type result struct {
	Probe    probe
	Status   int
	Duration time.Duration
	Err      error
}

func main() {
	var (
		base       string
		probesPath string
		token      string
		timeout    time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&probesPath, "probes", filepath.Join("scripts", "smoke_check", "probes.json"), "Path to JSON probe file")
	flag.StringVar(&token, "token", os.Getenv("SMOKE_CHECK_TOKEN"), "Bearer token for authenticated probes")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	probes, err := loadProbes(probesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load probes: %v\n", err)
		os.Exit(2)
	}

	client := &http.Client{Timeout: timeout}
	var failures int

	fmt.Printf("Smoke check against %s\n", base)
	fmt.Println("==============================")
	for _, p := range probes {
		res := run(client, base, token, p)
		label := "OK"
		if res.Err != nil || res.Status != p.Expect {
			label = "FAIL"
			if p.Critical {
				failures++
			}
		}
		fmt.Printf("[%s] %s %s\n", label, p.Method, p.Path)
		if res.Err != nil {
			fmt.Printf("  error: %v\n", res.Err)
			continue
		}
		fmt.Printf("  status: %d (want %d) in %s\n", res.Status, p.Expect, res.Duration)
	}

	if failures > 0 {
		fmt.Printf("critical failures: %d\n", failures)
		os.Exit(1)
	}
}

func loadProbes(path string) ([]probe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file probeFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Probes) == 0 {
		return nil, fmt.Errorf("no probes defined in %s", path)
	}
	for i := range file.Probes {
		if file.Probes[i].Method == "" {
			file.Probes[i].Method = http.MethodGet
		}
		if file.Probes[i].Expect == 0 {
			file.Probes[i].Expect = http.StatusOK
		}
	}
	return file.Probes, nil
}

func run(client *http.Client, base, token string, p probe) result {
	res := result{Probe: p}
	path := p.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequest(strings.ToUpper(p.Method), strings.TrimRight(base, "/")+path, nil)
	if err != nil {
		res.Err = err
		return res
	}
	if p.Auth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode
	res.Duration = time.Since(start)
	return res
}
