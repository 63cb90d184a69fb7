// Command test_mcp_mode checks that loading configuration and building a
// stdio server write nothing to stdout, which belongs to the MCP protocol.
package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/localrivet/resourcemcp"
	"github.com/localrivet/resourcemcp/internal/config"
	"github.com/localrivet/resourcemcp/internal/logger"
)

func main() {
	fmt.Println("=== Starting stdio quiet test ===")

	captured, err := captureStdout(func() error {
		log := logger.NewFromStrings("debug", logger.FormatText, os.Stderr)

		cfg, err := config.LoadConfigWithPath(config.DefaultConfigFilename)
		if err != nil {
			return err
		}
		cfg.Server.Transport = config.TransportStdio
		cfg.Store.Backend = "memory"

		srv, err := resourcemcp.NewServer(resourcemcp.ServerOptions{Config: cfg, Logger: log})
		if err != nil {
			return err
		}
		return srv.Stop()
	})
	if err != nil {
		fmt.Printf("Error building server: %v\n", err)
		os.Exit(1)
	}

	if len(captured) > 0 {
		fmt.Printf("FAIL: %d bytes written to stdout:\n%s\n", len(captured), captured)
		os.Exit(1)
	}

	fmt.Println("=== Test Complete: stdout stayed clean ===")
}

func captureStdout(fn func() error) ([]byte, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return nil, err
	}

	orig := os.Stdout
	os.Stdout = w

	done := make(chan []byte)
	go func() {
		var buf bytes.Buffer
		io.Copy(&buf, r)
		done <- buf.Bytes()
	}()

	runErr := fn()
	os.Stdout = orig
	w.Close()
	out := <-done
	r.Close()

	return out, runErr
}
