package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/report"
	"github.com/sigreer/hwsnap/internal/storage"
)

func TestResolutionOf(t *testing.T) {
	disk := storage.Disk{Kind: "SSD"}
	disk.Name = detect.Str("nvme0n1")
	r := &report.Report{
		Categories:  []string{"storage"},
		Storage:     []storage.Disk{disk},
		Diagnostics: []report.Diagnostic{{Category: "storage", Detector: "smartctl", Kind: detect.Unavailable}},
	}

	res := resolutionOf(r)
	assert.Equal(t, "storage", res.Category)
	assert.Equal(t, []storage.Disk{disk}, res.Records)
	assert.Len(t, res.Diagnostics, 1)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "-", truncate("", 10))
	assert.Equal(t, "node07", truncate("node07", 10))
	assert.Equal(t, "SYS-2029~", truncate("SYS-2029U-TR4", 9))
}

func TestWriteOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	err := writeOutput(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "hello\n")
		return err
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	err = writeOutput(filepath.Join(t.TempDir(), "missing", "report.txt"), func(io.Writer) error { return nil })
	assert.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"snapshot", "resolve", "detectors", "inventory", "version"} {
		assert.True(t, names[want], want)
	}
}
