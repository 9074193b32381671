package system

import (
	"bufio"
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/sigreer/hwsnap/internal/detect"
	"github.com/sigreer/hwsnap/internal/fallback"
	"github.com/sigreer/hwsnap/internal/source"
)

func unameDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "uname",
		Rank:   1,
		Desc:   "uname(2)",
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			u, err := fallback.Uname(env.Root)
			if err != nil {
				return nil, err
			}
			return []Observation{{
				Hostname:      detect.Str(u.Nodename),
				KernelRelease: detect.Str(u.Release),
				Architecture:  detect.Str(u.Machine),
			}}, nil
		},
	}
}

// osReleasePaths are tried in order, as systemd documents.
var osReleasePaths = []string{"/etc/os-release", "/usr/lib/os-release"}

// parseOSRelease reads KEY=VALUE lines. Values may be single or double
// quoted.
func parseOSRelease(out source.Output) ([]Observation, error) {
	vals := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if unq, err := strconv.Unquote(val); err == nil {
			val = unq
		} else {
			val = strings.Trim(val, `"'`)
		}
		vals[strings.TrimSpace(key)] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, &detect.ParseError{Format: "os-release", Err: err}
	}

	name := vals["PRETTY_NAME"]
	if name == "" {
		name = strings.TrimSpace(vals["NAME"] + " " + vals["VERSION"])
	}
	if name == "" && vals["ID"] == "" {
		return nil, detect.ParseErrorf("os-release", "no NAME, PRETTY_NAME or ID")
	}
	return []Observation{{
		OSName:    detect.Str(name),
		OSID:      detect.Str(vals["ID"]),
		OSVersion: detect.Str(vals["VERSION_ID"]),
	}}, nil
}

func osReleaseDetector() detect.Detector[Observation] {
	return detect.Func[Observation]{
		Method: "os-release",
		Rank:   2,
		Desc:   strings.Join(osReleasePaths, ", "),
		Fn: func(ctx context.Context, env detect.Env) ([]Observation, error) {
			var err error
			for _, p := range osReleasePaths {
				var out source.Output
				out, err = env.Read(p)
				if errors.Is(err, source.ErrNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				return parseOSRelease(out)
			}
			return nil, err
		},
	}
}

// parseMeminfo extracts MemTotal, which the kernel reports in KiB.
func parseMeminfo(out source.Output) ([]Observation, error) {
	scanner := bufio.NewScanner(strings.NewReader(out.String()))
	for scanner.Scan() {
		key, val, ok := strings.Cut(scanner.Text(), ":")
		if !ok || key != "MemTotal" {
			continue
		}
		kb, err := strconv.ParseInt(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(val), "kB")), 10, 64)
		if err != nil || kb <= 0 {
			return nil, detect.ParseErrorf("meminfo", "bad MemTotal %q", val)
		}
		return []Observation{{MemTotalBytes: detect.Ptr(kb << 10)}}, nil
	}
	return nil, detect.ParseErrorf("meminfo", "no MemTotal line")
}

func meminfoDetector() detect.Detector[Observation] {
	return detect.File[Observation]{
		Method: "meminfo",
		Rank:   3,
		Path:   "/proc/meminfo",
		Parse:  parseMeminfo,
	}
}
