package detect

import (
	"context"
	"strings"

	"github.com/sigreer/hwsnap/internal/source"
)

// Detector binds one raw source to one parser at a fixed priority.
// Priority 0 is the most authoritative.
type Detector[T any] interface {
	Name() string
	Priority() int
	Source() string
	Attempt(ctx context.Context, env Env) ([]T, error)
}

// Descriptor describes a detector for listings.
type Descriptor struct {
	Category string `json:"category" yaml:"category"`
	Name     string `json:"name" yaml:"name"`
	Priority int    `json:"priority" yaml:"priority"`
	Source   string `json:"source" yaml:"source"`
}

// Command runs one program and hands its stdout to Parse.
type Command[T any] struct {
	Method  string
	Rank    int
	Program string
	Args    []string
	// Accept tolerates specific non-zero exit codes, e.g. smartctl status bits.
	Accept func(code int) bool
	Parse  func(out source.Output) ([]T, error)
}

func (c Command[T]) Name() string  { return c.Method }
func (c Command[T]) Priority() int { return c.Rank }
func (c Command[T]) Source() string {
	return strings.TrimSpace(c.Program + " " + strings.Join(c.Args, " "))
}

func (c Command[T]) Attempt(ctx context.Context, env Env) ([]T, error) {
	out, err := env.RunAccept(ctx, c.Accept, c.Program, c.Args...)
	if err != nil {
		return nil, err
	}
	return c.Parse(out)
}

// File reads one pseudo-file and hands it to Parse.
type File[T any] struct {
	Method string
	Rank   int
	Path   string
	Parse  func(out source.Output) ([]T, error)
}

func (f File[T]) Name() string   { return f.Method }
func (f File[T]) Priority() int  { return f.Rank }
func (f File[T]) Source() string { return f.Path }

func (f File[T]) Attempt(ctx context.Context, env Env) ([]T, error) {
	out, err := env.Read(f.Path)
	if err != nil {
		return nil, err
	}
	return f.Parse(out)
}

// Func covers detectors that walk pseudo-file trees, fan out per device
// or call a library.
type Func[T any] struct {
	Method string
	Rank   int
	Desc   string
	Fn     func(ctx context.Context, env Env) ([]T, error)
}

func (f Func[T]) Name() string   { return f.Method }
func (f Func[T]) Priority() int  { return f.Rank }
func (f Func[T]) Source() string { return f.Desc }

func (f Func[T]) Attempt(ctx context.Context, env Env) ([]T, error) {
	return f.Fn(ctx, env)
}
