package detect

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigreer/hwsnap/internal/source"
)

func TestFanOutKeepsNameOrder(t *testing.T) {
	names := []string{"sda", "sdb", "sdc", "sdd", "sde", "sdf"}
	got, err := FanOut(context.Background(), Env{Concurrency: 2}, names, func(ctx context.Context, name string) (string, error) {
		if name == "sdc" {
			return "", fmt.Errorf("%s: %w", name, source.ErrTimeout)
		}
		return name + "!", nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sda!", "sdb!", "sdd!", "sde!", "sdf!"}, got)
}

func TestFanOutFailsWhenEveryProbeFails(t *testing.T) {
	_, err := FanOut(context.Background(), Env{}, []string{"eth0", "eth1"}, func(ctx context.Context, name string) (int, error) {
		return 0, fmt.Errorf("%s: %w", name, source.ErrPermission)
	})
	assert.Equal(t, PermissionDenied, Classify(err))
	assert.ErrorContains(t, err, "eth0")
}

func TestFanOutNoNames(t *testing.T) {
	got, err := FanOut(context.Background(), Env{}, nil, func(ctx context.Context, name string) (int, error) {
		return 1, nil
	})
	assert.NoError(t, err)
	assert.Empty(t, got)
}
