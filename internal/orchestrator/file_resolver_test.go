package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataflowguard/internal/dtoerrors"
)

func TestFileResolverLoadsByName(t *testing.T) {
	dir := t.TempDir()
	yaml := `
name: nightly
connection: snowflake-prod
tests:
  - name: orders_unique
    kind: uniqueness
    dataset: PROD.RAW.ORDERS
    keys: [ORDER_ID]
    severity: blocker
    gate: fail
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nightly.yaml"), []byte(yaml), 0o644))

	suite, err := NewFileResolver(dir).Resolve(context.Background(), "nightly")
	require.NoError(t, err)
	assert.Equal(t, "nightly", suite.Name)
	require.Len(t, suite.Tests, 1)
	assert.Equal(t, "orders_unique", suite.Tests[0].Name)
}

func TestFileResolverMissingFileIsSuiteNotFound(t *testing.T) {
	_, err := NewFileResolver(t.TempDir()).Resolve(context.Background(), "missing")
	assert.True(t, dtoerrors.Is(err, dtoerrors.KindSuiteNotFound))
}
