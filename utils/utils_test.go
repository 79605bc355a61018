package utils

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestIntegerConstraints checks the bounds of a few common integer types.
func TestIntegerConstraints(t *testing.T) {
	min, max := GetIntegerConstraints(false, 8)
	assert.EqualValues(t, 0, min.Int64())
	assert.EqualValues(t, 255, max.Int64())

	min, max = GetIntegerConstraints(true, 8)
	assert.EqualValues(t, -128, min.Int64())
	assert.EqualValues(t, 127, max.Int64())

	expected := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	assert.EqualValues(t, 0, MaxUint256.Cmp(expected))
	assert.EqualValues(t, 256, MaxUint256.BitLen())
}

// TestBigIntHelpers checks MinBigInt copies its result and SumBigInts handles empty input.
func TestBigIntHelpers(t *testing.T) {
	x, y := big.NewInt(3), big.NewInt(7)
	smaller := MinBigInt(x, y)
	assert.EqualValues(t, 3, smaller.Int64())
	smaller.SetInt64(100)
	assert.EqualValues(t, 3, x.Int64())
	assert.EqualValues(t, 7, MinBigInt(y, big.NewInt(9)).Int64())

	assert.EqualValues(t, 0, SumBigInts().Int64())
	assert.EqualValues(t, 10, SumBigInts(x, y).Int64())
	assert.EqualValues(t, 3, x.Int64())
}

// TestFileHelpers checks files are created with their missing parent directories.
func TestFileHelpers(t *testing.T) {
	dir := t.TempDir()

	logDir := filepath.Join(dir, "logs", "nested")
	file, err := CreateFile(logDir, "run.log")
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.True(t, FileExists(filepath.Join(logDir, "run.log")))

	path := filepath.Join(dir, "config", "pbfuzz.json")
	assert.False(t, FileExists(path))
	require.NoError(t, WriteFile(path, []byte("{}")))
	assert.True(t, FileExists(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.EqualValues(t, "{}", string(data))
}

// TestCheckContextDone checks cancellation is observed without blocking.
func TestCheckContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	assert.False(t, CheckContextDone(ctx))
	cancel()
	assert.True(t, CheckContextDone(ctx))
}
