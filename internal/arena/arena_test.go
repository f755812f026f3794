package arena_test

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/momentics/protond/internal/arena"
)

func TestAllocateAlignedAndNonOverlapping(t *testing.T) {
	a := arena.New(64)

	sizes := []int{1, 3, 7, 8, 9, 16}
	var slices [][]byte
	for _, s := range sizes {
		buf, err := a.Allocate(s)
		require.NoError(t, err)
		require.Len(t, buf, s)
		require.Zero(t, uintptr(unsafe.Pointer(&buf[0]))%8)
		slices = append(slices, buf)
	}

	// Every returned slice must be distinct memory (no overlap): write a
	// unique byte into each and verify none of the others observed it.
	for i, s := range slices {
		for j := range s {
			s[j] = byte(i + 1)
		}
	}
	for i, s := range slices {
		for _, b := range s {
			require.Equal(t, byte(i+1), b)
		}
	}
}

func TestAllocateSpillsToNewBlockWhenFull(t *testing.T) {
	a := arena.New(16)

	_, err := a.Allocate(16)
	require.NoError(t, err)

	// Current block is full; this allocation must spill into a new block
	// rather than fail or corrupt the prior allocation.
	buf, err := a.Allocate(8)
	require.NoError(t, err)
	require.Len(t, buf, 8)
}

func TestAllocateOversizedRequestGetsDedicatedBlock(t *testing.T) {
	a := arena.New(16)

	buf, err := a.Allocate(100)
	require.NoError(t, err)
	require.Len(t, buf, 100)
}

func TestDestroyReleasesChain(t *testing.T) {
	a := arena.New(16)
	_, err := a.Allocate(8)
	require.NoError(t, err)
	a.Destroy()

	// Arena remains usable after Destroy, starting fresh.
	buf, err := a.Allocate(8)
	require.NoError(t, err)
	require.Len(t, buf, 8)
}

func TestAllocateStringCopiesIntoArena(t *testing.T) {
	a := arena.New(64)
	s, err := a.AllocateString("hello")
	require.NoError(t, err)
	require.Equal(t, "hello", s)
}

func TestAllocateZeroBytes(t *testing.T) {
	a := arena.New(64)
	buf, err := a.Allocate(0)
	require.NoError(t, err)
	require.Nil(t, buf)
}

func TestAllocateNegativeSizeFails(t *testing.T) {
	a := arena.New(64)
	_, err := a.Allocate(-1)
	require.Error(t, err)
}
