package pseudofs

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRootDir(t *testing.T) (*Image, *Superblock, int) {
	t.Helper()
	img, sb := freshFormattedImage(t)
	block, err := AllocateBlock(img, sb)
	require.NoError(t, err)
	dirIdx, err := AllocateInode(img, sb, 0)
	require.NoError(t, err)
	in, err := ReadInode(img, dirIdx)
	require.NoError(t, err)
	in.Type = uint32(TypeDir)
	in.Direct[0] = uint32(block)
	require.NoError(t, WriteInode(img, dirIdx, in))
	return img, sb, dirIdx
}

func TestAddEntryFindEntryRoundTrip(t *testing.T) {
	img, sb, dirIdx := newRootDir(t)
	require.NoError(t, AddEntry(img, sb, dirIdx, "hello.txt", 5, 42))

	got, err := FindEntry(img, dirIdx, "hello.txt")
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	entries, err := ReadAllEntries(img, dirIdx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "hello.txt", entries[0].Name)
}

func TestAddEntryRejectsLongName(t *testing.T) {
	img, sb, dirIdx := newRootDir(t)
	longName := ""
	for i := 0; i < MaxNameLen; i++ {
		longName += "a"
	}
	err := AddEntry(img, sb, dirIdx, longName, 1, 0)
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestAddEntryFillsFirstBlockThenAllocatesSecondDirect(t *testing.T) {
	img, sb, dirIdx := newRootDir(t)
	freeBefore := sb.FreeBlocks

	for i := 0; i < EntriesPerBlock; i++ {
		require.NoError(t, AddEntry(img, sb, dirIdx, fmt.Sprintf("f%d", i), i+1, 0))
	}
	assert.Equal(t, freeBefore, sb.FreeBlocks, "first block holds exactly EntriesPerBlock entries")

	require.NoError(t, AddEntry(img, sb, dirIdx, "overflow", 999, 0))
	assert.Equal(t, freeBefore-1, sb.FreeBlocks, "33rd entry forces a second direct block")

	in, err := ReadInode(img, dirIdx)
	require.NoError(t, err)
	assert.NotZero(t, in.Direct[1])
}

func TestAddEntryAllocatesIndirectAfterDirectExhausted(t *testing.T) {
	img, sb, dirIdx := newRootDir(t)

	n := 0
	for slot := 0; slot < DirectBlocks; slot++ {
		for i := 0; i < EntriesPerBlock; i++ {
			require.NoError(t, AddEntry(img, sb, dirIdx, fmt.Sprintf("d%d", n), n+1, 0))
			n++
		}
	}
	in, err := ReadInode(img, dirIdx)
	require.NoError(t, err)
	assert.Zero(t, in.Indirect, "direct blocks not yet exhausted beyond capacity")

	require.NoError(t, AddEntry(img, sb, dirIdx, "overflow", 12345, 0))
	in, err = ReadInode(img, dirIdx)
	require.NoError(t, err)
	assert.NotZero(t, in.Indirect, "entry beyond direct capacity must allocate the indirect block")
}

func TestAddEntryRollsBackOnNoSpace(t *testing.T) {
	img, sb, dirIdx := newRootDir(t)
	// Drain every block except the one already backing the directory.
	for sb.FreeBlocks > 0 {
		if _, err := AllocateBlock(img, sb); err != nil {
			break
		}
	}
	// First direct block still has room for entries; fill it completely
	// so the next AddEntry must allocate and fail.
	for i := 0; i < EntriesPerBlock; i++ {
		require.NoError(t, AddEntry(img, sb, dirIdx, fmt.Sprintf("x%d", i), i+1, 0))
	}
	before := sb.FreeBlocks
	err := AddEntry(img, sb, dirIdx, "onemore", 1, 0)
	assert.ErrorIs(t, err, ErrNoSpace)
	assert.Equal(t, before, sb.FreeBlocks, "failed add_entry must not leak blocks")
}

func TestRemoveEntryTombstones(t *testing.T) {
	img, sb, dirIdx := newRootDir(t)
	require.NoError(t, AddEntry(img, sb, dirIdx, "a", 7, 0))
	require.NoError(t, RemoveEntry(img, dirIdx, "a", 0))

	_, err := FindEntry(img, dirIdx, "a")
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestRemoveEntryMissingName(t *testing.T) {
	img, _, dirIdx := newRootDir(t)
	err := RemoveEntry(img, dirIdx, "nope", 0)
	assert.ErrorIs(t, err, ErrPathNotFound)
}
