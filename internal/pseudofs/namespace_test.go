package pseudofs

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func formattedFS(t *testing.T) *FS {
	t.Helper()
	fs, err := Format()
	require.NoError(t, err)
	return fs
}

func TestCreateAndReadFile(t *testing.T) {
	fs := formattedFS(t)
	idx, err := fs.CreateFile(fs.CurrentInode, "hello.txt", 10)
	require.NoError(t, err)
	assert.NotEqual(t, RootInode, idx)

	data, err := fs.ReadFile("hello.txt")
	require.NoError(t, err)
	assert.Len(t, data, 10)
	for _, b := range data {
		assert.Zero(t, b)
	}
}

func TestCreateFileDuplicateName(t *testing.T) {
	fs := formattedFS(t)
	_, err := fs.CreateFile(fs.CurrentInode, "a", 0)
	require.NoError(t, err)
	_, err = fs.CreateFile(fs.CurrentInode, "a", 0)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestCreateFileMaxSizeBoundary(t *testing.T) {
	fs := formattedFS(t)
	maxSize := uint32(MaxFileBlocks * BlockSize)
	_, err := fs.CreateFile(fs.CurrentInode, "maxed", maxSize)
	assert.NoError(t, err, "exactly D+PointersPerBlock blocks must fit")
}

func TestCreateFileTooLarge(t *testing.T) {
	fs := formattedFS(t)
	tooBig := uint32((MaxFileBlocks + 1) * BlockSize)
	_, err := fs.CreateFile(fs.CurrentInode, "toobig", tooBig)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestRemoveFileFreesBlocksAndInode(t *testing.T) {
	fs := formattedFS(t)
	freeBlocksBefore := fs.SB.FreeBlocks
	freeInodesBefore := fs.SB.FreeInodes

	_, err := fs.CreateFile(fs.CurrentInode, "doomed", uint32(3*BlockSize))
	require.NoError(t, err)
	require.NoError(t, fs.RemoveFile(fs.CurrentInode, "doomed"))

	assert.Equal(t, freeBlocksBefore, fs.SB.FreeBlocks)
	assert.Equal(t, freeInodesBefore, fs.SB.FreeInodes)

	_, err = FindEntry(fs.Image, fs.CurrentInode, "doomed")
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestMkdirCdAndDotDot(t *testing.T) {
	fs := formattedFS(t)
	_, err := fs.CreateDir(fs.CurrentInode, "sub")
	require.NoError(t, err)

	require.NoError(t, fs.Chdir("sub"))
	assert.Equal(t, "/sub", fs.CurrentPath)

	require.NoError(t, fs.Chdir(".."))
	assert.Equal(t, "/", fs.CurrentPath)
	assert.Equal(t, RootInode, fs.CurrentInode)
}

func TestRmdirRejectsNonEmpty(t *testing.T) {
	fs := formattedFS(t)
	_, err := fs.CreateDir(fs.CurrentInode, "sub")
	require.NoError(t, err)
	require.NoError(t, fs.Chdir("sub"))
	_, err = fs.CreateFile(fs.CurrentInode, "file", 0)
	require.NoError(t, err)
	require.NoError(t, fs.Chdir(".."))

	err = fs.RemoveDir(fs.CurrentInode, "sub")
	assert.ErrorIs(t, err, ErrNotEmpty)
}

func TestRmdirRemovesEmptyDir(t *testing.T) {
	fs := formattedFS(t)
	_, err := fs.CreateDir(fs.CurrentInode, "sub")
	require.NoError(t, err)
	require.NoError(t, fs.RemoveDir(fs.CurrentInode, "sub"))

	_, err = FindEntry(fs.Image, fs.CurrentInode, "sub")
	assert.ErrorIs(t, err, ErrPathNotFound)
}

func TestListReportsEntries(t *testing.T) {
	fs := formattedFS(t)
	_, err := fs.CreateFile(fs.CurrentInode, "a", 0)
	require.NoError(t, err)
	_, err = fs.CreateDir(fs.CurrentInode, "b")
	require.NoError(t, err)

	entries, err := fs.List("")
	require.NoError(t, err)
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Name] = true
	}
	assert.True(t, names["."])
	assert.True(t, names[".."])
	assert.True(t, names["a"])
	assert.True(t, names["b"])
}

func TestListSortsByNameAndReportsTypeAndSize(t *testing.T) {
	fs := formattedFS(t)
	_, err := fs.CreateFile(fs.CurrentInode, "zeta", 5)
	require.NoError(t, err)
	_, err = fs.CreateFile(fs.CurrentInode, "alpha", 9)
	require.NoError(t, err)
	_, err = fs.CreateDir(fs.CurrentInode, "middle")
	require.NoError(t, err)

	entries, err := fs.List("")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.True(t, sort.StringsAreSorted(names), "ls must sort entries lexicographically by name")

	byName := map[string]ListEntry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, TypeFile, byName["alpha"].Type)
	assert.Equal(t, uint32(9), byName["alpha"].Size)
	assert.Equal(t, TypeDir, byName["middle"].Type)
	assert.NotZero(t, byName["zeta"].MTime)
}

func TestCopyFilePreservesContent(t *testing.T) {
	fs := formattedFS(t)
	idx, err := fs.CreateFile(fs.CurrentInode, "src", 50)
	require.NoError(t, err)
	in, err := ReadInode(fs.Image, idx)
	require.NoError(t, err)
	raw, err := fs.Image.ReadBlock(int(in.Direct[0]))
	require.NoError(t, err)
	for i := range raw[:50] {
		raw[i] = byte(i)
	}
	require.NoError(t, fs.Image.WriteBlock(int(in.Direct[0]), raw))

	require.NoError(t, fs.CopyFile("src", "dest"))

	data, err := fs.ReadFile("dest")
	require.NoError(t, err)
	assert.Len(t, data, 50)
	for i, b := range data {
		assert.Equal(t, byte(i), b)
	}
}

func TestSummaryAccountsForRootBlock(t *testing.T) {
	fs := formattedFS(t)
	s := fs.Summary()
	assert.Equal(t, TotalBlocks-FirstDataBlock, s.TotalBlocks)
	assert.Equal(t, s.TotalBlocks-1, s.FreeBlocks, "format consumed exactly one block for the root directory")
	assert.Equal(t, 1, s.UsedBlocks)
	assert.Equal(t, MaxInodes-1, s.TotalInodes)
	assert.Equal(t, s.TotalInodes, s.FreeInodes, "root's reserved inode 0 is never drawn from the free-inode list")
	assert.Zero(t, s.UsedInodes)
}

func TestSummaryBytesAndPercentages(t *testing.T) {
	fs := formattedFS(t)
	s := fs.Summary()
	assert.Equal(t, s.TotalBlocks*BlockSize, s.TotalBytes)
	assert.Equal(t, s.UsedBlocks*BlockSize, s.UsedBytes)
	assert.Equal(t, s.FreeBlocks*BlockSize, s.FreeBytes)
	assert.InDelta(t, float64(s.UsedBlocks)*100.0/float64(s.TotalBlocks), s.UsedPercent, 0.001)
	assert.InDelta(t, 100.0, s.UsedPercent+s.FreePercent, 0.001)
}

func TestRemoveDirRefusesRoot(t *testing.T) {
	fs := formattedFS(t)
	err := fs.RemoveDir(RootInode, ".")
	assert.ErrorIs(t, err, ErrRootImmutable)

	// Root must still be usable afterwards: nothing was torn down.
	entries, err := fs.List("")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestDebugMatchesSuperblock(t *testing.T) {
	fs := formattedFS(t)
	r := fs.Debug()
	assert.Equal(t, int(fs.SB.FreeBlocks), r.FreeBlockCount)
	assert.Equal(t, int(fs.SB.FreeInodes), r.FreeInodeCount)
	assert.NoError(t, r.FreeBlockListErr)
	assert.NoError(t, r.FreeInodeListErr)
}
