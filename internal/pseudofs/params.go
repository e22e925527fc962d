package pseudofs

// Fixed layout parameters. These are never configurable at runtime: the
// image size, block size, inode count and addressing width are all baked
// into the on-disk layout, matching the fixed 1 MiB image the shell always
// formats against.
const (
	// BlockSize is the size in bytes of one block (B).
	BlockSize = 1024
	// TotalBlocks is the number of blocks in the image (T).
	TotalBlocks = 1024
	// MaxInodes is the size of the inode table (I).
	MaxInodes = 128
	// InodeRecordSize is the on-disk size of one inode record (R).
	InodeRecordSize = 64
	// DirectBlocks is the number of direct block addresses per inode (D).
	DirectBlocks = 10
	// MaxNameLen is the maximum filename length including the NUL
	// terminator (L).
	MaxNameLen = 28
	// DirEntrySize is the fixed on-disk size of one directory entry.
	DirEntrySize = 32

	// InodeTableBlocks is ceil(MaxInodes*InodeRecordSize / BlockSize).
	InodeTableBlocks = (MaxInodes*InodeRecordSize + BlockSize - 1) / BlockSize
	// FirstDataBlock is the first block number available for data (FDB).
	FirstDataBlock = 1 + InodeTableBlocks

	// RootInode is the inode number of the filesystem root. It is never
	// deallocated and is its own parent.
	RootInode = 0

	// EntriesPerBlock is the number of directory entries that fit in one
	// data block.
	EntriesPerBlock = BlockSize / DirEntrySize
	// PointersPerBlock is the number of 4-byte block addresses that fit
	// in one indirect block.
	PointersPerBlock = BlockSize / 4

	// MaxFileBlocks is the largest number of data blocks a single file
	// can address: all direct slots plus everything one indirect block
	// can point to.
	MaxFileBlocks = DirectBlocks + PointersPerBlock

	// superblockMagic identifies a formatted image.
	superblockMagic = 0x12345678
)

// InodeType distinguishes a file inode from a directory inode.
type InodeType uint32

const (
	TypeFile InodeType = 0
	TypeDir  InodeType = 1
)
