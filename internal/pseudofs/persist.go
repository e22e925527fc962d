package pseudofs

import (
	"fmt"
	"os"
)

// BackingFileName is the only filesystem image name this program ever
// touches. There is no flag or environment variable to override it.
const BackingFileName = "filesystem.dat"

// Format lays down a fresh superblock, free lists, and root directory
// over a blank image and returns an FS ready for use.
func Format() (*FS, error) {
	img := NewImage()
	sb := Superblock{
		Magic:       superblockMagic,
		BlockSize:   BlockSize,
		TotalBlocks: TotalBlocks,
		MaxInodes:   MaxInodes,
	}

	if err := buildFreeBlockList(img, &sb); err != nil {
		return nil, err
	}
	if err := buildFreeInodeList(img, &sb); err != nil {
		return nil, err
	}

	rootBlock, err := AllocateBlock(img, &sb)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, BlockSize)
	copy(raw[0:DirEntrySize], encodeDirEntry(".", RootInode))
	copy(raw[DirEntrySize:2*DirEntrySize], encodeDirEntry("..", RootInode))
	if err := img.WriteBlock(rootBlock, raw); err != nil {
		return nil, err
	}

	root := Inode{Type: uint32(TypeDir), CTime: now(), MTime: now(), Size: DirEntrySize * 2}
	root.Direct[0] = uint32(rootBlock)
	// Root's reserved slot (inode 0) is never part of the free-inode
	// list, so it does not need an AllocateInode call.
	if err := WriteInode(img, RootInode, root); err != nil {
		return nil, err
	}

	if err := writeSuperblock(img, sb); err != nil {
		return nil, err
	}

	opLog("format").Info("filesystem formatted")
	return &FS{Image: img, SB: sb, CurrentInode: RootInode, CurrentPath: "/"}, nil
}

// Load reads BackingFileName from the working directory and reconstructs
// an FS from it. A missing file is reported as a plain *os.PathError so
// callers can decide whether to Format instead.
func Load() (*FS, error) {
	data, err := os.ReadFile(BackingFileName)
	if err != nil {
		return nil, err
	}
	img := NewImage()
	if err := img.LoadBytes(data); err != nil {
		return nil, err
	}
	sb, err := readSuperblock(img)
	if err != nil {
		return nil, err
	}
	if err := validateMagic(sb); err != nil {
		return nil, err
	}
	return &FS{Image: img, SB: sb, CurrentInode: RootInode, CurrentPath: "/"}, nil
}

// Save writes the superblock back into the image and persists the whole
// image to BackingFileName.
func (fs *FS) Save() error {
	if err := writeSuperblock(fs.Image, fs.SB); err != nil {
		return err
	}
	if err := os.WriteFile(BackingFileName, fs.Image.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", BackingFileName, err)
	}
	return nil
}
