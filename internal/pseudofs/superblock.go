package pseudofs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Superblock mirrors block 0 of the image: magic, the fixed parameters,
// and the two free-list heads. No caller outside the block/inode
// allocators mutates the free-list fields directly.
type Superblock struct {
	Magic         uint32
	BlockSize     uint32
	TotalBlocks   uint32
	FreeBlocks    uint32
	MaxInodes     uint32
	FreeInodes    uint32
	FreeBlockHead uint32
	FreeInodeHead uint32
}

func readSuperblock(img *Image) (Superblock, error) {
	block, err := img.ReadBlock(0)
	if err != nil {
		return Superblock{}, err
	}
	var sb Superblock
	if err := binary.Read(bytes.NewReader(block), binary.LittleEndian, &sb); err != nil {
		return Superblock{}, fmt.Errorf("decode superblock: %w", err)
	}
	return sb, nil
}

func writeSuperblock(img *Image, sb Superblock) error {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, sb); err != nil {
		return fmt.Errorf("encode superblock: %w", err)
	}
	block := make([]byte, BlockSize)
	copy(block, buf.Bytes())
	return img.WriteBlock(0, block)
}

// validateMagic reports ErrCorruption if the image was never formatted
// with this layout.
func validateMagic(sb Superblock) error {
	if sb.Magic != superblockMagic {
		return fmt.Errorf("%w: bad superblock magic 0x%x", ErrCorruption, sb.Magic)
	}
	return nil
}
