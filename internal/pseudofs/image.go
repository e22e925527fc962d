package pseudofs

import "fmt"

// Image is the flat byte region backing the whole filesystem: superblock,
// inode table and data blocks all live in one contiguous buffer. Nothing
// outside this file addresses the buffer directly; every other component
// goes through ReadBlock/WriteBlock/ZeroBlock or inodeBytes so the bounds
// checks live in one place.
type Image struct {
	buf [TotalBlocks * BlockSize]byte
}

// NewImage returns a freshly zeroed image buffer.
func NewImage() *Image {
	return &Image{}
}

func checkBlock(block int) error {
	if block < 0 || block >= TotalBlocks {
		return fmt.Errorf("%w: block %d out of range [0, %d)", ErrCorruption, block, TotalBlocks)
	}
	return nil
}

func checkInode(i int) error {
	if i < 0 || i >= MaxInodes {
		return fmt.Errorf("%w: inode %d out of range [0, %d)", ErrCorruption, i, MaxInodes)
	}
	return nil
}

// ReadBlock copies the B bytes of block k into a freshly allocated slice.
func (img *Image) ReadBlock(block int) ([]byte, error) {
	if err := checkBlock(block); err != nil {
		return nil, err
	}
	out := make([]byte, BlockSize)
	copy(out, img.buf[block*BlockSize:(block+1)*BlockSize])
	return out, nil
}

// WriteBlock overwrites block k with data, which must be exactly
// BlockSize bytes.
func (img *Image) WriteBlock(block int, data []byte) error {
	if err := checkBlock(block); err != nil {
		return err
	}
	if len(data) != BlockSize {
		return fmt.Errorf("%w: write of %d bytes to block %d, want %d", ErrCorruption, len(data), block, BlockSize)
	}
	copy(img.buf[block*BlockSize:(block+1)*BlockSize], data)
	return nil
}

// ZeroBlock fills block k with zeros.
func (img *Image) ZeroBlock(block int) error {
	if err := checkBlock(block); err != nil {
		return err
	}
	clear(img.buf[block*BlockSize : (block+1)*BlockSize])
	return nil
}

// inodeBytes returns the raw R-byte window for inode i, without bounds
// validation beyond checkInode.
func (img *Image) inodeBytes(i int) ([]byte, error) {
	if err := checkInode(i); err != nil {
		return nil, err
	}
	off := BlockSize + i*InodeRecordSize
	return img.buf[off : off+InodeRecordSize], nil
}

// Bytes exposes the whole image for persistence. Callers must not retain
// the slice past a Load/Store cycle.
func (img *Image) Bytes() []byte {
	return img.buf[:]
}

// LoadBytes replaces the image contents with data, which must be exactly
// TotalBlocks*BlockSize bytes.
func (img *Image) LoadBytes(data []byte) error {
	if len(data) != len(img.buf) {
		return fmt.Errorf("%w: image payload is %d bytes, want %d", ErrCorruption, len(data), len(img.buf))
	}
	copy(img.buf[:], data)
	return nil
}
