package pseudofs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Inode is the 64-byte on-disk record for one file or directory. When the
// inode is free, Indirect is overloaded to hold the next-free-inode
// index instead of a block address.
type Inode struct {
	Type     uint32
	Size     uint32
	CTime    uint32
	MTime    uint32
	Direct   [DirectBlocks]uint32
	Indirect uint32
	_        uint32 // padding to round the record to 64 bytes
}

func (in Inode) IsDir() bool  { return InodeType(in.Type) == TypeDir }
func (in Inode) IsFile() bool { return InodeType(in.Type) == TypeFile }

// ReadInode decodes the fixed-offset record for inode i. Out-of-range i
// returns an all-zero record and no error.
func ReadInode(img *Image, i int) (Inode, error) {
	if i < 0 || i >= MaxInodes {
		return Inode{}, nil
	}
	raw, err := img.inodeBytes(i)
	if err != nil {
		return Inode{}, err
	}
	var in Inode
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, &in); err != nil {
		return Inode{}, fmt.Errorf("decode inode %d: %w", i, err)
	}
	return in, nil
}

// WriteInode encodes inode into the record for inode i. Out-of-range i is
// a no-op.
func WriteInode(img *Image, i int, in Inode) error {
	if i < 0 || i >= MaxInodes {
		return nil
	}
	raw, err := img.inodeBytes(i)
	if err != nil {
		return err
	}
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, in); err != nil {
		return fmt.Errorf("encode inode %d: %w", i, err)
	}
	copy(raw, buf.Bytes())
	return nil
}
