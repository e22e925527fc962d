package pseudofs

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DirEntry is one (name, inode) pair read back from a directory's data
// blocks. Inode 0 entries (tombstones) are never returned by
// ReadAllEntries/FindEntry.
type DirEntry struct {
	Name  string
	Inode int
}

type rawDirEntry struct {
	Name  [MaxNameLen]byte
	Inode uint32
}

func decodeDirEntry(b []byte) rawDirEntry {
	var e rawDirEntry
	_ = binary.Read(bytes.NewReader(b), binary.LittleEndian, &e)
	return e
}

func encodeDirEntry(name string, inode int) []byte {
	var e rawDirEntry
	copy(e.Name[:], name)
	e.Inode = uint32(inode)
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, e)
	return buf.Bytes()
}

func nameFromRaw(raw [MaxNameLen]byte) string {
	n := bytes.IndexByte(raw[:], 0)
	if n == -1 {
		n = len(raw)
	}
	return string(raw[:n])
}

// dirBlockAddrs returns, in read order, the data-block addresses a
// directory's entries are spread across: direct slots first, then the
// indirect block's children. Zero addresses (unallocated slots) are
// skipped.
func dirBlockAddrs(img *Image, in Inode) ([]int, error) {
	var addrs []int
	for _, d := range in.Direct {
		if d != 0 {
			addrs = append(addrs, int(d))
		}
	}
	if in.Indirect != 0 {
		table, err := readPointerTable(img, int(in.Indirect))
		if err != nil {
			return nil, err
		}
		for _, c := range table {
			if c != 0 {
				addrs = append(addrs, int(c))
			}
		}
	}
	return addrs, nil
}

func readPointerTable(img *Image, block int) ([]uint32, error) {
	raw, err := img.ReadBlock(block)
	if err != nil {
		return nil, err
	}
	table := make([]uint32, PointersPerBlock)
	for i := range table {
		table[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}
	return table, nil
}

func writePointerTable(img *Image, block int, table []uint32) error {
	raw := make([]byte, BlockSize)
	for i, v := range table {
		binary.LittleEndian.PutUint32(raw[i*4:i*4+4], v)
	}
	return img.WriteBlock(block, raw)
}

// ReadAllEntries scans a directory's data blocks in direct-then-indirect
// order and returns every live entry (inode number != 0).
func ReadAllEntries(img *Image, dirIdx int) ([]DirEntry, error) {
	dirInode, err := ReadInode(img, dirIdx)
	if err != nil {
		return nil, err
	}
	if !dirInode.IsDir() {
		return nil, ErrNotADirectory
	}
	addrs, err := dirBlockAddrs(img, dirInode)
	if err != nil {
		return nil, err
	}
	var entries []DirEntry
	for _, addr := range addrs {
		raw, err := img.ReadBlock(addr)
		if err != nil {
			return nil, err
		}
		for i := 0; i < EntriesPerBlock; i++ {
			e := decodeDirEntry(raw[i*DirEntrySize : (i+1)*DirEntrySize])
			if e.Inode == 0 {
				continue
			}
			entries = append(entries, DirEntry{Name: nameFromRaw(e.Name), Inode: int(e.Inode)})
		}
	}
	return entries, nil
}

// FindEntry returns the inode number bound to name in directory dirIdx,
// or ErrPathNotFound.
func FindEntry(img *Image, dirIdx int, name string) (int, error) {
	entries, err := ReadAllEntries(img, dirIdx)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.Name == name {
			return e.Inode, nil
		}
	}
	return 0, ErrPathNotFound
}

// AddEntry writes a new (name, inode) entry into directory dirIdx,
// growing its data blocks (and, if those are exhausted, its indirect
// block and the blocks it points to) as needed. Any block this call
// allocates is released before it returns a non-nil error, so a failed
// call never leaks space: the directory's own inode is only persisted
// on the final success path, so no rolled-back block is ever referenced
// on disk.
func AddEntry(img *Image, sb *Superblock, dirIdx int, name string, targetInode int, now uint32) error {
	if len(name) >= MaxNameLen {
		return ErrNameTooLong
	}
	dirInode, err := ReadInode(img, dirIdx)
	if err != nil {
		return err
	}
	if !dirInode.IsDir() {
		return ErrNotADirectory
	}

	var allocated []int
	rollback := func() {
		for _, b := range allocated {
			DeallocateBlock(img, sb, b)
		}
		if len(allocated) > 0 {
			opLog("add_entry").WithField("allocated_blocks", len(allocated)).Warn("rolled back")
		}
	}

	entry := encodeDirEntry(name, targetInode)

	commit := func() error {
		dirInode.Size += DirEntrySize
		dirInode.MTime = now
		return WriteInode(img, dirIdx, dirInode)
	}

	for slot := 0; slot < DirectBlocks; slot++ {
		if dirInode.Direct[slot] == 0 {
			b, err := AllocateBlock(img, sb)
			if err != nil {
				rollback()
				return err
			}
			allocated = append(allocated, b)
			dirInode.Direct[slot] = uint32(b)
		}
		ok, err := tryPlaceEntry(img, int(dirInode.Direct[slot]), entry)
		if err != nil {
			rollback()
			return err
		}
		if ok {
			if err := commit(); err != nil {
				rollback()
				return err
			}
			return nil
		}
	}

	if dirInode.Indirect == 0 {
		b, err := AllocateBlock(img, sb)
		if err != nil {
			rollback()
			return err
		}
		allocated = append(allocated, b)
		dirInode.Indirect = uint32(b)
		if err := writePointerTable(img, b, make([]uint32, PointersPerBlock)); err != nil {
			rollback()
			return err
		}
	}

	table, err := readPointerTable(img, int(dirInode.Indirect))
	if err != nil {
		rollback()
		return err
	}
	for slot := 0; slot < PointersPerBlock; slot++ {
		if table[slot] == 0 {
			b, err := AllocateBlock(img, sb)
			if err != nil {
				rollback()
				return err
			}
			allocated = append(allocated, b)
			table[slot] = uint32(b)
			if err := writePointerTable(img, int(dirInode.Indirect), table); err != nil {
				rollback()
				return err
			}
		}
		ok, err := tryPlaceEntry(img, int(table[slot]), entry)
		if err != nil {
			rollback()
			return err
		}
		if ok {
			if err := commit(); err != nil {
				rollback()
				return err
			}
			return nil
		}
	}

	rollback()
	return ErrNoSpace
}

// tryPlaceEntry writes entry into the first tombstone slot of block
// addr, reporting whether a slot was found.
func tryPlaceEntry(img *Image, addr int, entry []byte) (bool, error) {
	raw, err := img.ReadBlock(addr)
	if err != nil {
		return false, err
	}
	for i := 0; i < EntriesPerBlock; i++ {
		off := i * DirEntrySize
		if binary.LittleEndian.Uint32(raw[off+MaxNameLen:off+DirEntrySize]) == 0 {
			copy(raw[off:off+DirEntrySize], entry)
			return true, img.WriteBlock(addr, raw)
		}
	}
	return false, nil
}

// RemoveEntry tombstones the entry named name in directory dirIdx. It
// does not free data blocks that become empty; a directory's blocks are
// only released when the directory itself is removed.
func RemoveEntry(img *Image, dirIdx int, name string, now uint32) error {
	dirInode, err := ReadInode(img, dirIdx)
	if err != nil {
		return err
	}
	if !dirInode.IsDir() {
		return ErrNotADirectory
	}
	addrs, err := dirBlockAddrs(img, dirInode)
	if err != nil {
		return err
	}
	for _, addr := range addrs {
		raw, err := img.ReadBlock(addr)
		if err != nil {
			return err
		}
		for i := 0; i < EntriesPerBlock; i++ {
			off := i * DirEntrySize
			e := decodeDirEntry(raw[off : off+DirEntrySize])
			if e.Inode == 0 || nameFromRaw(e.Name) != name {
				continue
			}
			binary.LittleEndian.PutUint32(raw[off+MaxNameLen:off+DirEntrySize], 0)
			if err := img.WriteBlock(addr, raw); err != nil {
				return err
			}
			dirInode.Size -= DirEntrySize
			dirInode.MTime = now
			return WriteInode(img, dirIdx, dirInode)
		}
	}
	return fmt.Errorf("%w: %q", ErrPathNotFound, name)
}
