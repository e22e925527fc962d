package pseudofs

import (
	"fmt"
	"sort"
	"time"
)

// FS is the open, in-memory handle used by every shell command: the raw
// image, its superblock, and the user's current-directory state.
type FS struct {
	Image *Image
	SB    Superblock

	CurrentInode int
	CurrentPath  string
}

func now() uint32 {
	return uint32(time.Now().Unix())
}

// blocksNeeded returns how many data blocks a file of size bytes occupies,
// and whether an indirect block is required to reach them.
func blocksNeeded(size uint32) (direct, indirectChildren int, needsIndirect bool) {
	total := int((uint64(size) + BlockSize - 1) / BlockSize)
	if total <= DirectBlocks {
		return total, 0, false
	}
	return DirectBlocks, total - DirectBlocks, true
}

// CreateFile implements touch: it allocates an inode, enough data blocks
// to hold size zero-filled bytes, and binds name to the new inode in
// dirIdx. On any failure every block and the inode it allocated are
// released and the directory is left untouched.
func (fs *FS) CreateFile(dirIdx int, name string, size uint32) (int, error) {
	log := opLog("touch").WithField(FieldName, name).WithField(FieldSize, size)

	if _, err := FindEntry(fs.Image, dirIdx, name); err == nil {
		return 0, fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}

	nDirect, nIndirectChildren, needsIndirect := blocksNeeded(size)
	if nIndirectChildren > PointersPerBlock {
		return 0, ErrFileTooLarge
	}

	idx, err := AllocateInode(fs.Image, &fs.SB, now())
	if err != nil {
		return 0, err
	}
	in, err := ReadInode(fs.Image, idx)
	if err != nil {
		DeallocateInode(fs.Image, &fs.SB, idx)
		return 0, err
	}

	var allocatedBlocks []int
	rollback := func() {
		for _, b := range allocatedBlocks {
			DeallocateBlock(fs.Image, &fs.SB, b)
		}
		DeallocateInode(fs.Image, &fs.SB, idx)
		log.WithField("allocated_blocks", len(allocatedBlocks)).WithField("allocated_inodes", 1).Warn("rolled back")
	}

	for i := 0; i < nDirect; i++ {
		b, err := AllocateBlock(fs.Image, &fs.SB)
		if err != nil {
			rollback()
			return 0, err
		}
		allocatedBlocks = append(allocatedBlocks, b)
		in.Direct[i] = uint32(b)
	}

	if needsIndirect {
		indirectBlock, err := AllocateBlock(fs.Image, &fs.SB)
		if err != nil {
			rollback()
			return 0, err
		}
		allocatedBlocks = append(allocatedBlocks, indirectBlock)
		table := make([]uint32, PointersPerBlock)
		for i := 0; i < nIndirectChildren; i++ {
			b, err := AllocateBlock(fs.Image, &fs.SB)
			if err != nil {
				rollback()
				return 0, err
			}
			allocatedBlocks = append(allocatedBlocks, b)
			table[i] = uint32(b)
		}
		if err := writePointerTable(fs.Image, indirectBlock, table); err != nil {
			rollback()
			return 0, err
		}
		in.Indirect = uint32(indirectBlock)
	}

	in.Type = uint32(TypeFile)
	in.Size = size
	if err := WriteInode(fs.Image, idx, in); err != nil {
		rollback()
		return 0, err
	}

	if err := AddEntry(fs.Image, &fs.SB, dirIdx, name, idx, now()); err != nil {
		rollback()
		return 0, err
	}

	log.WithField(FieldInode, idx).Debug("file created")
	return idx, nil
}

// RemoveFile implements rm: it unlinks name from dirIdx and releases the
// inode and every block (direct, indirect table, indirect children) it
// owned.
func (fs *FS) RemoveFile(dirIdx int, name string) error {
	idx, err := FindEntry(fs.Image, dirIdx, name)
	if err != nil {
		return err
	}
	in, err := ReadInode(fs.Image, idx)
	if err != nil {
		return err
	}
	if !in.IsFile() {
		return ErrNotAFile
	}
	if err := RemoveEntry(fs.Image, dirIdx, name, now()); err != nil {
		return err
	}
	fs.freeInodeBlocks(in)
	DeallocateInode(fs.Image, &fs.SB, idx)
	opLog("rm").WithField(FieldName, name).WithField(FieldInode, idx).Debug("file removed")
	return nil
}

func (fs *FS) freeInodeBlocks(in Inode) {
	for _, d := range in.Direct {
		if d != 0 {
			DeallocateBlock(fs.Image, &fs.SB, int(d))
		}
	}
	if in.Indirect != 0 {
		if table, err := readPointerTable(fs.Image, int(in.Indirect)); err == nil {
			for _, c := range table {
				if c != 0 {
					DeallocateBlock(fs.Image, &fs.SB, int(c))
				}
			}
		}
		DeallocateBlock(fs.Image, &fs.SB, int(in.Indirect))
	}
}

// CreateDir implements mkdir: it allocates an inode and one data block
// pre-populated with "." and ".." entries, then binds name in dirIdx.
func (fs *FS) CreateDir(dirIdx int, name string) (int, error) {
	if _, err := FindEntry(fs.Image, dirIdx, name); err == nil {
		return 0, fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	}

	idx, err := AllocateInode(fs.Image, &fs.SB, now())
	if err != nil {
		return 0, err
	}
	rollback := func() {
		DeallocateInode(fs.Image, &fs.SB, idx)
		opLog("mkdir").WithField("allocated_inodes", 1).Warn("rolled back")
	}

	block, err := AllocateBlock(fs.Image, &fs.SB)
	if err != nil {
		rollback()
		return 0, err
	}
	rollback = func() {
		DeallocateBlock(fs.Image, &fs.SB, block)
		DeallocateInode(fs.Image, &fs.SB, idx)
		opLog("mkdir").WithField("allocated_blocks", 1).WithField("allocated_inodes", 1).Warn("rolled back")
	}

	in := Inode{Type: uint32(TypeDir), CTime: now(), MTime: now()}
	in.Direct[0] = uint32(block)
	in.Size = DirEntrySize * 2
	if err := WriteInode(fs.Image, idx, in); err != nil {
		rollback()
		return 0, err
	}

	raw := make([]byte, BlockSize)
	copy(raw[0:DirEntrySize], encodeDirEntry(".", idx))
	copy(raw[DirEntrySize:2*DirEntrySize], encodeDirEntry("..", dirIdx))
	if err := fs.Image.WriteBlock(block, raw); err != nil {
		rollback()
		return 0, err
	}

	if err := AddEntry(fs.Image, &fs.SB, dirIdx, name, idx, now()); err != nil {
		rollback()
		return 0, err
	}

	opLog("mkdir").WithField(FieldName, name).WithField(FieldInode, idx).Debug("directory created")
	return idx, nil
}

// RemoveDir implements rmdir: it refuses a non-empty directory (anything
// beyond "." and "..") and otherwise frees it exactly like RemoveFile.
func (fs *FS) RemoveDir(dirIdx int, name string) error {
	idx, err := FindEntry(fs.Image, dirIdx, name)
	if err != nil {
		return err
	}
	if idx == RootInode {
		return ErrRootImmutable
	}
	in, err := ReadInode(fs.Image, idx)
	if err != nil {
		return err
	}
	if !in.IsDir() {
		return ErrNotADirectory
	}
	entries, err := ReadAllEntries(fs.Image, idx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name != "." && e.Name != ".." {
			return ErrNotEmpty
		}
	}
	if err := RemoveEntry(fs.Image, dirIdx, name, now()); err != nil {
		return err
	}
	fs.freeInodeBlocks(in)
	DeallocateInode(fs.Image, &fs.SB, idx)
	opLog("rmdir").WithField(FieldName, name).WithField(FieldInode, idx).Debug("directory removed")
	return nil
}

// Chdir implements cd: it resolves path against the current directory
// and, if it names a directory, updates CurrentInode/CurrentPath.
func (fs *FS) Chdir(path string) error {
	idx, err := Resolve(fs.Image, fs.CurrentInode, path)
	if err != nil {
		return err
	}
	in, err := ReadInode(fs.Image, idx)
	if err != nil {
		return err
	}
	if !in.IsDir() {
		return ErrNotADirectory
	}
	fs.CurrentInode = idx
	fs.CurrentPath = normalizeChdirPath(fs.CurrentPath, path)
	return nil
}

func normalizeChdirPath(current, target string) string {
	absolute, parts := SplitPath(target)
	segs := []string{}
	if !absolute {
		_, cur := SplitPath(current)
		segs = append(segs, cur...)
	}
	for _, p := range parts {
		switch p {
		case ".":
		case "..":
			if len(segs) > 0 {
				segs = segs[:len(segs)-1]
			}
		default:
			segs = append(segs, p)
		}
	}
	if len(segs) == 0 {
		return "/"
	}
	out := ""
	for _, s := range segs {
		out += "/" + s
	}
	return out
}

// ListEntry is one line of `ls` output: a live directory entry alongside
// the type, size and modification-time of the inode it names.
type ListEntry struct {
	Name  string
	Inode int
	Type  InodeType
	Size  uint32
	MTime uint32
}

// List implements ls: it resolves path (or the current directory when
// path is empty), reads its live entries, and returns them sorted
// lexicographically by name with each entry's type/size/mtime attached.
func (fs *FS) List(path string) ([]ListEntry, error) {
	idx := fs.CurrentInode
	if path != "" {
		var err error
		idx, err = Resolve(fs.Image, fs.CurrentInode, path)
		if err != nil {
			return nil, err
		}
	}
	raw, err := ReadAllEntries(fs.Image, idx)
	if err != nil {
		return nil, err
	}

	entries := make([]ListEntry, len(raw))
	for i, e := range raw {
		in, err := ReadInode(fs.Image, e.Inode)
		if err != nil {
			return nil, err
		}
		entries[i] = ListEntry{
			Name:  e.Name,
			Inode: e.Inode,
			Type:  InodeType(in.Type),
			Size:  in.Size,
			MTime: in.MTime,
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// ReadFile implements cat: it returns the live byte content of the file
// at path, truncated to its recorded Size.
func (fs *FS) ReadFile(path string) ([]byte, error) {
	idx, err := Resolve(fs.Image, fs.CurrentInode, path)
	if err != nil {
		return nil, err
	}
	in, err := ReadInode(fs.Image, idx)
	if err != nil {
		return nil, err
	}
	if !in.IsFile() {
		return nil, ErrNotAFile
	}
	return fs.readInodeData(in)
}

func (fs *FS) readInodeData(in Inode) ([]byte, error) {
	out := make([]byte, 0, in.Size)
	addrs, err := dirBlockAddrs(fs.Image, in)
	if err != nil {
		return nil, err
	}
	for _, addr := range addrs {
		raw, err := fs.Image.ReadBlock(addr)
		if err != nil {
			return nil, err
		}
		remaining := int(in.Size) - len(out)
		if remaining <= 0 {
			break
		}
		if remaining > BlockSize {
			remaining = BlockSize
		}
		out = append(out, raw[:remaining]...)
	}
	return out, nil
}

// CopyFile implements cp: it reads the source file's content and creates
// a new file at dest with that content, byte for byte.
func (fs *FS) CopyFile(src, dest string) error {
	data, err := fs.ReadFile(src)
	if err != nil {
		return err
	}
	parentIdx, name, err := SplitParent(fs.Image, fs.CurrentInode, dest)
	if err != nil {
		return err
	}
	idx, err := fs.CreateFile(parentIdx, name, uint32(len(data)))
	if err != nil {
		return err
	}
	in, err := ReadInode(fs.Image, idx)
	if err != nil {
		return err
	}
	addrs, err := dirBlockAddrs(fs.Image, in)
	if err != nil {
		return err
	}
	offset := 0
	for _, addr := range addrs {
		end := offset + BlockSize
		if end > len(data) {
			end = len(data)
		}
		raw := make([]byte, BlockSize)
		copy(raw, data[offset:end])
		if err := fs.Image.WriteBlock(addr, raw); err != nil {
			return err
		}
		offset = end
	}
	return nil
}

// Summary implements sum: total/used/free blocks and bytes, used/free/total
// inodes, and the percentage of data blocks in use.
type Summary struct {
	TotalBlocks int
	UsedBlocks  int
	FreeBlocks  int

	TotalBytes int
	UsedBytes  int
	FreeBytes  int

	TotalInodes int
	UsedInodes  int
	FreeInodes  int

	UsedPercent float64
	FreePercent float64
}

func (fs *FS) Summary() Summary {
	total := TotalBlocks - FirstDataBlock
	free := int(fs.SB.FreeBlocks)
	used := total - free

	totalInodes := MaxInodes - 1
	freeInodes := int(fs.SB.FreeInodes)

	return Summary{
		TotalBlocks: total,
		UsedBlocks:  used,
		FreeBlocks:  free,

		TotalBytes: total * BlockSize,
		UsedBytes:  used * BlockSize,
		FreeBytes:  free * BlockSize,

		TotalInodes: totalInodes,
		UsedInodes:  totalInodes - freeInodes,
		FreeInodes:  freeInodes,

		UsedPercent: float64(used) * 100.0 / float64(total),
		FreePercent: float64(free) * 100.0 / float64(total),
	}
}

// DebugReport implements debug: a cross-check of the superblock's counts
// against an actual walk of both free lists.
type DebugReport struct {
	Superblock       Superblock
	FreeBlockCount   int
	FreeInodeCount   int
	FreeBlockListErr error
	FreeInodeListErr error
}

func (fs *FS) Debug() DebugReport {
	blocks, blockErr := walkFreeBlocks(fs.Image, fs.SB)
	inodes, inodeErr := walkFreeInodes(fs.Image, fs.SB)
	return DebugReport{
		Superblock:       fs.SB,
		FreeBlockCount:   len(blocks),
		FreeInodeCount:   len(inodes),
		FreeBlockListErr: blockErr,
		FreeInodeListErr: inodeErr,
	}
}
