package pseudofs

import "fmt"

// AllocateInode pops the head of the free-inode list, re-initialises the
// record (type=file, size=0, timestamps=now, addresses cleared) and
// returns its index in [1, MaxInodes).
func AllocateInode(img *Image, sb *Superblock, now uint32) (int, error) {
	if sb.FreeInodes == 0 || sb.FreeInodeHead == 0 {
		return 0, ErrNoInodes
	}
	idx := int(sb.FreeInodeHead)
	free, err := ReadInode(img, idx)
	if err != nil {
		return 0, err
	}
	sb.FreeInodeHead = free.Indirect
	sb.FreeInodes--

	fresh := Inode{Type: uint32(TypeFile), Size: 0, CTime: now, MTime: now}
	if err := WriteInode(img, idx, fresh); err != nil {
		return 0, err
	}
	return idx, nil
}

// DeallocateInode pushes inode i back onto the free-inode list by
// overloading its Indirect field as the next-free link. Out-of-range i is
// ignored.
func DeallocateInode(img *Image, sb *Superblock, i int) {
	if i < 0 || i >= MaxInodes {
		return
	}
	freed := Inode{Indirect: sb.FreeInodeHead}
	if err := WriteInode(img, i, freed); err != nil {
		return
	}
	sb.FreeInodeHead = uint32(i)
	sb.FreeInodes++
}

// buildFreeInodeList threads inode 1 -> 2 -> ... -> MaxInodes-1 -> 0
// through the Indirect overload and sets the superblock head/count.
// Inode 0 is never linked: it is reserved for root.
func buildFreeInodeList(img *Image, sb *Superblock) error {
	for i := 1; i < MaxInodes; i++ {
		next := uint32(0)
		if i+1 < MaxInodes {
			next = uint32(i + 1)
		}
		if err := WriteInode(img, i, Inode{Indirect: next}); err != nil {
			return err
		}
	}
	sb.FreeInodeHead = 1
	sb.FreeInodes = uint32(MaxInodes - 1)
	return nil
}

// walkFreeInodes follows the free-inode list from its head, used by the
// debug command to cross-check the free-inode count against the
// superblock.
func walkFreeInodes(img *Image, sb Superblock) ([]int, error) {
	var inodes []int
	cur := sb.FreeInodeHead
	seen := make(map[uint32]bool)
	for cur != 0 {
		if len(inodes) > MaxInodes {
			return inodes, fmt.Errorf("%w: free-inode list longer than %d entries", ErrCorruption, MaxInodes)
		}
		if seen[cur] {
			return inodes, fmt.Errorf("%w: cycle in free-inode list at %d", ErrCorruption, cur)
		}
		seen[cur] = true
		i := int(cur)
		if i < 1 || i >= MaxInodes {
			return inodes, fmt.Errorf("%w: free-inode list entry %d out of range", ErrCorruption, i)
		}
		inodes = append(inodes, i)
		in, err := ReadInode(img, i)
		if err != nil {
			return inodes, err
		}
		cur = in.Indirect
	}
	return inodes, nil
}
