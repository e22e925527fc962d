package pseudofs

import (
	"encoding/binary"
	"fmt"
)

// AllocateBlock pops the head of the free-block list, zeroes it, and
// returns its block number. It never returns a number outside
// [FirstDataBlock, TotalBlocks).
func AllocateBlock(img *Image, sb *Superblock) (int, error) {
	if sb.FreeBlocks == 0 || sb.FreeBlockHead == 0 {
		return 0, ErrNoSpace
	}
	head := int(sb.FreeBlockHead)
	if head < FirstDataBlock || head >= TotalBlocks {
		return 0, fmt.Errorf("%w: free-block head %d out of range", ErrCorruption, head)
	}

	raw, err := img.ReadBlock(head)
	if err != nil {
		return 0, err
	}
	next := binary.LittleEndian.Uint32(raw[:4])

	if err := img.ZeroBlock(head); err != nil {
		return 0, err
	}
	sb.FreeBlockHead = next
	sb.FreeBlocks--
	return head, nil
}

// DeallocateBlock pushes block k back onto the free-block list. Out of
// range block numbers are silently ignored, which lets rollback paths
// call it without first re-checking what they allocated.
func DeallocateBlock(img *Image, sb *Superblock, block int) {
	if block < FirstDataBlock || block >= TotalBlocks {
		return
	}
	link := make([]byte, BlockSize)
	binary.LittleEndian.PutUint32(link[:4], sb.FreeBlockHead)
	if err := img.WriteBlock(block, link); err != nil {
		return
	}
	sb.FreeBlockHead = uint32(block)
	sb.FreeBlocks++
}

// buildFreeBlockList threads FirstDataBlock -> FirstDataBlock+1 -> ... ->
// TotalBlocks-1 -> 0 and sets the superblock head/count. Used only during
// formatting.
func buildFreeBlockList(img *Image, sb *Superblock) error {
	for k := FirstDataBlock; k < TotalBlocks; k++ {
		link := make([]byte, BlockSize)
		next := uint32(0)
		if k+1 < TotalBlocks {
			next = uint32(k + 1)
		}
		binary.LittleEndian.PutUint32(link[:4], next)
		if err := img.WriteBlock(k, link); err != nil {
			return err
		}
	}
	sb.FreeBlockHead = FirstDataBlock
	sb.FreeBlocks = uint32(TotalBlocks - FirstDataBlock)
	return nil
}

// walkFreeBlocks follows the free-block list from its head, used by the
// debug command to cross-check the free-block count against the
// superblock.
func walkFreeBlocks(img *Image, sb Superblock) ([]int, error) {
	var blocks []int
	cur := sb.FreeBlockHead
	seen := make(map[uint32]bool)
	for cur != 0 {
		if len(blocks) > TotalBlocks {
			return blocks, fmt.Errorf("%w: free-block list longer than %d entries", ErrCorruption, TotalBlocks)
		}
		if seen[cur] {
			return blocks, fmt.Errorf("%w: cycle in free-block list at %d", ErrCorruption, cur)
		}
		seen[cur] = true
		k := int(cur)
		if k < FirstDataBlock || k >= TotalBlocks {
			return blocks, fmt.Errorf("%w: free-block list entry %d out of range", ErrCorruption, k)
		}
		blocks = append(blocks, k)
		raw, err := img.ReadBlock(k)
		if err != nil {
			return blocks, err
		}
		cur = binary.LittleEndian.Uint32(raw[:4])
	}
	return blocks, nil
}
