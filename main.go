package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"kajzer/pseudofs/internal/pseudofs"
)

// parseCommand splits a command line into its whitespace-separated
// arguments. An empty line parses to no arguments rather than an error,
// so the REPL can just re-prompt.
func parseCommand(line string) []string {
	return strings.Fields(line)
}

func main() {
	pseudofs.L.SetLevel(logrus.WarnLevel)

	fs, err := pseudofs.Load()
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		fs, err = pseudofs.Format()
		if err != nil {
			fmt.Fprintln(os.Stderr, "format:", err)
			os.Exit(1)
		}
		if err := fs.Save(); err != nil {
			fmt.Fprintln(os.Stderr, "save:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "load:", err)
		os.Exit(1)
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("fs:%s> ", fs.CurrentPath)
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		args := parseCommand(line)
		if len(args) == 0 {
			continue
		}

		if args[0] == "exit" {
			if err := fs.Save(); err != nil {
				fmt.Fprintln(os.Stderr, "save:", err)
			}
			break
		}

		if err := dispatch(fs, args); err != nil {
			fmt.Println(err)
		} else if err := fs.Save(); err != nil {
			fmt.Fprintln(os.Stderr, "save:", err)
		}
	}
}

func dispatch(fs *pseudofs.FS, args []string) error {
	switch args[0] {
	case "touch":
		return cmdTouch(fs, args[1:])
	case "rm":
		return cmdRm(fs, args[1:])
	case "mkdir":
		return cmdMkdir(fs, args[1:])
	case "rmdir":
		return cmdRmdir(fs, args[1:])
	case "cd":
		return cmdCd(fs, args[1:])
	case "ls":
		return cmdLs(fs, args[1:])
	case "cp":
		return cmdCp(fs, args[1:])
	case "cat":
		return cmdCat(fs, args[1:])
	case "sum":
		return cmdSum(fs, args[1:])
	case "debug":
		return cmdDebug(fs, args[1:])
	default:
		return fmt.Errorf("unknown command %q (valid: touch rm mkdir rmdir cd ls cp cat sum debug exit)", args[0])
	}
}

func cmdTouch(fs *pseudofs.FS, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: touch name [size]")
	}
	var size uint64
	if len(args) == 2 {
		n, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("touch: invalid size %q", args[1])
		}
		size = n
	}
	parentIdx, name, err := pseudofs.SplitParent(fs.Image, fs.CurrentInode, args[0])
	if err != nil {
		return err
	}
	_, err = fs.CreateFile(parentIdx, name, uint32(size))
	return err
}

func cmdRm(fs *pseudofs.FS, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rm path")
	}
	parentIdx, name, err := pseudofs.SplitParent(fs.Image, fs.CurrentInode, args[0])
	if err != nil {
		return err
	}
	return fs.RemoveFile(parentIdx, name)
}

func cmdMkdir(fs *pseudofs.FS, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mkdir path")
	}
	parentIdx, name, err := pseudofs.SplitParent(fs.Image, fs.CurrentInode, args[0])
	if err != nil {
		return err
	}
	_, err = fs.CreateDir(parentIdx, name)
	return err
}

func cmdRmdir(fs *pseudofs.FS, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: rmdir path")
	}
	parentIdx, name, err := pseudofs.SplitParent(fs.Image, fs.CurrentInode, args[0])
	if err != nil {
		return err
	}
	return fs.RemoveDir(parentIdx, name)
}

func cmdCd(fs *pseudofs.FS, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cd path")
	}
	return fs.Chdir(args[0])
}

func cmdLs(fs *pseudofs.FS, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("usage: ls [path]")
	}
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	entries, err := fs.List(path)
	if err != nil {
		return err
	}
	fmt.Printf("%-28s %-10s %10s  %s\n", "Name", "Type", "Size", "Modified")
	for _, e := range entries {
		typeName := "File"
		if e.Type == pseudofs.TypeDir {
			typeName = "Directory"
		}
		fmt.Printf("%-28s %-10s %10d  %s\n", e.Name, typeName, e.Size, time.Unix(int64(e.MTime), 0).Format("2006-01-02 15:04:05"))
	}
	return nil
}

func cmdCp(fs *pseudofs.FS, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: cp src dest")
	}
	return fs.CopyFile(args[0], args[1])
}

func cmdCat(fs *pseudofs.FS, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cat path")
	}
	data, err := fs.ReadFile(args[0])
	if err != nil {
		return err
	}
	os.Stdout.Write(data)
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Println()
	}
	return nil
}

func cmdSum(fs *pseudofs.FS, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: sum")
	}
	s := fs.Summary()
	fmt.Println("File System Summary:")
	fmt.Println("-------------------")
	fmt.Printf("Total space: %d bytes (%d blocks)\n", s.TotalBytes, s.TotalBlocks)
	fmt.Printf("Used space: %d bytes (%d blocks, %.1f%%)\n", s.UsedBytes, s.UsedBlocks, s.UsedPercent)
	fmt.Printf("Free space: %d bytes (%d blocks, %.1f%%)\n", s.FreeBytes, s.FreeBlocks, s.FreePercent)
	fmt.Printf("Inodes: %d used, %d free, %d total\n", s.UsedInodes, s.FreeInodes, s.TotalInodes)
	return nil
}

func cmdDebug(fs *pseudofs.FS, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: debug")
	}
	r := fs.Debug()
	fmt.Printf("superblock free blocks: %d (walked %d)\n", r.Superblock.FreeBlocks, r.FreeBlockCount)
	fmt.Printf("superblock free inodes: %d (walked %d)\n", r.Superblock.FreeInodes, r.FreeInodeCount)
	if r.FreeBlockListErr != nil {
		fmt.Println("free block list:", r.FreeBlockListErr)
	}
	if r.FreeInodeListErr != nil {
		fmt.Println("free inode list:", r.FreeInodeListErr)
	}
	return nil
}
