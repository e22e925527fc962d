package pseudofs

import "strings"

// SplitPath breaks a slash-separated path into its non-empty components.
// A leading "/" is reported separately so callers know whether to
// resolve from root or from the current directory.
func SplitPath(path string) (absolute bool, parts []string) {
	absolute = strings.HasPrefix(path, "/")
	for _, p := range strings.Split(path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return absolute, parts
}

// Resolve walks parts starting from startInode (root if absolute, the
// current directory otherwise), following "." and ".." entries along
// the way, and returns the inode number of the final component.
func Resolve(img *Image, startInode int, path string) (int, error) {
	absolute, parts := SplitPath(path)
	cur := startInode
	if absolute {
		cur = RootInode
	}
	for _, name := range parts {
		in, err := ReadInode(img, cur)
		if err != nil {
			return 0, err
		}
		if !in.IsDir() {
			return 0, ErrNotADirectory
		}
		next, err := FindEntry(img, cur, name)
		if err != nil {
			return 0, err
		}
		cur = next
	}
	return cur, nil
}

// SplitParent splits path into the inode of its parent directory and the
// final path component's name, so callers performing a create/remove can
// resolve the containing directory once and act on the name directly.
func SplitParent(img *Image, startInode int, path string) (parentInode int, name string, err error) {
	absolute, parts := SplitPath(path)
	if len(parts) == 0 {
		return 0, "", ErrPathNotFound
	}
	cur := startInode
	if absolute {
		cur = RootInode
	}
	for _, p := range parts[:len(parts)-1] {
		in, err := ReadInode(img, cur)
		if err != nil {
			return 0, "", err
		}
		if !in.IsDir() {
			return 0, "", ErrNotADirectory
		}
		next, err := FindEntry(img, cur, p)
		if err != nil {
			return 0, "", err
		}
		cur = next
	}
	return cur, parts[len(parts)-1], nil
}
