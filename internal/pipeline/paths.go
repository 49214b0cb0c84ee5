package pipeline

import (
	"os"

	"github.com/karrick/godirwalk"
)

// ExpandPaths replaces directory arguments with the regular files below
// them when recursive is set. Files are listed in lexical order within
// each directory. Other arguments are passed through unchanged, so a
// missing path or a directory given without recursive reaches the
// extractor and fails there with a read error naming the path.
func ExpandPaths(paths []string, recursive bool) ([]string, error) {
	if !recursive {
		return paths, nil
	}

	expanded := make([]string, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			expanded = append(expanded, p)
			continue
		}

		err = godirwalk.Walk(p, &godirwalk.Options{
			Callback: func(osPathname string, de *godirwalk.Dirent) error {
				if de.IsRegular() {
					expanded = append(expanded, osPathname)
				}
				return nil
			},
		})
		if err != nil {
			return nil, err
		}
	}
	return expanded, nil
}
