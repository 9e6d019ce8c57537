package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/seward/zeeklite/pkg/types"
)

// Zeek archives logs under yyyy-mm-dd directories
var dateDirPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Discover lists the importable log files under root, newest date
// directory first, files in name order within each directory. When
// daysBack > 0 only the N most recent date directories are considered.
// Root may itself be a single date directory. Deterministic for a given
// filesystem state, so re-running discovery is safe.
func Discover(root string, daysBack int) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", types.ErrRootNotFound, root)
	}

	var dirs []string
	if dateDirPattern.MatchString(filepath.Base(root)) {
		dirs = []string{root}
	} else {
		entries, err := os.ReadDir(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrRootNotFound, root, err)
		}
		for _, e := range entries {
			if e.IsDir() && dateDirPattern.MatchString(e.Name()) {
				dirs = append(dirs, filepath.Join(root, e.Name()))
			}
		}
		// Newest first; date directory names sort lexicographically
		sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
		if daysBack > 0 && len(dirs) > daysBack {
			dirs = dirs[:daysBack]
		}
	}

	var files []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			// A date directory that vanished mid-run is not fatal
			continue
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if strings.HasSuffix(e.Name(), ".log") || strings.HasSuffix(e.Name(), ".log.gz") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		for _, name := range names {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}
