//go:build mage

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type pkgStats struct {
	Package string `json:"package"`
	Prod    int    `json:"go_loc_prod"`
	Test    int    `json:"go_loc_test"`
}

// Stats prints production and test line counts per package, one JSON
// object per line.
func Stats() error {
	byDir := map[string]*pkgStats{}
	err := filepath.Walk(".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			switch path {
			case "vendor", ".git", "magefiles", "_examples", binaryDir:
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		count, err := countLines(path)
		if err != nil {
			return nil
		}
		dir := filepath.Dir(path)
		s := byDir[dir]
		if s == nil {
			s = &pkgStats{Package: dir}
			byDir[dir] = s
		}
		if strings.HasSuffix(path, "_test.go") {
			s.Test += count
		} else {
			s.Prod += count
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(byDir))
	for d := range byDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)
	total := pkgStats{Package: "total"}
	for _, d := range dirs {
		s := byDir[d]
		total.Prod += s.Prod
		total.Test += s.Test
		if err := printStats(s); err != nil {
			return err
		}
	}
	return printStats(&total)
}

func printStats(s *pkgStats) error {
	line, err := json.Marshal(s)
	if err != nil {
		return err
	}
	fmt.Println(string(line))
	return nil
}

func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		count++
	}
	return count, scanner.Err()
}
