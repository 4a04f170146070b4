package flashair

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// FileListHeader opens every op=100 response.
const FileListHeader = "WLANSD_FILELIST"

// AttrDirectory is the FAT directory bit of the attribute column.
const AttrDirectory = 0x10

// Entry is one row of a directory listing: dir,name,size,attr,date,time.
type Entry struct {
	Dir  string
	Name string
	Size int64
	Attr int
	Date int // FAT packed date
	Time int // FAT packed time
}

func (e Entry) IsDir() bool {
	return e.Attr&AttrDirectory != 0
}

// Path is the absolute card path of the entry.
func (e Entry) Path() string {
	return JoinPath(e.Dir, e.Name)
}

// JoinPath appends name to a card directory.
func JoinPath(dir, name string) string {
	return strings.TrimRight(dir, "/") + "/" + name
}

// ParseFileList reads an op=100 response for dir. Rows that do not parse are
// skipped; a body without the header yields no entries.
func ParseFileList(dir string, r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read file list: %w", err)
		}
		return nil, nil
	}
	if strings.TrimSpace(sc.Text()) != FileListHeader {
		return nil, nil
	}

	var entries []Entry
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		if e, ok := parseRow(dir, line); ok {
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read file list: %w", err)
	}
	return entries, nil
}

// parseRow splits from the right so names containing commas survive.
func parseRow(dir, line string) (Entry, bool) {
	fields := strings.Split(line, ",")
	if len(fields) < 6 {
		return Entry{}, false
	}

	tail := fields[len(fields)-4:]
	nums := make([]int64, len(tail))
	for i, f := range tail {
		n, err := strconv.ParseInt(strings.TrimSpace(f), 10, 64)
		if err != nil {
			return Entry{}, false
		}
		nums[i] = n
	}

	head := strings.Join(fields[:len(fields)-4], ",")
	rowDir, name, ok := strings.Cut(head, ",")
	if prefix := dir + ","; strings.HasPrefix(head, prefix) {
		rowDir, name, ok = dir, strings.TrimPrefix(head, prefix), true
	}
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return Entry{}, false
	}

	return Entry{
		Dir:  rowDir,
		Name: name,
		Size: nums[0],
		Attr: int(nums[1]),
		Date: int(nums[2]),
		Time: int(nums[3]),
	}, true
}
