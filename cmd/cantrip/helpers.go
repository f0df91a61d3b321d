package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cantrip/internal/config"
	"cantrip/internal/ingest"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// gatherFiles resolves command arguments into batch members. Directory
// arguments expand to their image files one level deep; explicit file
// arguments are passed through untouched so the validator can report
// unsupported types by name.
func gatherFiles(args []string, title, description string) ([]ingest.File, error) {
	var paths []string
	seen := make(map[string]bool)

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			paths = append(paths, path)
		}
	}

	for _, arg := range args {
		path, err := config.ExpandPath(strings.TrimSpace(arg))
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("inspect path %q: %w", arg, err)
		}
		if !info.IsDir() {
			add(path)
			continue
		}

		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read directory %q: %w", arg, err)
		}
		var matched []string
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				matched = append(matched, filepath.Join(path, entry.Name()))
			}
		}
		if len(matched) == 0 {
			return nil, fmt.Errorf("no image files found in %q", arg)
		}
		sort.Strings(matched)
		for _, m := range matched {
			add(m)
		}
	}

	if len(paths) == 0 {
		return nil, errors.New("no files to upload")
	}

	files := make([]ingest.File, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file %q: %w", path, err)
		}
		files = append(files, ingest.File{
			Name:        filepath.Base(path),
			Data:        data,
			Title:       title,
			Description: description,
		})
	}
	return files, nil
}

func buildUploadRows(tasks []ingest.Task) [][]string {
	rows := make([][]string, 0, len(tasks))
	for _, task := range tasks {
		var status, detail string
		switch {
		case task.Status == ingest.StatusSuccess:
			status = "uploaded"
			detail = task.ImageID
		case task.Status == ingest.StatusQueued:
			status = "queued"
			detail = "waiting for connection"
		case task.Duplicate:
			status = "duplicate"
			detail = "already exists as " + task.ImageID
		default:
			status = "failed"
			detail = task.Error
		}
		rows = append(rows, []string{task.FileName, status, detail})
	}
	return rows
}
