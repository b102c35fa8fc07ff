package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/theirongolddev/bmadchat/internal/model"
)

// File is one exported conversation on disk.
type File struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// List returns the markdown files in dir, newest first. A missing dir is
// not an error.
func List(dir string) ([]File, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	names, err := doublestar.Glob(os.DirFS(dir), "*.md", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("listing exports: %w", err)
	}

	files := make([]File, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		files = append(files, File{Name: name, Path: path, Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].ModTime.After(files[j].ModTime)
		}
		return files[i].Name > files[j].Name
	})
	return files, nil
}

// Document is an exported conversation read back from disk.
type Document struct {
	AgentName string
	Header    map[string]string
	Turns     []model.Turn
}

// Load parses an exported file. Agent turns are labelled with the heading
// they were written under.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading export: %w", err)
	}
	return Parse(string(data)), nil
}

// Parse reads the document format written by Render.
func Parse(text string) Document {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if i := strings.LastIndex(text, "\n---\n\n"+Footer); i >= 0 {
		text = text[:i]
	}

	doc := Document{Header: map[string]string{}}
	var (
		heading string
		inTurn  bool
		body    []string
	)
	flush := func() {
		if !inTurn {
			return
		}
		content := strings.TrimSpace(strings.Join(body, "\n"))
		if heading == "You" {
			doc.Turns = append(doc.Turns, model.UserTurn(content))
		} else if content != "" {
			doc.Turns = append(doc.Turns, model.AgentTurn(heading, content))
		}
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "## "):
			flush()
			heading, inTurn, body = strings.TrimSpace(line[3:]), true, nil
		case inTurn:
			body = append(body, line)
		case strings.HasPrefix(line, titlePrefix):
			doc.AgentName = strings.TrimSpace(strings.TrimPrefix(line, titlePrefix))
		case strings.HasPrefix(line, "**") && strings.Contains(line, "**: "):
			key, value, _ := strings.Cut(strings.TrimPrefix(line, "**"), "**: ")
			doc.Header[key] = value
		}
	}
	flush()
	return doc
}
