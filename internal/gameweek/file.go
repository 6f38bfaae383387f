package gameweek

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML document describing a calendar.
type File struct {
	Season  string       `yaml:"season"`
	Windows []FileWindow `yaml:"windows"`
}

// FileWindow is a single window entry in a calendar file.
type FileWindow struct {
	Gameweek int    `yaml:"gameweek"`
	Start    string `yaml:"start"`
	End      string `yaml:"end"`
}

// LoadFile reads a calendar from a YAML file.
func LoadFile(path string) (Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Calendar{}, fmt.Errorf("failed to read calendar file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML calendar document.
func Parse(data []byte) (Calendar, error) {
	_, cal, err := ParseFile(data)
	return cal, err
}

// ParseFile decodes a YAML calendar document and also returns the raw
// document, whose Season names the calendar.
func ParseFile(data []byte) (File, Calendar, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, Calendar{}, fmt.Errorf("failed to parse calendar file: %w", err)
	}

	windows := make([]Window, 0, len(f.Windows))
	for _, fw := range f.Windows {
		start, err := time.Parse(DateLayout, fw.Start)
		if err != nil {
			return f, Calendar{}, fmt.Errorf("%w: gameweek %d start %q", ErrInvalidWindow, fw.Gameweek, fw.Start)
		}
		end, err := time.Parse(DateLayout, fw.End)
		if err != nil {
			return f, Calendar{}, fmt.Errorf("%w: gameweek %d end %q", ErrInvalidWindow, fw.Gameweek, fw.End)
		}
		windows = append(windows, Window{Gameweek: fw.Gameweek, Start: start, End: end})
	}
	cal, err := New(windows)
	return f, cal, err
}
