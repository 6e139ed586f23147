// Package transcript loads recorded reasoning sessions from disk.
//
// Three layouts are accepted, chosen by file extension:
//
//	.jsonl        one JSON object per line: {"thought": "...", "index": 3}
//	.yaml, .yml   a list of strings, or a document with a "thoughts" list
//	anything else plain text, thoughts separated by blank lines
package transcript

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmpty is returned when a transcript holds no thoughts.
var ErrEmpty = errors.New("transcript has no thoughts")

// Thought is one step of a recorded session. Index is 1-based.
type Thought struct {
	Index int    `json:"index" yaml:"index"`
	Text  string `json:"thought" yaml:"thought"`
}

// Transcript is a named sequence of thoughts.
type Transcript struct {
	Name     string
	Thoughts []Thought
}

// Load reads the transcript at path.
func Load(path string) (*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var thoughts []Thought
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl":
		thoughts, err = ParseJSONL(f)
	case ".yaml", ".yml":
		thoughts, err = ParseYAML(f)
	default:
		thoughts, err = ParseText(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Transcript{Name: filepath.Base(path), Thoughts: thoughts}, nil
}

// ParseJSONL reads one JSON object per line. Blank lines are skipped; a
// missing index is filled from position.
func ParseJSONL(r io.Reader) ([]Thought, error) {
	var out []Thought
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var t Thought
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return finish(out)
}

// ParseYAML accepts either a top-level sequence or a mapping with a
// "thoughts" key. Sequence items may be plain strings or objects.
func ParseYAML(r io.Reader) ([]Thought, error) {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmpty
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	node := &doc
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	if node.Kind == yaml.MappingNode {
		var wrapped struct {
			Thoughts yaml.Node `yaml:"thoughts"`
		}
		if err := node.Decode(&wrapped); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
		node = &wrapped.Thoughts
	}
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("decode yaml: expected a list of thoughts at line %d", node.Line)
	}

	out := make([]Thought, 0, len(node.Content))
	for _, item := range node.Content {
		var t Thought
		switch item.Kind {
		case yaml.ScalarNode:
			t.Text = item.Value
		case yaml.MappingNode:
			if err := item.Decode(&t); err != nil {
				return nil, fmt.Errorf("decode yaml line %d: %w", item.Line, err)
			}
		default:
			return nil, fmt.Errorf("decode yaml: unexpected node at line %d", item.Line)
		}
		out = append(out, t)
	}
	return finish(out)
}

// ParseText splits r into thoughts on blank lines. Lines within a thought
// are joined with a space.
func ParseText(r io.Reader) ([]Thought, error) {
	var out []Thought
	var cur []string
	flush := func() {
		if len(cur) > 0 {
			out = append(out, Thought{Text: strings.Join(cur, " ")})
			cur = cur[:0]
		}
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	flush()
	return finish(out)
}

// finish drops empty thoughts and assigns positional indices where missing.
func finish(in []Thought) ([]Thought, error) {
	out := in[:0]
	for _, t := range in {
		t.Text = strings.TrimSpace(t.Text)
		if t.Text == "" {
			continue
		}
		if t.Index <= 0 {
			t.Index = len(out) + 1
		}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}
