package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/html"

	"github.com/faithgate/faithgate/internal/model"
)

// LoadFile reads evidence chunks from a file. Supported formats, by
// extension:
//
//	.json         JSON array of chunks
//	.jsonl/.ndjson  one JSON chunk per line
//	.html/.htm    visible text of the page as a single chunk
//	anything else plain text as a single chunk
//
// Chunks without an ID are assigned "c<n>" by position, so callers
// always get usable provenance in verdicts. Chunk order in the file
// is preserved; the gate never re-ranks.
func LoadFile(path string) ([]model.EvidenceChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evidence file: %w", err)
	}

	var chunks []model.EvidenceChunk
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &chunks); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

	case ".jsonl", ".ndjson":
		chunks, err = parseLines(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

	case ".html", ".htm":
		text, err := visibleText(string(data))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		chunks = []model.EvidenceChunk{{Text: text, Source: "file", Title: filepath.Base(path)}}

	default:
		text := strings.TrimSpace(string(data))
		if text != "" {
			chunks = []model.EvidenceChunk{{Text: text, Source: "file", Title: filepath.Base(path)}}
		}
	}

	for i := range chunks {
		if chunks[i].ID == "" {
			chunks[i].ID = fmt.Sprintf("c%d", i+1)
		}
	}
	return chunks, nil
}

func parseLines(data []byte) ([]model.EvidenceChunk, error) {
	var chunks []model.EvidenceChunk
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var chunk model.EvidenceChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// visibleText extracts rendered text from HTML, skipping script-like
// elements, so a saved article page can serve as evidence directly.
func visibleText(htmlContent string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.TrimSpace(buf.String()), nil
}
