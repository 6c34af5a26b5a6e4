package document

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"vigil/internal/logging"
	"vigil/internal/services"
)

// Block is a located entry's line range within the document. Lines carries
// the block text without trailing newlines; End is exclusive and includes
// the terminator line when the block has one.
type Block struct {
	Start int
	End   int
	Lines []string
}

// Terminated reports whether the block ends with the separator line.
func (b Block) Terminated() bool {
	return len(b.Lines) > 0 && isTerminator(b.Lines[len(b.Lines)-1])
}

// Document locates and patches entries in the log file. Every write re-reads
// and re-locates first, so an editor session that moved the entry between
// audit and confirmation cannot make the patch land on the wrong bytes.
type Document struct {
	path   string
	logger *slog.Logger
}

func New(path string, logger *slog.Logger) *Document {
	return &Document{
		path:   path,
		logger: logging.NewComponentLogger(logger, "document"),
	}
}

// Path returns the document file path.
func (d *Document) Path() string {
	return d.path
}

func (d *Document) readLines() ([]string, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, services.Wrap(services.ErrNotFound, "document", "read",
			fmt.Sprintf("reading log document %s", d.path), err)
	}
	return strings.Split(string(data), "\n"), nil
}

// Locate finds the entry block for an index. The block starts at the header
// line whose bracketed index matches, in either header generation, and ends
// at the separator line (inclusive) or the next header (exclusive).
func (d *Document) Locate(index int) (Block, error) {
	lines, err := d.readLines()
	if err != nil {
		return Block{}, err
	}
	return locate(lines, index)
}

func locate(lines []string, index int) (Block, error) {
	start := -1
	for i, line := range lines {
		if headerIndex(line) == index {
			start = i
			break
		}
	}
	if start == -1 {
		return Block{}, services.Wrap(services.ErrNotFound, "document", "locate",
			fmt.Sprintf("entry %d not found in document", index), nil)
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if isTerminator(lines[i]) {
			end = i + 1
			break
		}
		if isHeader(lines[i]) {
			end = i
			break
		}
	}

	block := Block{Start: start, End: end}
	block.Lines = append(block.Lines, lines[start:end]...)
	return block, nil
}

// headerIndex returns the index carried by a header line, or -1.
func headerIndex(line string) int {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		m = legacyHeaderPattern.FindStringSubmatch(line)
	}
	if m == nil {
		return -1
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return -1
	}
	return index
}

// Entry locates and parses the block for an index in one step.
func (d *Document) Entry(index int) (*Entry, Block, error) {
	block, err := d.Locate(index)
	if err != nil {
		return nil, Block{}, err
	}
	entry, err := ParseBlock(block.Lines, index)
	if err != nil {
		return nil, Block{}, err
	}
	return entry, block, nil
}

// Replace swaps the entry's block for new lines, leaving every byte outside
// the located range untouched. The separator is carried over when the old
// block ended with one and the replacement does not repeat it. Failures here
// are write errors, distinct from lookup misses, because the operator has
// already confirmed the change.
func (d *Document) Replace(index int, replacement []string) error {
	lines, err := d.readLines()
	if err != nil {
		return services.Wrap(services.ErrWrite, "document", "replace",
			fmt.Sprintf("re-reading log document %s", d.path), err)
	}

	block, err := locate(lines, index)
	if err != nil {
		return services.Wrap(services.ErrWrite, "document", "replace",
			fmt.Sprintf("entry %d disappeared before write", index), err)
	}

	patch := append([]string(nil), replacement...)
	if block.Terminated() && !containsTerminator(patch) {
		patch = append(patch, terminator)
	}

	updated := make([]string, 0, len(lines)-len(block.Lines)+len(patch))
	updated = append(updated, lines[:block.Start]...)
	updated = append(updated, patch...)
	updated = append(updated, lines[block.End:]...)

	if err := os.WriteFile(d.path, []byte(strings.Join(updated, "\n")), 0o644); err != nil {
		return services.Wrap(services.ErrWrite, "document", "replace",
			fmt.Sprintf("writing log document %s", d.path), err)
	}

	d.logger.Info("entry rewritten",
		logging.Int("index", index),
		logging.Int("lines", len(patch)))
	return nil
}

func containsTerminator(lines []string) bool {
	for _, line := range lines {
		if isTerminator(line) {
			return true
		}
	}
	return false
}
