// Package archive scans text-based scene container files (RIB archives,
// V-Ray scene exports) for the file references buried inside them. The
// scan is breadth-first over a work queue: references to further archives
// are enqueued and scanned in turn, a visited set breaks cycles and
// bounds total work to the number of distinct reachable files.
//
// This is deliberately a best-effort pattern match, not a parser of the
// container formats. Binary-encoded archives are skipped whole; false
// negatives are expected there.
package archive

import (
	"bufio"
	"bytes"
	"io"
	"path"
	"regexp"
	"strings"

	billy "github.com/go-git/go-billy/v5"
	"github.com/charmbracelet/log"

	"github.com/zync/zync-maya/internal/handlers"
)

// MaxLineBytes is the hard per-read cap. Archives can carry pathological
// or binary-looking lines; bounding each read keeps memory flat.
const MaxLineBytes = 10000

// sniffLen is how much of a file the binary probe inspects.
const sniffLen = 8000

// Item is one queued scan candidate. Created by a node handler or by the
// scanner itself, consumed exactly once, never mutated after enqueue.
type Item struct {
	// Path of the candidate container file.
	Path string
	// Origin is the node or file the candidate was discovered through.
	Origin string
	// Kind tags the candidate; only archive-kind items are scanned.
	Kind handlers.Kind
}

// Edge records one discovered reference: Target was found inside Source.
type Edge struct {
	Source string
	Target string
	Kind   handlers.Kind
}

// Status is the terminal state of a scan.
type Status int

const (
	// Completed means the queue drained normally.
	Completed Status = iota
	// Cancelled means the caller's predicate tripped between items.
	// Edges discovered before the trip are still valid.
	Cancelled
)

func (s Status) String() string {
	if s == Cancelled {
		return "cancelled"
	}
	return "completed"
}

// Pattern is one structural extraction rule applied to every line.
type Pattern struct {
	// RE must capture the referenced path in group 1.
	RE *regexp.Regexp
	// Kind tags what the reference points at.
	Kind handlers.Kind
	// Recurse enqueues matches for their own content scan.
	Recurse bool
}

// DefaultPatterns covers RIB archive references, the RIB texture
// parameter strings, and V-Ray scene file assignments. Order is fixed:
// the archive-reference pattern runs first so nested archives recurse
// even when a later pattern would also match the line.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{RE: regexp.MustCompile(`"([^"]*?\.rib)"`), Kind: handlers.KindArchive, Recurse: true},
		{RE: regexp.MustCompile(`"string fileTextureName" \["([^"]*)"`), Kind: handlers.KindTexture},
		{RE: regexp.MustCompile(`"string lightColorMap" \["([^"]*)"`), Kind: handlers.KindTexture},
		{RE: regexp.MustCompile(`"string filename" \["([^"]*)"`), Kind: handlers.KindTexture},
		{RE: regexp.MustCompile(`^\s*file\s*=\s*["']?([^"';]+)["']?;?\s*$`), Kind: handlers.KindTexture},
	}
}

// Scanner drives one BFS content scan. Zero state survives a Scan call;
// a Scanner is safe to reuse sequentially.
type Scanner struct {
	FS       billy.Filesystem
	Patterns []Pattern
	// Cancel is polled once per queue item. Nil means never cancelled.
	Cancel func() bool
	// Progress, when set, receives (completed, completed+queued) after
	// each item. The total grows as new items are enqueued: it is a
	// live lower bound, not a fixed denominator.
	Progress func(done, total int)
	Logger   *log.Logger
}

// NewScanner returns a scanner with the default pattern set.
func NewScanner(fs billy.Filesystem, logger *log.Logger) *Scanner {
	return &Scanner{FS: fs, Patterns: DefaultPatterns(), Logger: logger}
}

// Scan processes the seed items breadth-first and returns every
// discovered edge. Seeds that are not archive-kind are ignored. Read
// failures and binary content drop the item, never the scan.
func (s *Scanner) Scan(seeds []Item) ([]Edge, Status) {
	var queue []Item
	visited := make(map[string]bool)
	for _, seed := range seeds {
		if seed.Kind != handlers.KindArchive {
			continue
		}
		p := Normalize(seed.Path)
		if p == "" || visited[p] {
			continue
		}
		visited[p] = true
		seed.Path = p
		queue = append(queue, seed)
	}

	var edges []Edge
	done := 0
	for len(queue) > 0 {
		if s.Cancel != nil && s.Cancel() {
			return edges, Cancelled
		}
		item := queue[0]
		queue = queue[1:]
		done++

		for _, edge := range s.scanFile(item) {
			edges = append(edges, edge)
			if edge.Kind == handlers.KindArchive {
				target := Normalize(edge.Target)
				if !visited[target] {
					visited[target] = true
					queue = append(queue, Item{Path: target, Origin: item.Path, Kind: handlers.KindArchive})
				}
			}
		}
		if s.Progress != nil {
			s.Progress(done, done+len(queue))
		}
	}
	return edges, Completed
}

func (s *Scanner) debugf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Debugf(format, args...)
	}
}

// scanFile extracts the references of one container file. Within a file
// duplicate matches collapse to one edge.
func (s *Scanner) scanFile(item Item) []Edge {
	f, err := s.FS.Open(item.Path)
	if err != nil {
		s.debugf("skipping unreadable archive %s: %v", item.Path, err)
		return nil
	}
	defer f.Close()

	if s.looksBinary(f) {
		s.debugf("skipping binary archive %s", item.Path)
		return nil
	}

	seen := make(map[string]bool)
	var edges []Edge
	br := bufio.NewReader(f)
	for {
		line, err := readLine(br, MaxLineBytes)
		if line != "" {
			for _, pat := range s.Patterns {
				for _, m := range pat.RE.FindAllStringSubmatch(line, -1) {
					target := Normalize(m[1])
					if target == "" || seen[target] {
						continue
					}
					if _, statErr := s.FS.Stat(target); statErr != nil {
						continue
					}
					seen[target] = true
					kind := pat.Kind
					if !pat.Recurse {
						kind = nonRecursiveKind(pat.Kind)
					}
					edges = append(edges, Edge{Source: item.Path, Target: target, Kind: kind})
				}
			}
		}
		if err != nil {
			if err != io.EOF {
				s.debugf("read error in archive %s: %v", item.Path, err)
			}
			return edges
		}
	}
}

// nonRecursiveKind keeps non-recursing patterns from re-enqueueing even
// when they happen to match an archive extension.
func nonRecursiveKind(k handlers.Kind) handlers.Kind {
	if k == handlers.KindArchive {
		return handlers.KindOther
	}
	return k
}

// looksBinary probes the head of the file for NUL bytes and rewinds.
// The scan assumes text; a NUL means a binary archive variant whose
// insides are out of scope.
func (s *Scanner) looksBinary(f billy.File) bool {
	buf := make([]byte, sniffLen)
	n, err := f.Read(buf)
	if n <= 0 && err != nil {
		return false
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return true
	}
	return bytes.IndexByte(buf[:n], 0) >= 0
}

// readLine reads up to max bytes of one line, without the trailing
// newline. A line longer than max is returned in max-byte chunks, which
// is fine for pattern matching purposes.
func readLine(br *bufio.Reader, max int) (string, error) {
	var sb strings.Builder
	for sb.Len() < max {
		b, err := br.ReadByte()
		if err != nil {
			return sb.String(), err
		}
		if b == '\n' {
			break
		}
		sb.WriteByte(b)
	}
	return sb.String(), nil
}

// Normalize cleans a discovered path for visited-set and dedup keys:
// backslashes become forward slashes, redundant separators collapse.
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}
