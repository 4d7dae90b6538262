// Package frames parses artist-authored frame range expressions like
// "1001-1350", "-5--3" or "1,5,20-25" into explicit frame sequences.
package frames

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// Range is an ordered sequence of frame numbers. Clause order from the
// source expression is preserved, duplicates are not removed.
type Range []int

// ParseError reports a frame range expression that does not match the
// accepted grammar. A bad range silently truncating frames would produce
// an incomplete render, so this is always surfaced to the caller.
type ParseError struct {
	Expr   string
	Clause string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid frame range %q: clause %q does not match N or N-M", e.Expr, e.Clause)
}

// clauseRE matches one comma-separated clause: a signed integer, optionally
// followed by a dash and a second signed integer. Anchoring start before end
// makes the first dash after a complete number the start/end separator, which
// resolves "-5--3" as start=-5 end=-3.
var clauseRE = regexp.MustCompile(`^(-?\d+)(?:-(-?\d+))?$`)

// Parse expands a frame range expression into the full frame sequence.
// Each comma-separated clause is either a single frame ("92", "-5") or an
// inclusive range ("23-26", "45-42", "-97--99"). Descending ranges count
// down by one per step.
func Parse(expr string) (Range, error) {
	var out Range
	for _, clause := range strings.Split(expr, ",") {
		clause = strings.TrimSpace(clause)
		m := clauseRE.FindStringSubmatch(clause)
		if m == nil {
			return nil, &ParseError{Expr: expr, Clause: clause}
		}
		start, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, &ParseError{Expr: expr, Clause: clause}
		}
		if m[2] == "" {
			out = append(out, start)
			continue
		}
		end, err := strconv.Atoi(m[2])
		if err != nil {
			return nil, &ParseError{Expr: expr, Clause: clause}
		}
		if start <= end {
			for f := start; f <= end; f++ {
				out = append(out, f)
			}
		} else {
			for f := start; f >= end; f-- {
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// signBias maps signed frame numbers onto roaring's uint32 domain.
const signBias = int64(1) << 31

// Distinct returns the number of unique frames in the range. Overlapping
// clauses ("1-10,5-15") are common in artist input and the duplicate count
// would overstate render cost.
func (r Range) Distinct() int {
	bm := roaring.New()
	for _, f := range r {
		bm.Add(uint32(int64(f) + signBias))
	}
	return int(bm.GetCardinality())
}

var digitRunRE = regexp.MustCompile(`\d+`)

// ExtractFrameNumber returns the frame number encoded in a file path,
// taken as the last run of digits in the basename. Digits in directory
// names do not count. The second return is false when the basename
// carries no digits.
func ExtractFrameNumber(p string) (int, bool) {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	runs := digitRunRE.FindAllString(base, -1)
	if len(runs) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(runs[len(runs)-1])
	if err != nil {
		return 0, false
	}
	return n, true
}
