// Package tokens rewrites artist-authored path templates into glob
// patterns. Templates carry placeholders for frame number, camera, scene
// name, render layer and UV tiles; expansion substitutes literal values
// from a per-pass context and turns everything frame- or tile-variable
// into a single "*" wildcard.
//
// Substitution is an ordered list of regex rules. The order matters:
// earlier substitutions must not re-introduce syntax matched by later
// rules, and the attr-token rule validates its own output before the
// literal-value rules run.
package tokens

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Context carries the literal values substituted into a template. It is
// built once per collection pass and never mutated.
type Context struct {
	// SceneName is the scene base name without directory or extension.
	SceneName string
	// Camera is the renderable camera name.
	Camera string
	// Layer is the render layer the current expansion targets.
	Layer string
	// Frame selects exact-frame mode when non-nil. Dependency collection
	// leaves it nil so frame tokens become wildcards; exact-frame mode is
	// used only when re-deriving per-frame output paths.
	Frame *int
}

// TooBroadError reports a template whose attr-token substitution left no
// literal characters outside "/" and "*". Matching such a pattern would
// sweep up an entire directory tree, so it is rejected outright.
type TooBroadError struct {
	Template string
	Pattern  string
}

func (e *TooBroadError) Error() string {
	return fmt.Sprintf("template %q resolves to %q, which is too broad: use <attr:...> tags only for portions of the path", e.Template, e.Pattern)
}

var (
	frameTokenRE = regexp.MustCompile(`(?i)<frame>|<f[234]?>`)
	framePadRE   = regexp.MustCompile(`(?i)<frame0(\d+)>`)
	hashRunRE    = regexp.MustCompile(`#+`)
	attrTokenRE  = regexp.MustCompile(`(?i)<attr:.*?>`)
	cameraRE     = regexp.MustCompile(`(?i)%c|<camera>`)
	sceneRE      = regexp.MustCompile(`(?i)%s|<scene>`)
	layerRE      = regexp.MustCompile(`(?i)%l|<layer>|<renderlayer>`)
	udimFamilyRE = regexp.MustCompile(`(?i)<udim>|<tile>|<uvtile>|<meshitem>|<u>|<v>`)
	meshitemRE   = regexp.MustCompile(`(?i)<meshitem>`)
	udimRE       = regexp.MustCompile(`(?i)<udim>`)
	tileRE       = regexp.MustCompile(`(?i)<tile>`)
	uvtileRE     = regexp.MustCompile(`(?i)<uvtile>`)
	uvPairRE     = regexp.MustCompile(`(?i)<u>|<v>`)
	framePadsRE  = regexp.MustCompile(`(?i)<frame0\d+>`)
	digitRunRE   = regexp.MustCompile(`\d+`)
	nonGlobRE    = regexp.MustCompile(`[^/*]`)
)

// HasLayerToken reports whether the template carries a render layer
// token. Callers enumerating several layers use this to decide between
// one expansion per layer and a single expansion.
func HasLayerToken(s string) bool {
	return layerRE.MatchString(s)
}

// Expand substitutes every recognized token in template. The result
// contains no token syntax; expanding it again is a no-op.
func Expand(template string, ctx Context) (string, error) {
	out := template

	// Frame tokens first: a later rule must never see "<f4>" again.
	out = frameTokenRE.ReplaceAllStringFunc(out, ctx.frameValue)
	out = framePadRE.ReplaceAllStringFunc(out, ctx.paddedFrameValue)
	out = hashRunRE.ReplaceAllStringFunc(out, ctx.hashFrameValue)

	// Attr tags become wildcards, then the intermediate pattern is
	// checked before any literal value could rescue it.
	if attrTokenRE.MatchString(out) {
		out = attrTokenRE.ReplaceAllString(out, "*")
		if !nonGlobRE.MatchString(out) {
			return "", &TooBroadError{Template: template, Pattern: out}
		}
	}

	out = cameraRE.ReplaceAllLiteralString(out, literalOrWildcard(strings.ReplaceAll(ctx.Camera, ":", "_")))
	out = sceneRE.ReplaceAllLiteralString(out, literalOrWildcard(ctx.SceneName))
	out = layerRE.ReplaceAllLiteralString(out, literalOrWildcard(ctx.Layer))

	// UV tiles are always per-file wildcards, even in exact-frame mode.
	out = udimFamilyRE.ReplaceAllLiteralString(out, "*")

	return out, nil
}

// ExpandPerLayer expands template once per layer when it carries a layer
// token, once with the context's own layer otherwise.
func ExpandPerLayer(template string, ctx Context, layers []string) ([]string, error) {
	if !HasLayerToken(template) || len(layers) == 0 {
		p, err := Expand(template, ctx)
		if err != nil {
			return nil, err
		}
		return []string{p}, nil
	}
	out := make([]string, 0, len(layers))
	for _, layer := range layers {
		layerCtx := ctx
		layerCtx.Layer = layer
		p, err := Expand(template, layerCtx)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// SeqToGlob converts an image sequence path to glob form. Explicit
// sequence tokens win; only when none is present does the heuristic kick
// in and collapse the last run of digits in the basename to "*".
// Single-image paths without digits pass through unchanged.
func SeqToGlob(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	out := p
	if attrTokenRE.MatchString(out) {
		out = attrTokenRE.ReplaceAllString(out, "*")
		if !nonGlobRE.MatchString(out) {
			return "", &TooBroadError{Template: p, Pattern: out}
		}
	}
	out = meshitemRE.ReplaceAllLiteralString(out, "*")

	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "<udim>"):
		return udimRE.ReplaceAllLiteralString(out, "*"), nil
	case strings.Contains(lower, "<tile>"):
		return tileRE.ReplaceAllLiteralString(out, "*"), nil
	case strings.Contains(lower, "<uvtile>"):
		return uvtileRE.ReplaceAllLiteralString(out, "*"), nil
	case strings.Contains(out, "#"):
		return hashRunRE.ReplaceAllLiteralString(out, "*"), nil
	case strings.Contains(lower, "u<u>_v<v>"):
		return uvPairRE.ReplaceAllLiteralString(out, "*"), nil
	case strings.Contains(lower, "<frame0"):
		return framePadsRE.ReplaceAllLiteralString(out, "*"), nil
	}

	dir, base := "", out
	if i := strings.LastIndex(out, "/"); i >= 0 {
		dir, base = out[:i+1], out[i+1:]
	}
	runs := digitRunRE.FindAllStringIndex(base, -1)
	if len(runs) == 0 {
		return out, nil
	}
	last := runs[len(runs)-1]
	return dir + base[:last[0]] + "*" + base[last[1]:], nil
}

func (ctx Context) frameValue(tok string) string {
	if ctx.Frame == nil {
		return "*"
	}
	switch strings.ToLower(tok) {
	case "<f2>":
		return fmt.Sprintf("%02d", *ctx.Frame)
	case "<f3>":
		return fmt.Sprintf("%03d", *ctx.Frame)
	case "<f4>":
		return fmt.Sprintf("%04d", *ctx.Frame)
	}
	return strconv.Itoa(*ctx.Frame)
}

func (ctx Context) paddedFrameValue(tok string) string {
	if ctx.Frame == nil {
		return "*"
	}
	m := framePadRE.FindStringSubmatch(tok)
	width, err := strconv.Atoi(m[1])
	if err != nil || width <= 0 {
		return strconv.Itoa(*ctx.Frame)
	}
	return fmt.Sprintf("%0*d", width, *ctx.Frame)
}

func (ctx Context) hashFrameValue(tok string) string {
	if ctx.Frame == nil {
		return "*"
	}
	return fmt.Sprintf("%0*d", len(tok), *ctx.Frame)
}

func literalOrWildcard(v string) string {
	if v == "" {
		return "*"
	}
	return v
}
