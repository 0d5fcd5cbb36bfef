package checkpoint

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/born-ml/gpt2/internal/gpt"
)

// Source identifies a foreign checkpoint layout.
type Source string

// Known sources.
const (
	SourceHFStateDict Source = "hf-state-dict"
	SourceHFModel     Source = "hf-model"
	SourceHFHub       Source = "hf-hub"
)

// Convention describes one foreign naming and layout scheme.
//
// Names are split into globals (embeddings, final norm, head) and per-block
// roles. A foreign block name is Prefix + BlockPrefix + "." + index + "." + role.
type Convention struct {
	Source  Source
	Version int

	Prefix      string // prepended to every foreign name except HeadName
	BlockPrefix string // foreign name of the block list

	// HeadName is the foreign name of the tied output head. Empty when the
	// source omits it; the token table then covers both roles.
	HeadName string

	// BufferSuffixes mark foreign entries that are derived constants.
	BufferSuffixes []string

	Globals    map[string]string // local name -> foreign name (without Prefix)
	BlockRoles map[string]string // local block role -> foreign block role

	// Transposed lists foreign block roles stored as [in, out] rather than
	// [out, in].
	Transposed []string

	reverseGlobals map[string]string
	reverseRoles   map[string]string
}

// IncludesHead reports whether the source stores the tied head separately.
func (c *Convention) IncludesHead() bool {
	return c.HeadName != ""
}

// huggingFaceGPT2 is the GPT-2 layout of the transformers library, whose
// Conv1D layers keep weights transposed.
func huggingFaceGPT2(source Source, prefix, head string) *Convention {
	c := &Convention{
		Source:         source,
		Version:        1,
		Prefix:         prefix,
		BlockPrefix:    "h",
		HeadName:       head,
		BufferSuffixes: []string{".attn.bias", ".attn.masked_bias"},
		Globals: map[string]string{
			gpt.TokenEmbeddingName + ".weight":    "wte.weight",
			gpt.PositionEmbeddingName + ".weight": "wpe.weight",
			gpt.FinalNormName + ".scale":          "ln_f.weight",
			gpt.FinalNormName + ".shift":          "ln_f.bias",
		},
		BlockRoles: map[string]string{
			"ln1.scale":                     "ln_1.weight",
			"ln1.shift":                     "ln_1.bias",
			"attn.input_projection.weight":  "attn.c_attn.weight",
			"attn.input_projection.bias":    "attn.c_attn.bias",
			"attn.output_projection.weight": "attn.c_proj.weight",
			"attn.output_projection.bias":   "attn.c_proj.bias",
			"ln2.scale":                     "ln_2.weight",
			"ln2.shift":                     "ln_2.bias",
			"mlp.up_projection.weight":      "mlp.c_fc.weight",
			"mlp.up_projection.bias":        "mlp.c_fc.bias",
			"mlp.down_projection.weight":    "mlp.c_proj.weight",
			"mlp.down_projection.bias":      "mlp.c_proj.bias",
		},
		Transposed: []string{
			"attn.c_attn.weight",
			"attn.c_proj.weight",
			"mlp.c_fc.weight",
			"mlp.c_proj.weight",
		},
	}
	c.buildReverse()
	return c
}

var conventions = map[Source]*Convention{
	SourceHFStateDict: huggingFaceGPT2(SourceHFStateDict, "transformer.", "lm_head.weight"),
	SourceHFModel:     huggingFaceGPT2(SourceHFModel, "transformer.", ""),
	SourceHFHub:       huggingFaceGPT2(SourceHFHub, "", ""),
}

// Lookup returns the convention registered for source.
func Lookup(source Source) (*Convention, error) {
	c, ok := conventions[source]
	if !ok {
		return nil, &AlignmentError{Kind: ErrUnknownSource, Details: fmt.Sprintf("%q (known: %v)", source, Sources())}
	}
	return c, nil
}

// Sources returns the registered sources in sorted order.
func Sources() []Source {
	out := make([]Source, 0, len(conventions))
	for s := range conventions {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// Detect picks the convention whose naming matches the foreign names.
// A source with a name prefix wins over one without, since every prefixed
// name also looks unprefixed once the prefix is stripped. Among sources
// sharing a prefix, one that stores the head is chosen only when the head
// is present.
func Detect(names []string) (*Convention, error) {
	candidates := make([]*Convention, 0, len(conventions))
	for _, s := range Sources() {
		candidates = append(candidates, conventions[s])
	}
	slices.SortStableFunc(candidates, func(a, b *Convention) int {
		if d := len(b.Prefix) - len(a.Prefix); d != 0 {
			return d
		}
		return boolRank(b.IncludesHead()) - boolRank(a.IncludesHead())
	})

	for _, c := range candidates {
		if c.IncludesHead() && !slices.Contains(names, c.HeadName) {
			continue
		}
		for _, name := range names {
			if _, ok := c.LocalName(name); ok {
				return c, nil
			}
		}
	}
	return nil, &AlignmentError{Kind: ErrUnknownSource, Details: "no known convention matches the checkpoint names"}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (c *Convention) buildReverse() {
	c.reverseGlobals = make(map[string]string, len(c.Globals))
	for local, foreign := range c.Globals {
		c.reverseGlobals[foreign] = local
	}
	c.reverseRoles = make(map[string]string, len(c.BlockRoles))
	for local, foreign := range c.BlockRoles {
		c.reverseRoles[foreign] = local
	}
}

// IsBuffer reports whether a foreign name is a non-trainable buffer.
func (c *Convention) IsBuffer(foreign string) bool {
	for _, suffix := range c.BufferSuffixes {
		if strings.HasSuffix(foreign, suffix) {
			return true
		}
	}
	return false
}

// IsTransposed reports whether a foreign weight is stored as [in, out].
func (c *Convention) IsTransposed(foreign string) bool {
	_, role, ok := c.splitBlock(strings.TrimPrefix(foreign, c.Prefix))
	return ok && slices.Contains(c.Transposed, role)
}

// ForeignName maps a local parameter name to its foreign name.
func (c *Convention) ForeignName(local string) (string, bool) {
	if local == gpt.HeadWeightName {
		return c.HeadName, c.IncludesHead()
	}
	if f, ok := c.Globals[local]; ok {
		return c.Prefix + f, true
	}

	rest, ok := strings.CutPrefix(local, gpt.BlockName+".")
	if !ok {
		return "", false
	}
	idx, role, ok := strings.Cut(rest, ".")
	if !ok || !isIndex(idx) {
		return "", false
	}
	f, ok := c.BlockRoles[role]
	if !ok {
		return "", false
	}
	return c.Prefix + c.BlockPrefix + "." + idx + "." + f, true
}

// LocalName maps a foreign parameter name to its local name.
func (c *Convention) LocalName(foreign string) (string, bool) {
	if c.IncludesHead() && foreign == c.HeadName {
		return gpt.HeadWeightName, true
	}
	name, ok := strings.CutPrefix(foreign, c.Prefix)
	if !ok {
		return "", false
	}
	if l, ok := c.reverseGlobals[name]; ok {
		return l, true
	}
	idx, role, ok := c.splitBlock(name)
	if !ok {
		return "", false
	}
	l, ok := c.reverseRoles[role]
	if !ok {
		return "", false
	}
	return gpt.BlockName + "." + idx + "." + l, true
}

// splitBlock splits "h.3.attn.c_attn.weight" into ("3", "attn.c_attn.weight").
func (c *Convention) splitBlock(name string) (idx, role string, ok bool) {
	rest, ok := strings.CutPrefix(name, c.BlockPrefix+".")
	if !ok {
		return "", "", false
	}
	idx, role, ok = strings.Cut(rest, ".")
	if !ok || !isIndex(idx) {
		return "", "", false
	}
	return idx, role, true
}

func isIndex(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && strconv.Itoa(n) == s
}
