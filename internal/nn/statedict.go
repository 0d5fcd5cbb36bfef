package nn

import (
	"fmt"

	"github.com/born-ml/gpt2/internal/tensor"
)

// EntryKind distinguishes trainable parameters from derived buffers.
type EntryKind int

const (
	// KindParam is a trainable parameter.
	KindParam EntryKind = iota
	// KindBuffer is a non-trainable derived constant (e.g. the causal mask).
	KindBuffer
)

// String returns the kind name.
func (k EntryKind) String() string {
	switch k {
	case KindParam:
		return "param"
	case KindBuffer:
		return "buffer"
	default:
		return "unknown"
	}
}

// StateEntry is one named slot of a StateDict.
type StateEntry[B tensor.Backend] struct {
	Name    string
	Kind    EntryKind
	Param   *Parameter[B]
	AliasOf string // non-empty when Name is a second name for another entry's parameter
}

// IsAlias reports whether the entry is a second name for a shared parameter.
func (e StateEntry[B]) IsAlias() bool {
	return e.AliasOf != ""
}

// StateDict is the ordered mapping from hierarchical name to parameter for
// a whole model. Insertion order follows construction order.
//
// A parameter shared between two roles (weight tying) appears once as a
// regular entry and once as an alias pointing at the same Parameter.
type StateDict[B tensor.Backend] struct {
	entries []StateEntry[B]
	index   map[string]int
}

// NewStateDict creates an empty StateDict.
func NewStateDict[B tensor.Backend]() *StateDict[B] {
	return &StateDict[B]{index: make(map[string]int)}
}

// Add registers a trainable parameter. Panics on a duplicate name.
func (sd *StateDict[B]) Add(name string, p *Parameter[B]) {
	sd.put(StateEntry[B]{Name: name, Kind: KindParam, Param: p})
}

// AddBuffer registers a non-trainable buffer. Panics on a duplicate name.
func (sd *StateDict[B]) AddBuffer(name string, p *Parameter[B]) {
	sd.put(StateEntry[B]{Name: name, Kind: KindBuffer, Param: p})
}

// Alias registers name as a second name for the parameter already stored
// under target. Panics if target is missing or name is taken.
func (sd *StateDict[B]) Alias(name, target string) {
	i, ok := sd.index[target]
	if !ok {
		panic(fmt.Sprintf("StateDict: alias target %q not registered", target))
	}
	base := sd.entries[i]
	if base.IsAlias() {
		target = base.AliasOf
	}
	sd.put(StateEntry[B]{Name: name, Kind: base.Kind, Param: base.Param, AliasOf: target})
}

func (sd *StateDict[B]) put(e StateEntry[B]) {
	if _, dup := sd.index[e.Name]; dup {
		panic(fmt.Sprintf("StateDict: duplicate name %q", e.Name))
	}
	sd.index[e.Name] = len(sd.entries)
	sd.entries = append(sd.entries, e)
}

// Len returns the number of entries, including buffers and aliases.
func (sd *StateDict[B]) Len() int {
	return len(sd.entries)
}

// Names returns every entry name in insertion order.
func (sd *StateDict[B]) Names() []string {
	names := make([]string, len(sd.entries))
	for i, e := range sd.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of all entries in insertion order.
func (sd *StateDict[B]) Entries() []StateEntry[B] {
	return append([]StateEntry[B](nil), sd.entries...)
}

// Entry returns the entry registered under name.
func (sd *StateDict[B]) Entry(name string) (StateEntry[B], bool) {
	i, ok := sd.index[name]
	if !ok {
		return StateEntry[B]{}, false
	}
	return sd.entries[i], true
}

// Get returns the parameter registered under name.
func (sd *StateDict[B]) Get(name string) (*Parameter[B], bool) {
	e, ok := sd.Entry(name)
	return e.Param, ok
}

// Trainable returns the names of all non-buffer entries, aliases included,
// in insertion order.
func (sd *StateDict[B]) Trainable() []string {
	var names []string
	for _, e := range sd.entries {
		if e.Kind == KindParam {
			names = append(names, e.Name)
		}
	}
	return names
}

// Params returns each distinct trainable parameter once, in insertion order.
func (sd *StateDict[B]) Params() []*Parameter[B] {
	var params []*Parameter[B]
	for _, e := range sd.entries {
		if e.Kind == KindParam && !e.IsAlias() {
			params = append(params, e.Param)
		}
	}
	return params
}
