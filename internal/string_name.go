package objbind

import (
	"hash/fnv"
	"hash/maphash"

	xsync "github.com/puzpuzpuz/xsync/v2"
)

// StringName is an interned symbolic name (class, method, property or
// signal). Two StringNames interned from equal text compare equal with ==,
// which only compares the id and content hash.
type StringName struct {
	hash uint64
	id   uint32
}

type nameTable struct {
	byText *xsync.MapOf[string, StringName]
	mu     *xsync.RBMutex
	texts  []string
}

// The table is append-only: the vocabulary of names is fixed by the
// generated bindings, so entries are never removed.
var names = &nameTable{
	byText: xsync.NewMapOf[StringName](),
	mu:     xsync.NewRBMutex(),
	texts:  []string{""},
}

// Intern returns the token for the given name, creating it on first use.
func Intern(text string) StringName {
	if text == "" {
		return StringName{}
	}

	if name, ok := names.byText.Load(text); ok {
		return name
	}

	name, _ := names.byText.LoadOrCompute(text, func() StringName {
		names.mu.Lock()
		defer names.mu.Unlock()

		names.texts = append(names.texts, text)
		return StringName{
			hash: hashString(text),
			id:   uint32(len(names.texts) - 1),
		}
	})

	return name
}

// InternAll interns every name and returns the tokens in order.
func InternAll(texts ...string) []StringName {
	tokens := make([]StringName, len(texts))
	for i := range texts {
		tokens[i] = Intern(texts[i])
	}
	return tokens
}

// InternedCount returns the number of distinct names interned so far.
func InternedCount() int {
	return names.byText.Size()
}

func (n StringName) String() string {
	if n.id == 0 {
		return ""
	}

	rtok := names.mu.RLock()
	defer names.mu.RUnlock(rtok)
	return names.texts[n.id]
}

func (n StringName) IsEmpty() bool {
	return n.id == 0
}

// Hash returns the 64-bit content hash of the name.
func (n StringName) Hash() uint64 {
	return n.hash
}

// ID returns the dense index of the name, starting at 1.
func (n StringName) ID() uint32 {
	return n.id
}

func hashString(text string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return h.Sum64()
}

func hashStringName(_ maphash.Seed, n StringName) uint64 {
	return n.hash
}

func newStringNameMap[V any]() *xsync.MapOf[StringName, V] {
	return xsync.NewTypedMapOf[StringName, V](hashStringName)
}
