package domain

import (
	"fmt"
	"unicode/utf8"
)

// Limits on a tenant's collections.
const (
	MaxCollections       = 10
	MaxCollectionNameLen = 50
	MaxCollectionURILen  = 200
)

// CollectionType is the tag attached to every collection and certificate.
const CollectionType = "Academic Certificate"

// CollectionRef is a collection owned by exactly one tenant.
type CollectionRef struct {
	Address Address
	Bump    uint8
	Name    string
	URI     string
}

// Collections is a fixed-capacity, insertion-ordered list of collections.
// The zero value is empty and ready to use.
type Collections struct {
	items [MaxCollections]CollectionRef
	n     int
}

// Append adds ref at the end. It is the only way to grow the list.
func (c *Collections) Append(ref CollectionRef) error {
	if c.n >= MaxCollections {
		return ErrCollectionLimitReached
	}
	c.items[c.n] = ref
	c.n++
	return nil
}

// Len returns the number of collections held.
func (c Collections) Len() int {
	return c.n
}

// Full reports whether no more collections can be appended.
func (c Collections) Full() bool {
	return c.n >= MaxCollections
}

// All returns a copy of the collections in creation order.
func (c Collections) All() []CollectionRef {
	out := make([]CollectionRef, c.n)
	copy(out, c.items[:c.n])
	return out
}

// Find returns the collection with the given address.
func (c Collections) Find(addr Address) (CollectionRef, bool) {
	for _, ref := range c.items[:c.n] {
		if ref.Address == addr {
			return ref, true
		}
	}
	return CollectionRef{}, false
}

// ValidateCollection checks the descriptive metadata of a new collection.
func ValidateCollection(name, uri string) error {
	if err := validateText("name", name, MaxCollectionNameLen); err != nil {
		return err
	}
	return validateText("uri", uri, MaxCollectionURILen)
}

func validateText(field, value string, limit int) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(value) > limit {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d characters", limit)}
	}
	return nil
}
