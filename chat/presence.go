package chat

import "sort"

// UserSet is an immutable set of usernames. The zero value is empty and
// ready to use; With and Without return new sets and never touch the receiver.
type UserSet struct {
	m map[string]struct{}
}

// NewUserSet returns a set holding names.
func NewUserSet(names ...string) UserSet {
	s := UserSet{}
	for _, n := range names {
		s = s.With(n)
	}
	return s
}

// With returns a set that also contains name. Empty names are ignored.
func (s UserSet) With(name string) UserSet {
	if name == "" || s.Has(name) {
		return s
	}
	m := make(map[string]struct{}, len(s.m)+1)
	for k := range s.m {
		m[k] = struct{}{}
	}
	m[name] = struct{}{}
	return UserSet{m: m}
}

// Without returns a set that does not contain name.
func (s UserSet) Without(name string) UserSet {
	if !s.Has(name) {
		return s
	}
	m := make(map[string]struct{}, len(s.m))
	for k := range s.m {
		if k != name {
			m[k] = struct{}{}
		}
	}
	return UserSet{m: m}
}

// Has reports membership.
func (s UserSet) Has(name string) bool {
	_, ok := s.m[name]
	return ok
}

// Len returns the number of members.
func (s UserSet) Len() int { return len(s.m) }

// Members returns the usernames sorted.
func (s UserSet) Members() []string {
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Tracker holds the presence and typing sets. It is owned by the session
// loop; readers only ever see the snapshots it hands out.
type Tracker struct {
	presence UserSet
	typing   UserSet
}

// Joined records a user.joined delta.
func (t *Tracker) Joined(name string) { t.presence = t.presence.With(name) }

// Left records a user.left delta.
func (t *Tracker) Left(name string) { t.presence = t.presence.Without(name) }

// Typing applies the latest typing state of a user.
func (t *Tracker) Typing(name string, isTyping bool) {
	if isTyping {
		t.typing = t.typing.With(name)
		return
	}
	t.typing = t.typing.Without(name)
}

// ResetPresence empties the presence set. The typing set is left alone.
func (t *Tracker) ResetPresence() { t.presence = UserSet{} }

// Presence returns the current presence snapshot.
func (t *Tracker) Presence() UserSet { return t.presence }

// TypingUsers returns the current typing snapshot.
func (t *Tracker) TypingUsers() UserSet { return t.typing }
