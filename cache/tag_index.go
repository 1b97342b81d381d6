package cache

import "sort"

// tagIndex maps tags to member keys and keys back to their tags.
// Every key held by the store has a (possibly empty) record in keys,
// which makes keys the authority on store membership under the cache lock.
type tagIndex struct {
	tags map[string]map[string]struct{}
	keys map[string][]string
}

func newTagIndex() *tagIndex {
	return &tagIndex{
		tags: make(map[string]map[string]struct{}),
		keys: make(map[string][]string),
	}
}

func (t *tagIndex) link(key string, tags []string) {
	t.keys[key] = tags
	for _, tag := range tags {
		members, ok := t.tags[tag]
		if !ok {
			members = make(map[string]struct{}, 1)
			t.tags[tag] = members
		}
		members[key] = struct{}{}
	}
}

// unlink drops key from every tag it belongs to and prunes emptied tags.
func (t *tagIndex) unlink(key string) {
	tags, ok := t.keys[key]
	if !ok {
		return
	}
	delete(t.keys, key)
	for _, tag := range tags {
		members := t.tags[tag]
		delete(members, key)
		if len(members) == 0 {
			delete(t.tags, tag)
		}
	}
}

func (t *tagIndex) has(key string) bool {
	_, ok := t.keys[key]
	return ok
}

func (t *tagIndex) hasTag(tag string) bool {
	_, ok := t.tags[tag]
	return ok
}

// members returns a sorted copy, safe to iterate while unlinking.
func (t *tagIndex) members(tag string) []string {
	members := t.tags[tag]
	if len(members) == 0 {
		return nil
	}
	res := make([]string, 0, len(members))
	for key := range members {
		res = append(res, key)
	}
	sort.Strings(res)
	return res
}

func (t *tagIndex) tagsOf(key string) []string {
	tags := t.keys[key]
	if len(tags) == 0 {
		return nil
	}
	res := make([]string, len(tags))
	copy(res, tags)
	return res
}

func (t *tagIndex) tagCount() int {
	return len(t.tags)
}

func (t *tagIndex) keyCount() int {
	return len(t.keys)
}

func (t *tagIndex) reset() {
	t.tags = make(map[string]map[string]struct{})
	t.keys = make(map[string][]string)
}

// normalizeTags returns a sorted, duplicate free copy of tags.
func normalizeTags(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(tags))
	res := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			return nil, ErrEmptyTag
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		res = append(res, tag)
	}
	sort.Strings(res)
	return res, nil
}
