package exam

import (
	"sort"

	"qbank/models"
)

// ResolveRules turns an exam's rule list into the union of eligible chapter
// ids and a merged per-type draw spec.
//
// Topic selectors that point at a subject expand to its child chapters.
// Specs for the same type across rules merge with max count, so a chapter
// appearing in several rules never multiplies the draw; the last rule's
// score wins. Unrecognized type labels are dropped. An exam without rules
// resolves to an empty pool and spec.
func ResolveRules(rules []models.ExamRule, topics []models.Topic) ([]uint, map[string]models.TypeSpec) {
	byID := make(map[uint]models.Topic, len(topics))
	children := make(map[uint][]uint)
	for _, t := range topics {
		byID[t.ID] = t
		if t.ParentID != nil {
			children[*t.ParentID] = append(children[*t.ParentID], t.ID)
		}
	}

	chapterSet := make(map[uint]bool)
	specs := make(map[string]models.TypeSpec)
	for _, rule := range rules {
		for _, id := range rule.TopicIDList() {
			if t, ok := byID[id]; ok && t.IsSubject() {
				for _, child := range children[id] {
					chapterSet[child] = true
				}
				continue
			}
			chapterSet[id] = true
		}
		for _, raw := range rule.SpecList() {
			t, ok := NormalizeType(raw.Type)
			if !ok {
				continue
			}
			spec, seen := specs[t]
			if !seen {
				specs[t] = models.TypeSpec{Type: t, Count: raw.Count, Score: raw.Score}
				continue
			}
			if raw.Count > spec.Count {
				spec.Count = raw.Count
			}
			spec.Score = raw.Score
			specs[t] = spec
		}
	}

	chapters := make([]uint, 0, len(chapterSet))
	for id := range chapterSet {
		chapters = append(chapters, id)
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i] < chapters[j] })
	return chapters, specs
}

// ExpandToChapters maps a mixed subject/chapter id selection to chapter ids
// only, preserving order and de-duplicating. Practice sessions and rule
// normalization at exam save time both use it.
func ExpandToChapters(ids []uint, topics []models.Topic) []uint {
	byID := make(map[uint]models.Topic, len(topics))
	children := make(map[uint][]uint)
	for _, t := range topics {
		byID[t.ID] = t
		if t.ParentID != nil {
			children[*t.ParentID] = append(children[*t.ParentID], t.ID)
		}
	}
	seen := make(map[uint]bool)
	var out []uint
	add := func(id uint) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range ids {
		if t, ok := byID[id]; ok && t.IsSubject() {
			for _, child := range children[id] {
				add(child)
			}
			continue
		}
		add(id)
	}
	return out
}
