package similarity

import "github.com/dupeforge/dupeforge/models"

// ExactMatch groups code blocks whose content hash is identical. This is the
// cheapest and highest-confidence layer: no normalization is applied here
// because CodeBlock.ContentHash already collapsed whitespace upstream in the
// block extractor.
func ExactMatch(blocks []models.CodeBlock) map[string][]models.CodeBlock {
	groups := map[string][]models.CodeBlock{}
	for _, b := range blocks {
		groups[b.ContentHash] = append(groups[b.ContentHash], b)
	}
	for hash, members := range groups {
		if len(members) < 2 {
			delete(groups, hash)
		}
	}
	return groups
}
