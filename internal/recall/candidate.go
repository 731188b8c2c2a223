package recall

import "github.com/yungbote/streemm-backend/internal/platform/searchindex"

// LaneOS and LaneGraph label which recall lane produced a Candidate, kept
// as metadata through the final blend per spec.md §4.7.
const (
	LaneOS    = "os"
	LaneGraph = "graph"
)

// Candidate is one recall-lane result carrying enough of the indexed
// document to compute Jaccard similarity and final relevance.
type Candidate struct {
	VideoID   string
	Doc       searchindex.VideoDoc
	Lane      string
	Relevance float64
	OrigIndex int
}

// canonicalNameSet unions a document's entity and tag canonical names,
// the similarity basis spec.md §4.7 names for MMR in both lanes.
func canonicalNameSet(doc searchindex.VideoDoc) map[string]struct{} {
	set := make(map[string]struct{}, len(doc.Entities)+len(doc.Tags))
	for _, e := range doc.Entities {
		set[e.CanonicalName] = struct{}{}
	}
	for _, t := range doc.Tags {
		set[t.CanonicalName] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
