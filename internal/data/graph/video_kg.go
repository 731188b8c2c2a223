// Package graph implements the Graph Store Adapter: Video/Topic/Entity/Tag
// nodes and the weighted HAS_TOPIC/HAS_ENTITY/HAS_TAG edges that back the
// Recall & Rerank Engine's graph lane. Grounded on the teacher's
// neo4j_material_kg.go (MERGE-based upsert, best-effort schema init,
// ExecuteWrite/ExecuteRead session shape) over the same neo4jdb.Client.
package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/yungbote/streemm-backend/internal/platform/logger"
	"github.com/yungbote/streemm-backend/internal/platform/neo4jdb"
)

const (
	EdgeHasTopic  = "HAS_TOPIC"
	EdgeHasEntity = "HAS_ENTITY"
	EdgeHasTag    = "HAS_TAG"
)

// Weighted is a (node id, canonical name, weight) triple passed to the
// write side (ReplaceVideoEdges).
type Weighted struct {
	ID            uuid.UUID
	CanonicalName string
	Weight        float64
}

type VideoKG struct {
	client *neo4jdb.Client
	log    *logger.Logger

	constraintsOnce sync.Once
}

func NewVideoKG(client *neo4jdb.Client, baseLog *logger.Logger) *VideoKG {
	return &VideoKG{client: client, log: baseLog.With("service", "graph.VideoKG")}
}

func (g *VideoKG) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return g.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: g.client.Database,
	})
}

// EnsureConstraints creates the unique-id constraint for each label once per
// process, matching the teacher's "best-effort schema init" idiom: failures
// are logged, not fatal, since a constraint that already exists from a
// prior process is the common case.
func (g *VideoKG) EnsureConstraints(ctx context.Context) {
	g.constraintsOnce.Do(func() {
		if g.client == nil || g.client.Driver == nil {
			return
		}
		session := g.session(ctx, neo4j.AccessModeWrite)
		defer session.Close(ctx)

		stmts := []string{
			`CREATE CONSTRAINT video_id_unique IF NOT EXISTS FOR (v:Video) REQUIRE v.id IS UNIQUE`,
			`CREATE CONSTRAINT topic_id_unique IF NOT EXISTS FOR (t:Topic) REQUIRE t.id IS UNIQUE`,
			`CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.id IS UNIQUE`,
			`CREATE CONSTRAINT tag_id_unique IF NOT EXISTS FOR (t:Tag) REQUIRE t.id IS UNIQUE`,
		}
		for _, q := range stmts {
			if res, err := session.Run(ctx, q, nil); err != nil {
				g.log.Warn("neo4j constraint init failed (continuing)", "error", err)
			} else {
				_, _ = res.Consume(ctx)
			}
		}
	})
}

// UpsertVideo MERGEs the Video node, setting its canonical_name (the video
// title, lowercased) and a synced_at bookkeeping timestamp.
func (g *VideoKG) UpsertVideo(ctx context.Context, videoID uuid.UUID, canonicalName string) error {
	if g.client == nil || g.client.Driver == nil || videoID == uuid.Nil {
		return nil
	}
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (v:Video {id: $id})
SET v.canonical_name = $canonical_name, v.synced_at = $synced_at
`, map[string]any{
			"id":             videoID.String(),
			"canonical_name": canonicalName,
			"synced_at":      time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

// ReplaceVideoEdges MERGEs the given label's nodes and kind edges for
// videoID and deletes any existing edge of that kind not present in the
// new set, mirroring the relational ReplaceVideo{Topics,Entities,Tags}
// semantics on the graph side.
func (g *VideoKG) ReplaceVideoEdges(ctx context.Context, videoID uuid.UUID, label, edgeKind, weightProp string, items []Weighted) error {
	if g.client == nil || g.client.Driver == nil || videoID == uuid.Nil {
		return nil
	}
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	rows := make([]map[string]any, 0, len(items))
	keepIDs := make([]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, map[string]any{
			"node_id":        it.ID.String(),
			"canonical_name": it.CanonicalName,
			"weight":         it.Weight,
		})
		keepIDs = append(keepIDs, it.ID.String())
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if len(rows) > 0 {
			cypher := fmt.Sprintf(`
UNWIND $rows AS r
MERGE (n:%s {id: r.node_id})
SET n.canonical_name = r.canonical_name
WITH n, r
MATCH (v:Video {id: $video_id})
MERGE (v)-[e:%s]->(n)
SET e.%s = r.weight
`, label, edgeKind, weightProp)
			res, err := tx.Run(ctx, cypher, map[string]any{"rows": rows, "video_id": videoID.String()})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}

		pruneCypher := fmt.Sprintf(`
MATCH (v:Video {id: $video_id})-[e:%s]->(n:%s)
WHERE NOT n.id IN $keep
DELETE e
`, edgeKind, label)
		res, err := tx.Run(ctx, pruneCypher, map[string]any{"video_id": videoID.String(), "keep": keepIDs})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

// DeleteVideo detaches and deletes the Video node, then prunes any
// Topic/Entity/Tag node left with no remaining incoming edge, per spec.md
// §5's deletion invariant.
func (g *VideoKG) DeleteVideo(ctx context.Context, videoID uuid.UUID) error {
	if g.client == nil || g.client.Driver == nil || videoID == uuid.Nil {
		return nil
	}
	session := g.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (v:Video {id: $id})
DETACH DELETE v
`, map[string]any{"id": videoID.String()})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		for _, label := range []string{"Topic", "Entity", "Tag"} {
			cypher := fmt.Sprintf(`
MATCH (n:%s)
WHERE NOT (n)<-[]-()
DETACH DELETE n
`, label)
			res, err := tx.Run(ctx, cypher, nil)
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// neighborEdge is one edge in the in-process walk adjacency, directed from
// fromID to toID (the adjacency map holds both a Video->Entity/Tag entry
// and its Entity/Tag->Video mirror for every edge read, so a walk can hop
// seed->video->other-entity-or-tag->other-video and so on).
type neighborEdge struct {
	fromID string
	toID   string
	weight float64
}

// videoEntityTagEdge is one Video-[HAS_ENTITY|HAS_TAG]->Entity/Tag row read
// out of the Cypher neighborhood projection.
type videoEntityTagEdge struct {
	videoID string
	nodeID  string
	weight  float64
}

// WalkForVideos runs the graph-lane recall walk described in spec.md
// §4.7: seed from Entity/Tag ids, project the Video∪Entity∪Tag
// neighborhood in one Cypher read, then perform `walksPerNode` weighted
// random walks of length `walkLength` entirely in-process, aggregating
// visit counts over Video nodes reached at any hop. This replaces a Graph
// Data Science plugin's gds.graph.project/gds.randomWalk.stream with the
// equivalent adjacency-multiset sampling spec.md §9's Non-goals explicitly
// allow (DESIGN.md Open Question resolution).
func (g *VideoKG) WalkForVideos(ctx context.Context, seedIDs []uuid.UUID, walksPerNode, walkLength int) (map[uuid.UUID]int, error) {
	visits := map[uuid.UUID]int{}
	if g.client == nil || g.client.Driver == nil || len(seedIDs) == 0 {
		return visits, nil
	}

	seeds := make([]string, 0, len(seedIDs))
	for _, id := range seedIDs {
		seeds = append(seeds, id.String())
	}

	session := g.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	rows, err := neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]videoEntityTagEdge, error) {
		res, err := tx.Run(ctx, `
MATCH (v:Video)-[e:HAS_ENTITY|HAS_TAG]->(n)
WHERE n:Entity OR n:Tag
RETURN v.id AS video_id, n.id AS node_id,
       coalesce(e.importance, e.weight, 1.0) AS w
`, nil)
		if err != nil {
			return nil, err
		}
		var out []videoEntityTagEdge
		for res.Next(ctx) {
			rec := res.Record()
			videoID, _ := rec.Get("video_id")
			nodeID, _ := rec.Get("node_id")
			w, _ := rec.Get("w")
			weight, _ := w.(float64)
			if weight <= 0 {
				weight = 1.0
			}
			out = append(out, videoEntityTagEdge{videoID: videoID.(string), nodeID: nodeID.(string), weight: weight})
		}
		if err := res.Err(); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	return walkVisits(seeds, rows, walksPerNode, walkLength, newWalkRNG()), nil
}

// walkVisits runs the in-process weighted random walk over the bidirectional
// adjacency built from rows, starting one walk-batch per seed. Split out of
// WalkForVideos so the walk/adjacency algorithm is testable without a live
// Neo4j session.
func walkVisits(seeds []string, rows []videoEntityTagEdge, walksPerNode, walkLength int, rng *walkRNG) map[uuid.UUID]int {
	visits := map[uuid.UUID]int{}

	// Bidirectional adjacency: every edge contributes both a
	// video->entity/tag hop and its entity/tag->video mirror, so a walk can
	// cross from one video to another via a shared entity or tag.
	adjacency := map[string][]neighborEdge{}
	isVideo := map[string]bool{}
	for _, r := range rows {
		isVideo[r.videoID] = true
		adjacency[r.videoID] = append(adjacency[r.videoID], neighborEdge{fromID: r.videoID, toID: r.nodeID, weight: r.weight})
		adjacency[r.nodeID] = append(adjacency[r.nodeID], neighborEdge{fromID: r.nodeID, toID: r.videoID, weight: r.weight})
	}
	// Deterministic iteration order for reproducible walk sequences.
	for k := range adjacency {
		sort.Slice(adjacency[k], func(i, j int) bool { return adjacency[k][i].toID < adjacency[k][j].toID })
	}

	for _, seed := range seeds {
		neighbors := adjacency[seed]
		if len(neighbors) == 0 {
			continue
		}
		for w := 0; w < walksPerNode; w++ {
			current := neighbors
			for step := 0; step < walkLength; step++ {
				if len(current) == 0 {
					break
				}
				pick := weightedPick(rng, current)
				if isVideo[pick.toID] {
					if id, err := uuid.Parse(pick.toID); err == nil {
						visits[id]++
					}
				}
				current = adjacency[pick.toID]
			}
		}
	}
	return visits
}

func weightedPick(rng *walkRNG, edges []neighborEdge) neighborEdge {
	total := 0.0
	for _, e := range edges {
		total += e.weight
	}
	if total <= 0 {
		return edges[0]
	}
	r := rng.Float64() * total
	acc := 0.0
	for _, e := range edges {
		acc += e.weight
		if r <= acc {
			return e
		}
	}
	return edges[len(edges)-1]
}
