// Package figuregraph consumes a figure knowledge graph produced by an
// external document-ingestion pipeline (out of scope here) and matches
// scenes to figures by keyword overlap. The graph's atoms are kept in
// an arena-style map and linked only by id, never by interior pointer,
// per the cyclic/graph-shaped data handling this system follows for any
// cross-linked structure.
package figuregraph

import (
	"encoding/json"
	"os"

	"github.com/productionorchestrator/orchestrator/internal/learnings"
	"github.com/productionorchestrator/orchestrator/internal/orcherr"
)

// FigureID identifies one figure atom within a Graph.
type FigureID string

// Figure is one node: a named subject with keywords and a seed image
// reference, plus the ids of any related figures (id-reference links,
// never pointers, so the graph can be freely copied or reloaded).
type Figure struct {
	ID            FigureID `json:"id"`
	Name          string   `json:"name"`
	Keywords      []string `json:"keywords"`
	SeedImagePath string   `json:"seed_image_path,omitempty"`
	RelatedIDs    []FigureID `json:"related_ids,omitempty"`
}

// Graph is the arena: every figure reachable by id, no interior
// pointers between them.
type Graph struct {
	Figures map[FigureID]Figure `json:"figures"`
}

// Load reads a graph exported by the document-ingestion pipeline. A
// missing file is not an error here — callers treat a nil graph as "no
// figures available" and skip biased seeding entirely.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, orcherr.New(orcherr.JournalIO, "figuregraph.load", err)
	}
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, orcherr.New(orcherr.JournalIO, "figuregraph.load", err)
	}
	return &g, nil
}

// MinKeywordOverlap is the hard threshold the pipeline requires before
// a figure is treated as matched to a scene.
const MinKeywordOverlap = 2

// MatchResult pairs a matched figure with its overlap count, used to
// rank multiple candidate matches for one scene.
type MatchResult struct {
	Figure  Figure
	Overlap int
}

// Match finds every figure in g whose keywords overlap sceneKeywords by
// at least MinKeywordOverlap, ordered by descending overlap. Computed
// once per pilot by the caller and cached — Match itself does no
// caching, it is pure.
func Match(g *Graph, sceneKeywords []string) []MatchResult {
	if g == nil {
		return nil
	}
	var results []MatchResult
	for _, f := range g.Figures {
		overlap := learnings.KeywordOverlapCount(sceneKeywords, f.Keywords)
		if overlap >= MinKeywordOverlap {
			results = append(results, MatchResult{Figure: f, Overlap: overlap})
		}
	}
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Overlap > results[j-1].Overlap; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	return results
}

// BestMatch returns the single highest-overlap figure for a scene, or
// ok=false when no figure clears MinKeywordOverlap. The matched figure
// becomes a seed image for the scene's image/video generation, per the
// biased-prompting step.
func BestMatch(g *Graph, sceneKeywords []string) (Figure, bool) {
	matches := Match(g, sceneKeywords)
	if len(matches) == 0 {
		return Figure{}, false
	}
	return matches[0].Figure, true
}

// Cache memoizes Match results by scene ID, so a scene's figure matching
// is computed once and reused by every later lookup of that scene through
// the same Cache (cmd/orchestrator builds one per process).
type Cache struct {
	graph   *Graph
	results map[string][]MatchResult
}

func NewCache(g *Graph) *Cache {
	return &Cache{graph: g, results: map[string][]MatchResult{}}
}

func (c *Cache) Match(sceneID string, sceneKeywords []string) []MatchResult {
	if cached, ok := c.results[sceneID]; ok {
		return cached
	}
	matches := Match(c.graph, sceneKeywords)
	c.results[sceneID] = matches
	return matches
}
