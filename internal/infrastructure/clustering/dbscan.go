// Package clustering groups extracted documents by textual similarity so
// reviewers validate one cluster instead of hundreds of near-identical
// files. It runs DBSCAN over cosine similarity of term-frequency vectors.
package clustering

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/lexvault/import-engine/internal/core/domain"
)

const (
	defaultEpsilon   = 0.35
	defaultMinPoints = 2

	labelUnvisited = 0
	labelNoise     = -1
)

type Engine struct {
	// Epsilon is the maximum cosine distance between neighbors.
	Epsilon   float64
	MinPoints int
}

func NewEngine() *Engine {
	return &Engine{Epsilon: defaultEpsilon, MinPoints: defaultMinPoints}
}

func (e *Engine) Cluster(ctx context.Context, docs []domain.ExtractedDocument) ([]domain.ClusterProposal, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	epsilon := e.Epsilon
	if epsilon <= 0 {
		epsilon = defaultEpsilon
	}
	minPoints := e.MinPoints
	if minPoints <= 0 {
		minPoints = defaultMinPoints
	}

	vectors := make([]map[string]float64, len(docs))
	for i := range docs {
		vectors[i] = termVector(&docs[i])
	}

	labels := make([]int, len(docs))
	clusters := 0
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if labels[i] != labelUnvisited {
			continue
		}
		seeds := neighborsOf(vectors, i, epsilon)
		if len(seeds) < minPoints {
			labels[i] = labelNoise
			continue
		}
		clusters++
		labels[i] = clusters
		// Standard seed expansion: noise points get adopted as border
		// points, unvisited core points extend the frontier.
		for cursor := 0; cursor < len(seeds); cursor++ {
			j := seeds[cursor]
			if labels[j] == labelNoise {
				labels[j] = clusters
				continue
			}
			if labels[j] != labelUnvisited {
				continue
			}
			labels[j] = clusters
			reachable := neighborsOf(vectors, j, epsilon)
			if len(reachable) >= minPoints {
				seeds = append(seeds, reachable...)
			}
		}
	}

	proposals := make([]domain.ClusterProposal, 0, clusters)
	for cluster := 1; cluster <= clusters; cluster++ {
		var members []domain.ExtractedDocument
		for i, label := range labels {
			if label == cluster {
				members = append(members, docs[i])
			}
		}
		proposals = append(proposals, buildProposal(members))
	}
	return proposals, nil
}

func neighborsOf(vectors []map[string]float64, point int, epsilon float64) []int {
	var out []int
	for i := range vectors {
		if i == point {
			continue
		}
		if 1-cosine(vectors[point], vectors[i]) <= epsilon {
			out = append(out, i)
		}
	}
	return out
}

func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for term, weight := range a {
		normA += weight * weight
		if other, ok := b[term]; ok {
			dot += weight * other
		}
	}
	for _, weight := range b {
		normB += weight * weight
	}
	if dot == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// termVector tokenizes whatever text the document carries. Body text when
// extraction succeeded, otherwise subject and file name still give enough
// signal to group repeated attachments.
func termVector(doc *domain.ExtractedDocument) map[string]float64 {
	text := doc.ExtractedText
	if strings.TrimSpace(text) == "" {
		text = doc.EmailSubject + " " + doc.FileName
	}

	vector := make(map[string]float64)
	for _, term := range tokenize(text) {
		vector[term]++
	}
	return vector
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	out := fields[:0]
	for _, field := range fields {
		if len(field) >= 3 {
			out = append(out, field)
		}
	}
	return out
}

func buildProposal(members []domain.ExtractedDocument) domain.ClusterProposal {
	ids := make([]string, 0, len(members))
	counts := make(map[string]int)
	for i := range members {
		ids = append(ids, members[i].ID)
		for _, term := range tokenize(members[i].FileName) {
			counts[term]++
		}
	}

	samples := ids
	if len(samples) > domain.MaxSampleDocuments {
		samples = samples[:domain.MaxSampleDocuments]
	}

	name := dominantTerms(counts, 3)
	if name == "" {
		name = "Documente similare"
	}
	return domain.ClusterProposal{
		SuggestedName:     name,
		SuggestedNameEn:   "",
		Description:       "",
		DocumentIDs:       ids,
		SampleDocumentIDs: append([]string(nil), samples...),
	}
}

// dominantTerms names the cluster after its most frequent file name tokens.
func dominantTerms(counts map[string]int, limit int) string {
	type entry struct {
		term  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for term, count := range counts {
		entries = append(entries, entry{term, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].term < entries[j].term
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	terms := make([]string, len(entries))
	for i, e := range entries {
		terms[i] = e.term
	}
	return strings.Join(terms, " ")
}
