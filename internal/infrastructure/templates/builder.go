// Package templates derives a reusable document skeleton from an approved
// cluster. Lines shared by most member documents form the template body;
// the parts that vary between documents are the blanks a lawyer fills in.
package templates

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/lexvault/import-engine/internal/core/domain"
)

// shareThreshold is the fraction of member documents a line must appear in
// to count as template boilerplate.
const shareThreshold = 0.6

type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) Build(ctx context.Context, cluster *domain.DocumentCluster, docs []domain.ExtractedDocument) (*domain.DocumentTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	withText := 0
	lineCounts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0
	for i := range docs {
		lines := normalizedLines(docs[i].ExtractedText)
		if len(lines) == 0 {
			continue
		}
		withText++
		seen := make(map[string]bool, len(lines))
		for _, line := range lines {
			if seen[line] {
				continue
			}
			seen[line] = true
			lineCounts[line]++
			if _, ok := firstSeen[line]; !ok {
				firstSeen[line] = order
				order++
			}
		}
	}
	if withText == 0 {
		return nil, errors.New("no member document carries extracted text")
	}

	minCount := int(float64(withText)*shareThreshold + 0.5)
	if minCount < 2 {
		minCount = 2
	}
	if withText == 1 {
		minCount = 1
	}

	body := make([]string, 0, len(lineCounts))
	for line, count := range lineCounts {
		if count >= minCount {
			body = append(body, line)
		}
	}
	if len(body) == 0 {
		return nil, errors.New("member documents share no text")
	}
	sortByFirstSeen(body, firstSeen)

	name := cluster.ApprovedName
	if name == "" {
		name = cluster.SuggestedName
	}

	return &domain.DocumentTemplate{
		ID:          uuid.NewString(),
		SessionID:   cluster.SessionID,
		ClusterID:   cluster.ID,
		Name:        name,
		Body:        strings.Join(body, "\n"),
		SourceCount: withText,
	}, nil
}

func normalizedLines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func sortByFirstSeen(lines []string, firstSeen map[string]int) {
	for i := 1; i < len(lines); i++ {
		for j := i; j > 0 && firstSeen[lines[j]] < firstSeen[lines[j-1]]; j-- {
			lines[j], lines[j-1] = lines[j-1], lines[j]
		}
	}
}
