// Package contextbuilder assembles a character-budgeted, citation-marked
// prompt context from retrieved chunks. No teacher equivalent exists in
// the skills-repository (it never assembles an LLM prompt); this package
// follows the pack's RAG-pipeline chunk→prompt conventions (provenance
// strings, character budgets) written in the teacher's plain-function
// style.
package contextbuilder

import (
	"fmt"
	"strings"

	"github.com/SaintWyss/rag-corp-sub001/pkg/model"
)

// DefaultBudget is the default character budget for an assembled context.
const DefaultBudget = 12000

// DocumentLookup resolves a chunk's document title/source for provenance
// rendering without the builder depending on the store directly.
type DocumentLookup func(documentID int64) (title, source string)

// Result is the assembled prompt context plus the chunks that made it in,
// in the same order they were rendered.
type Result struct {
	Context    string
	ChunksUsed []model.ScoredChunk
}

// Build iterates chunks in order, composing "[S{i+1}] {provenance}\n{content}\n"
// blocks and accumulating until the next block would exceed the budget.
// A mandatory trailing "FUENTES:" section enumerates every included source.
// If nothing fits, Result.Context is "" and ChunksUsed is empty — the
// orchestrator treats that identically to "no evidence found".
func Build(chunks []model.ScoredChunk, budget int, lookup DocumentLookup) Result {
	if budget <= 0 {
		budget = DefaultBudget
	}

	var body strings.Builder
	used := make([]model.ScoredChunk, 0, len(chunks))
	provenances := make([]string, 0, len(chunks))

	for _, sc := range chunks {
		title, source := lookup(sc.Chunk.DocumentID)
		provenance := renderProvenance(title, source, sc.Chunk.ChunkIndex)
		idx := len(used) + 1
		block := fmt.Sprintf("[S%d] %s\n%s\n", idx, provenance, sc.Chunk.Content)

		trailer := renderTrailer(append(append([]string{}, provenances...), provenance))
		if body.Len()+len(block)+len(trailer) > budget {
			break
		}

		body.WriteString(block)
		used = append(used, sc)
		provenances = append(provenances, provenance)
	}

	if len(used) == 0 {
		return Result{Context: "", ChunksUsed: nil}
	}

	body.WriteString(renderTrailer(provenances))
	return Result{Context: body.String(), ChunksUsed: used}
}

func renderProvenance(title, source string, chunkIndex int) string {
	p := title
	if source != "" {
		p = p + " (" + source + ")"
	}
	return fmt.Sprintf("%s #%d", p, chunkIndex)
}

func renderTrailer(provenances []string) string {
	var b strings.Builder
	b.WriteString("FUENTES:\n")
	for i, p := range provenances {
		fmt.Fprintf(&b, "[S%d] -> %s\n", i+1, p)
	}
	return b.String()
}
