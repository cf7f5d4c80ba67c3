package literature

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/topic-eval/backend/internal/llm"
	"github.com/topic-eval/backend/internal/metrics"
	"github.com/topic-eval/backend/pkg/logger"
)

const maxEntities = 3

type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]Reference, bool)
}

// Synthesizer builds the shared literature background for one evaluation:
// entity extraction, then an independent search-and-summarize pass per entity.
type Synthesizer struct {
	completer     Completer
	searcher      Searcher
	refsPerEntity int
}

func NewSynthesizer(completer Completer, searcher Searcher, refsPerEntity int) *Synthesizer {
	if refsPerEntity <= 0 {
		refsPerEntity = 5
	}
	return &Synthesizer{
		completer:     completer,
		searcher:      searcher,
		refsPerEntity: refsPerEntity,
	}
}

// Build returns the literature background for the topic, or nil when entity
// extraction fails or no entity survives enrichment. A nil background is a
// degradation, not an error: the evaluation proceeds without it.
func (s *Synthesizer) Build(ctx context.Context, topic string) *Background {
	entities := s.extractEntities(ctx, topic)
	metrics.EntitiesExtracted.Observe(float64(len(entities)))

	if len(entities) == 0 {
		logger.Warn("Entity extraction failed, proceeding without background")
		return nil
	}

	logger.Info("Key entities extracted", zap.Strings("entities", entities))

	type entityResult struct {
		info EntityBackground
		ok   bool
	}

	results := make([]entityResult, len(entities))
	var wg sync.WaitGroup

	for i, entity := range entities {
		wg.Add(1)
		go func(i int, entity string) {
			defer wg.Done()

			refs, _ := s.searcher.Search(ctx, entity, s.refsPerEntity)

			info, err := s.synthesize(ctx, entity, refs)
			if err != nil {
				logger.Warn("Dropping entity from background",
					zap.String("entity", entity),
					zap.Error(err),
				)
				return
			}

			results[i] = entityResult{
				info: EntityBackground{
					Background:      info,
					LiteratureCount: len(refs),
					References:      refs,
				},
				ok: true,
			}
		}(i, entity)
	}

	wg.Wait()

	background := &Background{
		Entities:          make([]string, 0, len(entities)),
		EntityBackgrounds: make(map[string]EntityBackground, len(entities)),
	}
	for i, entity := range entities {
		if !results[i].ok {
			continue
		}
		background.Entities = append(background.Entities, entity)
		background.EntityBackgrounds[entity] = results[i].info
	}

	if len(background.Entities) == 0 {
		logger.Warn("No entity survived background synthesis")
		return nil
	}

	return background
}

const entityExtractionPrompt = `Extract 2-3 key scientific entities/concepts from the following space science research topic.
These entities should be core concepts that require background knowledge to properly evaluate this topic.

Research Topic: %s

Return only the entity names, one per line, without numbering or other formatting.
Example output:
Microgravity Environment
Bone Loss
Muscle Atrophy`

func (s *Synthesizer) extractEntities(ctx context.Context, topic string) []string {
	resp, err := s.completer.Complete(ctx, llm.CompletionRequest{
		UserPrompt:  fmt.Sprintf(entityExtractionPrompt, topic),
		Temperature: 0.3,
	})
	if err != nil {
		logger.Warn("Entity extraction completion failed", zap.Error(err))
		return fallbackEntities(topic)
	}

	entities := parseEntityList(llm.StripThinking(resp.Content))
	if len(entities) == 0 {
		return fallbackEntities(topic)
	}
	return entities
}

var (
	numberingPrefix = regexp.MustCompile(`^\d+[\.\)]\s*`)
	bulletPrefix    = regexp.MustCompile(`^[-•*]\s*`)
)

func parseEntityList(content string) []string {
	seen := make(map[string]bool)
	entities := make([]string, 0, maxEntities)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		line = numberingPrefix.ReplaceAllString(line, "")
		line = bulletPrefix.ReplaceAllString(line, "")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		key := strings.ToLower(line)
		if seen[key] {
			continue
		}
		seen[key] = true

		entities = append(entities, line)
		if len(entities) == maxEntities {
			break
		}
	}

	return entities
}

// fallbackEntities runs a deterministic NER/noun-phrase pass over the topic
// when the model pass yields nothing parseable.
func fallbackEntities(topic string) []string {
	doc, err := prose.NewDocument(topic)
	if err != nil {
		return nil
	}

	seen := make(map[string]bool)
	entities := make([]string, 0, maxEntities)

	add := func(candidate string) {
		candidate = strings.TrimSpace(candidate)
		if len(candidate) < 3 {
			return
		}
		key := strings.ToLower(candidate)
		if seen[key] {
			return
		}
		seen[key] = true
		if len(entities) < maxEntities {
			entities = append(entities, candidate)
		}
	}

	for _, ent := range doc.Entities() {
		add(ent.Text)
	}

	if len(entities) < maxEntities {
		var phrase []string
		flush := func() {
			if len(phrase) > 0 {
				add(strings.Join(phrase, " "))
				phrase = phrase[:0]
			}
		}
		for _, tok := range doc.Tokens() {
			if strings.HasPrefix(tok.Tag, "NN") {
				phrase = append(phrase, tok.Text)
			} else {
				flush()
			}
		}
		flush()
	}

	if len(entities) > 0 {
		logger.Info("Entity extraction fell back to NER", zap.Strings("entities", entities))
	}

	return entities
}

const maxAbstractChars = 500

func (s *Synthesizer) synthesize(ctx context.Context, entity string, refs []Reference) (EntityInfo, error) {
	var litContext strings.Builder
	for i, ref := range refs {
		if i >= s.refsPerEntity {
			break
		}
		litContext.WriteString(fmt.Sprintf("\nPaper %d: %s", i+1, ref.Title))
		if ref.Abstract != "" {
			abstract := ref.Abstract
			if len(abstract) > maxAbstractChars {
				abstract = abstract[:maxAbstractChars] + "..."
			}
			litContext.WriteString(fmt.Sprintf("\nAbstract: %s", abstract))
		}
		litContext.WriteString("\n")
	}

	litSection := litContext.String()
	if strings.TrimSpace(litSection) == "" {
		litSection = "No related literature found. Please answer based on your knowledge."
	}

	prompt := fmt.Sprintf(`Based on the following academic literature information, generate background information for the scientific entity "%s".
Organize the content into the following three sections, with 2-3 sentences each:

1. Definition: What is this concept/entity
2. Research Progress: Major research achievements and current state in this field
3. Challenges: Main challenges and unresolved problems in this field

Related Literature:
%s

Please respond in concise, professional language using the following format:
Definition: [content]
Research Progress: [content]
Challenges: [content]`, entity, litSection)

	resp, err := s.completer.Complete(ctx, llm.CompletionRequest{
		UserPrompt:  prompt,
		Temperature: 0.5,
	})
	if err != nil {
		return EntityInfo{}, fmt.Errorf("background synthesis for %q failed: %w", entity, err)
	}

	return parseEntityInfo(llm.StripThinking(resp.Content)), nil
}

func parseEntityInfo(content string) EntityInfo {
	sections := map[string]*strings.Builder{
		"definition": {},
		"progress":   {},
		"challenges": {},
	}

	current := ""
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "definition"):
			current = "definition"
			line = afterColon(line)
		case strings.HasPrefix(lower, "research progress"), strings.HasPrefix(lower, "progress"):
			current = "progress"
			line = afterColon(line)
		case strings.HasPrefix(lower, "challenge"):
			current = "challenges"
			line = afterColon(line)
		}

		if current == "" || line == "" {
			continue
		}
		sb := sections[current]
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(line)
	}

	info := EntityInfo{
		Definition: sections["definition"].String(),
		Progress:   sections["progress"].String(),
		Challenges: sections["challenges"].String(),
	}

	// Unstructured answer: keep the head of the response as a definition
	// rather than discarding the synthesis entirely.
	if info.Definition == "" && info.Progress == "" && info.Challenges == "" {
		trimmed := strings.TrimSpace(content)
		if len(trimmed) > 200 {
			trimmed = trimmed[:200]
		}
		info.Definition = trimmed
	}

	return info
}

func afterColon(line string) string {
	if idx := strings.Index(line, ":"); idx >= 0 {
		return strings.TrimSpace(line[idx+1:])
	}
	return ""
}
