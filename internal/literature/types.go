package literature

import (
	"fmt"
	"strings"
)

type Link struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Reference is one paper record. Abstract feeds background synthesis and is
// not part of the response contract.
type Reference struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     string   `json:"year,omitempty"`
	DOI      string   `json:"doi,omitempty"`
	Links    []Link   `json:"links"`
	Abstract string   `json:"-"`
}

type EntityInfo struct {
	Definition string `json:"definition"`
	Progress   string `json:"progress"`
	Challenges string `json:"challenges"`
}

type EntityBackground struct {
	Background      EntityInfo  `json:"background"`
	LiteratureCount int         `json:"literature_count"`
	References      []Reference `json:"literature_references"`
}

// Background is built once per evaluation and shared read-only by every agent.
type Background struct {
	Entities          []string                    `json:"entities"`
	EntityBackgrounds map[string]EntityBackground `json:"entity_backgrounds"`
}

// ContextText renders the background as the condensed prompt section the
// agents receive. Output depends only on the background contents.
func (b *Background) ContextText() string {
	if b == nil || len(b.Entities) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Key scientific entity background (retrieved from academic literature):\n")
	sb.WriteString(fmt.Sprintf("Extracted entities: %s\n", strings.Join(b.Entities, ", ")))

	for _, entity := range b.Entities {
		data, ok := b.EntityBackgrounds[entity]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("\n[%s]\n", entity))
		if data.Background.Definition != "" {
			sb.WriteString(fmt.Sprintf("- Definition: %s\n", data.Background.Definition))
		}
		if data.Background.Progress != "" {
			sb.WriteString(fmt.Sprintf("- Research Progress: %s\n", data.Background.Progress))
		}
		if data.Background.Challenges != "" {
			sb.WriteString(fmt.Sprintf("- Challenges: %s\n", data.Background.Challenges))
		}
		sb.WriteString(fmt.Sprintf("- References consulted: %d\n", data.LiteratureCount))
	}

	return sb.String()
}
