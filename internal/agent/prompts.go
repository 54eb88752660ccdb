package agent

import (
	"fmt"
	"strings"
)

// System prompts framing each specialist's role for the model backend.
const (
	researcherSystem = "You are a meticulous senior research analyst with expertise in technology, " +
		"science, and current affairs. You excel at finding credible sources, synthesizing complex " +
		"information, and presenting research findings in a structured, actionable format. You always " +
		"verify facts from multiple sources and provide comprehensive analysis."

	writerSystem = "You are a skilled technical writer with a talent for making complex topics " +
		"accessible and engaging. You specialize in comprehensive articles with perfect structure, " +
		"flow, and clarity, turning research into compelling narratives that engage readers while " +
		"maintaining accuracy and depth."

	proofreaderSystem = "You are a meticulous senior content editor with an eye for detail. You excel " +
		"at improving clarity, fixing grammatical errors, enhancing readability, and ensuring content " +
		"meets professional publishing standards. You verify facts, improve flow, and ensure " +
		"consistency throughout the piece."
)

// researchPrompt builds the research task for a topic.
func researchPrompt(req StageRequest, findings []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Conduct comprehensive research on the topic: %s\n\n", req.Topic)
	b.WriteString(`Your research should cover:
1. Current state of the technology/topic
2. Key concepts and principles
3. Recent developments and breakthroughs
4. Practical applications and use cases
5. Future implications and trends

Provide a detailed research report with:
- Executive summary
- Key findings organized by subtopic
- Potential angles for the article
- Important statistics and data points

Target length: 1000-1500 words of research notes.
Focus on accuracy, credibility, and comprehensiveness.
`)
	if len(findings) > 0 {
		b.WriteString("\nWeb search results to draw on:\n\n")
		for _, f := range findings {
			b.WriteString(f)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// writingPrompt builds the drafting task from the research output.
func writingPrompt(req StageRequest, research string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Using the research provided, write a comprehensive %d-word article on %s in a %s tone.\n\n",
		req.WordCount, req.Topic, req.Tone)
	b.WriteString(`The article should include:
1. A compelling introduction that hooks the reader
2. Clear explanation of fundamental concepts
3. Current state and recent developments
4. Practical applications and real-world examples
5. Future implications and predictions
6. A conclusion that ties everything together
`)
	if req.IncludeReferences {
		b.WriteString("7. Proper citations and references\n")
	}
	fmt.Fprintf(&b, `
Requirements:
- Approximately %d words
- Proper structure with markdown headers and subheaders
- Relevant examples and analogies
- Active voice and clear language
- Consistent style throughout

Research findings:

%s
`, req.WordCount, research)
	return b.String()
}

// proofreadingPrompt builds the editing task from the draft.
func proofreadingPrompt(req StageRequest, draft string) string {
	return fmt.Sprintf(`Review and edit the article below for:

1. Grammar, spelling, and punctuation errors
2. Clarity and readability improvements
3. Logical flow and structure optimization
4. Accuracy of technical information
5. Consistency in tone (%s) and style
6. Proper formatting and headers

Return only the edited article, keeping it close to %d words while improving quality.

Article to edit:

%s
`, req.Tone, req.WordCount, draft)
}
